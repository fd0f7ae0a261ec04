package assets

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/Faultbox/midgard-lod/pkg/grf"
)

type memArchive struct {
	files  map[string]string
	closed bool
	err    error
}

func (a *memArchive) Read(name string) ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}
	data, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", grf.ErrNotFound, name)
	}
	return []byte(data), nil
}

func (a *memArchive) List() []string {
	var names []string
	for name := range a.files {
		names = append(names, name)
	}
	return names
}

func (a *memArchive) Close() error {
	a.closed = true
	return nil
}

func newTestManager() (*Manager, *memArchive, *memArchive) {
	base := &memArchive{files: map[string]string{
		"data/model/tree.rsm":  "base tree",
		"data/model/house.rsm": "base house",
		"data/texture/a.bmp":   "texture",
	}}
	patch := &memArchive{files: map[string]string{
		"data/model/tree.rsm": "patched tree",
		"data/model/well.rsm": "patched well",
	}}
	m := NewManager()
	m.Add(base)
	m.Add(patch)
	return m, base, patch
}

func TestManagerRead(t *testing.T) {
	m, _, _ := newTestManager()

	tests := []struct {
		name string
		want string
	}{
		{"data/model/tree.rsm", "patched tree"},
		{"data/model/house.rsm", "base house"},
		{"data/model/well.rsm", "patched well"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := m.Read(tt.name)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Read() = %q, want %q", data, tt.want)
			}
		})
	}

	if _, err := m.Read("data/model/none.rsm"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManagerReadError(t *testing.T) {
	m, _, patch := newTestManager()
	patch.err = grf.ErrEncrypted

	if _, err := m.Read("data/model/house.rsm"); !errors.Is(err, grf.ErrEncrypted) {
		t.Errorf("expected archive error to surface, got %v", err)
	}
}

func TestManagerListAndGlob(t *testing.T) {
	m, _, _ := newTestManager()

	want := []string{
		"data/model/house.rsm",
		"data/model/tree.rsm",
		"data/model/well.rsm",
		"data/texture/a.bmp",
	}
	if got := m.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	got, err := m.Glob(`DATA\MODEL\*.RSM`)
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if !reflect.DeepEqual(got, want[:3]) {
		t.Errorf("Glob() = %v, want %v", got, want[:3])
	}

	if _, err := m.Glob("data/["); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestManagerClose(t *testing.T) {
	m, base, patch := newTestManager()
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !base.closed || !patch.closed {
		t.Error("archives not closed")
	}
	if m.Len() != 0 {
		t.Errorf("Len() after Close = %d", m.Len())
	}
}

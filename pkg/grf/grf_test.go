package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Faultbox/midgard-lod/pkg/encoding"
)

type testFile struct {
	name     string
	content  []byte
	compress bool
	flags    uint8
}

var testFiles = []testFile{
	{name: `data\model\prontera\tree.rsm`, content: bytes.Repeat([]byte("GRSM"), 64), compress: true},
	{name: "data/model/prontera/Fountain.RSM", content: []byte("fountain model"), compress: false},
	{name: "data/model/프론테라/나무.rsm", content: []byte("korean path"), compress: true},
	{name: "data/texture/wall.bmp", content: []byte("BM fake bitmap data"), compress: true},
	{name: "data/secret.bin", content: []byte("hidden"), flags: FlagFile | FlagEncrypted},
	{name: "data/model", flags: 0}, // directory entry
}

// buildGRF assembles a GRF 0x200 archive in memory.
func buildGRF(t *testing.T, files []testFile) []byte {
	t.Helper()
	var body, table bytes.Buffer

	for _, f := range files {
		stored := f.content
		if f.compress {
			var zb bytes.Buffer
			zw := zlib.NewWriter(&zb)
			zw.Write(f.content)
			zw.Close()
			stored = zb.Bytes()
		}
		offset := body.Len()
		aligned := (len(stored) + 7) &^ 7
		body.Write(stored)
		body.Write(make([]byte, aligned-len(stored)))

		table.Write(encoding.UTF8ToEUCKR(f.name))
		table.WriteByte(0)
		binary.Write(&table, binary.LittleEndian, uint32(len(stored)))
		binary.Write(&table, binary.LittleEndian, uint32(aligned))
		binary.Write(&table, binary.LittleEndian, uint32(len(f.content)))
		flags := f.flags
		if flags == 0 && f.content != nil {
			flags = FlagFile
		}
		table.WriteByte(flags)
		binary.Write(&table, binary.LittleEndian, uint32(offset))
	}

	var zt bytes.Buffer
	zw := zlib.NewWriter(&zt)
	zw.Write(table.Bytes())
	zw.Close()

	const seed = 3
	hdr := Header{
		TableOffset: uint32(body.Len()),
		Seed:        seed,
		FileCount:   uint32(len(files)) + seed + 7,
		Version:     0x200,
	}
	copy(hdr.Magic[:], grfMagic)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, hdr)
	out.Write(body.Bytes())
	binary.Write(&out, binary.LittleEndian, uint32(zt.Len()))
	binary.Write(&out, binary.LittleEndian, uint32(table.Len()))
	out.Write(zt.Bytes())
	return out.Bytes()
}

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := NewReader(bytes.NewReader(buildGRF(t, testFiles)))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	return a
}

func TestList(t *testing.T) {
	a := openTestArchive(t)

	want := []string{
		"data/model/prontera/fountain.rsm",
		"data/model/prontera/tree.rsm",
		"data/model/프론테라/나무.rsm",
		"data/secret.bin",
		"data/texture/wall.bmp",
	}
	got := a.List()
	if len(got) != len(want) {
		t.Fatalf("List() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if h := a.Header(); h.Version != 0x200 {
		t.Errorf("header version = 0x%x", h.Version)
	}
}

func TestGlob(t *testing.T) {
	a := openTestArchive(t)

	tests := []struct {
		pattern string
		want    int
	}{
		{"data/model/*/*.rsm", 3},
		{`DATA\MODEL\PRONTERA\*.RSM`, 2},
		{"data/model/프론테라/*", 1},
		{"*.rsm", 0},
		{"data/texture/*.bmp", 1},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := a.Glob(tt.pattern)
			if err != nil {
				t.Fatalf("Glob failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Glob(%q) = %q, want %d matches", tt.pattern, got, tt.want)
			}
		})
	}

	if _, err := a.Glob("data/[unclosed"); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestRead(t *testing.T) {
	a := openTestArchive(t)

	for _, f := range testFiles[:4] {
		t.Run(f.name, func(t *testing.T) {
			got, err := a.Read(f.name)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if !bytes.Equal(got, f.content) {
				t.Errorf("Read(%q) = %q, want %q", f.name, got, f.content)
			}
		})
	}

	if !a.Contains("DATA/TEXTURE/WALL.BMP") {
		t.Error("Contains should be case-insensitive")
	}
	if _, err := a.Read("data/missing.rsm"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := a.Read("data/secret.bin"); !errors.Is(err, ErrEncrypted) {
		t.Errorf("expected ErrEncrypted, got %v", err)
	}
	if _, err := a.Stat("data/model"); !errors.Is(err, ErrNotFound) {
		t.Errorf("directory entries should not be listed, got %v", err)
	}
}

func TestReadConcurrent(t *testing.T) {
	a := openTestArchive(t)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f := testFiles[i%4]
			got, err := a.Read(f.name)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(got, f.content) {
				errs <- errors.New("content mismatch for " + f.name)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.grf")
	if err := os.WriteFile(path, buildGRF(t, testFiles), 0644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()

	entry, err := a.Stat("data/model/prontera/tree.rsm")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if entry.UncompressedSize != 256 {
		t.Errorf("UncompressedSize = %d, want 256", entry.UncompressedSize)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.grf")); err == nil {
		t.Error("expected error opening missing archive")
	}
}

func TestNewReaderErrors(t *testing.T) {
	valid := buildGRF(t, testFiles)

	tests := []struct {
		name    string
		data    func() []byte
		wantErr error
	}{
		{"bad magic", func() []byte {
			d := bytes.Clone(valid)
			d[0] = 'X'
			return d
		}, ErrInvalidMagic},
		{"bad version", func() []byte {
			d := bytes.Clone(valid)
			binary.LittleEndian.PutUint32(d[42:], 0x103)
			return d
		}, ErrUnsupportedVersion},
		{"file count below seed", func() []byte {
			d := bytes.Clone(valid)
			binary.LittleEndian.PutUint32(d[38:], 2)
			return d
		}, ErrCorruptTable},
		{"too many entries", func() []byte {
			d := bytes.Clone(valid)
			binary.LittleEndian.PutUint32(d[38:], 100)
			return d
		}, ErrCorruptTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(bytes.NewReader(tt.data()))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := NewReader(bytes.NewReader(valid[:20])); err == nil {
		t.Error("expected error for truncated header")
	}
}

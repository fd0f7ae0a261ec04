// Package assets overlays several GRF archives into one model source.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"sync"

	"github.com/Faultbox/midgard-lod/pkg/encoding"
	"github.com/Faultbox/midgard-lod/pkg/grf"
)

// ErrNotFound is returned when no archive holds the requested file.
var ErrNotFound = errors.New("file not found")

// Archive is a read-only file container. *grf.Archive implements it.
type Archive interface {
	Read(name string) ([]byte, error)
	List() []string
	Close() error
}

// Manager resolves files across archives.
// Archives are searched in reverse order (last added = highest priority).
type Manager struct {
	archives []Archive
	mu       sync.RWMutex
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// AddArchive opens a GRF archive and adds it with the highest priority.
func (m *Manager) AddArchive(path string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	m.Add(archive)
	return nil
}

// Add adds an already opened archive with the highest priority.
func (m *Manager) Add(a Archive) {
	m.mu.Lock()
	m.archives = append(m.archives, a)
	m.mu.Unlock()
}

// Len returns the number of archives.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.archives)
}

// Read returns name from the highest-priority archive that holds it.
func (m *Manager) Read(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.archives) - 1; i >= 0; i-- {
		data, err := m.archives[i].Read(name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, grf.ErrNotFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// List returns the sorted union of all archive listings.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	for _, a := range m.archives {
		for _, name := range a.List() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Glob returns the sorted names matching a path.Match pattern. Matching is
// case-insensitive and accepts backslashes.
func (m *Manager) Glob(pattern string) ([]string, error) {
	pattern = encoding.NormalizePath(pattern)
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	var result []string
	for _, name := range m.List() {
		if ok, _ := path.Match(pattern, name); ok {
			result = append(result, name)
		}
	}
	return result, nil
}

// Close closes all archives.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, archive := range m.archives {
		if err := archive.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.archives = nil
	return errors.Join(errs...)
}

package testutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// MemFS is an in-memory filesystem for tests. Copies duplicate every file
// below the source prefix.
type MemFS struct {
	Files map[string]string
	// Copies records every CopyAll call as "from -> to".
	Copies []string
}

// NewMemFS returns a filesystem seeded with files.
func NewMemFS(files map[string]string) *MemFS {
	m := &MemFS{Files: make(map[string]string)}
	for k, v := range files {
		m.Files[filepath.Clean(k)] = v
	}
	return m
}

// ReadFile implements document.FileSystem.
func (m *MemFS) ReadFile(name string) ([]byte, error) {
	s, ok := m.Files[filepath.Clean(name)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return []byte(s), nil
}

// WriteFile implements document.FileSystem.
func (m *MemFS) WriteFile(name string, data []byte) error {
	m.Files[filepath.Clean(name)] = string(data)
	return nil
}

// CopyAll implements document.FileSystem.
func (m *MemFS) CopyAll(from, to string) error {
	from, to = filepath.Clean(from), filepath.Clean(to)
	found := false
	for name, content := range m.Files {
		if name == from || strings.HasPrefix(name, from+string(filepath.Separator)) {
			m.Files[filepath.Join(to, strings.TrimPrefix(name, from))] = content
			found = true
		}
	}
	if !found {
		return &fs.PathError{Op: "copy", Path: from, Err: fs.ErrNotExist}
	}
	m.Copies = append(m.Copies, fmt.Sprintf("%s -> %s", from, to))
	return nil
}

// Names returns all file names, sorted.
func (m *MemFS) Names() []string {
	names := make([]string, 0, len(m.Files))
	for k := range m.Files {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Package fsutil is the small filesystem surface a sweep is written through.
// Production code passes OSFileSystem; tests pass a MemoryFileSystem so a
// whole sweep tree can be built and inspected without touching disk.
package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// FileSystem is the set of operations sweep and simulation need.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	// WriteFile creates or truncates name. perm is applied on every write.
	WriteFile(name string, data []byte, perm os.FileMode) error
	Stat(name string) (fs.FileInfo, error)
	// Mkdir fails with fs.ErrExist when anything is already at path.
	Mkdir(path string, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	// ReadDir returns entry names in lexical order.
	ReadDir(dir string) ([]string, error)
}

// Exists reports whether name can be stat'ed in fsys.
func Exists(fsys FileSystem, name string) bool {
	_, err := fsys.Stat(name)
	return err == nil
}

// OSFileSystem writes through to the host filesystem.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

func (OSFileSystem) Mkdir(path string, perm os.FileMode) error { return os.Mkdir(path, perm) }

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

// WriteFile chmods after writing because os.WriteFile leaves the mode of an
// existing file alone, and regenerated scripts must stay executable.
func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(name, data, perm); err != nil {
		return err
	}
	return os.Chmod(name, perm)
}

func (OSFileSystem) ReadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// MemoryFileSystem keeps a flat table of cleaned paths. Parents must exist
// before children are created, as on disk.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	nodes map[string]*memNode
}

type memNode struct {
	dir  bool
	data []byte
	mode os.FileMode
}

// NewMemoryFileSystem returns an empty tree rooted at "/" (and ".").
func NewMemoryFileSystem() *MemoryFileSystem {
	root := &memNode{dir: true, mode: fs.ModeDir | 0755}
	return &MemoryFileSystem{nodes: map[string]*memNode{"/": root, ".": root}}
}

func pathErr(op, path string, err error) error {
	return &fs.PathError{Op: op, Path: path, Err: err}
}

// parentDir is called with mu held.
func (m *MemoryFileSystem) parentDir(path string) bool {
	n, ok := m.nodes[filepath.Dir(path)]
	return ok && n.dir
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = filepath.Clean(name)
	n, ok := m.nodes[name]
	switch {
	case !ok:
		return nil, pathErr("read", name, fs.ErrNotExist)
	case n.dir:
		return nil, pathErr("read", name, errors.New("is a directory"))
	}
	return slices.Clone(n.data), nil
}

func (m *MemoryFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = filepath.Clean(name)
	if n, ok := m.nodes[name]; ok && n.dir {
		return pathErr("write", name, fs.ErrExist)
	}
	if !m.parentDir(name) {
		return pathErr("write", name, fs.ErrNotExist)
	}
	m.nodes[name] = &memNode{data: slices.Clone(data), mode: perm.Perm()}
	return nil
}

func (m *MemoryFileSystem) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = filepath.Clean(name)
	n, ok := m.nodes[name]
	if !ok {
		return nil, pathErr("stat", name, fs.ErrNotExist)
	}
	return memInfo{name: filepath.Base(name), node: n}, nil
}

func (m *MemoryFileSystem) Mkdir(path string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	if _, ok := m.nodes[path]; ok {
		return pathErr("mkdir", path, fs.ErrExist)
	}
	if !m.parentDir(path) {
		return pathErr("mkdir", path, fs.ErrNotExist)
	}
	m.nodes[path] = &memNode{dir: true, mode: fs.ModeDir | perm.Perm()}
	return nil
}

// MkdirAll fails without creating anything when a regular file sits on the path.
func (m *MemoryFileSystem) MkdirAll(path string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var missing []string
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		if n, ok := m.nodes[p]; ok {
			if !n.dir {
				return pathErr("mkdir", p, fs.ErrExist)
			}
			break
		}
		missing = append(missing, p)
		if filepath.Dir(p) == p {
			break
		}
	}
	for _, p := range missing {
		m.nodes[p] = &memNode{dir: true, mode: fs.ModeDir | perm.Perm()}
	}
	return nil
}

func (m *MemoryFileSystem) ReadDir(dir string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dir = filepath.Clean(dir)
	if n, ok := m.nodes[dir]; !ok || !n.dir {
		return nil, pathErr("readdir", dir, fs.ErrNotExist)
	}
	var names []string
	for p := range m.nodes {
		if p != dir && filepath.Dir(p) == dir {
			names = append(names, filepath.Base(p))
		}
	}
	slices.Sort(names)
	return names, nil
}

type memInfo struct {
	name string
	node *memNode
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return int64(len(i.node.data)) }
func (i memInfo) Mode() fs.FileMode  { return i.node.mode }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return i.node.dir }
func (i memInfo) Sys() any           { return nil }

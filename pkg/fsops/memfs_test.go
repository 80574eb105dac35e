package fsops

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"
)

type memNode struct {
	dir bool
}

type memInfo struct {
	name string
	node *memNode
}

func (i memInfo) Name() string { return i.name }
func (i memInfo) Size() int64  { return 0 }
func (i memInfo) Mode() fs.FileMode {
	if i.node.dir {
		return fs.ModeDir | 0777
	}
	return 0700
}
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return i.node.dir }
func (i memInfo) Sys() interface{}   { return nil }

// memFS is an in-memory Filesystem that refuses to rmdir non-empty directories, records
// every mutating call and can be told to fail specific calls.
type memFS struct {
	nodes map[string]*memNode
	calls []string
	fail  map[string]error
}

func newMemFS(dirs []string, files []string) *memFS {
	m := &memFS{
		nodes: map[string]*memNode{".": {dir: true}},
		fail:  map[string]error{},
	}
	for _, dir := range dirs {
		m.nodes[filepath.Clean(dir)] = &memNode{dir: true}
	}
	for _, file := range files {
		m.nodes[filepath.Clean(file)] = &memNode{}
	}
	return m
}

func (m *memFS) check(op, name string) error {
	if err, ok := m.fail[op+" "+name]; ok {
		return &fs.PathError{Op: op, Path: name, Err: err}
	}
	return nil
}

func (m *memFS) lookup(op, name string) (*memNode, error) {
	name = filepath.Clean(name)
	parent := filepath.Dir(name)
	if parent != name {
		p, ok := m.nodes[parent]
		if !ok {
			return nil, &fs.PathError{Op: op, Path: name, Err: syscall.ENOENT}
		}
		if !p.dir {
			return nil, &fs.PathError{Op: op, Path: name, Err: syscall.ENOTDIR}
		}
	}

	node, ok := m.nodes[name]
	if !ok {
		return nil, &fs.PathError{Op: op, Path: name, Err: syscall.ENOENT}
	}
	return node, nil
}

func (m *memFS) children(name string) []string {
	name = filepath.Clean(name)
	result := []string{}
	for path := range m.nodes {
		if path != name && filepath.Dir(path) == name {
			result = append(result, filepath.Base(path))
		}
	}
	sort.Strings(result)
	return result
}

func (m *memFS) Stat(name string) (fs.FileInfo, error) {
	if err := m.check("stat", name); err != nil {
		return nil, err
	}
	node, err := m.lookup("stat", name)
	if err != nil {
		return nil, err
	}
	return memInfo{name: filepath.Base(name), node: node}, nil
}

func (m *memFS) Lstat(name string) (fs.FileInfo, error) {
	if err := m.check("lstat", name); err != nil {
		return nil, err
	}
	node, err := m.lookup("lstat", name)
	if err != nil {
		return nil, err
	}
	return memInfo{name: filepath.Base(name), node: node}, nil
}

func (m *memFS) create(op, name string, dir bool) error {
	if err := m.check(op, name); err != nil {
		return err
	}
	_, err := m.lookup(op, name)
	if err == nil {
		return &fs.PathError{Op: op, Path: name, Err: syscall.EEXIST}
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if _, err := m.lookup(op, filepath.Dir(name)); err != nil {
		return err
	}

	m.calls = append(m.calls, op+" "+name)
	m.nodes[filepath.Clean(name)] = &memNode{dir: dir}
	return nil
}

func (m *memFS) Mkdir(name string, perm fs.FileMode) error {
	return m.create("mkdir", name, true)
}

func (m *memFS) CreateExclusive(name string, perm fs.FileMode) error {
	return m.create("create", name, false)
}

func (m *memFS) ReadDir(name string) ([]string, error) {
	if err := m.check("readdir", name); err != nil {
		return nil, err
	}
	node, err := m.lookup("readdir", name)
	if err != nil {
		return nil, err
	}
	if !node.dir {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: syscall.ENOTDIR}
	}
	return append([]string{".", ".."}, m.children(name)...), nil
}

func (m *memFS) Unlink(name string) error {
	if err := m.check("unlink", name); err != nil {
		return err
	}
	node, err := m.lookup("unlink", name)
	if err != nil {
		return err
	}
	if node.dir {
		return &fs.PathError{Op: "unlink", Path: name, Err: syscall.EISDIR}
	}

	m.calls = append(m.calls, "unlink "+name)
	delete(m.nodes, filepath.Clean(name))
	return nil
}

func (m *memFS) Rmdir(name string) error {
	if err := m.check("rmdir", name); err != nil {
		return err
	}
	node, err := m.lookup("rmdir", name)
	if err != nil {
		return err
	}
	if !node.dir {
		return &fs.PathError{Op: "rmdir", Path: name, Err: syscall.ENOTDIR}
	}
	if len(m.children(name)) > 0 {
		return &fs.PathError{Op: "rmdir", Path: name, Err: syscall.ENOTEMPTY}
	}

	m.calls = append(m.calls, "rmdir "+name)
	delete(m.nodes, filepath.Clean(name))
	return nil
}

func (m *memFS) Rename(oldpath, newpath string) error {
	if err := m.check("rename", oldpath); err != nil {
		return err
	}
	if _, err := m.lookup("rename", oldpath); err != nil {
		return err
	}

	oldpath = filepath.Clean(oldpath)
	newpath = filepath.Clean(newpath)
	m.calls = append(m.calls, "rename "+oldpath+" "+newpath)
	moved := map[string]*memNode{}
	for path, node := range m.nodes {
		if path == oldpath || strings.HasPrefix(path, oldpath+string(filepath.Separator)) {
			moved[newpath+path[len(oldpath):]] = node
			delete(m.nodes, path)
		}
	}
	for path, node := range moved {
		m.nodes[path] = node
	}
	return nil
}

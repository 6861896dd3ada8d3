// Package memfs provides an in-memory storage backend for exercising the
// upload pipeline without touching a real filesystem.
package memfs

import (
	"context"
	"path"
	"sort"
	"sync"
)

// Op is one recorded storage operation.
type Op struct {
	Name string // "ensure", "writable", "exists", "move", "copy", "remove"
	Path string // directory or destination path
	Src  string // source path for move and copy
}

// Storage is an in-memory storage backend. It records every operation and
// can be primed to fail any of them.
type Storage struct {
	mu    sync.Mutex
	dirs  map[string]bool
	files map[string]string // destination path -> source it was placed from
	ops   []Op

	ensureDirErr error
	writableErr  error
	existsErr    error
	moveErr      error
	copyErr      error
	removeErr    error
}

// New creates an empty in-memory storage.
func New() *Storage {
	return &Storage{
		dirs:  make(map[string]bool),
		files: make(map[string]string),
	}
}

// Join composes a directory and a base name with forward slashes.
func (*Storage) Join(dir, name string) string {
	return path.Join(dir, name)
}

// EnsureDir records the directory as created.
func (s *Storage) EnsureDir(_ context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, Op{Name: "ensure", Path: dir})
	if s.ensureDirErr != nil {
		return s.ensureDirErr
	}
	s.dirs[dir] = true
	return nil
}

// Writable reports the primed writability error, if any.
func (s *Storage) Writable(_ context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, Op{Name: "writable", Path: dir})
	return s.writableErr
}

// Exists reports whether a file was seeded or placed at path.
func (s *Storage) Exists(_ context.Context, p string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, Op{Name: "exists", Path: p})
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.files[p]
	return ok, nil
}

// Move records the file at dst, consuming src.
func (s *Storage) Move(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, Op{Name: "move", Path: dst, Src: src})
	if s.moveErr != nil {
		return s.moveErr
	}
	s.files[dst] = src
	return nil
}

// Copy records the file at dst, leaving src in place.
func (s *Storage) Copy(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, Op{Name: "copy", Path: dst, Src: src})
	if s.copyErr != nil {
		return s.copyErr
	}
	s.files[dst] = src
	return nil
}

// Remove deletes the file at path. Removing a missing file is not an error.
func (s *Storage) Remove(_ context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, Op{Name: "remove", Path: p})
	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.files, p)
	return nil
}

// Seed marks a file as already existing at path.
func (s *Storage) Seed(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[p] = "seeded"
}

// Has reports whether a file currently exists at path.
func (s *Storage) Has(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[p]
	return ok
}

// Files returns the stored paths in sorted order.
func (s *Storage) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Ops returns the recorded operations in order.
func (s *Storage) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.ops...)
}

// Reset clears all files, directories, recorded operations, and primed
// errors.
func (s *Storage) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirs = make(map[string]bool)
	s.files = make(map[string]string)
	s.ops = nil
	s.ensureDirErr = nil
	s.writableErr = nil
	s.existsErr = nil
	s.moveErr = nil
	s.copyErr = nil
	s.removeErr = nil
}

// FailEnsureDir makes EnsureDir return err.
func (s *Storage) FailEnsureDir(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDirErr = err
}

// FailWritable makes Writable return err.
func (s *Storage) FailWritable(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writableErr = err
}

// FailExists makes Exists return err.
func (s *Storage) FailExists(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existsErr = err
}

// FailMove makes Move return err.
func (s *Storage) FailMove(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveErr = err
}

// FailCopy makes Copy return err.
func (s *Storage) FailCopy(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.copyErr = err
}

// FailRemove makes Remove return err.
func (s *Storage) FailRemove(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeErr = err
}

package testutil

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// FaultyFs wraps an afero.Fs and fails selected operations on selected paths.
// It also records every successful Remove in order.
type FaultyFs struct {
	afero.Fs

	mu           sync.Mutex
	openErrors   map[string]error
	readErrors   map[string]error
	createErrors map[string]error
	removeErrors map[string]error
	mkdirErrors  map[string]error
	removed      []string
}

// NewFaultyFs wraps base
func NewFaultyFs(base afero.Fs) *FaultyFs {
	return &FaultyFs{
		Fs:           base,
		openErrors:   make(map[string]error),
		readErrors:   make(map[string]error),
		createErrors: make(map[string]error),
		removeErrors: make(map[string]error),
		mkdirErrors:  make(map[string]error),
	}
}

// FailOpen makes Open of path (file or directory) fail with err
func (f *FaultyFs) FailOpen(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErrors[filepath.Clean(path)] = err
}

// FailRead makes reads from path fail with err after a successful open
func (f *FaultyFs) FailRead(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErrors[filepath.Clean(path)] = err
}

// FailCreate makes OpenFile with O_CREATE on path fail with err
func (f *FaultyFs) FailCreate(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErrors[filepath.Clean(path)] = err
}

// FailRemove makes Remove of path fail with err
func (f *FaultyFs) FailRemove(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeErrors[filepath.Clean(path)] = err
}

// FailMkdirAll makes MkdirAll of path fail with err
func (f *FaultyFs) FailMkdirAll(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mkdirErrors[filepath.Clean(path)] = err
}

// Removed returns the successfully removed paths in order
func (f *FaultyFs) Removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

func (f *FaultyFs) lookup(errs map[string]error, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return errs[filepath.Clean(name)]
}

// Open opens name unless a failure is registered for it
func (f *FaultyFs) Open(name string) (afero.File, error) {
	if err := f.lookup(f.openErrors, name); err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}

	file, err := f.Fs.Open(name)
	if err != nil {
		return nil, err
	}

	if readErr := f.lookup(f.readErrors, name); readErr != nil {
		return &failingFile{File: file, err: readErr}, nil
	}
	return file, nil
}

// OpenFile opens name unless a failure is registered for it
func (f *FaultyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&os.O_CREATE != 0 {
		if err := f.lookup(f.createErrors, name); err != nil {
			return nil, &os.PathError{Op: "open", Path: name, Err: err}
		}
	}
	if err := f.lookup(f.openErrors, name); err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

// Remove removes name unless a failure is registered for it
func (f *FaultyFs) Remove(name string) error {
	if err := f.lookup(f.removeErrors, name); err != nil {
		return &os.PathError{Op: "remove", Path: name, Err: err}
	}

	if err := f.Fs.Remove(name); err != nil {
		return err
	}

	f.mu.Lock()
	f.removed = append(f.removed, filepath.Clean(name))
	f.mu.Unlock()
	return nil
}

// MkdirAll creates path unless a failure is registered for it
func (f *FaultyFs) MkdirAll(path string, perm os.FileMode) error {
	if err := f.lookup(f.mkdirErrors, path); err != nil {
		return &os.PathError{Op: "mkdir", Path: path, Err: err}
	}
	return f.Fs.MkdirAll(path, perm)
}

// failingFile returns err from every Read
type failingFile struct {
	afero.File
	err error
}

func (f *failingFile) Read(p []byte) (int, error) {
	return 0, f.err
}

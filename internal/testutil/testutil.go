// Package testutil provides test helpers and fixtures for media-dedup tests.
// All file operations use t.TempDir() or an in-memory afero.Fs for safe, isolated testing.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

// TestFixture holds paths to test directories and files
type TestFixture struct {
	T       *testing.T
	RootDir string // Root temp directory (auto-cleaned)

	MediaDir string
	TrashDir string
}

// NewFixture creates a new test fixture with a media and a trash directory
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()

	root := t.TempDir()

	f := &TestFixture{
		T:        t,
		RootDir:  root,
		MediaDir: filepath.Join(root, "media"),
		TrashDir: filepath.Join(root, "trash"),
	}

	for _, dir := range []string{f.MediaDir, f.TrashDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	return f
}

// =============================================================================
// File Creation Helpers
// =============================================================================

// CreateFile creates a file under RootDir with specified content and returns its path
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateMedia creates a file under MediaDir
func (f *TestFixture) CreateMedia(relPath string, content []byte) string {
	f.T.Helper()
	return f.CreateFile(filepath.Join("media", relPath), content)
}

// CreateDir creates a directory under RootDir and returns its path
func (f *TestFixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateSymlink creates a symbolic link at linkPath (relative to RootDir)
func (f *TestFixture) CreateSymlink(target, linkPath string) string {
	f.T.Helper()

	fullLinkPath := filepath.Join(f.RootDir, linkPath)
	if err := os.MkdirAll(filepath.Dir(fullLinkPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullLinkPath, err)
	}

	if err := os.Symlink(target, fullLinkPath); err != nil {
		f.T.Fatalf("failed to create symlink %s -> %s: %v", fullLinkPath, target, err)
	}

	return fullLinkPath
}

// CreateNoPermissionDir creates a directory that cannot be listed
func (f *TestFixture) CreateNoPermissionDir(relPath string) string {
	f.T.Helper()

	dirPath := f.CreateDir(relPath)
	f.CreateFile(filepath.Join(relPath, "hidden.jpg"), []byte("hidden"))

	if err := os.Chmod(dirPath, 0000); err != nil {
		f.T.Fatalf("failed to chmod directory %s: %v", dirPath, err)
	}

	// Restore permissions so TempDir cleanup works
	f.T.Cleanup(func() {
		os.Chmod(dirPath, 0755)
	})

	return dirPath
}

// =============================================================================
// Path Helpers
// =============================================================================

// MediaPath returns the absolute path of relPath under MediaDir
func (f *TestFixture) MediaPath(relPath string) string {
	return filepath.Join(f.MediaDir, relPath)
}

// TrashPath returns the absolute path of relPath under TrashDir
func (f *TestFixture) TrashPath(relPath string) string {
	return filepath.Join(f.TrashDir, relPath)
}

// =============================================================================
// Assertion Helpers
// =============================================================================

// AssertFileExists fails the test if path does not exist
func (f *TestFixture) AssertFileExists(path string) {
	f.T.Helper()
	if _, err := os.Lstat(path); err != nil {
		f.T.Errorf("expected file to exist: %s (%v)", path, err)
	}
}

// AssertFileNotExists fails the test if path exists
func (f *TestFixture) AssertFileNotExists(path string) {
	f.T.Helper()
	if _, err := os.Lstat(path); err == nil {
		f.T.Errorf("expected file to not exist: %s", path)
	}
}

// AssertFileContent fails the test unless path holds exactly content
func (f *TestFixture) AssertFileContent(path string, content []byte) {
	f.T.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		f.T.Errorf("failed to read %s: %v", path, err)
		return
	}
	if string(data) != string(content) {
		f.T.Errorf("content of %s = %q, want %q", path, data, content)
	}
}

// Snapshot records every entry under RootDir as relative path -> content.
// Directories map to "<dir>" and symlinks to "-> target".
func (f *TestFixture) Snapshot() map[string]string {
	f.T.Helper()

	snap := make(map[string]string)
	err := filepath.Walk(f.RootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.RootDir, path)
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, _ := os.Readlink(path)
			snap[rel] = "-> " + target
		case info.IsDir():
			snap[rel] = "<dir>"
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			snap[rel] = string(data)
		}
		return nil
	})
	if err != nil {
		f.T.Fatalf("failed to snapshot %s: %v", f.RootDir, err)
	}

	return snap
}

// AssertSnapshotEqual fails the test if two snapshots differ
func AssertSnapshotEqual(t *testing.T, before, after map[string]string) {
	t.Helper()

	for path, content := range before {
		got, ok := after[path]
		if !ok {
			t.Errorf("entry disappeared: %s", path)
			continue
		}
		if got != content {
			t.Errorf("entry changed: %s", path)
		}
	}
	for path := range after {
		if _, ok := before[path]; !ok {
			t.Errorf("entry appeared: %s", path)
		}
	}
}

// =============================================================================
// In-memory Filesystem Helpers
// =============================================================================

// NewMemFs creates an in-memory filesystem holding files (absolute path -> content)
func NewMemFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, content := range files {
		WriteMemFile(t, fs, path, content)
	}
	return fs
}

// WriteMemFile writes content to path on fs, creating parent directories
func WriteMemFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// ReadMemFile returns the content of path on fs
func ReadMemFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// Exists reports whether path exists on fs
func Exists(fs afero.Fs, path string) bool {
	ok, _ := afero.Exists(fs, path)
	return ok
}

// =============================================================================
// Environment Helpers
// =============================================================================

// IsRoot returns true if running as root/admin
func IsRoot() bool {
	return os.Geteuid() == 0
}

// SkipIfRoot skips the test if running as root
func SkipIfRoot(t *testing.T) {
	t.Helper()
	if IsRoot() {
		t.Skip("skipping test when running as root")
	}
}

package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathValidator handles secure path validation for file operations
type PathValidator struct {
	protectedPaths []string
}

// NewPathValidator creates a new PathValidator with default protected paths
func NewPathValidator() *PathValidator {
	return &PathValidator{
		protectedPaths: []string{
			// Unix system directories
			"/",
			"/bin",
			"/boot",
			"/dev",
			"/etc",
			"/lib",
			"/lib64",
			"/proc",
			"/sbin",
			"/sys",
			"/usr",
			// macOS system directories
			"/System",
			"/Library/System",
		},
	}
}

// ValidatePathForDeletion checks that path may be removed as a duplicate of
// something under root. This is the single check every deletion goes through.
func (pv *PathValidator) ValidatePathForDeletion(root, path string) error {
	// Path must be absolute
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}

	// Path must already be clean; ".." or "//" means it did not come from the walker
	if filepath.Clean(path) != path {
		return fmt.Errorf("path contains suspicious elements: %s", path)
	}

	if strings.ContainsAny(path, "\x00\n\r") {
		return fmt.Errorf("path contains control characters: %q", path)
	}

	if !IsWithin(root, path) {
		return fmt.Errorf("path %s is outside of %s", path, root)
	}

	return pv.checkProtectedPaths(path)
}

// checkProtectedPaths validates that a path is not in a protected system directory
func (pv *PathValidator) checkProtectedPaths(cleanPath string) error {
	for _, protected := range pv.protectedPaths {
		// Exact match
		if cleanPath == protected {
			return fmt.Errorf("refusing to delete protected path: %s", cleanPath)
		}

		if protected == "/" {
			continue
		}

		// Anything below a system directory is off limits
		if strings.HasPrefix(cleanPath, protected+"/") {
			return fmt.Errorf("refusing to delete under system path %s: %s", protected, cleanPath)
		}
	}

	return nil
}

// IsProtectedPath checks if a path is a protected system path
func (pv *PathValidator) IsProtectedPath(path string) bool {
	return pv.checkProtectedPaths(filepath.Clean(path)) != nil
}

// AddProtectedPath adds a custom protected path
func (pv *PathValidator) AddProtectedPath(path string) {
	cleanPath := filepath.Clean(path)
	pv.protectedPaths = append(pv.protectedPaths, cleanPath)
}

// IsWithin reports whether path is strictly below root
func IsWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || filepath.IsAbs(rel) {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// TrashTarget mirrors victim (a file under mediaRoot) into trashRoot.
// The result is always strictly inside trashRoot.
func TrashTarget(mediaRoot, trashRoot, victim string) (string, error) {
	if !IsWithin(mediaRoot, victim) {
		return "", fmt.Errorf("%s is not inside media root %s", victim, mediaRoot)
	}

	rel, err := filepath.Rel(mediaRoot, victim)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", victim, err)
	}

	target := filepath.Join(trashRoot, rel)
	if !IsWithin(trashRoot, target) {
		return "", fmt.Errorf("trash target %s escapes trash root %s", target, trashRoot)
	}

	return target, nil
}

// ValidateGlobPattern validates that a glob pattern is safe
func ValidateGlobPattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("glob pattern is empty")
	}

	// Check for dangerous characters
	if strings.Contains(pattern, "..") {
		return fmt.Errorf("glob pattern contains directory traversal: %s", pattern)
	}

	// Try to match the pattern to ensure it's valid
	_, err := filepath.Match(pattern, "test")
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}

	return nil
}

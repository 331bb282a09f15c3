package config

import (
	"path/filepath"
	"strings"

	"github.com/fenilsonani/media-dedup/internal/security"
)

// RunConfig is the validated input of a single run. It is built once by the
// CLI and never mutated.
type RunConfig struct {
	MediaRoot        string
	TrashRoot        string // empty means permanent deletion
	PrintMedia       bool
	PrintDuplicates  bool
	SkipConfirmation bool
}

// TrashMode reports whether duplicates are moved to TrashRoot instead of deleted
func (rc RunConfig) TrashMode() bool {
	return rc.TrashRoot != ""
}

// TrashInsideMedia reports whether the trash root lies under the media root
func (rc RunConfig) TrashInsideMedia() bool {
	if !rc.TrashMode() {
		return false
	}
	rel, err := filepath.Rel(rc.MediaRoot, rc.TrashRoot)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Validate checks the invariants the engine relies on
func (rc RunConfig) Validate() error {
	if rc.MediaRoot == "" {
		return &ConfigError{Field: "media root", Reason: "is required"}
	}
	if !filepath.IsAbs(rc.MediaRoot) {
		return &ConfigError{Field: "media root", Value: rc.MediaRoot, Reason: "must be absolute"}
	}
	if filepath.Clean(rc.MediaRoot) != rc.MediaRoot {
		return &ConfigError{Field: "media root", Value: rc.MediaRoot, Reason: "must be a clean path"}
	}

	// Nothing under a system directory could ever be removed
	protected := security.NewPathValidator()
	if protected.IsProtectedPath(rc.MediaRoot) {
		return &ConfigError{Field: "media root", Value: rc.MediaRoot, Reason: "is a protected system path"}
	}

	if !rc.TrashMode() {
		return nil
	}

	if !filepath.IsAbs(rc.TrashRoot) {
		return &ConfigError{Field: "trash root", Value: rc.TrashRoot, Reason: "must be absolute"}
	}
	if filepath.Clean(rc.TrashRoot) != rc.TrashRoot {
		return &ConfigError{Field: "trash root", Value: rc.TrashRoot, Reason: "must be a clean path"}
	}
	if protected.IsProtectedPath(rc.TrashRoot) {
		return &ConfigError{Field: "trash root", Value: rc.TrashRoot, Reason: "is a protected system path"}
	}
	if rc.TrashRoot == rc.MediaRoot {
		return &ConfigError{Field: "trash root", Value: rc.TrashRoot, Reason: "must differ from the media root"}
	}
	if rel, err := filepath.Rel(rc.TrashRoot, rc.MediaRoot); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &ConfigError{Field: "trash root", Value: rc.TrashRoot, Reason: "must not contain the media root"}
	}

	return nil
}

package config

import (
	"fmt"
	"sort"
	"strings"
)

// ConfigError reports an invalid configuration value. It is fatal at startup.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ExtensionSet is the immutable set of lowercased file extensions treated as media.
// The zero value matches nothing.
type ExtensionSet struct {
	exts map[string]struct{}
}

// NormalizeExtension lowercases ext and makes sure it starts with a dot
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// NewExtensionSet registers base and then extra extensions in order.
// Registering the same extension twice is a ConfigError.
func NewExtensionSet(base []string, extra ...string) (ExtensionSet, error) {
	set := ExtensionSet{exts: make(map[string]struct{}, len(base)+len(extra))}

	register := func(raw string) error {
		ext := NormalizeExtension(raw)
		if ext == "" || ext == "." {
			return &ConfigError{Field: "extension", Value: raw, Reason: "must not be empty"}
		}
		if strings.ContainsAny(ext[1:], `./\`) {
			return &ConfigError{Field: "extension", Value: raw, Reason: "must be a single suffix like .jpg"}
		}
		if _, ok := set.exts[ext]; ok {
			return &ConfigError{Field: "extension", Value: raw, Reason: "already registered"}
		}
		set.exts[ext] = struct{}{}
		return nil
	}

	for _, ext := range base {
		if err := register(ext); err != nil {
			return ExtensionSet{}, err
		}
	}
	for _, ext := range extra {
		if err := register(ext); err != nil {
			return ExtensionSet{}, err
		}
	}

	return set, nil
}

// Contains reports whether ext (any case) is in the set
func (s ExtensionSet) Contains(ext string) bool {
	if ext == "" {
		return false
	}
	_, ok := s.exts[strings.ToLower(ext)]
	return ok
}

// Len returns the number of registered extensions
func (s ExtensionSet) Len() int {
	return len(s.exts)
}

// List returns the extensions in sorted order
func (s ExtensionSet) List() []string {
	list := make([]string, 0, len(s.exts))
	for ext := range s.exts {
		list = append(list, ext)
	}
	sort.Strings(list)
	return list
}

// String returns a comma separated, sorted list of extensions
func (s ExtensionSet) String() string {
	return strings.Join(s.List(), ", ")
}

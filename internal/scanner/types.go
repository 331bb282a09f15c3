package scanner

import (
	"fmt"
	"io"
	"sort"
)

// FileID is the handle of a MediaFile: its index in Catalog.Files
type FileID int

// MediaFile is a candidate file found by the Enumerator. Immutable once enumerated.
type MediaFile struct {
	Path      string `json:"path" yaml:"path"`
	Size      int64  `json:"size" yaml:"size"`
	Extension string `json:"extension" yaml:"extension"`
}

// ExtensionTally counts media files per extension. Used for reporting only.
type ExtensionTally map[string]int

// Sorted returns the extensions ordered by count (descending), then name
func (t ExtensionTally) Sorted() []string {
	exts := make([]string, 0, len(t))
	for ext := range t {
		exts = append(exts, ext)
	}
	sort.Slice(exts, func(i, j int) bool {
		if t[exts[i]] != t[exts[j]] {
			return t[exts[i]] > t[exts[j]]
		}
		return exts[i] < exts[j]
	})
	return exts
}

// Catalog is the ordered arena of media files produced by one enumeration.
// Files is sorted by path; a file's index is its FileID.
type Catalog struct {
	Root      string
	Files     []MediaFile
	TotalSize int64
	Tally     ExtensionTally
	Warnings  []*Warning
}

// Len returns the number of media files
func (c *Catalog) Len() int {
	return len(c.Files)
}

// File returns the record behind id
func (c *Catalog) File(id FileID) MediaFile {
	return c.Files[id]
}

// Digester computes a content fingerprint from a byte stream
type Digester interface {
	Digest(r io.Reader) (string, error)
}

// Fingerprint is the content hash of a file's full byte stream
type Fingerprint string

// IOError means the media root itself could not be read. It is fatal.
type IOError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *IOError) Error() string {
	return fmt.Sprintf("cannot read media root %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying filesystem error
func (e *IOError) Unwrap() error { return e.Err }

// Warning is a per-item failure that excluded one directory or file from
// the run without stopping it.
type Warning struct {
	Op   string // "list" or "hash"
	Path string
	Err  error
}

// Error implements the error interface
func (w *Warning) Error() string {
	switch w.Op {
	case "list":
		return fmt.Sprintf("skipped directory %s: %v", w.Path, w.Err)
	case "hash":
		return fmt.Sprintf("failed to hash %s: %v", w.Path, w.Err)
	default:
		return fmt.Sprintf("%s %s: %v", w.Op, w.Path, w.Err)
	}
}

// Unwrap returns the underlying error
func (w *Warning) Unwrap() error { return w.Err }

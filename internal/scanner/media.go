package scanner

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fenilsonani/media-dedup/internal/config"
	"github.com/fenilsonani/media-dedup/internal/progress"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Enumerator walks a media tree breadth-first and collects files whose
// extension is in the configured set.
type Enumerator struct {
	fs               afero.Fs
	extensions       config.ExtensionSet
	excludeDirs      map[string]struct{}
	excludePatterns  []string
	logger           *zap.Logger
	progressReporter *progress.ProgressReporter
}

// NewEnumerator creates a new Enumerator
func NewEnumerator(fs afero.Fs, extensions config.ExtensionSet) *Enumerator {
	return &Enumerator{
		fs:               fs,
		extensions:       extensions,
		excludeDirs:      make(map[string]struct{}),
		logger:           zap.NewNop(),
		progressReporter: progress.NewProgressReporter(),
	}
}

// SetLogger sets the logger
func (e *Enumerator) SetLogger(logger *zap.Logger) {
	e.logger = logger
}

// SetProgressReporter sets a custom progress reporter
func (e *Enumerator) SetProgressReporter(pr *progress.ProgressReporter) {
	e.progressReporter = pr
}

// SetExcludeDirs sets directories that are never descended into
func (e *Enumerator) SetExcludeDirs(dirs ...string) {
	for _, dir := range dirs {
		e.excludeDirs[filepath.Clean(dir)] = struct{}{}
	}
}

// SetExcludePatterns sets glob patterns matched against entry names and full paths
func (e *Enumerator) SetExcludePatterns(patterns ...string) {
	e.excludePatterns = append(e.excludePatterns, patterns...)
}

// Enumerate lists root breadth-first and returns the media files in
// canonical path order. Failing to list root is fatal; failing to list a
// subdirectory skips that subtree and records a warning.
func (e *Enumerator) Enumerate(ctx context.Context, root string) (*Catalog, error) {
	root = filepath.Clean(root)
	catalog := &Catalog{
		Root:     root,
		Files:    []MediaFile{},
		Tally:    ExtensionTally{},
		Warnings: []*Warning{},
	}

	startTime := time.Now()
	dirsVisited := 0

	e.logger.Info("Recursively searching for media", zap.String("root", root))

	queue := []string{root}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := queue[0]
		queue = queue[1:]

		entries, err := afero.ReadDir(e.fs, dir)
		if err != nil {
			if dir == root {
				return nil, &IOError{Path: root, Err: err}
			}
			warning := &Warning{Op: "list", Path: dir, Err: err}
			catalog.Warnings = append(catalog.Warnings, warning)
			e.logger.Warn("Skipping unreadable directory", zap.String("path", dir), zap.Error(err))
			continue
		}

		dirsVisited++
		e.logger.Debug("Searching directory", zap.String("path", dir), zap.Int("entries", len(entries)))

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if e.isExcluded(path, entry.Name()) {
				e.logger.Debug("Excluded", zap.String("path", path))
				continue
			}

			switch {
			case entry.IsDir():
				queue = append(queue, path)
			case entry.Mode().IsRegular():
				ext := strings.ToLower(filepath.Ext(entry.Name()))
				if !e.extensions.Contains(ext) {
					continue
				}
				catalog.Files = append(catalog.Files, MediaFile{
					Path:      path,
					Size:      entry.Size(),
					Extension: ext,
				})
				catalog.TotalSize += entry.Size()
				catalog.Tally[ext]++
			default:
				// Symlinks, devices, sockets and pipes are not media
			}
		}

		e.reportProgress(progress.PhaseEnumerating, dir, dirsVisited, catalog, startTime)
	}

	// Listing order is platform dependent; survivor selection must not be.
	sort.Slice(catalog.Files, func(i, j int) bool {
		return catalog.Files[i].Path < catalog.Files[j].Path
	})

	e.reportProgress(progress.PhaseComplete, "", dirsVisited, catalog, startTime)
	e.logger.Info("Media search complete",
		zap.Int("files", len(catalog.Files)),
		zap.Int64("bytes", catalog.TotalSize),
		zap.Int("directories", dirsVisited),
		zap.Int("warnings", len(catalog.Warnings)))

	return catalog, nil
}

// isExcluded checks the exclude directories and patterns
func (e *Enumerator) isExcluded(path, name string) bool {
	if _, ok := e.excludeDirs[path]; ok {
		return true
	}

	for _, pattern := range e.excludePatterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}

	return false
}

// reportProgress reports enumeration progress to listeners
func (e *Enumerator) reportProgress(phase progress.Phase, dir string, dirsVisited int, catalog *Catalog, startTime time.Time) {
	if e.progressReporter == nil {
		return
	}

	e.progressReporter.UpdateEnumerateProgress(&progress.EnumerateProgress{
		Phase:       phase,
		CurrentDir:  dir,
		DirsVisited: dirsVisited,
		FilesFound:  len(catalog.Files),
		TotalSize:   catalog.TotalSize,
		Warnings:    len(catalog.Warnings),
		StartTime:   startTime,
	})
}

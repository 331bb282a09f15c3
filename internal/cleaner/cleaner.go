package cleaner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fenilsonani/media-dedup/internal/config"
	"github.com/fenilsonani/media-dedup/internal/progress"
	"github.com/fenilsonani/media-dedup/internal/scanner"
	"github.com/fenilsonani/media-dedup/internal/security"
	"github.com/fenilsonani/media-dedup/pkg/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Status is the outcome of the removal stage
type Status int

const (
	StatusNothingToDo Status = iota
	StatusRemoved
	StatusDeclined
	StatusFailed
)

// String returns a human-readable status
func (s Status) String() string {
	switch s {
	case StatusNothingToDo:
		return "nothing to do"
	case StatusRemoved:
		return "removed"
	case StatusDeclined:
		return "declined"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mode selects how victims are disposed of
type Mode int

const (
	ModePermanent Mode = iota
	ModeTrash
)

// String returns a human-readable mode
func (m Mode) String() string {
	if m == ModeTrash {
		return "trash"
	}
	return "permanent"
}

// Confirmer asks the user a yes/no question before anything is modified
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface
type ConfirmFunc func(prompt string) (bool, error)

// Confirm calls f(prompt)
func (f ConfirmFunc) Confirm(prompt string) (bool, error) {
	return f(prompt)
}

// Removal describes one victim that was removed
type Removal struct {
	Path        string              `json:"path" yaml:"path"`
	Target      string              `json:"target,omitempty" yaml:"target,omitempty"`
	Survivor    string              `json:"survivor" yaml:"survivor"`
	Size        int64               `json:"size" yaml:"size"`
	Fingerprint scanner.Fingerprint `json:"fingerprint" yaml:"fingerprint"`
}

// RemovalResult represents the result of the removal stage. When Remove
// returns an error, Removed still lists what was removed before the failure.
type RemovalResult struct {
	Status      Status
	Mode        Mode
	Planned     int
	Removed     []Removal
	RemovedSize int64
}

// Remover disposes of every duplicate except the first member of each group
type Remover struct {
	fs               afero.Fs
	run              config.RunConfig
	digester         scanner.Digester
	confirmer        Confirmer
	pathValidator    *security.PathValidator
	manifest         *RemovalManifest
	bufferSize       int
	retryDelays      []time.Duration
	logger           *zap.Logger
	progressReporter *progress.ProgressReporter
}

// New creates a new Remover. digester is used to verify trash copies.
func New(fs afero.Fs, run config.RunConfig, digester scanner.Digester, confirmer Confirmer) *Remover {
	pathValidator := security.NewPathValidator()
	if run.TrashMode() {
		// Earlier runs' trash is never a duplicate of anything
		pathValidator.AddProtectedPath(run.TrashRoot)
	}

	return &Remover{
		fs:            fs,
		run:           run,
		digester:      digester,
		confirmer:     confirmer,
		pathValidator: pathValidator,
		manifest:      NewRemovalManifest(),
		bufferSize:    utils.DefaultBufferSize,
		retryDelays: []time.Duration{
			100 * time.Millisecond,
			500 * time.Millisecond,
			2 * time.Second,
		},
		logger:           zap.NewNop(),
		progressReporter: progress.NewProgressReporter(),
	}
}

// SetLogger sets the logger
func (r *Remover) SetLogger(logger *zap.Logger) {
	r.logger = logger
}

// SetProgressReporter sets a custom progress reporter
func (r *Remover) SetProgressReporter(pr *progress.ProgressReporter) {
	r.progressReporter = pr
}

// SetBufferSize sets the copy buffer size in bytes
func (r *Remover) SetBufferSize(size int) {
	if size > 0 {
		r.bufferSize = size
	}
}

// SetRetryDelays sets the waits between delete attempts on busy files
func (r *Remover) SetRetryDelays(delays ...time.Duration) {
	r.retryDelays = delays
}

// GetManifest returns the removal manifest
func (r *Remover) GetManifest() *RemovalManifest {
	return r.manifest
}

// Mode returns the disposal mode derived from the run configuration
func (r *Remover) Mode() Mode {
	if r.run.TrashMode() {
		return ModeTrash
	}
	return ModePermanent
}

// plannedRemoval is a victim with its precomputed trash target
type plannedRemoval struct {
	scanner.MediaFile
	target      string
	survivor    string
	fingerprint scanner.Fingerprint
}

// Remove checks the grouping, asks for confirmation and removes every victim
// in registry order. The first failed mutation stops the stage; nothing
// already removed is restored.
func (r *Remover) Remove(ctx context.Context, grouping *scanner.Grouping) (*RemovalResult, error) {
	result := &RemovalResult{
		Status:  StatusNothingToDo,
		Mode:    r.Mode(),
		Removed: []Removal{},
	}

	registry := grouping.Registry()
	for _, fp := range registry {
		members, ok := grouping.Members(fp)
		if !ok || len(members) < 2 {
			return nil, &ConsistencyError{Fingerprint: fp, Members: len(members)}
		}
	}

	if len(registry) == 0 {
		r.logger.Info("No duplicates to remove")
		return result, nil
	}

	plan, err := r.plan(grouping, registry)
	if err != nil {
		return nil, err
	}
	result.Planned = len(plan)

	if !r.run.SkipConfirmation {
		confirmed, err := r.confirmer.Confirm(r.prompt(plan))
		if err != nil {
			return nil, fmt.Errorf("confirmation failed: %w", err)
		}
		if !confirmed {
			r.logger.Info("Removal declined by user", zap.Int("duplicates", len(plan)))
			result.Status = StatusDeclined
			return result, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var totalSize int64
	for _, victim := range plan {
		totalSize += victim.Size
	}

	startTime := time.Now()
	result.Status = StatusRemoved
	r.reportProgress(progress.PhaseRemoving, "", result, totalSize, nil, startTime)

	for _, victim := range plan {
		if err := r.dispose(victim); err != nil {
			result.Status = StatusFailed
			r.reportProgress(progress.PhaseError, victim.Path, result, totalSize, err, startTime)
			r.logger.Error("Removal stopped",
				zap.String("path", victim.Path),
				zap.Int("removed", len(result.Removed)),
				zap.Int("remaining", len(plan)-len(result.Removed)),
				zap.Error(err))
			return result, err
		}

		removal := Removal{
			Path:        victim.Path,
			Target:      victim.target,
			Survivor:    victim.survivor,
			Size:        victim.Size,
			Fingerprint: victim.fingerprint,
		}
		result.Removed = append(result.Removed, removal)
		result.RemovedSize += victim.Size
		r.manifest.Add(removal)

		r.logger.Debug("Removed duplicate", zap.String("path", victim.Path), zap.String("target", victim.target))
		r.reportProgress(progress.PhaseRemoving, victim.Path, result, totalSize, nil, startTime)
	}

	r.reportProgress(progress.PhaseComplete, "", result, totalSize, nil, startTime)
	r.logger.Info("Removal complete",
		zap.String("mode", result.Mode.String()),
		zap.Int("removed", len(result.Removed)),
		zap.Int64("bytes", result.RemovedSize))

	return result, nil
}

// plan lists victims in registry order, then ascending member index, and
// validates every path before anything is touched.
func (r *Remover) plan(grouping *scanner.Grouping, registry []scanner.Fingerprint) ([]plannedRemoval, error) {
	catalog := grouping.Catalog()
	plan := []plannedRemoval{}

	for _, fp := range registry {
		members, _ := grouping.Members(fp)
		survivor := catalog.File(members[0])

		for _, id := range members[1:] {
			file := catalog.File(id)

			if err := r.pathValidator.ValidatePathForDeletion(r.run.MediaRoot, file.Path); err != nil {
				return nil, &MutationError{Path: file.Path, Op: OpCheck, Reason: ErrorInvalidPath, Original: err}
			}

			target := ""
			if r.run.TrashMode() {
				var err error
				target, err = security.TrashTarget(r.run.MediaRoot, r.run.TrashRoot, file.Path)
				if err != nil {
					return nil, &MutationError{Path: file.Path, Op: OpCheck, Reason: ErrorInvalidPath, Original: err}
				}
			}

			plan = append(plan, plannedRemoval{
				MediaFile:   file,
				target:      target,
				survivor:    survivor.Path,
				fingerprint: fp,
			})
		}
	}

	return plan, nil
}

// prompt builds the confirmation question
func (r *Remover) prompt(plan []plannedRemoval) string {
	var size int64
	for _, victim := range plan {
		size += victim.Size
	}

	if r.run.TrashMode() {
		return fmt.Sprintf("Move %d duplicate files (%s) to %s?",
			len(plan), utils.FormatBytes(size), r.run.TrashRoot)
	}
	return fmt.Sprintf("Permanently delete %d duplicate files (%s)? This cannot be undone.",
		len(plan), utils.FormatBytes(size))
}

// dispose removes one victim according to the mode
func (r *Remover) dispose(victim plannedRemoval) error {
	if err := r.checkVictim(victim.Path); err != nil {
		return err
	}

	if victim.target != "" {
		if err := r.fs.MkdirAll(filepath.Dir(victim.target), 0755); err != nil {
			mutErr := CategorizeError(OpMkdir, victim.Path, err)
			mutErr.Target = victim.target
			return mutErr
		}
		if err := r.copyFile(victim.Path, victim.target); err != nil {
			return err
		}
		if err := r.verifyCopy(victim); err != nil {
			return err
		}
	}

	return r.deleteWithRetry(victim.Path, victim.target)
}

// checkVictim makes sure the victim is still a regular file.
// Lstat is used so a file swapped for a symlink is not followed.
func (r *Remover) checkVictim(path string) error {
	var (
		info os.FileInfo
		err  error
	)
	if lstater, ok := r.fs.(afero.Lstater); ok {
		info, _, err = lstater.LstatIfPossible(path)
	} else {
		info, err = r.fs.Stat(path)
	}
	if err != nil {
		return CategorizeError(OpCheck, path, err)
	}

	if !info.Mode().IsRegular() {
		return &MutationError{
			Path:     path,
			Op:       OpCheck,
			Reason:   ErrorInvalidPath,
			Original: fmt.Errorf("no longer a regular file (%s)", info.Mode().Type()),
		}
	}

	return nil
}

// copyFile copies src to a new file dst. An existing dst is never overwritten.
func (r *Remover) copyFile(src, dst string) (copyErr error) {
	fail := func(err error) error {
		mutErr := CategorizeError(OpCopy, src, err)
		mutErr.Target = dst
		return mutErr
	}

	in, err := r.fs.Open(src)
	if err != nil {
		return fail(err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fail(err)
	}

	out, err := r.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fail(err)
	}

	// A partial copy is not a backup
	defer func() {
		if copyErr != nil {
			_ = r.fs.Remove(dst)
		}
	}()

	buf := make([]byte, r.bufferSize)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		out.Close()
		return fail(err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fail(err)
	}
	if err := out.Close(); err != nil {
		return fail(err)
	}

	if err := r.fs.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		r.logger.Debug("Could not preserve modification time", zap.String("path", dst), zap.Error(err))
	}

	return nil
}

// verifyCopy re-hashes the trash copy and compares it with the group fingerprint
func (r *Remover) verifyCopy(victim plannedRemoval) error {
	fail := func(reason ErrorReason, err error) error {
		_ = r.fs.Remove(victim.target)
		return &MutationError{Path: victim.Path, Target: victim.target, Op: OpVerify, Reason: reason, Original: err}
	}

	copied, err := r.fs.Open(victim.target)
	if err != nil {
		return fail(CategorizeError(OpVerify, victim.target, err).Reason, err)
	}
	defer copied.Close()

	sum, err := r.digester.Digest(copied)
	if err != nil {
		return fail(ErrorVerifyFailed, err)
	}
	if scanner.Fingerprint(sum) != victim.fingerprint {
		return fail(ErrorVerifyFailed, fmt.Errorf("fingerprint %s, expected %s", sum, victim.fingerprint))
	}

	return nil
}

// deleteWithRetry removes path, retrying while the file is busy
func (r *Remover) deleteWithRetry(path, target string) error {
	var lastErr *MutationError

	for attempt := 0; attempt <= len(r.retryDelays); attempt++ {
		err := r.fs.Remove(path)
		if err == nil {
			return nil
		}

		lastErr = CategorizeError(OpDelete, path, err)
		lastErr.Target = target

		if lastErr.Reason == ErrorFileNotFound {
			// Already gone
			r.logger.Warn("Duplicate vanished before deletion", zap.String("path", path))
			return nil
		}

		if !lastErr.Retryable || attempt == len(r.retryDelays) {
			break
		}

		time.Sleep(r.retryDelays[attempt])
	}

	return lastErr
}

// reportProgress reports removal progress to listeners
func (r *Remover) reportProgress(phase progress.Phase, current string, result *RemovalResult, totalSize int64, err error, startTime time.Time) {
	if r.progressReporter == nil {
		return
	}

	r.progressReporter.UpdateRemoveProgress(&progress.RemoveProgress{
		Phase:       phase,
		CurrentFile: current,
		Removed:     len(result.Removed),
		Total:       result.Planned,
		RemovedSize: result.RemovedSize,
		TotalSize:   totalSize,
		TrashMode:   result.Mode == ModeTrash,
		StartTime:   startTime,
		Error:       err,
	})
}

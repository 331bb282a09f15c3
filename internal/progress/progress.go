package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/fenilsonani/media-dedup/pkg/utils"
)

// Phase represents the current phase of operation
type Phase string

const (
	PhaseEnumerating Phase = "enumerating"
	PhaseHashing     Phase = "hashing"
	PhaseRemoving    Phase = "removing"
	PhaseComplete    Phase = "complete"
	PhaseError       Phase = "error"
)

// EnumerateProgress represents progress while walking the media tree
type EnumerateProgress struct {
	Phase       Phase
	CurrentDir  string
	DirsVisited int
	FilesFound  int
	TotalSize   int64
	Warnings    int
	StartTime   time.Time
}

// HashProgress represents progress while fingerprinting files.
// Percent is measured in bytes, not files.
type HashProgress struct {
	Phase       Phase
	CurrentFile string
	Percent     int
	Steps       int
	BytesDone   int64
	TotalBytes  int64
	FilesDone   int
	TotalFiles  int
	Duplicates  int
	StartTime   time.Time
}

// RemoveProgress represents progress while disposing of duplicates
type RemoveProgress struct {
	Phase       Phase
	CurrentFile string
	Removed     int
	Total       int
	RemovedSize int64
	TotalSize   int64
	TrashMode   bool
	StartTime   time.Time
	Error       error
}

// ProgressReporter provides thread-safe progress reporting
type ProgressReporter struct {
	enumerateProgress *EnumerateProgress
	hashProgress      *HashProgress
	removeProgress    *RemoveProgress
	mu                sync.RWMutex
	listeners         []chan interface{}
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		listeners: make([]chan interface{}, 0),
	}
}

// Subscribe returns a channel that receives progress updates
func (pr *ProgressReporter) Subscribe() <-chan interface{} {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	ch := make(chan interface{}, 10)
	pr.listeners = append(pr.listeners, ch)
	return ch
}

// Unsubscribe closes and removes a listener channel
func (pr *ProgressReporter) Unsubscribe(ch <-chan interface{}) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	for i, listener := range pr.listeners {
		if listener == ch {
			close(listener)
			pr.listeners = append(pr.listeners[:i], pr.listeners[i+1:]...)
			return
		}
	}
}

// UpdateEnumerateProgress updates enumeration progress and notifies listeners
func (pr *ProgressReporter) UpdateEnumerateProgress(update *EnumerateProgress) {
	pr.mu.Lock()
	pr.enumerateProgress = update
	pr.mu.Unlock()

	pr.notify(update)
}

// UpdateHashProgress updates hashing progress and notifies listeners
func (pr *ProgressReporter) UpdateHashProgress(update *HashProgress) {
	pr.mu.Lock()
	pr.hashProgress = update
	pr.mu.Unlock()

	pr.notify(update)
}

// UpdateRemoveProgress updates removal progress and notifies listeners
func (pr *ProgressReporter) UpdateRemoveProgress(update *RemoveProgress) {
	pr.mu.Lock()
	pr.removeProgress = update
	pr.mu.Unlock()

	pr.notify(update)
}

// notify sends update to every listener without blocking the caller
func (pr *ProgressReporter) notify(update interface{}) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	for _, listener := range pr.listeners {
		select {
		case listener <- update:
		default:
			// Skip if channel is full
		}
	}
}

// GetEnumerateProgress returns the latest enumeration progress
func (pr *ProgressReporter) GetEnumerateProgress() *EnumerateProgress {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.enumerateProgress
}

// GetHashProgress returns the latest hashing progress
func (pr *ProgressReporter) GetHashProgress() *HashProgress {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.hashProgress
}

// GetRemoveProgress returns the latest removal progress
func (pr *ProgressReporter) GetRemoveProgress() *RemoveProgress {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.removeProgress
}

// ThresholdTracker turns a running byte count into percentage steps.
// Fire returns true once per step crossed.
type ThresholdTracker struct {
	total    int64
	steps    int
	lastStep int
}

// NewThresholdTracker creates a tracker for total bytes split into steps
func NewThresholdTracker(total int64, steps int) *ThresholdTracker {
	if steps <= 0 {
		steps = 100
	}
	return &ThresholdTracker{total: total, steps: steps}
}

// Advance records done bytes and reports the current step and whether a new
// threshold was crossed since the previous call.
func (t *ThresholdTracker) Advance(done int64) (int, bool) {
	if t.total <= 0 {
		return 0, false
	}
	if done > t.total {
		done = t.total
	}

	step := int(done * int64(t.steps) / t.total)
	if step <= t.lastStep {
		return t.lastStep, false
	}
	t.lastStep = step
	return step, true
}

// Steps returns the number of steps the total is divided into
func (t *ThresholdTracker) Steps() int {
	return t.steps
}

// FormatEnumerateProgress returns a human-readable enumeration progress string
func FormatEnumerateProgress(p *EnumerateProgress) string {
	if p == nil {
		return "Initializing..."
	}

	switch p.Phase {
	case PhaseEnumerating:
		return fmt.Sprintf("Searching %s... %d media files (%s) in %d directories",
			p.CurrentDir,
			p.FilesFound,
			utils.FormatBytes(p.TotalSize),
			p.DirsVisited)
	case PhaseComplete:
		return fmt.Sprintf("Found %d media files (%s) in %s",
			p.FilesFound,
			utils.FormatBytes(p.TotalSize),
			FormatDuration(time.Since(p.StartTime)))
	default:
		return "Searching..."
	}
}

// FormatHashProgress returns a human-readable hashing progress string
func FormatHashProgress(p *HashProgress) string {
	if p == nil {
		return "Preparing..."
	}

	elapsed := time.Since(p.StartTime)

	switch p.Phase {
	case PhaseHashing:
		eta := ""
		if p.BytesDone > 0 && p.TotalBytes > p.BytesDone {
			remaining := time.Duration(float64(elapsed) * float64(p.TotalBytes-p.BytesDone) / float64(p.BytesDone))
			eta = fmt.Sprintf(" ETA: %s", FormatDuration(remaining))
		}

		return fmt.Sprintf("Hashing... %d/%d files - %s of %s%s",
			p.FilesDone,
			p.TotalFiles,
			utils.FormatBytes(p.BytesDone),
			utils.FormatBytes(p.TotalBytes),
			eta)
	case PhaseComplete:
		return fmt.Sprintf("Hashing complete: %d files, %d duplicates in %s",
			p.FilesDone,
			p.Duplicates,
			FormatDuration(elapsed))
	default:
		return "Hashing..."
	}
}

// FormatRemoveProgress returns a human-readable removal progress string
func FormatRemoveProgress(p *RemoveProgress) string {
	if p == nil {
		return "Preparing..."
	}

	verb := "Deleting"
	if p.TrashMode {
		verb = "Moving to trash"
	}

	switch p.Phase {
	case PhaseRemoving:
		return fmt.Sprintf("%s... %d/%d files - %s",
			verb,
			p.Removed,
			p.Total,
			utils.FormatBytes(p.RemovedSize))
	case PhaseComplete:
		return fmt.Sprintf("Removed %d duplicates (%s) in %s",
			p.Removed,
			utils.FormatBytes(p.RemovedSize),
			FormatDuration(time.Since(p.StartTime)))
	case PhaseError:
		return fmt.Sprintf("Removal stopped: %v", p.Error)
	default:
		return verb + "..."
	}
}

// FormatDuration formats duration in human-readable format
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	progressbar "github.com/charmbracelet/bubbles/progress"
	"github.com/fenilsonani/media-dedup/internal/cleaner"
	"github.com/fenilsonani/media-dedup/internal/progress"
	"github.com/fenilsonani/media-dedup/internal/ui/styles"
	"golang.org/x/term"
)

var spinner = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of f, or 80 when it is not a terminal
func TerminalWidth(f *os.File) int {
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// ProgressPrinter draws a single, continuously rewritten status line from
// progress updates. It is meant for terminals only.
type ProgressPrinter struct {
	mu         sync.Mutex
	out        io.Writer
	width      int
	bar        progressbar.Model
	interval   time.Duration
	lastUpdate time.Time
	drawn      bool
	held       bool

	reporter *progress.ProgressReporter
	updates  <-chan interface{}
	done     chan struct{}
}

// NewProgressPrinter creates a printer writing to out with the given line width
func NewProgressPrinter(out io.Writer, width int) *ProgressPrinter {
	if width <= 0 {
		width = 80
	}

	barWidth := width / 3
	if barWidth > 40 {
		barWidth = 40
	}

	from, to := styles.ProgressGradient()
	bar := progressbar.New(progressbar.WithGradient(from, to))
	bar.Width = barWidth

	return &ProgressPrinter{
		out:      out,
		width:    width,
		bar:      bar,
		interval: 100 * time.Millisecond,
	}
}

// Start consumes updates from reporter until Stop is called
func (p *ProgressPrinter) Start(reporter *progress.ProgressReporter) {
	p.reporter = reporter
	p.updates = reporter.Subscribe()
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		for update := range p.updates {
			p.Handle(update)
		}
	}()
}

// Stop unsubscribes, waits for the consumer and clears the status line
func (p *ProgressPrinter) Stop() {
	if p.reporter == nil {
		return
	}
	p.reporter.Unsubscribe(p.updates)
	<-p.done
	p.reporter = nil

	p.mu.Lock()
	defer p.mu.Unlock()
	p.clear()
}

// Confirmer wraps c so that the status line is erased and stays off the
// screen while the question is on it
func (p *ProgressPrinter) Confirmer(c cleaner.Confirmer) cleaner.Confirmer {
	return cleaner.ConfirmFunc(func(prompt string) (bool, error) {
		p.hold(true)
		defer p.hold(false)
		return c.Confirm(prompt)
	})
}

func (p *ProgressPrinter) hold(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.held = on
	p.clear()
}

// Handle draws one update. Updates arriving faster than the refresh
// interval are dropped unless they end a phase.
func (p *ProgressPrinter) Handle(update interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.held {
		return
	}

	line, final := p.Render(update)
	if final || p.settled(update) {
		p.clear()
		return
	}
	if line == "" {
		return
	}

	now := time.Now()
	if now.Sub(p.lastUpdate) < p.interval {
		return
	}
	p.lastUpdate = now

	fmt.Fprintf(p.out, "\r\033[K%s", line)
	p.drawn = true
}

// settled reports whether the reporter already ended the phase update belongs
// to. The phase-ending notification itself may have been dropped from a full
// channel, leaving only stale updates to draw.
func (p *ProgressPrinter) settled(update interface{}) bool {
	if p.reporter == nil {
		return false
	}

	switch update.(type) {
	case *progress.EnumerateProgress:
		latest := p.reporter.GetEnumerateProgress()
		return latest != nil && latest.Phase != progress.PhaseEnumerating
	case *progress.HashProgress:
		latest := p.reporter.GetHashProgress()
		return latest != nil && latest.Phase != progress.PhaseHashing
	case *progress.RemoveProgress:
		latest := p.reporter.GetRemoveProgress()
		return latest != nil && latest.Phase != progress.PhaseRemoving
	}
	return false
}

// clear erases the status line if one was drawn
func (p *ProgressPrinter) clear() {
	if p.drawn {
		fmt.Fprint(p.out, "\r\033[K")
		p.drawn = false
	}
	p.lastUpdate = time.Time{}
}

// Render returns the status line for update and whether the update ends a phase
func (p *ProgressPrinter) Render(update interface{}) (string, bool) {
	switch u := update.(type) {
	case *progress.EnumerateProgress:
		if u.Phase != progress.PhaseEnumerating {
			return "", true
		}
		frame := spinner[int(time.Now().UnixMilli()/100)%len(spinner)]
		return frame + " " + p.fit(progress.FormatEnumerateProgress(u), p.width-2), false

	case *progress.HashProgress:
		if u.Phase != progress.PhaseHashing {
			return "", true
		}
		return p.withBar(float64(u.Percent)/100, progress.FormatHashProgress(u)), false

	case *progress.RemoveProgress:
		if u.Phase != progress.PhaseRemoving {
			return "", true
		}
		percent := 0.0
		if u.Total > 0 {
			percent = float64(u.Removed) / float64(u.Total)
		}
		return p.withBar(percent, progress.FormatRemoveProgress(u)), false
	}

	return "", false
}

// withBar prefixes text with a progress bar and fits the text to the line
func (p *ProgressPrinter) withBar(percent float64, text string) string {
	bar := p.bar.ViewAs(percent)
	return bar + " " + p.fit(text, p.width-p.bar.Width-1)
}

// fit shortens s to width columns, keeping its end where paths usually differ
func (p *ProgressPrinter) fit(s string, width int) string {
	if width < 4 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return "..." + string(runes[len(runes)-(width-3):])
}

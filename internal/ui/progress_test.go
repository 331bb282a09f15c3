package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fenilsonani/media-dedup/internal/cleaner"
	"github.com/fenilsonani/media-dedup/internal/progress"
)

func TestRender(t *testing.T) {
	p := NewProgressPrinter(&bytes.Buffer{}, 200)

	tests := []struct {
		name      string
		update    interface{}
		wantText  string
		wantFinal bool
	}{
		{
			name:     "enumerating",
			update:   &progress.EnumerateProgress{Phase: progress.PhaseEnumerating, CurrentDir: "/media/a", FilesFound: 2},
			wantText: "Searching /media/a... 2 media files",
		},
		{
			name:      "enumeration complete",
			update:    &progress.EnumerateProgress{Phase: progress.PhaseComplete},
			wantFinal: true,
		},
		{
			name:     "hashing",
			update:   &progress.HashProgress{Phase: progress.PhaseHashing, Percent: 50, FilesDone: 1, TotalFiles: 2, StartTime: time.Now()},
			wantText: "Hashing... 1/2 files",
		},
		{
			name:      "hashing complete",
			update:    &progress.HashProgress{Phase: progress.PhaseComplete},
			wantFinal: true,
		},
		{
			name:     "removing",
			update:   &progress.RemoveProgress{Phase: progress.PhaseRemoving, Removed: 1, Total: 4, TrashMode: true},
			wantText: "Moving to trash... 1/4 files",
		},
		{
			name:      "removal error",
			update:    &progress.RemoveProgress{Phase: progress.PhaseError},
			wantFinal: true,
		},
		{
			name:   "unknown update",
			update: "not a progress update",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, final := p.Render(tt.update)

			if final != tt.wantFinal {
				t.Errorf("final = %v, want %v", final, tt.wantFinal)
			}
			if tt.wantText == "" {
				if line != "" {
					t.Errorf("line = %q, want empty", line)
				}
				return
			}
			if !strings.Contains(line, tt.wantText) {
				t.Errorf("line = %q, want it to contain %q", line, tt.wantText)
			}
		})
	}
}

func TestFit(t *testing.T) {
	p := NewProgressPrinter(&bytes.Buffer{}, 80)

	tests := []struct {
		s     string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"/media/photos/2023/summer/img_0001.jpg", 16, ".../img_0001.jpg"},
		{"anything", 3, ""},
	}

	for _, tt := range tests {
		if got := p.fit(tt.s, tt.width); got != tt.want {
			t.Errorf("fit(%q, %d) = %q, want %q", tt.s, tt.width, got, tt.want)
		}
	}
}

func TestHandleThrottlesAndClears(t *testing.T) {
	var out bytes.Buffer
	p := NewProgressPrinter(&out, 120)
	p.interval = time.Hour

	hashing := &progress.HashProgress{Phase: progress.PhaseHashing, Percent: 10, StartTime: time.Now()}
	p.Handle(hashing)
	p.Handle(hashing)

	if n := strings.Count(out.String(), "Hashing..."); n != 1 {
		t.Errorf("drew %d lines within one interval, want 1", n)
	}

	out.Reset()
	p.Handle(&progress.HashProgress{Phase: progress.PhaseComplete})
	if out.String() != "\r\033[K" {
		t.Errorf("final update wrote %q, want a line clear", out.String())
	}

	out.Reset()
	p.Handle(&progress.HashProgress{Phase: progress.PhaseComplete})
	if out.Len() != 0 {
		t.Errorf("clearing twice wrote %q", out.String())
	}
}

func TestStartStop(t *testing.T) {
	var out bytes.Buffer
	p := NewProgressPrinter(&out, 120)
	reporter := progress.NewProgressReporter()

	p.Start(reporter)
	reporter.UpdateRemoveProgress(&progress.RemoveProgress{Phase: progress.PhaseRemoving, Removed: 1, Total: 2})
	p.Stop()

	text := out.String()
	if !strings.Contains(text, "Deleting... 1/2 files") {
		t.Errorf("output = %q", text)
	}
	if !strings.HasSuffix(text, "\r\033[K") {
		t.Errorf("Stop() did not clear the line: %q", text)
	}

	// A second Stop is a no-op
	p.Stop()
}

func TestHandleSkipsSettledPhase(t *testing.T) {
	var out bytes.Buffer
	p := NewProgressPrinter(&out, 120)
	p.interval = 0
	p.reporter = progress.NewProgressReporter()

	hashing := &progress.HashProgress{Phase: progress.PhaseHashing, Percent: 90, StartTime: time.Now()}
	p.reporter.UpdateHashProgress(hashing)
	p.Handle(hashing)
	if !strings.Contains(out.String(), "Hashing...") {
		t.Fatalf("active phase not drawn: %q", out.String())
	}

	// The completion never reaches the printer, only the reporter's state
	p.reporter.UpdateHashProgress(&progress.HashProgress{Phase: progress.PhaseComplete})

	out.Reset()
	p.Handle(hashing)
	if out.String() != "\r\033[K" {
		t.Errorf("stale update wrote %q, want a line clear", out.String())
	}

	// Other phases are unaffected
	out.Reset()
	p.Handle(&progress.RemoveProgress{Phase: progress.PhaseRemoving, Removed: 1, Total: 2})
	if !strings.Contains(out.String(), "Deleting... 1/2 files") {
		t.Errorf("removal not drawn: %q", out.String())
	}
}

func TestConfirmerHoldsStatusLine(t *testing.T) {
	var out bytes.Buffer
	p := NewProgressPrinter(&out, 120)
	p.interval = 0

	hashing := &progress.HashProgress{Phase: progress.PhaseHashing, Percent: 50, StartTime: time.Now()}
	p.Handle(hashing)

	inner := cleaner.ConfirmFunc(func(prompt string) (bool, error) {
		if !strings.HasSuffix(out.String(), "\r\033[K") {
			t.Errorf("status line still on screen when asking: %q", out.String())
		}

		out.Reset()
		p.Handle(hashing)
		if out.Len() != 0 {
			t.Errorf("drew %q while the question was shown", out.String())
		}
		return prompt == "go?", nil
	})

	ok, err := p.Confirmer(inner).Confirm("go?")
	if err != nil || !ok {
		t.Fatalf("Confirm() = %v, %v", ok, err)
	}

	out.Reset()
	p.Handle(hashing)
	if !strings.Contains(out.String(), "Hashing...") {
		t.Errorf("drawing did not resume after the answer: %q", out.String())
	}
}

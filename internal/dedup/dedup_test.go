package dedup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fenilsonani/media-dedup/internal/cleaner"
	"github.com/fenilsonani/media-dedup/internal/config"
	"github.com/fenilsonani/media-dedup/internal/progress"
	"github.com/fenilsonani/media-dedup/internal/reporter"
	"github.com/fenilsonani/media-dedup/internal/scanner"
	"github.com/fenilsonani/media-dedup/internal/testutil"
	"github.com/spf13/afero"
)

func pairTree(t *testing.T) afero.Fs {
	return testutil.NewMemFs(t, map[string]string{
		"/media/a/1.jpg":   "same bytes",
		"/media/b/1.jpg":   "same bytes",
		"/media/a/2.png":   "unique",
		"/media/notes.txt": "same bytes",
	})
}

func runOnce(t *testing.T, fs afero.Fs, run config.RunConfig, cfg *config.Config, opts ...Option) (*Result, error) {
	t.Helper()

	runner, err := New(fs, run, cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	result, err := runner.Run(context.Background())
	if result == nil {
		t.Fatal("Run() returned a nil result")
	}
	return result, err
}

func TestRunPairScenario(t *testing.T) {
	fs := pairTree(t)
	var out bytes.Buffer

	result, err := runOnce(t, fs,
		config.RunConfig{MediaRoot: "/media", SkipConfirmation: true, PrintDuplicates: true},
		nil,
		WithOutput(&out, reporter.FormatSummary))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Catalog.Len() != 3 {
		t.Errorf("Catalog.Len() = %d, want 3", result.Catalog.Len())
	}
	if result.Grouping.DuplicateCount != 1 {
		t.Errorf("DuplicateCount = %d, want 1", result.Grouping.DuplicateCount)
	}
	if result.Removal.Status != cleaner.StatusRemoved || len(result.Removal.Removed) != 1 {
		t.Fatalf("Removal = %+v", result.Removal)
	}
	if got := result.Removal.Removed[0]; got.Path != "/media/b/1.jpg" || got.Survivor != "/media/a/1.jpg" {
		t.Errorf("Removed[0] = %+v", got)
	}

	for path, want := range map[string]bool{
		"/media/a/1.jpg":   true,
		"/media/a/2.png":   true,
		"/media/b/1.jpg":   false,
		"/media/notes.txt": true,
	} {
		if got := testutil.Exists(fs, path); got != want {
			t.Errorf("Exists(%s) = %v, want %v", path, got, want)
		}
	}

	if len(result.Manifest.Files) != 1 {
		t.Errorf("Manifest.Files = %d, want 1", len(result.Manifest.Files))
	}

	text := out.String()
	for _, want := range []string{
		"Found 3 media files",
		"Found 1 duplicated media files",
		"Duplicate for /media/a/1.jpg found at:\n\t /media/b/1.jpg",
		"Deleted 1 duplicates",
		"=== Dedup Summary ===",
		"Status: removed",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunEmptyTree(t *testing.T) {
	fs := testutil.NewMemFs(t, map[string]string{"/media/readme.txt": "text"})
	var out bytes.Buffer

	result, err := runOnce(t, fs, config.RunConfig{MediaRoot: "/media"}, nil, WithOutput(&out, reporter.FormatSummary))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Catalog.Len() != 0 || result.Grouping.DuplicateCount != 0 {
		t.Errorf("catalog = %d files, duplicates = %d", result.Catalog.Len(), result.Grouping.DuplicateCount)
	}
	if result.Removal.Status != cleaner.StatusNothingToDo {
		t.Errorf("Status = %v, want nothing to do", result.Removal.Status)
	}
	for _, want := range []string{"No duplicates to remove", "=== Dedup Summary ===", "Status: nothing to do"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if !testutil.Exists(fs, "/media/readme.txt") {
		t.Error("non-media file was touched")
	}
}

func TestRunTrashInsideMediaIsNotRescanned(t *testing.T) {
	fs := pairTree(t)
	run := config.RunConfig{MediaRoot: "/media", TrashRoot: "/media/.trash", SkipConfirmation: true}

	first, err := runOnce(t, fs, run, nil)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if len(first.Removal.Removed) != 1 {
		t.Fatalf("first run removed %d files, want 1", len(first.Removal.Removed))
	}
	if got := testutil.ReadMemFile(t, fs, "/media/.trash/b/1.jpg"); got != "same bytes" {
		t.Errorf("trash copy = %q", got)
	}

	// A new copy appears between runs; only it may be removed
	testutil.WriteMemFile(t, fs, "/media/c/1.jpg", "same bytes")

	second, err := runOnce(t, fs, run, nil)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	for _, file := range second.Catalog.Files {
		if strings.HasPrefix(file.Path, "/media/.trash/") {
			t.Errorf("trashed copy re-discovered as media: %s", file.Path)
		}
	}
	if second.Grouping.DuplicateCount != 1 {
		t.Errorf("second run found %d duplicates, want 1", second.Grouping.DuplicateCount)
	}
	if len(second.Removal.Removed) != 1 || second.Removal.Removed[0].Path != "/media/c/1.jpg" {
		t.Fatalf("second run removed %+v", second.Removal.Removed)
	}
	if got := testutil.ReadMemFile(t, fs, "/media/.trash/b/1.jpg"); got != "same bytes" {
		t.Errorf("earlier trash copy = %q", got)
	}
	if !testutil.Exists(fs, "/media/.trash/c/1.jpg") {
		t.Error("new duplicate not moved to the trash")
	}
}

func TestRunTrashRoundTrip(t *testing.T) {
	fs := pairTree(t)

	result, err := runOnce(t, fs, config.RunConfig{MediaRoot: "/media", TrashRoot: "/trash", SkipConfirmation: true}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Removal.Mode != cleaner.ModeTrash {
		t.Errorf("Mode = %v, want trash", result.Removal.Mode)
	}
	if testutil.Exists(fs, "/media/b/1.jpg") {
		t.Error("victim still exists")
	}
	if got := testutil.ReadMemFile(t, fs, "/trash/b/1.jpg"); got != "same bytes" {
		t.Errorf("trash copy = %q", got)
	}
}

func TestRunDeclined(t *testing.T) {
	fs := pairTree(t)
	var prompts []string
	decline := cleaner.ConfirmFunc(func(prompt string) (bool, error) {
		prompts = append(prompts, prompt)
		return false, nil
	})

	result, err := runOnce(t, fs, config.RunConfig{MediaRoot: "/media", TrashRoot: "/trash"}, nil, WithConfirmer(decline))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(prompts) != 1 {
		t.Errorf("prompted %d times, want 1", len(prompts))
	}
	if result.Removal.Status != cleaner.StatusDeclined {
		t.Errorf("Status = %v, want declined", result.Removal.Status)
	}
	if !testutil.Exists(fs, "/media/b/1.jpg") || testutil.Exists(fs, "/trash") {
		t.Error("declined run modified the filesystem")
	}
}

func TestRunWithoutConfirmer(t *testing.T) {
	fs := pairTree(t)

	result, err := runOnce(t, fs, config.RunConfig{MediaRoot: "/media"}, nil)
	if !errors.Is(err, ErrNoConfirmer) {
		t.Fatalf("Run() error = %v, want ErrNoConfirmer", err)
	}
	if result.Grouping == nil || result.Removal != nil {
		t.Errorf("result = %+v", result)
	}
	if !testutil.Exists(fs, "/media/b/1.jpg") {
		t.Error("victim removed without confirmation")
	}
}

func TestRunMissingRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	var out bytes.Buffer

	result, err := runOnce(t, fs, config.RunConfig{MediaRoot: "/missing"}, nil, WithOutput(&out, reporter.FormatJSON))

	var ioErr *scanner.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Run() error = %v, want *scanner.IOError", err)
	}
	if result.Catalog != nil {
		t.Error("Catalog should be nil when enumeration fails")
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON report: %v\n%s", err, out.String())
	}
	if decoded["status"] != "failed" || decoded["error"] == nil {
		t.Errorf("report = %v", decoded)
	}
}

func TestRunJSONOutput(t *testing.T) {
	fs := pairTree(t)
	var out bytes.Buffer

	_, err := runOnce(t, fs,
		config.RunConfig{MediaRoot: "/media", SkipConfirmation: true, PrintDuplicates: true},
		nil,
		WithOutput(&out, reporter.FormatJSON))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var report reporter.RunReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("output is not a single JSON document: %v\n%s", err, out.String())
	}
	if report.MediaFiles != 3 || report.DuplicateCount != 1 || report.Status != "removed" {
		t.Errorf("report = %+v", report)
	}
	if len(report.DuplicateSets) != 1 || len(report.Removed) != 1 {
		t.Errorf("DuplicateSets = %v, Removed = %v", report.DuplicateSets, report.Removed)
	}
}

func TestRunExcludePatterns(t *testing.T) {
	fs := pairTree(t)
	cfg := config.GetDefault()
	cfg.ExcludePatterns = []string{"b"}

	result, err := runOnce(t, fs, config.RunConfig{MediaRoot: "/media", SkipConfirmation: true}, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Catalog.Len() != 2 || result.Grouping.DuplicateCount != 0 {
		t.Errorf("catalog = %d files, duplicates = %d", result.Catalog.Len(), result.Grouping.DuplicateCount)
	}
	if !testutil.Exists(fs, "/media/b/1.jpg") {
		t.Error("excluded file was removed")
	}
}

func TestRunCustomExtensions(t *testing.T) {
	fs := pairTree(t)
	cfg := config.GetDefault()
	cfg.Extensions = []string{"txt"}

	result, err := runOnce(t, fs, config.RunConfig{MediaRoot: "/media", SkipConfirmation: true}, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Catalog.Len() != 4 {
		t.Errorf("Catalog.Len() = %d, want 4", result.Catalog.Len())
	}
	// a/1.jpg sorts first and survives; b/1.jpg and notes.txt go
	if len(result.Removal.Removed) != 2 {
		t.Errorf("removed %d files, want 2", len(result.Removal.Removed))
	}
	if !testutil.Exists(fs, "/media/a/1.jpg") {
		t.Error("survivor was removed")
	}
}

func TestRunProgress(t *testing.T) {
	fs := pairTree(t)
	pr := progress.NewProgressReporter()

	if _, err := runOnce(t, fs, config.RunConfig{MediaRoot: "/media", SkipConfirmation: true}, nil, WithProgressReporter(pr)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if p := pr.GetEnumerateProgress(); p == nil || p.Phase != progress.PhaseComplete {
		t.Errorf("enumerate progress = %+v", p)
	}
	if p := pr.GetHashProgress(); p == nil || p.Phase != progress.PhaseComplete {
		t.Errorf("hash progress = %+v", p)
	}
	if p := pr.GetRemoveProgress(); p == nil || p.Phase != progress.PhaseComplete {
		t.Errorf("remove progress = %+v", p)
	}
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	fs := afero.NewMemMapFs()

	duplicateExt := config.GetDefault()
	duplicateExt.Extensions = []string{".jpg"}

	badBuffer := config.GetDefault()
	badBuffer.BufferSize = "1B"

	tests := []struct {
		name string
		run  config.RunConfig
		cfg  *config.Config
	}{
		{"relative media root", config.RunConfig{MediaRoot: "media"}, nil},
		{"trash equals media", config.RunConfig{MediaRoot: "/media", TrashRoot: "/media"}, nil},
		{"protected media root", config.RunConfig{MediaRoot: "/usr/share/photos"}, nil},
		{"duplicate extension", config.RunConfig{MediaRoot: "/media"}, duplicateExt},
		{"buffer too small", config.RunConfig{MediaRoot: "/media"}, badBuffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(fs, tt.run, tt.cfg)
			var cfgErr *config.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("New() error = %v, want *config.ConfigError", err)
			}
		})
	}
}

func TestExtensions(t *testing.T) {
	cfg := config.GetDefault()
	cfg.Extensions = []string{".webp"}

	runner, err := New(afero.NewMemMapFs(), config.RunConfig{MediaRoot: "/media"}, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !runner.Extensions().Contains(".webp") || !runner.Extensions().Contains(".jpg") {
		t.Errorf("Extensions() = %s", runner.Extensions())
	}
}

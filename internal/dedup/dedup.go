package dedup

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fenilsonani/media-dedup/internal/cleaner"
	"github.com/fenilsonani/media-dedup/internal/config"
	"github.com/fenilsonani/media-dedup/internal/progress"
	"github.com/fenilsonani/media-dedup/internal/reporter"
	"github.com/fenilsonani/media-dedup/internal/scanner"
	"github.com/fenilsonani/media-dedup/pkg/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrNoConfirmer is returned when a removal needs confirmation but the
// Runner was built without a Confirmer.
var ErrNoConfirmer = errors.New("no confirmer configured")

// Result holds whatever stages of a run completed. Catalog, Grouping and
// Removal stay nil for stages that never ran.
type Result struct {
	Catalog  *scanner.Catalog
	Grouping *scanner.Grouping
	Removal  *cleaner.RemovalResult
	Manifest *cleaner.RemovalManifest
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the logger passed to every stage
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithConfirmer sets how the removal stage asks for confirmation
func WithConfirmer(confirmer cleaner.Confirmer) Option {
	return func(r *Runner) {
		r.confirmer = confirmer
	}
}

// WithProgressReporter sets the reporter every stage publishes progress to
func WithProgressReporter(pr *progress.ProgressReporter) Option {
	return func(r *Runner) {
		r.progressReporter = pr
	}
}

// WithOutput sets where and how results are printed
func WithOutput(w io.Writer, format reporter.OutputFormat) Option {
	return func(r *Runner) {
		r.reporter = reporter.New(w, format)
	}
}

// WithDigester replaces the SHA-256 digester
func WithDigester(digester scanner.Digester) Option {
	return func(r *Runner) {
		r.digester = digester
	}
}

// Runner sequences enumeration, grouping and removal for one run
type Runner struct {
	fs               afero.Fs
	run              config.RunConfig
	cfg              *config.Config
	extensions       config.ExtensionSet
	bufferSize       int
	digester         scanner.Digester
	confirmer        cleaner.Confirmer
	logger           *zap.Logger
	progressReporter *progress.ProgressReporter
	reporter         *reporter.Reporter
}

// New validates the run and file configuration and builds a Runner.
// A nil cfg means the defaults.
func New(fs afero.Fs, run config.RunConfig, cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		cfg = config.GetDefault()
	}

	if err := run.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	extensions, err := cfg.MediaExtensions()
	if err != nil {
		return nil, err
	}
	bufferSize, err := cfg.BufferBytes()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		fs:               fs,
		run:              run,
		cfg:              cfg,
		extensions:       extensions,
		bufferSize:       bufferSize,
		logger:           zap.NewNop(),
		progressReporter: progress.NewProgressReporter(),
		reporter:         reporter.New(io.Discard, reporter.FormatSummary),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.digester == nil {
		r.digester = utils.NewSHA256Digester(bufferSize)
	}
	if r.confirmer == nil {
		r.confirmer = cleaner.ConfirmFunc(func(string) (bool, error) {
			return false, ErrNoConfirmer
		})
	}

	return r, nil
}

// Extensions returns the effective media extension set
func (r *Runner) Extensions() config.ExtensionSet {
	return r.extensions
}

// Run executes every stage in order. The returned Result is never nil and
// holds the stages that completed, also when an error is returned.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{}
	runErr := r.execute(ctx, result)

	// In summary mode this closes the incremental output; json and yaml get
	// their only document here
	report := reporter.BuildRunReport(r.run, result.Catalog, result.Grouping, result.Removal, runErr)
	if err := r.reporter.Report(report); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to write report: %w", err)
	}

	return result, runErr
}

// execute runs the stages, filling result as each one finishes
func (r *Runner) execute(ctx context.Context, result *Result) error {
	incremental := r.reporter.Format() == reporter.FormatSummary

	r.logger.Debug("Starting run",
		zap.String("media_root", r.run.MediaRoot),
		zap.String("trash_root", r.run.TrashRoot),
		zap.Stringer("extensions", r.extensions),
		zap.Int("buffer_size", r.bufferSize))

	catalog, err := r.enumerator().Enumerate(ctx, r.run.MediaRoot)
	if err != nil {
		return err
	}
	result.Catalog = catalog

	if incremental {
		r.reporter.MediaSummary(catalog)
		if r.run.PrintMedia {
			r.reporter.MediaList(catalog)
		}
	}

	grouper := scanner.NewGrouper(r.fs, r.digester)
	grouper.SetLogger(r.logger)
	grouper.SetProgressReporter(r.progressReporter)
	grouper.SetProgressSteps(r.cfg.ProgressSteps)

	grouping, err := grouper.Group(ctx, catalog)
	if err != nil {
		return err
	}
	result.Grouping = grouping

	if incremental {
		r.reporter.DuplicateSummary(grouping)
		if r.run.PrintDuplicates && grouping.DuplicateCount > 0 {
			r.reporter.DuplicateList(grouping)
		}
	}

	remover := cleaner.New(r.fs, r.run, r.digester, r.confirmer)
	remover.SetLogger(r.logger)
	remover.SetProgressReporter(r.progressReporter)
	remover.SetBufferSize(r.bufferSize)
	result.Manifest = remover.GetManifest()

	removal, err := remover.Remove(ctx, grouping)
	result.Removal = removal

	if incremental && removal != nil {
		r.reporter.RemovalSummary(removal, r.run.TrashRoot)
	}

	return err
}

// enumerator builds the Enumerator, keeping a nested trash root out of the scan
func (r *Runner) enumerator() *scanner.Enumerator {
	enumerator := scanner.NewEnumerator(r.fs, r.extensions)
	enumerator.SetLogger(r.logger)
	enumerator.SetProgressReporter(r.progressReporter)
	enumerator.SetExcludePatterns(r.cfg.ExcludePatterns...)

	if r.run.TrashInsideMedia() {
		r.logger.Debug("Excluding trash root from scan", zap.String("path", r.run.TrashRoot))
		enumerator.SetExcludeDirs(r.run.TrashRoot)
	}

	return enumerator
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fenilsonani/media-dedup/internal/cleaner"
	"github.com/fenilsonani/media-dedup/internal/config"
	"github.com/fenilsonani/media-dedup/internal/dedup"
	"github.com/fenilsonani/media-dedup/internal/progress"
	"github.com/fenilsonani/media-dedup/internal/reporter"
	"github.com/fenilsonani/media-dedup/internal/ui"
	"github.com/fenilsonani/media-dedup/internal/ui/styles"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// options holds the parsed command line of one invocation
type options struct {
	configPath      string
	verbose         bool
	mediaPath       string
	trashPath       string
	printMedia      bool
	printDuplicates bool
	noConfirmation  bool
	excludes        []string
	outputFmt       string
	manifestPath    string
	initConfig      bool
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code
func execute(args []string, in io.Reader, out, errOut io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	if err := cmd.Execute(); err != nil {
		var mutErr *cleaner.MutationError
		if errors.As(err, &mutErr) {
			fmt.Fprintln(errOut, styles.WarningStyle.Render(mutErr.UserMessage()))
		}
		fmt.Fprintln(errOut, styles.ErrorStyle.Render("Error: "+err.Error()))
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "dedup --media-path <path> [flags]",
		Short: "Find and remove duplicate media files",
		Long: `dedup searches a directory tree for media files, finds files with identical
content and keeps only the first copy of each (in path order). Duplicates are
moved to --trash-path if given, otherwise deleted permanently.`,
		Example:       "  dedup --media-path /path/to/media/ --trash-path /path/to/duplicates/trash/ --print-duplicates",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Display current configuration",
		Long:  `Shows the config file in use and the media extensions it results in.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.showConfig(cmd.OutOrStdout())
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (.yaml or .ini)")
	rootCmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "verbose logging on stderr")

	// Run flags
	rootCmd.Flags().StringVar(&opts.mediaPath, "media-path", "", "directory in which the media files will be deduplicated")
	rootCmd.Flags().StringVar(&opts.trashPath, "trash-path", "", "directory to which duplicates are moved; if not provided duplicates are deleted permanently")
	rootCmd.Flags().BoolVar(&opts.printMedia, "print-media", false, "print paths of media files found")
	rootCmd.Flags().BoolVar(&opts.printDuplicates, "print-duplicates", false, "print paths of duplicates found")
	rootCmd.Flags().BoolVar(&opts.noConfirmation, "no-confirmation", false, "do not ask before deleting duplicates or moving them to the trash path")
	rootCmd.Flags().StringSliceVar(&opts.excludes, "exclude", nil, "glob of names or paths to skip (repeatable)")
	rootCmd.Flags().StringVar(&opts.outputFmt, "output", "summary", "output format (summary, json, yaml)")
	rootCmd.Flags().StringVar(&opts.manifestPath, "manifest", "", "save a list of removed duplicates to this file")
	_ = rootCmd.MarkFlagRequired("media-path")

	// Config command flags
	configCmd.Flags().BoolVar(&opts.initConfig, "init", false, "create the config file with defaults if it does not exist")

	rootCmd.AddCommand(configCmd)
	return rootCmd
}

// run is the root command: scan, group, confirm and remove
func (o *options) run(cmd *cobra.Command) error {
	in, out, errOut := cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()

	// Load config
	cfg, err := o.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with flags
	cfg.ExcludePatterns = append(cfg.ExcludePatterns, o.excludes...)
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = o.verbose
	}

	format, err := reporter.ParseFormat(o.outputFmt)
	if err != nil {
		return err
	}

	run, err := o.buildRunConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Verbose, errOut)
	defer logger.Sync() //nolint:errcheck

	// The question goes to stderr when stdout carries a json/yaml document
	promptOut := out
	if format != reporter.FormatSummary {
		promptOut = errOut
	}
	confirmer := newConfirmer(in, promptOut)

	pr := progress.NewProgressReporter()
	var printer *ui.ProgressPrinter
	if f, ok := errOut.(*os.File); ok && ui.IsTerminal(f) {
		printer = ui.NewProgressPrinter(errOut, ui.TerminalWidth(f))
		confirmer = printer.Confirmer(confirmer)
	}

	runner, err := dedup.New(afero.NewOsFs(), run, cfg,
		dedup.WithLogger(logger),
		dedup.WithProgressReporter(pr),
		dedup.WithOutput(out, format),
		dedup.WithConfirmer(confirmer),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if printer != nil {
		printer.Start(pr)
	}

	result, runErr := runner.Run(ctx)

	if printer != nil {
		printer.Stop()
	}

	if o.manifestPath != "" && result.Manifest != nil && len(result.Manifest.Files) > 0 {
		if err := result.Manifest.Save(o.manifestPath); err != nil {
			logger.Error("Failed to save manifest", zap.String("path", o.manifestPath), zap.Error(err))
			if runErr == nil {
				runErr = fmt.Errorf("failed to save manifest: %w", err)
			}
		} else if format == reporter.FormatSummary {
			fmt.Fprintln(out, styles.SuccessStyle.Render("Manifest saved to: "+o.manifestPath))
		}
	}

	if errors.Is(runErr, cleaner.ErrPromptAborted) {
		return fmt.Errorf("aborted: no duplicates were removed")
	}
	return runErr
}

// showConfig is the config command
func (o *options) showConfig(out io.Writer) error {
	cfgPath, err := o.resolveConfigPath()
	if err != nil {
		return err
	}

	if o.initConfig {
		if err := config.EnsureConfigExists(cfgPath); err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}
	}

	fmt.Fprintf(out, "%s %s\n", styles.TitleStyle.Render("Config file:"), styles.FilePathStyle.Render(cfgPath))

	// Check if config exists
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		fmt.Fprintln(out, styles.DimStyle.Render("Config file does not exist. Using default configuration."))
		fmt.Fprintln(out, styles.HelpStyle.Render("Run 'dedup config --init' to create one."))
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	extensions, err := cfg.MediaExtensions()
	if err != nil {
		return err
	}
	bufferSize, err := cfg.BufferBytes()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s\n", styles.SubtitleStyle.Render("Media extensions:"), styles.ExtensionStyle.Render(extensions.String()))
	fmt.Fprintf(out, "%s %s\n", styles.SubtitleStyle.Render("Hash buffer:"), styles.FileSizeStyle.Render(fmt.Sprintf("%d bytes", bufferSize)))
	fmt.Fprintf(out, "%s %d\n", styles.SubtitleStyle.Render("Progress steps:"), cfg.ProgressSteps)
	if len(cfg.ExcludePatterns) > 0 {
		fmt.Fprintf(out, "%s %v\n", styles.SubtitleStyle.Render("Exclude patterns:"), cfg.ExcludePatterns)
	}

	return nil
}

// buildRunConfig validates the path flags and assembles the run configuration
func (o *options) buildRunConfig() (config.RunConfig, error) {
	media, err := resolveDir(o.mediaPath)
	if err != nil {
		return config.RunConfig{}, err
	}

	run := config.RunConfig{
		MediaRoot:        media,
		PrintMedia:       o.printMedia,
		PrintDuplicates:  o.printDuplicates,
		SkipConfirmation: o.noConfirmation,
	}

	if o.trashPath != "" {
		trash, err := resolveDir(o.trashPath)
		if err != nil {
			return config.RunConfig{}, err
		}
		if trash == media {
			return config.RunConfig{}, fmt.Errorf("trash path must differ from media path: %s", trash)
		}
		run.TrashRoot = trash
	}

	if err := run.Validate(); err != nil {
		return config.RunConfig{}, err
	}

	return run, nil
}

// resolveDir makes path absolute and clean and checks that it is an existing directory
func resolveDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path %s does not exist", abs)
		}
		return "", fmt.Errorf("cannot access %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path %s is not a directory", abs)
	}

	return abs, nil
}

// newConfirmer uses the interactive prompt when both ends are a terminal and
// plain lines otherwise
func newConfirmer(in io.Reader, out io.Writer) cleaner.Confirmer {
	inFile, inOK := in.(*os.File)
	outFile, outOK := out.(*os.File)
	if inOK && outOK && ui.IsTerminal(inFile) && ui.IsTerminal(outFile) {
		return ui.NewPromptConfirmer(in, out)
	}
	return ui.NewLineConfirmer(in, out)
}

// newLogger builds a console logger on w. Only warnings and errors are
// shown unless verbose is set.
func newLogger(verbose bool, w io.Writer) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if f, ok := w.(*os.File); ok && ui.IsTerminal(f) {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core)
}

func (o *options) resolveConfigPath() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.GetConfigPath()
}

func (o *options) loadConfig() (*config.Config, error) {
	cfgPath, err := o.resolveConfigPath()
	if err != nil {
		return nil, err
	}

	return config.Load(cfgPath)
}

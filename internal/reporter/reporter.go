package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fenilsonani/media-dedup/internal/cleaner"
	"github.com/fenilsonani/media-dedup/internal/config"
	"github.com/fenilsonani/media-dedup/internal/scanner"
	"github.com/fenilsonani/media-dedup/pkg/utils"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatSummary OutputFormat = "summary"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
)

// ParseFormat validates a format name
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatSummary, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use summary, json or yaml)", s)
	}
}

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
	}
}

// Format returns the output format
func (r *Reporter) Format() OutputFormat {
	return r.format
}

// Incremental reports that are printed between stages in summary mode.

// MediaSummary prints the number and size of media files and a per-extension breakdown
func (r *Reporter) MediaSummary(catalog *scanner.Catalog) {
	fmt.Fprintf(r.writer, "Found %d media files (%s) in %s\n",
		catalog.Len(), utils.FormatBytes(catalog.TotalSize), catalog.Root)

	for _, ext := range catalog.Tally.Sorted() {
		fmt.Fprintf(r.writer, "\t- %d %s files\n", catalog.Tally[ext], ext)
	}

	if len(catalog.Warnings) > 0 {
		fmt.Fprintf(r.writer, "Skipped %d unreadable directories\n", len(catalog.Warnings))
	}
	fmt.Fprintln(r.writer)
}

// MediaList prints every media file in canonical order
func (r *Reporter) MediaList(catalog *scanner.Catalog) {
	fmt.Fprintf(r.writer, "Media files found in %s:\n", catalog.Root)
	for _, file := range catalog.Files {
		fmt.Fprintln(r.writer, file.Path)
	}
	fmt.Fprintln(r.writer)
}

// DuplicateSummary prints how many files are duplicates of another
func (r *Reporter) DuplicateSummary(grouping *scanner.Grouping) {
	fmt.Fprintf(r.writer, "Found %d duplicated media files (%s) in %d sets\n",
		grouping.DuplicateCount, utils.FormatBytes(grouping.DuplicateSize), len(grouping.Registry()))
	if grouping.HashedCount > 0 {
		fmt.Fprintf(r.writer, "\t- %d distinct contents among %d hashed files\n", grouping.GroupCount(), grouping.HashedCount)
	}

	if len(grouping.Warnings) > 0 {
		fmt.Fprintf(r.writer, "Could not read %d files\n", len(grouping.Warnings))
	}
	fmt.Fprintln(r.writer)
}

// DuplicateList prints each duplicate set, survivor first
func (r *Reporter) DuplicateList(grouping *scanner.Grouping) {
	catalog := grouping.Catalog()

	fmt.Fprintf(r.writer, "Duplicated media files found in %s:\n", catalog.Root)
	for _, set := range grouping.Sets() {
		fmt.Fprintf(r.writer, "Duplicate for %s found at:\n", catalog.File(set.Survivor()).Path)
		for _, id := range set.Victims() {
			fmt.Fprintf(r.writer, "\t %s\n", catalog.File(id).Path)
		}
	}
	fmt.Fprintln(r.writer)
}

// RemovalSummary prints the outcome of the removal stage
func (r *Reporter) RemovalSummary(result *cleaner.RemovalResult, trashRoot string) {
	if result == nil {
		return
	}

	switch result.Status {
	case cleaner.StatusNothingToDo:
		fmt.Fprintln(r.writer, "No duplicates to remove")
	case cleaner.StatusDeclined:
		fmt.Fprintf(r.writer, "Declined: %d duplicates left in place\n", result.Planned)
	case cleaner.StatusRemoved:
		if result.Mode == cleaner.ModeTrash {
			fmt.Fprintf(r.writer, "Moved %d duplicates (%s) to %s\n",
				len(result.Removed), utils.FormatBytes(result.RemovedSize), trashRoot)
		} else {
			fmt.Fprintf(r.writer, "Deleted %d duplicates (%s)\n",
				len(result.Removed), utils.FormatBytes(result.RemovedSize))
		}
	case cleaner.StatusFailed:
		fmt.Fprintf(r.writer, "Removal stopped after %d of %d duplicates (%s)\n",
			len(result.Removed), result.Planned, utils.FormatBytes(result.RemovedSize))
	}
}

// Whole-run report

// DuplicateSetReport describes one duplicate set
type DuplicateSetReport struct {
	Fingerprint string   `json:"fingerprint" yaml:"fingerprint"`
	Survivor    string   `json:"survivor" yaml:"survivor"`
	Duplicates  []string `json:"duplicates" yaml:"duplicates"`
	Size        int64    `json:"size" yaml:"size"`
}

// RunReport describes a complete run
type RunReport struct {
	Timestamp          string               `json:"timestamp" yaml:"timestamp"`
	MediaRoot          string               `json:"media_root" yaml:"media_root"`
	TrashRoot          string               `json:"trash_root,omitempty" yaml:"trash_root,omitempty"`
	Mode               string               `json:"mode" yaml:"mode"`
	MediaFiles         int                  `json:"media_files" yaml:"media_files"`
	MediaSize          int64                `json:"media_size" yaml:"media_size"`
	MediaSizeFormatted string               `json:"media_size_formatted" yaml:"media_size_formatted"`
	Extensions         map[string]int       `json:"extensions" yaml:"extensions"`
	Media              []scanner.MediaFile  `json:"media,omitempty" yaml:"media,omitempty"`
	DuplicateCount     int                  `json:"duplicate_count" yaml:"duplicate_count"`
	DuplicateSize      int64                `json:"duplicate_size" yaml:"duplicate_size"`
	DuplicateSets      []DuplicateSetReport `json:"duplicate_sets,omitempty" yaml:"duplicate_sets,omitempty"`
	Status             string               `json:"status" yaml:"status"`
	Removed            []cleaner.Removal    `json:"removed" yaml:"removed"`
	RemovedSize        int64                `json:"removed_size" yaml:"removed_size"`
	Warnings           []string             `json:"warnings" yaml:"warnings"`
	Error              string               `json:"error,omitempty" yaml:"error,omitempty"`
}

// BuildRunReport collects whatever stages completed into a report.
// catalog, grouping and removal may be nil when the run stopped early.
func BuildRunReport(run config.RunConfig, catalog *scanner.Catalog, grouping *scanner.Grouping, removal *cleaner.RemovalResult, runErr error) *RunReport {
	report := &RunReport{
		Timestamp:  time.Now().Format(time.RFC3339),
		MediaRoot:  run.MediaRoot,
		TrashRoot:  run.TrashRoot,
		Mode:       cleaner.ModePermanent.String(),
		Extensions: map[string]int{},
		Removed:    []cleaner.Removal{},
		Warnings:   []string{},
	}
	if run.TrashMode() {
		report.Mode = cleaner.ModeTrash.String()
	}

	if catalog != nil {
		report.MediaFiles = catalog.Len()
		report.MediaSize = catalog.TotalSize
		report.MediaSizeFormatted = utils.FormatBytes(catalog.TotalSize)
		for ext, count := range catalog.Tally {
			report.Extensions[ext] = count
		}
		if run.PrintMedia {
			report.Media = catalog.Files
		}
		for _, w := range catalog.Warnings {
			report.Warnings = append(report.Warnings, w.Error())
		}
	}

	if grouping != nil {
		report.DuplicateCount = grouping.DuplicateCount
		report.DuplicateSize = grouping.DuplicateSize
		if run.PrintDuplicates {
			report.DuplicateSets = duplicateSets(grouping)
		}
		for _, w := range grouping.Warnings {
			report.Warnings = append(report.Warnings, w.Error())
		}
	}

	switch {
	case removal != nil:
		report.Status = removal.Status.String()
		report.Removed = removal.Removed
		report.RemovedSize = removal.RemovedSize
	case runErr != nil:
		report.Status = cleaner.StatusFailed.String()
	default:
		report.Status = cleaner.StatusNothingToDo.String()
	}

	if runErr != nil {
		report.Error = runErr.Error()
	}

	return report
}

// duplicateSets converts the grouping's sets into report entries
func duplicateSets(grouping *scanner.Grouping) []DuplicateSetReport {
	catalog := grouping.Catalog()
	sets := []DuplicateSetReport{}

	for _, set := range grouping.Sets() {
		entry := DuplicateSetReport{
			Fingerprint: string(set.Fingerprint),
			Survivor:    catalog.File(set.Survivor()).Path,
			Duplicates:  []string{},
		}
		for _, id := range set.Victims() {
			file := catalog.File(id)
			entry.Duplicates = append(entry.Duplicates, file.Path)
			entry.Size += file.Size
		}
		sets = append(sets, entry)
	}

	return sets
}

// Report writes the whole-run report in the configured format
func (r *Reporter) Report(report *RunReport) error {
	switch r.format {
	case FormatJSON:
		return r.reportJSON(report)
	case FormatYAML:
		return r.reportYAML(report)
	case FormatSummary:
		return r.reportSummary(report)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// reportSummary generates a summary report
func (r *Reporter) reportSummary(report *RunReport) error {
	fmt.Fprintf(r.writer, "\n=== Dedup Summary ===\n")
	fmt.Fprintf(r.writer, "Media Files: %d (%s)\n", report.MediaFiles, report.MediaSizeFormatted)
	fmt.Fprintf(r.writer, "Duplicates: %d (%s)\n", report.DuplicateCount, utils.FormatBytes(report.DuplicateSize))
	fmt.Fprintf(r.writer, "Mode: %s\n", report.Mode)
	fmt.Fprintf(r.writer, "Status: %s\n", report.Status)
	if len(report.Removed) > 0 {
		fmt.Fprintf(r.writer, "Removed: %d (%s)\n", len(report.Removed), utils.FormatBytes(report.RemovedSize))
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintf(r.writer, "\nWarnings: %d\n", len(report.Warnings))
	}

	return nil
}

// reportJSON generates a JSON report
func (r *Reporter) reportJSON(report *RunReport) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// reportYAML generates a YAML report
func (r *Reporter) reportYAML(report *RunReport) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(report)
}

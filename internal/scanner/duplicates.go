package scanner

import (
	"context"
	"errors"
	"time"

	"github.com/fenilsonani/media-dedup/internal/progress"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// groupState tracks a fingerprint through Unseen -> Unique -> Duplicate
type groupState int

const (
	stateUnseen groupState = iota
	stateUnique
	stateDuplicate
)

// hashGroup holds the files sharing one fingerprint, in insertion order.
// members[0] is the survivor.
type hashGroup struct {
	state   groupState
	members []FileID
}

// add appends id and reports whether this insertion turned the group into a duplicate set
func (g *hashGroup) add(id FileID) bool {
	g.members = append(g.members, id)

	switch g.state {
	case stateUnseen:
		g.state = stateUnique
	case stateUnique:
		g.state = stateDuplicate
		return true
	}
	return false
}

// DuplicateSet is one group of content-identical files
type DuplicateSet struct {
	Fingerprint Fingerprint
	Members     []FileID
}

// Survivor returns the member that is kept
func (s DuplicateSet) Survivor() FileID {
	return s.Members[0]
}

// Victims returns the members that are removed, in ascending index order
func (s DuplicateSet) Victims() []FileID {
	return s.Members[1:]
}

// Grouping is the result of fingerprinting a Catalog. It owns the hash
// groups and the registry of fingerprints that reached duplicate status.
type Grouping struct {
	catalog  *Catalog
	groups   map[Fingerprint]*hashGroup
	registry []Fingerprint

	HashedCount    int
	DuplicateCount int
	DuplicateSize  int64
	Warnings       []*Warning
}

// NewGrouping creates an empty grouping over catalog
func NewGrouping(catalog *Catalog) *Grouping {
	return &Grouping{
		catalog:  catalog,
		groups:   make(map[Fingerprint]*hashGroup),
		registry: []Fingerprint{},
		Warnings: []*Warning{},
	}
}

// NewGroupingFrom rebuilds a grouping from raw groups and a registry without
// checking that they agree. The removal stage verifies consistency itself.
func NewGroupingFrom(catalog *Catalog, groups map[Fingerprint][]FileID, registry []Fingerprint) *Grouping {
	g := NewGrouping(catalog)
	for fp, members := range groups {
		hg := &hashGroup{members: append([]FileID(nil), members...)}
		switch {
		case len(members) >= 2:
			hg.state = stateDuplicate
		case len(members) == 1:
			hg.state = stateUnique
		}
		g.groups[fp] = hg
	}
	g.registry = append(g.registry, registry...)
	return g
}

// Add inserts id under fp. The first time a fingerprint gains its second
// member it is appended to the registry.
func (g *Grouping) Add(fp Fingerprint, id FileID) {
	group, ok := g.groups[fp]
	if !ok {
		group = &hashGroup{}
		g.groups[fp] = group
	}

	g.HashedCount++
	if group.add(id) {
		g.registry = append(g.registry, fp)
	}

	if len(group.members) > 1 {
		g.DuplicateCount++
		g.DuplicateSize += g.catalog.File(id).Size
	}
}

// Catalog returns the catalog the grouping indexes into
func (g *Grouping) Catalog() *Catalog {
	return g.catalog
}

// Registry returns the duplicate fingerprints in discovery order
func (g *Grouping) Registry() []Fingerprint {
	return append([]Fingerprint(nil), g.registry...)
}

// Members returns the files under fp in insertion order
func (g *Grouping) Members(fp Fingerprint) ([]FileID, bool) {
	group, ok := g.groups[fp]
	if !ok {
		return nil, false
	}
	return append([]FileID(nil), group.members...), true
}

// GroupCount returns the number of distinct fingerprints seen
func (g *Grouping) GroupCount() int {
	return len(g.groups)
}

// Sets returns the duplicate sets in registry order
func (g *Grouping) Sets() []DuplicateSet {
	sets := make([]DuplicateSet, 0, len(g.registry))
	for _, fp := range g.registry {
		members, _ := g.Members(fp)
		sets = append(sets, DuplicateSet{Fingerprint: fp, Members: members})
	}
	return sets
}

// Grouper fingerprints every file of a Catalog and groups identical content
type Grouper struct {
	fs               afero.Fs
	digester         Digester
	steps            int
	logger           *zap.Logger
	progressReporter *progress.ProgressReporter
}

// NewGrouper creates a new Grouper
func NewGrouper(fs afero.Fs, digester Digester) *Grouper {
	return &Grouper{
		fs:               fs,
		digester:         digester,
		steps:            100,
		logger:           zap.NewNop(),
		progressReporter: progress.NewProgressReporter(),
	}
}

// SetLogger sets the logger
func (g *Grouper) SetLogger(logger *zap.Logger) {
	g.logger = logger
}

// SetProgressReporter sets a custom progress reporter
func (g *Grouper) SetProgressReporter(pr *progress.ProgressReporter) {
	g.progressReporter = pr
}

// SetProgressSteps sets how many progress updates the total byte size is split into
func (g *Grouper) SetProgressSteps(steps int) {
	if steps > 0 {
		g.steps = steps
	}
}

// Group hashes the catalog in FileID order. Files that cannot be hashed are
// logged and left out of every group; they never abort the run.
func (g *Grouper) Group(ctx context.Context, catalog *Catalog) (*Grouping, error) {
	grouping := NewGrouping(catalog)
	tracker := progress.NewThresholdTracker(catalog.TotalSize, g.steps)
	startTime := time.Now()
	var bytesDone int64

	g.logger.Info("Searching for duplicates", zap.Int("files", catalog.Len()), zap.Int64("bytes", catalog.TotalSize))
	g.reportProgress(progress.PhaseHashing, "", 0, 0, 0, catalog, grouping, startTime)

	for i, file := range catalog.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := FileID(i)
		fp, err := g.digestFile(file.Path)
		if err != nil {
			warning := &Warning{Op: "hash", Path: file.Path, Err: err}
			grouping.Warnings = append(grouping.Warnings, warning)
			g.logger.Warn("Failed to hash media file", zap.String("path", file.Path), zap.Error(err))
		} else {
			grouping.Add(fp, id)
		}

		bytesDone += file.Size
		if step, crossed := tracker.Advance(bytesDone); crossed {
			g.reportProgress(progress.PhaseHashing, file.Path, step, bytesDone, i+1, catalog, grouping, startTime)
		}
	}

	g.reportProgress(progress.PhaseComplete, "", tracker.Steps(), bytesDone, catalog.Len(), catalog, grouping, startTime)
	g.logger.Info("Duplicate search complete",
		zap.Int("duplicates", grouping.DuplicateCount),
		zap.Int("sets", len(grouping.registry)),
		zap.Int64("duplicate_bytes", grouping.DuplicateSize),
		zap.Int("warnings", len(grouping.Warnings)))

	return grouping, nil
}

// digestFile streams one file through the digester
func (g *Grouper) digestFile(path string) (Fingerprint, error) {
	file, err := g.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	sum, err := g.digester.Digest(file)
	if err != nil {
		return "", err
	}
	if sum == "" {
		return "", errors.New("digest returned an empty fingerprint")
	}

	return Fingerprint(sum), nil
}

// reportProgress reports hashing progress to listeners
func (g *Grouper) reportProgress(phase progress.Phase, current string, step int, bytesDone int64, filesDone int, catalog *Catalog, grouping *Grouping, startTime time.Time) {
	if g.progressReporter == nil {
		return
	}

	g.progressReporter.UpdateHashProgress(&progress.HashProgress{
		Phase:       phase,
		CurrentFile: current,
		Percent:     step * 100 / g.steps,
		Steps:       g.steps,
		BytesDone:   bytesDone,
		TotalBytes:  catalog.TotalSize,
		FilesDone:   filesDone,
		TotalFiles:  catalog.Len(),
		Duplicates:  grouping.DuplicateCount,
		StartTime:   startTime,
	})
}

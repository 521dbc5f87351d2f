// Package pipeline runs the change detection cycle for configured
// sources. A run downloads one layer, normalizes it, assigns stable
// keys, and then either archives the first snapshot or compares the
// new snapshot against the archived one and writes the partitioned
// changes to a separate GeoPackage. The archive records what the
// source looked like when monitoring began; it is never rewritten by
// later runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/geodiff/internal/config"
	"github.com/roach88/geodiff/internal/diff"
	"github.com/roach88/geodiff/internal/feature"
	"github.com/roach88/geodiff/internal/fetch"
	"github.com/roach88/geodiff/internal/gpkg"
	"github.com/roach88/geodiff/internal/keygen"
	"github.com/roach88/geodiff/internal/normalize"
	"github.com/roach88/geodiff/internal/report"
)

const (
	// DefaultPrecision is the coordinate grid, in CRS units, used for
	// synthetic keys and geometry comparison when none is configured.
	DefaultPrecision = 0.01

	// DefaultCRS is the EPSG code snapshots are reprojected to when no
	// target is configured. EPSG:3005 is BC Albers, the working
	// projection for the province-wide layers this tool monitors.
	DefaultCRS = 3005
)

// Change layers label before and after columns with these suffixes.
const (
	suffixOriginal = "original"
	suffixNew      = "new"
)

// Action identifies the outcome of one layer run.
type Action string

const (
	ActionCreated   Action = "created"   // first run, archive written
	ActionChanged   Action = "changed"   // records differ, changes file written
	ActionUnchanged Action = "unchanged" // records match, nothing written
	ActionChecked   Action = "checked"   // validation only, nothing written
)

// Result reports the outcome of one layer run.
type Result struct {
	Layer   string
	Token   string
	Action  Action
	Records int

	// Report carries the change counters when Action is ActionChanged,
	// and is nil otherwise.
	Report *report.LayerReport

	// Duplicates lists records dropped during key assignment. They are
	// reported on every run and persisted alongside the changes when a
	// changes file is written.
	Duplicates feature.DuplicateReport
}

// Runner executes layer runs against one output directory. The zero
// value runs with library defaults, silently, against the current
// directory; callers normally set Logger and OutPath.
type Runner struct {
	// Logger receives run progress. Each run annotates it with the run
	// token and layer name. Nil discards everything.
	Logger *slog.Logger

	// Client performs source downloads. Nil means http.DefaultClient.
	Client *http.Client

	// Tokens mints run tokens. Nil means UUIDv7Generator.
	Tokens TokenGenerator

	// OutPath is the directory holding archives and changes files.
	// Empty means the current directory.
	OutPath string

	// KeyColumn is the column assigned keys persist under. Empty means
	// keygen.DefaultKeyColumn.
	KeyColumn string

	// Precision is the coordinate grid for synthetic keys, in target
	// CRS units. Zero means DefaultPrecision.
	Precision float64

	// Tolerance is the distance below which geometry differences are
	// ignored during comparison. Zero means the effective precision.
	Tolerance float64

	// TargetCRS is the EPSG code snapshots are reprojected to. Zero
	// means DefaultCRS.
	TargetCRS int
}

// Run executes one full cycle for src. The first run archives the
// snapshot as <out_layer>.gpkg under OutPath. Later runs compare the
// new snapshot against the archive: when nothing differs the run ends
// without writing, otherwise the partitioned changes and any dropped
// duplicates are written to <out_layer>_changes.gpkg, replacing the
// previous changes file.
func (r *Runner) Run(ctx context.Context, src config.Source) (*Result, error) {
	token := r.tokens().Generate()
	logger := r.logger().With("run_id", token, "layer", src.OutLayer)

	snap, dups, err := r.produce(ctx, logger, src)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Layer:      src.OutLayer,
		Token:      token,
		Records:    len(snap.Records),
		Duplicates: dups,
	}

	archive := filepath.Join(r.OutPath, src.OutLayer+".gpkg")
	prev, err := r.readArchive(ctx, archive, src.OutLayer)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		if err := writeArchive(ctx, archive, snap); err != nil {
			return nil, err
		}
		logger.Info("snapshot archived", "path", archive, "records", len(snap.Records))
		res.Action = ActionCreated
		return res, nil
	}

	cs, err := diff.Diff(prev, snap, diff.Options{
		Tolerance: r.tolerance(),
		SuffixA:   suffixOriginal,
		SuffixB:   suffixNew,
	})
	if err != nil {
		return nil, err
	}
	if !cs.HasChanges() {
		logger.Info("no changes", "records", len(snap.Records))
		res.Action = ActionUnchanged
		return res, nil
	}

	summary := cs.Summarize()
	changes := filepath.Join(r.OutPath, src.OutLayer+"_changes.gpkg")
	if err := writeChanges(ctx, changes, src.OutLayer, snap.Fields, cs, dups); err != nil {
		return nil, err
	}
	logger.Info("changes written", "path", changes,
		"additions", summary.Additions,
		"deletions", summary.Deletions,
		"modifications", summary.Modified)

	rep := report.New(src.OutLayer, summary, dups)
	res.Action = ActionChanged
	res.Report = &rep
	return res, nil
}

// Check executes the download and validation half of a cycle without
// touching the output directory. It exercises the source definition
// end to end: the download must succeed, fields must resolve, and key
// assignment must hold, with duplicates reported in the result.
func (r *Runner) Check(ctx context.Context, src config.Source) (*Result, error) {
	token := r.tokens().Generate()
	logger := r.logger().With("run_id", token, "layer", src.OutLayer)

	snap, dups, err := r.produce(ctx, logger, src)
	if err != nil {
		return nil, err
	}
	logger.Info("check complete", "records", len(snap.Records))

	return &Result{
		Layer:      src.OutLayer,
		Token:      token,
		Action:     ActionChecked,
		Records:    len(snap.Records),
		Duplicates: dups,
	}, nil
}

// produce runs the shared front half of a cycle: download, normalize,
// assign keys.
func (r *Runner) produce(ctx context.Context, logger *slog.Logger, src config.Source) (*feature.Snapshot, feature.DuplicateReport, error) {
	fetcher, err := fetch.New(src, r.Client)
	if err != nil {
		return nil, nil, err
	}
	table, err := fetcher.Fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("download complete", "records", len(table.Rows), "crs", table.CRS)

	snap, err := normalize.Normalize(table, r.targetCRS(), src.Fields)
	if err != nil {
		return nil, nil, err
	}

	keyed, dups, err := keygen.Assign(snap, keygen.Options{
		KeyFields:  src.PrimaryKey,
		HashFields: src.HashFields,
		Precision:  r.precision(),
		KeyColumn:  r.KeyColumn,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(dups) > 0 {
		logger.Warn("duplicate records dropped",
			"count", len(dups), "ids", strings.Join(dups.IDs(), ","))
	}
	return keyed, dups, nil
}

// readArchive loads the archived snapshot for layer, or returns nil
// when no archive exists yet.
func (r *Runner) readArchive(ctx context.Context, path, layer string) (*feature.Snapshot, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	store, err := gpkg.Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.ReadSnapshot(ctx, layer, r.keyColumn())
}

// writeArchive persists the first snapshot of a layer. A partial file
// left by a failed write would shadow the layer on every later run, so
// failures remove it.
func writeArchive(ctx context.Context, path string, snap *feature.Snapshot) error {
	store, err := gpkg.Create(path)
	if err != nil {
		return err
	}
	if err := store.WriteSnapshot(ctx, snap); err != nil {
		store.Close()
		os.Remove(path)
		return err
	}
	if err := store.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// writeChanges persists a change set, plus the duplicates dropped from
// the new snapshot, replacing any changes file from a previous run.
func writeChanges(ctx context.Context, path, layer string, fields []feature.Field, cs *diff.ChangeSet, dups feature.DuplicateReport) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("replace changes file: %w", err)
	}

	store, err := gpkg.Create(path)
	if err != nil {
		return err
	}
	if err := store.WriteChangeSet(ctx, cs); err != nil {
		store.Close()
		return err
	}
	if err := store.WriteDuplicates(ctx, layer+"_duplicates", cs.KeyColumn, fields, dups); err != nil {
		store.Close()
		return err
	}
	return store.Close()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (r *Runner) tokens() TokenGenerator {
	if r.Tokens != nil {
		return r.Tokens
	}
	return UUIDv7Generator{}
}

func (r *Runner) keyColumn() string {
	if r.KeyColumn != "" {
		return r.KeyColumn
	}
	return keygen.DefaultKeyColumn
}

func (r *Runner) precision() float64 {
	if r.Precision > 0 {
		return r.Precision
	}
	return DefaultPrecision
}

func (r *Runner) tolerance() float64 {
	if r.Tolerance > 0 {
		return r.Tolerance
	}
	return r.precision()
}

func (r *Runner) targetCRS() int {
	if r.TargetCRS != 0 {
		return r.TargetCRS
	}
	return DefaultCRS
}

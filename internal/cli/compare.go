package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/geodiff/internal/config"
	"github.com/roach88/geodiff/internal/diff"
	"github.com/roach88/geodiff/internal/feature"
	"github.com/roach88/geodiff/internal/fetch"
	"github.com/roach88/geodiff/internal/gpkg"
	"github.com/roach88/geodiff/internal/keygen"
	"github.com/roach88/geodiff/internal/normalize"
	"github.com/roach88/geodiff/internal/pipeline"
)

// CompareOptions holds flags for the compare command.
type CompareOptions struct {
	*RootOptions
	LayerA     string
	LayerB     string
	PrimaryKey []string
	Fields     []string
	Precision  float64
	Tolerance  float64
	SuffixA    string
	SuffixB    string
	OutPath    string
	KeyColumn  string
}

// CompareResult is the compare command's outcome as rendered on stdout.
type CompareResult struct {
	diff.Summary
	Changed bool   `json:"changed"`
	Output  string `json:"output,omitempty"`
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare <dataset-a> <dataset-b>",
		Short: "Compare two datasets directly",
		Long: `Compare two datasets without touching any archive: dataset-a is the
original, dataset-b the new version. Inputs are GeoPackage layers
(name the layer with --layer-a/--layer-b when a file holds more than
one) or GeoJSON documents, by local path or URL.

Records are matched on --primary-key when given. A key that does not
uniquely identify records on both sides is dropped with a warning and
the comparison falls back to synthetic geometry keys, hashing the key
fields in as a tie breaker. Without --primary-key, records are matched
on geometry alone.

When records differ, the partitioned changes are written to
changedetector.gpkg under --out-path; with synthetic keys the keyed
inputs are written alongside as source_a and source_b so matches can
be audited.

Example:
  geodiff compare parks_2023.geojson parks_2024.geojson -k park_id
  geodiff compare old.gpkg new.gpkg --layer-a parks --layer-b parks -o /tmp`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.LayerA, "layer-a", "", "layer to read from dataset-a when it is a GeoPackage")
	cmd.Flags().StringVar(&opts.LayerB, "layer-b", "", "layer to read from dataset-b when it is a GeoPackage")
	cmd.Flags().StringArrayVarP(&opts.PrimaryKey, "primary-key", "k", nil, "field that uniquely identifies records (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "fields to compare (default: all shared fields)")
	cmd.Flags().Float64Var(&opts.Precision, "precision", pipeline.DefaultPrecision, "coordinate grid for synthetic keys, in CRS units")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", 0, "geometry comparison tolerance (defaults to precision)")
	cmd.Flags().StringVar(&opts.SuffixA, "suffix-a", "a", "label for original values in change layers")
	cmd.Flags().StringVar(&opts.SuffixB, "suffix-b", "b", "label for new values in change layers")
	cmd.Flags().StringVarP(&opts.OutPath, "out-path", "o", "", "directory for changedetector.gpkg")
	cmd.Flags().StringVar(&opts.KeyColumn, "key-column", "", "column assigned keys persist under (set this when comparing files that already carry one)")

	return cmd
}

func runCompare(opts *CompareOptions, pathA, pathB string, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	ctx := cmd.Context()

	tableA, err := readDataset(ctx, pathA, opts.LayerA)
	if err != nil {
		return WrapExitError(ExitCommandError, "read dataset a", err)
	}
	tableB, err := readDataset(ctx, pathB, opts.LayerB)
	if err != nil {
		return WrapExitError(ExitCommandError, "read dataset b", err)
	}

	fields := opts.Fields
	if len(fields) == 0 {
		fields = sharedColumns(tableA, tableB)
		logger.Debug("comparing shared fields", "fields", strings.Join(fields, ","))
	}

	snapA, err := normalize.Normalize(tableA, tableA.CRS, fields)
	if err != nil {
		return WrapExitError(ExitFailure, "dataset a", err)
	}
	snapB, err := normalize.Normalize(tableB, tableB.CRS, fields)
	if err != nil {
		return WrapExitError(ExitFailure, "dataset b", err)
	}

	keyedA, keyedB, synthetic, err := compareKeys(logger, snapA, snapB, opts)
	if err != nil {
		return WrapExitError(ExitFailure, "assign keys", err)
	}

	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = opts.Precision
	}
	cs, err := diff.Diff(keyedA, keyedB, diff.Options{
		Tolerance: tolerance,
		SuffixA:   opts.SuffixA,
		SuffixB:   opts.SuffixB,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "datasets not comparable", err)
	}

	result := CompareResult{Summary: cs.Summarize(), Changed: cs.HasChanges()}
	if cs.HasChanges() {
		out := filepath.Join(opts.OutPath, "changedetector.gpkg")
		if err := writeCompareOutput(ctx, logger, out, cs, keyedA, keyedB, synthetic); err != nil {
			return WrapExitError(ExitCommandError, "write output", err)
		}
		result.Output = out
		logger.Info("changes written", "path", out)
	} else {
		logger.Info("no changes", "records", len(keyedB.Records))
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	renderCompareText(cmd.OutOrStdout(), result)
	return nil
}

// readDataset loads one comparison input: a GeoPackage layer or a
// GeoJSON document.
func readDataset(ctx context.Context, location, layer string) (*feature.Table, error) {
	if strings.EqualFold(filepath.Ext(location), ".gpkg") {
		return readGeoPackage(ctx, location, layer)
	}
	name := strings.TrimSuffix(filepath.Base(location), filepath.Ext(location))
	fetcher, err := fetch.New(config.Source{
		OutLayer: name,
		Protocol: config.ProtocolFile,
		Location: location,
	}, nil)
	if err != nil {
		return nil, err
	}
	return fetcher.Fetch(ctx)
}

func readGeoPackage(ctx context.Context, path, layer string) (*feature.Table, error) {
	store, err := gpkg.Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if layer == "" {
		layers, err := store.Layers(ctx)
		if err != nil {
			return nil, err
		}
		if len(layers) != 1 {
			return nil, fmt.Errorf("%s holds %d layers, name one with --layer-a/--layer-b", path, len(layers))
		}
		layer = layers[0]
	}
	return store.ReadTable(ctx, layer)
}

// sharedColumns returns the fields present in both tables, matched the
// way normalization matches them, in dataset a's order.
func sharedColumns(a, b *feature.Table) []string {
	var shared []string
	for _, fa := range a.Fields {
		for _, fb := range b.Fields {
			if strings.EqualFold(fa, fb) {
				shared = append(shared, fa)
				break
			}
		}
	}
	return shared
}

// compareKeys keys both snapshots the same way. An explicit primary
// key that is not unique on either side degrades to synthetic keys
// with the key fields hashed in, the same treatment sources without
// reliable identifiers get.
func compareKeys(logger *slog.Logger, a, b *feature.Snapshot, opts *CompareOptions) (*feature.Snapshot, *feature.Snapshot, bool, error) {
	pk := opts.PrimaryKey
	if len(pk) > 0 {
		ka, kb, err := assignExplicit(a, b, pk, opts.KeyColumn)
		if err == nil {
			return ka, kb, false, nil
		}
		var dup *feature.DuplicateKeyError
		if !errors.As(err, &dup) {
			return nil, nil, false, err
		}
		logger.Warn("primary key is not unique, falling back to synthetic keys",
			"layer", dup.Layer, "key", strings.Join(pk, ","))
	}

	synthetic := keygen.Options{
		HashFields: pk,
		Precision:  opts.Precision,
		KeyColumn:  opts.KeyColumn,
	}
	ka, dupsA, err := keygen.Assign(a, synthetic)
	if err != nil {
		return nil, nil, false, err
	}
	kb, dupsB, err := keygen.Assign(b, synthetic)
	if err != nil {
		return nil, nil, false, err
	}
	if len(dupsA) > 0 {
		logger.Warn("duplicate records dropped from comparison", "layer", a.Layer, "count", len(dupsA))
	}
	if len(dupsB) > 0 {
		logger.Warn("duplicate records dropped from comparison", "layer", b.Layer, "count", len(dupsB))
	}
	return ka, kb, true, nil
}

// assignExplicit keys both sides on the primary key, failing with the
// side that breaks uniqueness.
func assignExplicit(a, b *feature.Snapshot, pk []string, keyColumn string) (*feature.Snapshot, *feature.Snapshot, error) {
	opts := keygen.Options{KeyFields: pk, KeyColumn: keyColumn}
	ka, _, err := keygen.Assign(a, opts)
	if err != nil {
		return nil, nil, err
	}
	kb, _, err := keygen.Assign(b, opts)
	if err != nil {
		return nil, nil, err
	}
	return ka, kb, nil
}

// writeCompareOutput writes the change partitions, replacing output
// from a previous comparison.
func writeCompareOutput(ctx context.Context, logger *slog.Logger, path string, cs *diff.ChangeSet, a, b *feature.Snapshot, synthetic bool) error {
	if _, err := os.Stat(path); err == nil {
		logger.Warn("replacing previous output", "path", path)
		if err := os.Remove(path); err != nil {
			return err
		}
	}

	store, err := gpkg.Create(path)
	if err != nil {
		return err
	}
	if err := store.WriteChangeSet(ctx, cs); err != nil {
		store.Close()
		return err
	}
	if synthetic {
		sa, sb := *a, *b
		sa.Layer, sb.Layer = "source_a", "source_b"
		if err := store.WriteSnapshot(ctx, &sa); err != nil {
			store.Close()
			return err
		}
		if err := store.WriteSnapshot(ctx, &sb); err != nil {
			store.Close()
			return err
		}
	}
	return store.Close()
}

func renderCompareText(w io.Writer, r CompareResult) {
	fmt.Fprintf(w, "record_count_original: %d\n", r.RecordCountOriginal)
	fmt.Fprintf(w, "record_count_new: %d\n", r.RecordCountNew)
	fmt.Fprintf(w, "record_count_difference: %d\n", r.RecordCountDifference)
	fmt.Fprintf(w, "record_count_difference_pct: %v\n", r.RecordCountDifferencePct)
	fmt.Fprintf(w, "n_unchanged: %d\n", r.Unchanged)
	fmt.Fprintf(w, "n_deletions: %d\n", r.Deletions)
	fmt.Fprintf(w, "n_additions: %d\n", r.Additions)
	fmt.Fprintf(w, "n_modified: %d\n", r.Modified)
	fmt.Fprintf(w, "n_modified_spatial_only: %d\n", r.ModifiedSpatialOnly)
	fmt.Fprintf(w, "n_modified_spatial_attributes: %d\n", r.ModifiedSpatialAttributes)
	fmt.Fprintf(w, "n_modified_attributes_only: %d\n", r.ModifiedAttributesOnly)
	if r.Output != "" {
		fmt.Fprintf(w, "output: %s\n", r.Output)
	}
}

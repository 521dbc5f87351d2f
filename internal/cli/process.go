package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/geodiff/internal/config"
	"github.com/roach88/geodiff/internal/pipeline"
	"github.com/roach88/geodiff/internal/report"
)

// ProcessOptions holds flags for the process command.
type ProcessOptions struct {
	*RootOptions
	Layer      string
	Schedule   string
	OutPath    string
	Check      bool
	Precision  float64
	Tolerance  float64
	KeyColumn  string
	IssuesFile string
	Prefix     string

	// Tokens overrides the run token generator (for testing).
	// If nil, runs get UUIDv7 tokens.
	Tokens pipeline.TokenGenerator
}

// ProcessResult is one layer's outcome as rendered on stdout.
type ProcessResult struct {
	Layer   string              `json:"layer"`
	Action  pipeline.Action     `json:"action"`
	Records int                 `json:"records"`
	Report  *report.LayerReport `json:"report,omitempty"`
}

// NewProcessCommand creates the process command.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "process <config>",
		Short: "Run change detection for configured layers",
		Long: `Run the change detection cycle for every layer in a configuration
file. A layer's first run archives its snapshot as <out_layer>.gpkg
under --out-path; later runs compare the fresh download against that
archive and write <out_layer>_changes.gpkg when records differ.

Layers run independently: a failing layer is logged and the rest still
run, with exit code 1 if any failed. An issues file summarizing the
detected changes is always written, even when empty.

Example:
  geodiff process sources/nanaimo/parks.json
  geodiff process sources/nanaimo/parks.json --check
  geodiff process sources/victoria.json -s M -o /data/archive`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Layer, "layer", "l", "", "process only this out_layer")
	cmd.Flags().StringVarP(&opts.Schedule, "schedule", "s", "", "process only layers on this schedule (D|W|M|Q|A)")
	cmd.Flags().StringVarP(&opts.OutPath, "out-path", "o", "", "directory for archives and changes files")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "download and validate without writing anything")
	cmd.Flags().Float64Var(&opts.Precision, "precision", pipeline.DefaultPrecision, "coordinate grid for synthetic keys, in target CRS units")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", 0, "geometry comparison tolerance (defaults to precision)")
	cmd.Flags().StringVar(&opts.KeyColumn, "key-column", "", "column assigned keys persist under")
	cmd.Flags().StringVar(&opts.IssuesFile, "issues-file", "issues.json", "path for the issues report")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "path prefix for issue titles")

	return cmd
}

func runProcess(opts *ProcessOptions, configPath string, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	sources, err := config.Load(configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load configuration", err)
	}
	if opts.Layer != "" {
		sources = config.FilterLayer(sources, opts.Layer)
	}
	if opts.Schedule != "" {
		schedule, err := config.ParseSchedule(opts.Schedule)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid schedule", err)
		}
		sources = config.FilterSchedule(sources, schedule)
	}
	if len(sources) == 0 {
		logger.Warn("no layers matched",
			"config", configPath, "layer", opts.Layer, "schedule", opts.Schedule)
	}

	runner := &pipeline.Runner{
		Logger:    logger,
		Tokens:    opts.Tokens,
		OutPath:   opts.OutPath,
		KeyColumn: opts.KeyColumn,
		Precision: opts.Precision,
		Tolerance: opts.Tolerance,
	}

	run := runner.Run
	if opts.Check {
		run = runner.Check
	}

	ctx := cmd.Context()
	var (
		results []ProcessResult
		issues  []report.Issue
		failed  int
	)
	for _, src := range sources {
		res, err := run(ctx, src)
		if err != nil {
			logger.Error("layer failed", "layer", src.OutLayer, "error", err)
			failed++
			continue
		}
		results = append(results, ProcessResult{
			Layer:   res.Layer,
			Action:  res.Action,
			Records: res.Records,
			Report:  res.Report,
		})
		if res.Report != nil {
			issues = append(issues, report.NewIssue(opts.Prefix, *res.Report))
		}
	}

	if !opts.Check {
		if err := report.WriteIssues(opts.IssuesFile, issues); err != nil {
			return WrapExitError(ExitCommandError, "write issues", err)
		}
	}

	if opts.Format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
			return WrapExitError(ExitCommandError, "render results", err)
		}
	} else {
		renderProcessText(cmd.OutOrStdout(), results)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d layers failed", failed, len(sources)))
	}
	return nil
}

func renderProcessText(w io.Writer, results []ProcessResult) {
	for _, r := range results {
		if r.Report != nil {
			fmt.Fprintf(w, "%s: %s +%d -%d ~%d (%d records)\n",
				r.Layer, r.Action,
				r.Report.Additions, r.Report.Deletions, r.Report.Modified,
				r.Records)
			continue
		}
		fmt.Fprintf(w, "%s: %s (%d records)\n", r.Layer, r.Action, r.Records)
	}
}

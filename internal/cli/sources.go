package cli

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/geodiff/internal/config"
)

// SourcesOptions holds flags for the sources command.
type SourcesOptions struct {
	*RootOptions
	Path     string
	Schedule string
}

// NewSourcesCommand creates the sources command.
func NewSourcesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SourcesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List source configurations",
		Long: `List source configuration files under a directory.

Names are printed relative to the directory, without extension, so the
output feeds straight back into process. Files and directories whose
name starts with "_" are skipped; half-finished configurations can sit
next to live ones. With --schedule, only configurations carrying at
least one layer on that schedule are listed.

Example:
  geodiff sources
  geodiff sources --path ./sources --schedule M`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSources(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Path, "path", "sources", "directory holding source configurations")
	cmd.Flags().StringVarP(&opts.Schedule, "schedule", "s", "", "only configurations with a layer on this schedule (D|W|M|Q|A)")

	return cmd
}

func runSources(opts *SourcesOptions, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	var schedule config.Schedule
	if opts.Schedule != "" {
		var err error
		schedule, err = config.ParseSchedule(opts.Schedule)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid schedule", err)
		}
	}

	files, err := listConfigs(opts.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "list configurations", err)
	}

	names := make([]string, 0, len(files))
	for _, rel := range files {
		if opts.Schedule != "" {
			sources, err := config.Load(filepath.Join(opts.Path, rel))
			if err != nil {
				logger.Warn("skipping unparseable configuration", "file", rel, "error", err)
				continue
			}
			if len(config.FilterSchedule(sources, schedule)) == 0 {
				continue
			}
		}
		names = append(names, strings.TrimSuffix(rel, filepath.Ext(rel)))
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), names)
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

// listConfigs walks dir for .json/.yaml/.yml files, skipping any file
// or directory whose name starts with "_". Paths are relative to dir
// and sorted.
func listConfigs(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), "_") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

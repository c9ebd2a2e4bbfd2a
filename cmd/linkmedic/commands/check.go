package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/linkmedic/pkg/config"
	"github.com/Sumatoshi-tech/linkmedic/pkg/fsys"
	"github.com/Sumatoshi-tech/linkmedic/pkg/linkcheck"
	"github.com/Sumatoshi-tech/linkmedic/pkg/observability"
	"github.com/Sumatoshi-tech/linkmedic/pkg/reference"
	"github.com/Sumatoshi-tech/linkmedic/pkg/report"
)

type checkOptions struct {
	format  string
	noColor bool
	root    string
}

func newCheckCommand(global *globalOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check files or directories for missing references",
		Long: `Check HTML, PHP, JavaScript and TypeScript files for references to
files that do not exist. Directories are walked recursively, skipping
hidden directories and check.ignore_dirs.

The project root of each path is --root when given, otherwise the nearest
ancestor holding one of check.root_markers. Path aliases are read from
the tsconfig.json or jsconfig.json in that root.

Exits 1 when missing references were found and 2 on other errors.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, global, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.format, "format", "f", "", "output format: text, json or yaml (default from config)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&opts.root, "root", "", "project root used for aliases and absolute references")

	return cmd
}

func runCheck(cmd *cobra.Command, global *globalOptions, opts *checkOptions, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}

	sess, err := global.open(observability.ModeCLI, "")
	if err != nil {
		return err
	}
	defer sess.close()

	format := sess.cfg.Output.Format
	if opts.format != "" {
		format = opts.format
	}

	if !config.ValidOutputFormat(format) {
		return fmt.Errorf("%w: %q", report.ErrUnknownFormat, format)
	}

	root := ""
	if opts.root != "" {
		root, err = fsys.ResolveUserPath(opts.root)
		if err != nil {
			return err
		}
	}

	groups, order, err := groupByRoot(args, root, sess.cfg)
	if err != nil {
		return err
	}

	start := time.Now()

	var results []linkcheck.FileResult

	for _, groupRoot := range order {
		batch, checkErr := sess.checker.CheckFiles(cmd.Context(), groups[groupRoot], groupRoot)
		if checkErr != nil {
			return checkErr
		}

		results = append(results, batch...)
	}

	displayRoot := root
	if displayRoot == "" && len(order) == 1 {
		displayRoot = order[0]
	}

	err = report.Write(cmd.OutOrStdout(), results, report.Options{
		Format:  format,
		NoColor: opts.noColor || sess.cfg.Output.NoColor,
		Width:   report.DetectWidth(),
		Root:    displayRoot,
		Elapsed: time.Since(start),
	})
	if err != nil {
		return err
	}

	summary := linkcheck.Summarize(results)
	if summary.Findings > 0 {
		return fmt.Errorf("%w: %d in %d files", ErrFindings, summary.Findings, summary.Files)
	}

	return nil
}

// groupByRoot expands args into supported files keyed by project root.
// order lists the roots in first-seen order.
func groupByRoot(args []string, root string, cfg *config.Config) (map[string][]string, []string, error) {
	groups := make(map[string][]string)
	seen := make(map[string]struct{})

	var order []string

	add := func(fileRoot, path string) {
		if _, dup := seen[path]; dup {
			return
		}

		seen[path] = struct{}{}

		if _, known := groups[fileRoot]; !known {
			order = append(order, fileRoot)
		}

		groups[fileRoot] = append(groups[fileRoot], path)
	}

	for _, arg := range args {
		path, err := fsys.ResolveUserPath(arg)
		if err != nil {
			return nil, nil, err
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, nil, fmt.Errorf("check %s: %w", arg, err)
		}

		fileRoot := root
		if fileRoot == "" {
			fileRoot = fsys.FindProjectRoot(path, cfg.Check.RootMarkers)
		}

		if !info.IsDir() {
			if !reference.Supported(path) {
				return nil, nil, fmt.Errorf("%w: %s", linkcheck.ErrUnsupportedFile, arg)
			}

			add(fileRoot, path)

			continue
		}

		files, err := fsys.CollectFiles(path, cfg.Check.IgnoreDirs, reference.Supported)
		if err != nil {
			return nil, nil, err
		}

		for _, file := range files {
			add(fileRoot, file)
		}
	}

	return groups, order, nil
}

package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/linkmedic/pkg/fsys"
	"github.com/Sumatoshi-tech/linkmedic/pkg/linkcheck"
	"github.com/Sumatoshi-tech/linkmedic/pkg/observability"
	"github.com/Sumatoshi-tech/linkmedic/pkg/report"
	"github.com/Sumatoshi-tech/linkmedic/pkg/watch"
)

type watchOptions struct {
	noColor     bool
	metricsAddr string
}

func newWatchCommand(global *globalOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-check a project whenever its files change",
		Long: `Check every supported file under dir (default: the current directory),
then re-check on every change until interrupted. Edits to a file re-check
that file; creations, deletions and renames re-check the whole tree,
since they can fix or break references elsewhere. Changes to tsconfig.json
or jsconfig.json in the root reload path aliases.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			return runWatch(cmd, global, opts, dir)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func runWatch(cmd *cobra.Command, global *globalOptions, opts *watchOptions, dir string) error {
	root, err := fsys.ResolveUserPath(dir)
	if err != nil {
		return err
	}

	sess, err := global.open(observability.ModeWatch, opts.metricsAddr)
	if err != nil {
		return err
	}
	defer sess.close()

	sess.serveMetrics(cmd.Context(), sess.cfg.Observability.MetricsAddr)

	out := cmd.OutOrStdout()
	noColor := opts.noColor || sess.cfg.Output.NoColor

	runner := watch.New(sess.checker, watch.Options{
		Root:        root,
		IgnoreDirs:  sess.cfg.Check.IgnoreDirs,
		ConfigFiles: sess.cfg.Check.ConfigFiles,
		Debounce:    sess.cfg.Watch.Debounce,
		Logger:      sess.logger,
	}, func(_ context.Context, results []linkcheck.FileResult, elapsed time.Duration) {
		printWatchReport(out, results, root, noColor, elapsed)
	})

	sess.logger.Info("watching", "root", root)

	return runner.Run(cmd.Context())
}

// printWatchReport writes a timestamped text report of the current state.
func printWatchReport(w io.Writer, results []linkcheck.FileResult, root string, noColor bool, elapsed time.Duration) {
	fmt.Fprintf(w, "\n[%s]\n", time.Now().Format(time.TimeOnly))

	err := report.Write(w, results, report.Options{
		Format:  report.FormatText,
		NoColor: noColor,
		Width:   report.DetectWidth(),
		Root:    root,
		Elapsed: elapsed,
	})
	if err != nil {
		fmt.Fprintf(w, "report: %v\n", err)
	}
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/linkmedic/pkg/fsys"
	"github.com/Sumatoshi-tech/linkmedic/pkg/lsp"
	"github.com/Sumatoshi-tech/linkmedic/pkg/observability"
)

func newLSPCommand(global *globalOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server on stdio",
		Long: `Start a Language Server Protocol server on stdin/stdout.

Open documents are checked on open and save, and after edits once typing
pauses for lsp.debounce. Missing references are published as error
diagnostics with a quick fix that creates the file. Completion suggests
entries of the directory being typed inside a reference.

Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := global.open(observability.ModeLSP, metricsAddr)
			if err != nil {
				return err
			}
			defer sess.close()

			sess.serveMetrics(cmd.Context(), sess.cfg.Observability.MetricsAddr)

			opts := []lsp.Option{
				lsp.WithDebounce(sess.cfg.LSP.Debounce),
				lsp.WithLogger(sess.logger),
				lsp.WithConfigFiles(sess.cfg.Check.ConfigFiles...),
			}

			watcher, err := fsys.NewWatcher(sess.cfg.Check.ConfigFiles, sess.logger)
			if err != nil {
				sess.logger.Warn("config files will not be watched", "error", err)
			} else {
				opts = append(opts, lsp.WithWatcher(watcher))
			}

			return lsp.NewServer(sess.checker, opts...).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/linkmedic/pkg/mcp"
	"github.com/Sumatoshi-tech/linkmedic/pkg/observability"
)

func newMCPCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes LinkMedic checks as tools that AI agents can
discover and invoke:
  - linkmedic_check: Check source text given inline
  - linkmedic_check_file: Check a file on disk

Logs go to stderr as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			global.logJSON = true

			sess, err := global.open(observability.ModeMCP, "")
			if err != nil {
				return err
			}
			defer sess.close()

			deps := mcp.ServerDeps{
				Logger:      sess.logger,
				Metrics:     sess.red,
				Tracer:      sess.providers.Tracer,
				RootMarkers: sess.cfg.Check.RootMarkers,
			}

			return mcp.NewServer(sess.checker, deps).Run(cmd.Context())
		},
	}

	return cmd
}

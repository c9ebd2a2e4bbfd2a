// Package commands implements CLI command handlers for linkmedic.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/linkmedic/pkg/config"
	"github.com/Sumatoshi-tech/linkmedic/pkg/fsys"
	"github.com/Sumatoshi-tech/linkmedic/pkg/linkcheck"
	"github.com/Sumatoshi-tech/linkmedic/pkg/observability"
	"github.com/Sumatoshi-tech/linkmedic/pkg/version"
)

// ErrFindings is returned by check when missing references were found.
var ErrFindings = errors.New("missing references found")

// defaultEnvFile is loaded when present; an explicit --env-file must exist.
const defaultEnvFile = ".env"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	envFile    string
	verbose    bool
	quiet      bool
	logJSON    bool
}

// session is everything a command needs once configuration is loaded.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	red       *observability.REDMetrics
	checker   *linkcheck.Checker
	logger    *slog.Logger
}

// NewRootCommand builds the linkmedic command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "linkmedic",
		Short: "LinkMedic - find references to missing files",
		Long: `LinkMedic scans HTML, PHP, JavaScript and TypeScript sources for
src/href attributes, include/require statements and import/require
specifiers, and reports the ones that point at files that do not exist.

Commands:
  check     Check files or directories once
  watch     Re-check a project whenever it changes
  lsp       Serve diagnostics to editors over LSP (stdio)
  mcp       Serve checks to AI agents over MCP (stdio)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default: linkmedic.yaml in ., ./config or ~/.config/linkmedic)")
	flags.StringVar(&opts.envFile, "env-file", defaultEnvFile, "dotenv file with LINKMEDIC_* and OTEL_* variables")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress output")
	flags.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")

	rootCmd.AddCommand(newCheckCommand(opts))
	rootCmd.AddCommand(newWatchCommand(opts))
	rootCmd.AddCommand(newLSPCommand(opts))
	rootCmd.AddCommand(newMCPCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// loadConfig reads the dotenv file and the config file.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	err := godotenv.Load(o.envFile)
	if err != nil && (o.envFile != defaultEnvFile || !errors.Is(err, fs.ErrNotExist)) {
		return nil, fmt.Errorf("load env file %s: %w", o.envFile, err)
	}

	return config.LoadConfig(o.configPath)
}

// telemetry applies flag and OTEL_* overrides to the configured telemetry.
func (o *globalOptions) telemetry(cfg *config.Config, mode observability.AppMode) observability.Config {
	tel := cfg.Telemetry(mode, version.Version)

	if tel.OTLPEndpoint == "" {
		tel.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		tel.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
		tel.OTLPInsecure = tel.OTLPInsecure || os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	}

	switch {
	case o.verbose:
		tel.LogLevel = slog.LevelDebug
	case o.quiet:
		tel.LogLevel = slog.LevelError
	}

	if o.logJSON {
		tel.LogJSON = true
	}

	return tel
}

// open loads configuration and builds telemetry and the checker for mode.
func (o *globalOptions) open(mode observability.AppMode, metricsAddr string) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	if metricsAddr != "" {
		cfg.Observability.MetricsAddr = metricsAddr
	}

	providers, err := observability.Init(o.telemetry(cfg, mode))
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	checks, err := observability.NewCheckMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	files := fsys.NewAFS(fsys.WithConfigFiles(cfg.Check.ConfigFiles...))
	checker := linkcheck.New(files,
		linkcheck.WithWorkers(cfg.Check.Workers),
		linkcheck.WithAliasCacheSize(cfg.Check.AliasCacheSize),
		linkcheck.WithLogger(providers.Logger),
		linkcheck.WithTracer(providers.Tracer),
		linkcheck.WithMetrics(red, checks),
	)

	return &session{
		cfg:       cfg,
		providers: providers,
		red:       red,
		checker:   checker,
		logger:    providers.Logger,
	}, nil
}

// close flushes telemetry.
func (s *session) close() {
	err := s.providers.Shutdown(context.Background())
	if err != nil {
		s.logger.Warn("observability shutdown failed", "error", err)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/linkmedic/pkg/config"
	"github.com/Sumatoshi-tech/linkmedic/pkg/observability"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "linkmedic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Check.Workers)
	assert.Equal(t, []string{"tsconfig.json", "jsconfig.json"}, cfg.Check.ConfigFiles)
	assert.Contains(t, cfg.Check.IgnoreDirs, "node_modules")
	assert.Equal(t, 64, cfg.Check.AliasCacheSize)
	assert.Equal(t, 500*time.Millisecond, cfg.LSP.Debounce)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, config.FormatText, cfg.Output.Format)
	assert.Empty(t, cfg.Observability.OTLPEndpoint)
}

func TestLoadConfig_FromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
check:
  workers: 4
  config_files: [jsconfig.json]
  ignore_dirs: [node_modules, public]
lsp:
  debounce: 250ms
output:
  format: json
  no_color: true
observability:
  metrics_addr: ":9464"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Check.Workers)
	assert.Equal(t, []string{"jsconfig.json"}, cfg.Check.ConfigFiles)
	assert.Equal(t, []string{"node_modules", "public"}, cfg.Check.IgnoreDirs)
	assert.Equal(t, 250*time.Millisecond, cfg.LSP.Debounce)
	assert.Equal(t, config.FormatJSON, cfg.Output.Format)
	assert.True(t, cfg.Output.NoColor)
	assert.Equal(t, ":9464", cfg.Observability.MetricsAddr)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("LINKMEDIC_CHECK_WORKERS", "3")
	t.Setenv("LINKMEDIC_LOGGING_LEVEL", "debug")
	t.Setenv("LINKMEDIC_OUTPUT_FORMAT", "yaml")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Check.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, config.FormatYAML, cfg.Output.Format)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "workers", content: "check:\n  workers: 0\n", wantErr: config.ErrInvalidWorkers},
		{name: "config files", content: "check:\n  config_files: []\n", wantErr: config.ErrNoConfigFiles},
		{name: "debounce", content: "lsp:\n  debounce: -1s\n", wantErr: config.ErrInvalidDebounce},
		{name: "log level", content: "logging:\n  level: loud\n", wantErr: config.ErrInvalidLogLevel},
		{name: "log format", content: "logging:\n  format: xml\n", wantErr: config.ErrInvalidLogFormat},
		{name: "output", content: "output:\n  format: html\n", wantErr: config.ErrInvalidOutput},
		{name: "sample ratio", content: "observability:\n  sample_ratio: 2\n", wantErr: config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestConfig_Telemetry(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
logging:
  level: warn
  format: json
observability:
  otlp_endpoint: collector:4317
  otlp_headers: "x-token=abc"
  otlp_insecure: true
  metrics_addr: ":9464"
  environment: ci
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	tel := cfg.Telemetry(observability.ModeWatch, "1.2.3")

	assert.Equal(t, observability.ModeWatch, tel.Mode)
	assert.Equal(t, "1.2.3", tel.ServiceVersion)
	assert.Equal(t, "linkmedic", tel.ServiceName)
	assert.Equal(t, "collector:4317", tel.OTLPEndpoint)
	assert.Equal(t, map[string]string{"x-token": "abc"}, tel.OTLPHeaders)
	assert.True(t, tel.OTLPInsecure)
	assert.True(t, tel.Prometheus)
	assert.Equal(t, "ci", tel.Environment)
	assert.Equal(t, slog.LevelWarn, tel.LogLevel)
	assert.True(t, tel.LogJSON)
}

// Package config loads linkmedic settings from linkmedic.yaml and
// LINKMEDIC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/linkmedic/pkg/observability"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers     = errors.New("check workers must be positive")
	ErrNoConfigFiles      = errors.New("at least one alias config file name is required")
	ErrInvalidDebounce    = errors.New("debounce must not be negative")
	ErrInvalidLogLevel    = errors.New("unknown log level")
	ErrInvalidLogFormat   = errors.New("unknown log format")
	ErrInvalidOutput      = errors.New("unknown output format")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
)

// Output and log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Default configuration values.
const (
	defaultWorkers        = 16
	defaultAliasCacheSize = 64
	defaultLSPDebounce    = 500 * time.Millisecond
	defaultWatchDebounce  = 300 * time.Millisecond

	envPrefix  = "LINKMEDIC"
	configName = "linkmedic"
)

var (
	outputFormats = []string{FormatText, FormatJSON, FormatYAML}
	logFormats    = []string{FormatText, FormatJSON}
	logLevels     = []string{"debug", "info", "warn", "error"}
)

// Config holds all linkmedic settings.
type Config struct {
	Check         CheckConfig         `mapstructure:"check"`
	LSP           LSPConfig           `mapstructure:"lsp"`
	Watch         WatchConfig         `mapstructure:"watch"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Output        OutputConfig        `mapstructure:"output"`
}

// CheckConfig drives the checker.
type CheckConfig struct {
	// ConfigFiles are the alias config candidates in priority order.
	ConfigFiles []string `mapstructure:"config_files"`
	// IgnoreDirs are directory names skipped when walking a tree.
	IgnoreDirs []string `mapstructure:"ignore_dirs"`
	// RootMarkers identify a project root when walking up from a file.
	RootMarkers    []string `mapstructure:"root_markers"`
	Workers        int      `mapstructure:"workers"`
	AliasCacheSize int      `mapstructure:"alias_cache_size"`
}

// LSPConfig holds language server settings.
type LSPConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ObservabilityConfig holds telemetry export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	TraceVerbose bool    `mapstructure:"trace_verbose"`
}

// OutputConfig holds report settings for the check command.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// LoadConfig reads configPath, or linkmedic.yaml from the usual search
// paths when configPath is empty, then applies environment overrides.
// A missing search-path file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("$HOME/.config/linkmedic")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("check.workers", defaultWorkers)
	viperCfg.SetDefault("check.config_files", []string{"tsconfig.json", "jsconfig.json"})
	viperCfg.SetDefault("check.ignore_dirs", []string{"node_modules", "vendor", "dist", "build"})
	viperCfg.SetDefault("check.root_markers", []string{"tsconfig.json", "jsconfig.json", "package.json", "composer.json", ".git"})
	viperCfg.SetDefault("check.alias_cache_size", defaultAliasCacheSize)

	viperCfg.SetDefault("lsp.debounce", defaultLSPDebounce)
	viperCfg.SetDefault("watch.debounce", defaultWatchDebounce)

	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", FormatText)

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_headers", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.metrics_addr", "")
	viperCfg.SetDefault("observability.environment", "")
	viperCfg.SetDefault("observability.sample_ratio", 0.0)
	viperCfg.SetDefault("observability.trace_verbose", false)

	viperCfg.SetDefault("output.format", FormatText)
	viperCfg.SetDefault("output.no_color", false)
}

func validateConfig(config *Config) error {
	if config.Check.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Check.Workers)
	}

	if len(config.Check.ConfigFiles) == 0 {
		return ErrNoConfigFiles
	}

	if config.LSP.Debounce < 0 {
		return fmt.Errorf("%w: lsp %s", ErrInvalidDebounce, config.LSP.Debounce)
	}

	if config.Watch.Debounce < 0 {
		return fmt.Errorf("%w: watch %s", ErrInvalidDebounce, config.Watch.Debounce)
	}

	if !slices.Contains(logLevels, strings.ToLower(config.Logging.Level)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	if !slices.Contains(logFormats, config.Logging.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if !slices.Contains(outputFormats, config.Output.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidOutput, config.Output.Format)
	}

	if config.Observability.SampleRatio < 0 || config.Observability.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, config.Observability.SampleRatio)
	}

	return nil
}

// ValidOutputFormat reports whether format is a known report format.
func ValidOutputFormat(format string) bool {
	return slices.Contains(outputFormats, format)
}

// Telemetry converts the settings into an observability config for mode.
func (c *Config) Telemetry(mode observability.AppMode, version string) observability.Config {
	cfg := observability.DefaultConfig()

	cfg.Mode = mode
	cfg.ServiceVersion = version
	cfg.Environment = c.Observability.Environment
	cfg.OTLPEndpoint = c.Observability.OTLPEndpoint
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Observability.OTLPHeaders)
	cfg.OTLPInsecure = c.Observability.OTLPInsecure
	cfg.SampleRatio = c.Observability.SampleRatio
	cfg.TraceVerbose = c.Observability.TraceVerbose
	cfg.Prometheus = c.Observability.MetricsAddr != ""
	cfg.LogLevel = observability.ParseLevel(c.Logging.Level)
	cfg.LogJSON = c.Logging.Format == FormatJSON

	return cfg
}

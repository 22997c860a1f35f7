package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	pipeerrors "bnvision/internal/errors"
)

// Config represents the complete pipeline configuration. It is loaded once in
// main and passed explicitly into every orchestrator; nothing reads it from
// ambient state.
type Config struct {
	// Dest is the root of the raw/canonical data tree.
	Dest string `yaml:"dest" envconfig:"DEST" validate:"required"`
	// Source selects the vendor archive tree (currently only "um").
	Source string `yaml:"source" envconfig:"SOURCE" validate:"required"`
	// Symbols and DataTypes drive the download job expansion.
	Symbols   []string `yaml:"symbols" envconfig:"SYMBOLS"`
	DataTypes []string `yaml:"data_types" envconfig:"DATA_TYPES"`
	// Interval applies to interval-bearing data types (klines family).
	Interval string `yaml:"interval" envconfig:"INTERVAL" validate:"required"`

	Download  DownloadConfig  `yaml:"download" envconfig:"DOWNLOAD"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// DownloadConfig contains worker pool and vendor HTTP client settings.
type DownloadConfig struct {
	Workers        int           `yaml:"workers" envconfig:"WORKERS" validate:"min=1"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	// RequestsPerSecond bounds the request rate against the vendor; Burst is
	// the limiter's bucket size.
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	Burst             int     `yaml:"burst" envconfig:"BURST" validate:"min=1"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
	LogDir   string `yaml:"log_dir" envconfig:"LOG_DIR"`
}

// TelemetryConfig controls the optional trace exporter.
type TelemetryConfig struct {
	Enabled   bool   `yaml:"enabled" envconfig:"ENABLED"`
	TracePath string `yaml:"trace_path" envconfig:"TRACE_PATH"`
}

// Load reads configuration from the YAML file at path (if it exists) and then
// overlays BNV_* environment variables on top. The returned config is
// validated.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			fileCfg, err := loadFromFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = *fileCfg
		}
	}

	// Environment takes precedence over the file.
	if err := envconfig.Process("BNV", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, pipeerrors.Wrap(pipeerrors.CodeConfigInvalid, "load", path, err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills fields left zero by both the file and the environment.
func (c *Config) applyDefaults() {
	if c.Source == "" {
		c.Source = "um"
	}
	if c.Interval == "" {
		c.Interval = "1d"
	}
	if c.Download.Workers == 0 {
		c.Download.Workers = 4
	}
	if c.Download.RequestTimeout == 0 {
		c.Download.RequestTimeout = 60 * time.Second
	}
	if c.Download.RequestsPerSecond == 0 {
		c.Download.RequestsPerSecond = 10
	}
	if c.Download.Burst == 0 {
		c.Download.Burst = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}
	if c.Logging.LogDir == "" {
		c.Logging.LogDir = "logs"
	}
}

// Validate checks the configuration using struct tags.
func (c *Config) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// LogFilePath returns the configured log file, defaulting to a per-component
// file under LogDir.
func (c *Config) LogFilePath(component string) string {
	if c.Logging.FilePath != "" {
		return c.Logging.FilePath
	}
	return filepath.Join(c.Logging.LogDir, component+".log")
}

// EnsureDirectories creates the destination root and log directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Dest, c.Logging.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

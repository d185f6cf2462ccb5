// =============================================================================
// ifirma client - Configuration Module
// =============================================================================
//
// This module loads the client configuration.
//
// SOURCES (later wins):
//   1. Built-in defaults
//   2. The YAML config file (config.yaml); a missing file is allowed
//   3. IFIRMA_* environment variables
//
// Credentials are not required here: env-only setups and commands that
// never talk to ifirma (validate, schema) load the same config. A missing
// username or key is reported when the client is built.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/ifirma-client/internal/transport"
	"github.com/ginjaninja78/ifirma-client/internal/types"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the whole client configuration.
type Config struct {
	// =========================================================================
	// IFIRMA ACCOUNT
	// =========================================================================

	// Username is the ifirma login. ENV: IFIRMA_USERNAME
	Username string `yaml:"username" env:"IFIRMA_USERNAME"`

	// InvoicesKey is the hex "faktura" API key from the ifirma panel.
	// ENV: IFIRMA_INVOICES_KEY
	InvoicesKey string `yaml:"invoices_key" env:"IFIRMA_INVOICES_KEY"`

	// BaseURL of the API. ENV: IFIRMA_BASE_URL
	// Default: "https://www.ifirma.pl/"
	BaseURL string `yaml:"base_url" env:"IFIRMA_BASE_URL"`

	// Timeout bounds one HTTP request. ENV: IFIRMA_TIMEOUT
	// Default: 30s
	Timeout time.Duration `yaml:"timeout" env:"IFIRMA_TIMEOUT"`

	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned by "submit" for invoice files.
	// Default: "./input"
	InputDir string `yaml:"input_dir" env:"IFIRMA_INPUT_DIR"`

	// OutputDir receives retrieved renderings.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" env:"IFIRMA_OUTPUT_DIR"`

	// InputArchiveDir receives invoice files once they were submitted.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir" env:"IFIRMA_INPUT_ARCHIVE_DIR"`

	// LogDir receives error logs of failed submissions.
	// Default: "./logs"
	LogDir string `yaml:"log_dir" env:"IFIRMA_LOG_DIR"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level" env:"IFIRMA_LOG_LEVEL"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat names retrieved renderings.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {id}        - Document id
	//   {kind}      - Document kind
	//   {stage}     - Document stage
	//   {ext}       - Representation (pdf, xml)
	//
	// Default: "{kind}_{id}_{timestamp}.{ext}"
	OutputNameFormat string `yaml:"output_name_format" env:"IFIRMA_OUTPUT_NAME_FORMAT"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the number of invoice files submitted in parallel.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" env:"IFIRMA_MAX_CONCURRENCY"`

	// StopOnError stops a batch at the first failed file.
	// Default: false
	StopOnError bool `yaml:"stop_on_error"`

	// Items configures the line item readers.
	Items ItemsSettings `yaml:"items"`

	// Archive configures the document archive.
	Archive ArchiveSettings `yaml:"archive"`
}

// ItemsSettings controls how CSV and XLSX line item files are read.
type ItemsSettings struct {
	// Delimiter of CSV item files.
	// Default: ","
	Delimiter string `yaml:"delimiter" env:"IFIRMA_ITEMS_DELIMITER"`

	// Sheet of XLSX item files. Empty selects the first sheet.
	Sheet string `yaml:"sheet" env:"IFIRMA_ITEMS_SHEET"`
}

// ArchiveSettings selects where retrieved renderings are archived.
type ArchiveSettings struct {
	// Driver is one of "none", "fs", "memory", "s3".
	// Default: "fs"
	Driver string `yaml:"driver" env:"IFIRMA_ARCHIVE_DRIVER"`

	// Dir is the root of the fs driver.
	// Default: "./output_archive"
	Dir string `yaml:"dir" env:"IFIRMA_ARCHIVE_DIR"`

	// S3 configures the s3 driver.
	S3 S3Settings `yaml:"s3"`
}

// S3Settings configures the s3 archive driver. Credentials come from the
// standard AWS chain unless AccessKeyID and SecretAccessKey are set.
type S3Settings struct {
	Bucket          string `yaml:"bucket" env:"IFIRMA_ARCHIVE_S3_BUCKET"`
	Prefix          string `yaml:"prefix" env:"IFIRMA_ARCHIVE_S3_PREFIX"`
	Region          string `yaml:"region" env:"IFIRMA_ARCHIVE_S3_REGION"`
	Endpoint        string `yaml:"endpoint" env:"IFIRMA_ARCHIVE_S3_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"IFIRMA_ARCHIVE_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"IFIRMA_ARCHIVE_S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configPath, applies IFIRMA_* overrides and defaults, and
// validates the result. A missing file is not an error.
//
// RETURNS:
//   - The loaded configuration.
//   - An error if the file cannot be parsed or the result is invalid.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyDefaults sets default values for any unset option.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = transport.DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = transport.DefaultTimeout
	}
	if c.InputDir == "" {
		c.InputDir = "./input"
	}
	if c.OutputDir == "" {
		c.OutputDir = "./output"
	}
	if c.InputArchiveDir == "" {
		c.InputArchiveDir = "./input_archive"
	}
	if c.LogDir == "" {
		c.LogDir = "./logs"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.OutputNameFormat == "" {
		c.OutputNameFormat = "{kind}_{id}_{timestamp}.{ext}"
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = 4
	}
	if c.Items.Delimiter == "" {
		c.Items.Delimiter = ","
	}
	if c.Archive.Driver == "" {
		c.Archive.Driver = "fs"
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = "./output_archive"
	}
}

// Validate checks option values. Credentials are checked later, when the
// client is built.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return &types.ConfigurationError{Field: "timeout", Reason: "must not be negative"}
	}
	if c.MaxConcurrency < 1 {
		return &types.ConfigurationError{Field: "max_concurrency", Reason: "must be at least 1"}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return &types.ConfigurationError{Field: "log_level", Reason: err.Error()}
	}
	switch c.Items.Delimiter {
	case "tab", "TAB", "\\t":
	default:
		if len([]rune(c.Items.Delimiter)) == 1 {
			break
		}
		return &types.ConfigurationError{Field: "items.delimiter", Reason: "must be a single character"}
	}

	switch c.Archive.Driver {
	case "none", "fs", "memory":
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return &types.ConfigurationError{Field: "archive.s3.bucket", Reason: "must be set for the s3 driver"}
		}
	default:
		return &types.ConfigurationError{Field: "archive.driver", Reason: fmt.Sprintf("unknown driver %q", c.Archive.Driver)}
	}
	return nil
}

// EnsureDirs creates the working directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.InputDir, c.OutputDir, c.InputArchiveDir, c.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Transport returns the transport settings.
func (c *Config) Transport(logger *slog.Logger) transport.Config {
	return transport.Config{
		BaseURL:     c.BaseURL,
		Username:    c.Username,
		InvoicesKey: c.InvoicesKey,
		Timeout:     c.Timeout,
		Logger:      logger,
	}
}

// ParseLevel maps a log level name onto a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

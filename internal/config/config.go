// Package config loads the builder configuration from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"mushaf/internal/fetch"
	"mushaf/internal/logging"
)

// Version is stamped into the default User-Agent.
var Version = "1.0.0"

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = "mushaf.yaml"

// Config holds all builder configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Retry   RetryConfig   `yaml:"retry"`
	Collect CollectConfig `yaml:"collect"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`

	// Strict makes a failed validation report a failed run.
	Strict bool `yaml:"strict"`
}

// APIConfig configures the remote text source.
type APIConfig struct {
	BaseURL       string `yaml:"base_url"`
	UserAgent     string `yaml:"user_agent"`
	Timeout       string `yaml:"timeout"`
	SimpleEdition string `yaml:"simple_edition"`
	MarkedEdition string `yaml:"marked_edition"`
}

// RetryConfig configures per-resource retries.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts"`
	BaseDelay   string  `yaml:"base_delay"`
	MaxDelay    string  `yaml:"max_delay"`
	Jitter      float64 `yaml:"jitter"` // fraction of the delay, 0..1
}

// CollectConfig configures the chapter worker pool.
type CollectConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// OutputConfig selects the export formats.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	JSON   bool   `yaml:"json"`
	SQLite bool   `yaml:"sqlite"`
	Gzip   bool   `yaml:"gzip"`   // write .json.gz instead of .json
	Bundle bool   `yaml:"bundle"` // pack all outputs into a tar.xz
	Audit  bool   `yaml:"audit"`  // write the per-attempt audit log
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`   // empty means stderr
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:       fetch.DefaultBaseURL,
			UserAgent:     "mushaf-builder/" + Version,
			Timeout:       "30s",
			SimpleEdition: "quran-simple",
			MarkedEdition: "quran-uthmani",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   "1s",
			MaxDelay:    "8s",
			Jitter:      0.1,
		},
		Collect: CollectConfig{
			Concurrency: 5,
		},
		Output: OutputConfig{
			Dir:    "output",
			JSON:   true,
			SQLite: true,
			Audit:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// applyEnvOverrides applies MUSHAF_* environment variables. Unparsable
// numbers are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MUSHAF_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("MUSHAF_USER_AGENT"); v != "" {
		c.API.UserAgent = v
	}
	if v := os.Getenv("MUSHAF_TIMEOUT"); v != "" {
		c.API.Timeout = v
	}
	if n, err := strconv.Atoi(os.Getenv("MUSHAF_CONCURRENCY")); err == nil {
		c.Collect.Concurrency = n
	}
	if n, err := strconv.Atoi(os.Getenv("MUSHAF_MAX_ATTEMPTS")); err == nil {
		c.Retry.MaxAttempts = n
	}
	if v := os.Getenv("MUSHAF_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("MUSHAF_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MUSHAF_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// GetTimeout returns the HTTP timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// RetryPolicy returns the fetch policy described by c.Retry.
func (c *Config) RetryPolicy() fetch.Policy {
	p := fetch.DefaultPolicy()
	p.MaxAttempts = c.Retry.MaxAttempts
	p.Jitter = c.Retry.Jitter
	if d, err := time.ParseDuration(c.Retry.BaseDelay); err == nil {
		p.BaseDelay = d
	}
	if d, err := time.ParseDuration(c.Retry.MaxDelay); err == nil {
		p.MaxDelay = d
	}
	return p
}

// LoggingOptions converts c.Logging for logging.New.
func (c *Config) LoggingOptions() logging.Options {
	opts := logging.Options{Level: c.Logging.Level, Format: logging.Format(c.Logging.Format)}
	if c.Logging.File != "" {
		opts.OutputPaths = []string{c.Logging.File}
	}
	return opts
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL))
	}
	if c.API.SimpleEdition == "" || c.API.MarkedEdition == "" {
		errs = append(errs, errors.New("api editions must not be empty"))
	} else if c.API.SimpleEdition == c.API.MarkedEdition {
		errs = append(errs, fmt.Errorf("api editions must differ, both are %q", c.API.SimpleEdition))
	}
	if d, err := time.ParseDuration(c.API.Timeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout: invalid duration %q", c.API.Timeout))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts))
	}
	base, err := time.ParseDuration(c.Retry.BaseDelay)
	if err != nil || base < 0 {
		errs = append(errs, fmt.Errorf("retry.base_delay: invalid duration %q", c.Retry.BaseDelay))
	}
	ceiling, err2 := time.ParseDuration(c.Retry.MaxDelay)
	if err2 != nil || ceiling < 0 {
		errs = append(errs, fmt.Errorf("retry.max_delay: invalid duration %q", c.Retry.MaxDelay))
	}
	if err == nil && err2 == nil && ceiling < base {
		errs = append(errs, fmt.Errorf("retry.max_delay %s is below retry.base_delay %s", ceiling, base))
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		errs = append(errs, fmt.Errorf("retry.jitter must be within [0, 1], got %g", c.Retry.Jitter))
	}

	if c.Collect.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("collect.concurrency must be at least 1, got %d", c.Collect.Concurrency))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output.dir must not be empty"))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch logging.Format(c.Logging.Format) {
	case logging.FormatJSON, logging.FormatText, "":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

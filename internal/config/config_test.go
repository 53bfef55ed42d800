package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	p := cfg.RetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, 8*time.Second, p.MaxDelay)
	assert.Equal(t, 30*time.Second, cfg.GetTimeout())
	assert.Equal(t, "mushaf-builder/"+Version, cfg.API.UserAgent)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mushaf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
retry:
  max_attempts: 5
  base_delay: 250ms
collect:
  concurrency: 8
output:
  gzip: true
strict: true
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryPolicy().BaseDelay)
	assert.Equal(t, 8, cfg.Collect.Concurrency)
	assert.True(t, cfg.Output.Gzip)
	assert.True(t, cfg.Output.SQLite, "unset keys keep their defaults")
	assert.True(t, cfg.Strict)
	assert.Equal(t, "8s", cfg.Retry.MaxDelay)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mushaf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry: [unclosed"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mushaf.yaml")
	cfg := DefaultConfig()
	cfg.Collect.Concurrency = 2
	cfg.Output.Bundle = true

	require.NoError(t, cfg.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MUSHAF_BASE_URL", "http://localhost:9000/v1")
	t.Setenv("MUSHAF_CONCURRENCY", "12")
	t.Setenv("MUSHAF_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("MUSHAF_OUTPUT_DIR", "/tmp/out")
	t.Setenv("MUSHAF_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "http://localhost:9000/v1", cfg.API.BaseURL)
	assert.Equal(t, 12, cfg.Collect.Concurrency)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://x" }, "api.base_url"},
		{"same editions", func(c *Config) { c.API.MarkedEdition = c.API.SimpleEdition }, "editions must differ"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"bad delay", func(c *Config) { c.Retry.BaseDelay = "soon" }, "retry.base_delay"},
		{"max below base", func(c *Config) { c.Retry.MaxDelay = "100ms" }, "below retry.base_delay"},
		{"jitter", func(c *Config) { c.Retry.Jitter = 2 }, "retry.jitter"},
		{"concurrency", func(c *Config) { c.Collect.Concurrency = 0 }, "collect.concurrency"},
		{"output dir", func(c *Config) { c.Output.Dir = "" }, "output.dir"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestLoggingOptions(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.LoggingOptions().OutputPaths)

	cfg.Logging.File = "run.log"
	assert.Equal(t, []string{"run.log"}, cfg.LoggingOptions().OutputPaths)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"ATFCF_HOST",
	"PORT",
	"ATFCF_API_URL",
	"ATFCF_RATE_LIMIT",
	"ATFCF_RATE_BURST",
	"ATFCF_CACHE_TTL",
	"ATFCF_MAX_ATTEMPTS",
	"ATFCF_ATTEMPT_TIMEOUT",
	"ATFCF_RETRY_BACKOFF",
	"ATFCF_BATCH_SIZE",
	"ATFCF_BATCH_DELAY",
	"ATFCF_ROSTER_FILE",
	"ATFCF_WARM_SCHEDULE",
	"LOG_LEVEL",
	"LOG_FORMAT",
}

// clearEnv unsets every recognised variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// inTempDir runs the test from an empty directory so no config.yaml or .env is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoad_WithDefaults(t *testing.T) {
	inTempDir(t)
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Host)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, "http://localhost:5001", cfg.UpstreamBaseURL)
	assert.Equal(t, 0.0, cfg.UpstreamRateLimit)
	assert.Equal(t, 1, cfg.UpstreamBurst)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 2, cfg.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.AttemptTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, 300*time.Millisecond, cfg.BatchDelay)
	assert.Equal(t, "", cfg.RosterFile)
	assert.Equal(t, "", cfg.WarmSchedule)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_FromEnvironment(t *testing.T) {
	inTempDir(t)
	clearEnv(t)

	env := map[string]string{
		"ATFCF_HOST":            "127.0.0.1",
		"PORT":                  "8080",
		"ATFCF_API_URL":         "https://atfcf-api.onrender.com",
		"ATFCF_RATE_LIMIT":      "2.5",
		"ATFCF_RATE_BURST":      "4",
		"ATFCF_CACHE_TTL":       "10m",
		"ATFCF_MAX_ATTEMPTS":    "3",
		"ATFCF_ATTEMPT_TIMEOUT": "2s",
		"ATFCF_RETRY_BACKOFF":   "250ms",
		"ATFCF_BATCH_SIZE":      "10",
		"ATFCF_BATCH_DELAY":     "1s",
		"ATFCF_ROSTER_FILE":     "/etc/atfcf/roster.yaml",
		"ATFCF_WARM_SCHEDULE":   "*/5 * * * *",
		"LOG_LEVEL":             "debug",
		"LOG_FORMAT":            "json",
	}
	for key, value := range env {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "https://atfcf-api.onrender.com", cfg.UpstreamBaseURL)
	assert.Equal(t, 2.5, cfg.UpstreamRateLimit)
	assert.Equal(t, 4, cfg.UpstreamBurst)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.AttemptTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.BatchDelay)
	assert.Equal(t, "/etc/atfcf/roster.yaml", cfg.RosterFile)
	assert.Equal(t, "*/5 * * * *", cfg.WarmSchedule)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := inTempDir(t)
	clearEnv(t)

	yaml := "port: 4000\nupstream_base_url: http://atfcf.internal:5001\nbatch_size: 5\ncache_ttl: 1m\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("ATFCF_BATCH_SIZE", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "http://atfcf.internal:5001", cfg.UpstreamBaseURL)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 7, cfg.BatchSize, "environment overrides the config file")
}

func TestLoad_DotEnv(t *testing.T) {
	dir := inTempDir(t)
	clearEnv(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ATFCF_API_URL=http://dotenv.example:5001\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ATFCF_API_URL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.example:5001", cfg.UpstreamBaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	inTempDir(t)
	clearEnv(t)

	t.Setenv("ATFCF_BATCH_SIZE", "0")
	t.Setenv("ATFCF_API_URL", "not a url")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size must be at least 1")
	assert.Contains(t, err.Error(), "upstream_base_url")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:            3000,
			UpstreamBaseURL: "http://localhost:5001",
			UpstreamBurst:   1,
			CacheTTL:        5 * time.Minute,
			MaxAttempts:     2,
			AttemptTimeout:  5 * time.Second,
			RetryBackoff:    500 * time.Millisecond,
			BatchSize:       20,
			BatchDelay:      300 * time.Millisecond,
			LogLevel:        "info",
			LogFormat:       "text",
		}
	}

	base := valid()
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Port = 0 }, "port 0 out of range"},
		{"relative url", func(c *Config) { c.UpstreamBaseURL = "/atfcf" }, "upstream_base_url"},
		{"negative rate", func(c *Config) { c.UpstreamRateLimit = -1 }, "upstream_rate_limit"},
		{"burst", func(c *Config) { c.UpstreamBurst = 0 }, "upstream_burst"},
		{"ttl", func(c *Config) { c.CacheTTL = 0 }, "cache_ttl"},
		{"attempts", func(c *Config) { c.MaxAttempts = 0 }, "max_attempts"},
		{"timeout", func(c *Config) { c.AttemptTimeout = 0 }, "attempt_timeout"},
		{"backoff", func(c *Config) { c.RetryBackoff = -time.Second }, "retry_backoff"},
		{"batch delay", func(c *Config) { c.BatchDelay = -time.Second }, "batch_delay"},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

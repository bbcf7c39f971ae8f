package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the ATFCF service.
type Config struct {
	// HTTP server
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Upstream ATFCF API
	UpstreamBaseURL   string  `mapstructure:"upstream_base_url"`
	UpstreamRateLimit float64 `mapstructure:"upstream_rate_limit"`
	UpstreamBurst     int     `mapstructure:"upstream_burst"`

	// Fetch pipeline
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	BatchSize      int           `mapstructure:"batch_size"`
	BatchDelay     time.Duration `mapstructure:"batch_delay"`

	// Roster and cache warm-up
	RosterFile   string `mapstructure:"roster_file"`
	WarmSchedule string `mapstructure:"warm_schedule"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from a .env file, an optional config file and
// environment variables. Environment variables take precedence over config file values.
//
// Recognised environment variables:
//   - ATFCF_HOST, PORT
//   - ATFCF_API_URL (upstream base URL, defaults to http://localhost:5001)
//   - ATFCF_RATE_LIMIT, ATFCF_RATE_BURST
//   - ATFCF_CACHE_TTL, ATFCF_MAX_ATTEMPTS, ATFCF_ATTEMPT_TIMEOUT, ATFCF_RETRY_BACKOFF
//   - ATFCF_BATCH_SIZE, ATFCF_BATCH_DELAY
//   - ATFCF_ROSTER_FILE, ATFCF_WARM_SCHEDULE
//   - LOG_LEVEL, LOG_FORMAT
func Load() (*Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.atfcf")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnv(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "")
	v.SetDefault("port", 3000)
	v.SetDefault("upstream_base_url", "http://localhost:5001")
	v.SetDefault("upstream_rate_limit", 0)
	v.SetDefault("upstream_burst", 1)
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("max_attempts", 2)
	v.SetDefault("attempt_timeout", 5*time.Second)
	v.SetDefault("retry_backoff", 500*time.Millisecond)
	v.SetDefault("batch_size", 20)
	v.SetDefault("batch_delay", 300*time.Millisecond)
	v.SetDefault("roster_file", "")
	v.SetDefault("warm_schedule", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("host", "ATFCF_HOST")
	v.BindEnv("port", "PORT")

	v.BindEnv("upstream_base_url", "ATFCF_API_URL")
	v.BindEnv("upstream_rate_limit", "ATFCF_RATE_LIMIT")
	v.BindEnv("upstream_burst", "ATFCF_RATE_BURST")

	v.BindEnv("cache_ttl", "ATFCF_CACHE_TTL")
	v.BindEnv("max_attempts", "ATFCF_MAX_ATTEMPTS")
	v.BindEnv("attempt_timeout", "ATFCF_ATTEMPT_TIMEOUT")
	v.BindEnv("retry_backoff", "ATFCF_RETRY_BACKOFF")
	v.BindEnv("batch_size", "ATFCF_BATCH_SIZE")
	v.BindEnv("batch_delay", "ATFCF_BATCH_DELAY")

	v.BindEnv("roster_file", "ATFCF_ROSTER_FILE")
	v.BindEnv("warm_schedule", "ATFCF_WARM_SCHEDULE")

	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("log_format", "LOG_FORMAT")
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var invalid []string

	if c.Port < 1 || c.Port > 65535 {
		invalid = append(invalid, fmt.Sprintf("port %d out of range", c.Port))
	}
	if u, err := url.Parse(c.UpstreamBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		invalid = append(invalid, fmt.Sprintf("upstream_base_url %q is not an absolute URL", c.UpstreamBaseURL))
	}
	if c.UpstreamRateLimit < 0 {
		invalid = append(invalid, "upstream_rate_limit must not be negative")
	}
	if c.UpstreamBurst < 1 {
		invalid = append(invalid, "upstream_burst must be at least 1")
	}
	if c.CacheTTL <= 0 {
		invalid = append(invalid, "cache_ttl must be positive")
	}
	if c.MaxAttempts < 1 {
		invalid = append(invalid, "max_attempts must be at least 1")
	}
	if c.AttemptTimeout <= 0 {
		invalid = append(invalid, "attempt_timeout must be positive")
	}
	if c.RetryBackoff < 0 {
		invalid = append(invalid, "retry_backoff must not be negative")
	}
	if c.BatchSize < 1 {
		invalid = append(invalid, "batch_size must be at least 1")
	}
	if c.BatchDelay < 0 {
		invalid = append(invalid, "batch_delay must not be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, fmt.Sprintf("log_level %q must be debug, info, warn or error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		invalid = append(invalid, fmt.Sprintf("log_format %q must be text or json", c.LogFormat))
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, "; "))
	}
	return nil
}

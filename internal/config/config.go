// Package config loads housectl settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sannel/house/pkg/houseclient"
	"github.com/sannel/house/pkg/httpx"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when HOUSE_CONFIG is not set.
const DefaultPath = "housectl.yaml"

// Config is the root configuration for housectl.
type Config struct {
	Env       string          `yaml:"env"`
	Client    ClientConfig    `yaml:"client"`
	Transport TransportConfig `yaml:"transport"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ClientConfig holds the gateway address and OAuth client credentials.
type ClientConfig struct {
	BaseAddress  string `yaml:"base_address"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// TransportConfig tunes the pooled HTTP clients.
type TransportConfig struct {
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig throttles outgoing requests per host.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	Burst    int           `yaml:"burst"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path, then applies environment overrides. A missing file is
// fine; a file that does not parse is not.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.Client.BaseAddress = strings.TrimSpace(cfg.Client.BaseAddress)

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "dev",
		Transport: TransportConfig{
			Timeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Requests: httpx.DefaultLimit.RequestsPerWindow,
				Window:   httpx.DefaultLimit.Window,
				Burst:    httpx.DefaultLimit.Burst,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Env = getEnvOrDefault("HOUSE_ENV", cfg.Env)
	cfg.Client.BaseAddress = getEnvOrDefault("HOUSE_CLIENT_BASE_ADDRESS", cfg.Client.BaseAddress)
	cfg.Client.ClientID = getEnvOrDefault("HOUSE_CLIENT_ID", cfg.Client.ClientID)
	cfg.Client.ClientSecret = getEnvOrDefault("HOUSE_CLIENT_SECRET", cfg.Client.ClientSecret)
	cfg.Logging.Level = getEnvOrDefault("HOUSE_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvOrDefault("HOUSE_LOG_FORMAT", cfg.Logging.Format)
	cfg.Transport.Timeout = getEnvDurationOrDefault("HOUSE_TIMEOUT", cfg.Transport.Timeout)

	if v := os.Getenv("HOUSE_RATE_LIMIT_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Transport.RateLimit.Enabled = enabled
		}
	}

	rl := httpx.ParseRateLimitFromEnv("HOUSE", cfg.Transport.RateLimit.HTTPX())
	cfg.Transport.RateLimit.Requests = rl.RequestsPerWindow
	cfg.Transport.RateLimit.Window = rl.Window
	cfg.Transport.RateLimit.Burst = rl.Burst
}

// HTTPX converts the limit to the transport's representation.
func (r RateLimitConfig) HTTPX() httpx.RateLimitConfig {
	return httpx.RateLimitConfig{
		RequestsPerWindow: r.Requests,
		Window:            r.Window,
		Burst:             r.Burst,
	}
}

// Lookup serves the colon separated keys houseclient.ConfigFromLookup asks for.
func (c *Config) Lookup(key string) string {
	switch key {
	case houseclient.KeyBaseAddress:
		return c.Client.BaseAddress
	case houseclient.KeyClientID:
		return c.Client.ClientID
	case houseclient.KeyClientSecret:
		return c.Client.ClientSecret
	default:
		return ""
	}
}

// House returns the session configuration.
func (c *Config) House() houseclient.Config {
	return houseclient.ConfigFromLookup(c.Lookup)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// server mode, engine timing, and the user ID blacklist.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultPort is the HTTP port used when PORT is not set. Shared with the
// healthcheck probe so both sides agree on where the server listens.
const DefaultPort = "10000"

// Config holds all application configuration
type Config struct {
	// LINE Bot Configuration
	LineChannelToken  string
	LineChannelSecret string

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir string // Data directory for the SQLite database

	// Engine Configuration
	Engine EngineConfig

	// Sentry Configuration (optional)
	SentryDSN         string
	SentryEnvironment string
	SentryRelease     string

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)
}

// EngineConfig holds configuration for the session-coalescing engine.
type EngineConfig struct {
	// ReplyTimeout is the deadline for producing a reply to an inbound event
	// before the busy fallback is sent (see timeouts.go).
	ReplyTimeout time.Duration

	// BatchWindow is the debounce window for co-occurring messages.
	BatchWindow time.Duration

	// UserIDBlacklist lists user IDs whose events are dropped without processing.
	UserIDBlacklist []string

	// SiteURL is the public article site origin, used to recognize article
	// link shortcuts in text messages.
	SiteURL string
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		Port:            getEnv(EnvPort, DefaultPort),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		DataDir: getEnv(EnvDataDir, "./data"),

		Engine: EngineConfig{
			ReplyTimeout:    getDurationEnv(EnvReplyTimeout, ReplyTimeout),
			BatchWindow:     getDurationEnv(EnvBatchWindow, BatchWindow),
			UserIDBlacklist: splitCSV(getEnv(EnvUserIDBlacklist, "")),
			SiteURL:         getEnv(EnvSiteURL, "https://cofacts.tw"),
		},

		SentryDSN:         getEnv(EnvSentryDSN, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentryRelease:     getEnv(EnvSentryRelease, ""),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.LineChannelToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelAccessToken))
	}
	if c.LineChannelSecret == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelSecret))
	}
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
	}
	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine config: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks engine timing constraints.
func (c *EngineConfig) Validate() error {
	var errs []error

	if c.ReplyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvReplyTimeout, c.ReplyTimeout))
	}
	if c.BatchWindow <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvBatchWindow, c.BatchWindow))
	}
	if c.BatchWindow >= c.ReplyTimeout {
		errs = append(errs, fmt.Errorf("%s (%v) must be shorter than %s (%v)",
			EnvBatchWindow, c.BatchWindow, EnvReplyTimeout, c.ReplyTimeout))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "rumorbot.db")
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// splitCSV splits a comma-separated value into trimmed non-empty entries.
func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package config defines environment variable keys for configuration.
package config

//nolint:gosec // Environment variable keys are not credentials.
const (
	// Core (Required)
	EnvLineChannelAccessToken = "LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "LINE_CHANNEL_SECRET"

	// Server
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	// Data
	EnvDataDir = "DATA_DIR"

	// Engine
	EnvReplyTimeout    = "REPLY_TIMEOUT"
	EnvBatchWindow     = "BATCH_WINDOW"
	EnvUserIDBlacklist = "USERID_BLACKLIST"
	EnvSiteURL         = "SITE_URL"

	// Sentry Feature
	EnvSentryDSN         = "SENTRY_DSN"
	EnvSentryEnvironment = "SENTRY_ENVIRONMENT"
	EnvSentryRelease     = "SENTRY_RELEASE"

	// Metrics Auth Feature
	EnvMetricsUsername = "METRICS_USERNAME"
	EnvMetricsPassword = "METRICS_PASSWORD"
)

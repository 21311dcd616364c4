// Package config provides centralized timeout constants for the application.
//
// These values are tuned around LINE Messaging API constraints:
//   - Reply tokens must be used within one minute after the webhook arrives,
//     so a reply must be sent (or a fallback issued) before that window closes.
//   - LINE expects a quick 200 OK acknowledgment; event processing happens
//     asynchronously after the response.
package config

import "time"

// Reply handling
const (
	// ReplyTimeout is the deadline for producing a reply to an inbound event.
	// When processing has not completed by then, the engine sends a fixed
	// "bot is busy" fallback and suppresses any later real reply for that
	// event.
	//
	// Set to 58s: the reply token is valid for one minute, minus a safety
	// margin for the delivery round trip.
	ReplyTimeout = 58 * time.Second

	// BatchWindow is how long an inbound message waits for co-occurring
	// messages before its batch is finalized. Messages from the same user
	// arriving within this window are treated as one logical turn.
	BatchWindow = 500 * time.Millisecond
)

// HTTP server timeouts
const (
	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	// Should be short since LINE sends small JSON payloads.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout. The webhook handler
	// responds immediately, so this only needs to cover serialization.
	WebhookHTTPWrite = 15 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is the SQLite busy_timeout pragma value.
	// Handles write contention between concurrent user interactions.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight interactions (including armed reply timers) to finish.
	GracefulShutdown = 30 * time.Second
)

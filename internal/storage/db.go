// Package storage provides the SQLite persistence layer: per-user
// conversation contexts, the co-occurred message batch queue, user
// settings, and the local article store.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/factcheck-tw/rumorbot/internal/config"
	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// MetricsRecorder observes storage operation durations.
type MetricsRecorder interface {
	ObserveStorage(operation string, seconds float64)
}

// DB wraps the SQLite database connection
type DB struct {
	conn    *sql.DB
	path    string
	metrics MetricsRecorder // optional
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	// Ensure directory exists (skip for in-memory database)
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	// foreign_keys, busy_timeout and synchronous are per-connection
	// settings; the DSN applies them to every connection the pool opens.
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		dbPath, config.DatabaseBusyTimeout.Milliseconds())
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn: conn,
		path: dbPath,
	}

	if err := initSchema(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Ready pings the database to verify it can serve traffic.
func (db *DB) Ready() error {
	if err := db.conn.Ping(); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	return nil
}

// SetMetrics sets the metrics recorder for storage operation durations
func (db *DB) SetMetrics(recorder MetricsRecorder) {
	db.metrics = recorder
}

// observe records the duration of a storage operation when metrics are set.
func (db *DB) observe(operation string, start time.Time) {
	if db.metrics != nil {
		db.metrics.ObserveStorage(operation, time.Since(start).Seconds())
	}
}

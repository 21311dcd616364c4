package storage

import (
	"database/sql"
	"fmt"
)

// initSchema creates all tables and indexes if they do not exist.
func initSchema(conn *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			user_id    TEXT PRIMARY KEY,
			context    TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS batch_queue (
			seq     INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			message TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batch_queue_user ON batch_queue(user_id, seq)`,
		`CREATE TABLE IF NOT EXISTS user_settings (
			user_id                TEXT PRIMARY KEY,
			allow_new_reply_update INTEGER NOT NULL DEFAULT 1,
			updated_at             INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id         TEXT PRIMARY KEY,
			text       TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS article_replies (
			id         TEXT PRIMARY KEY,
			article_id TEXT NOT NULL REFERENCES articles(id),
			reply_type TEXT NOT NULL,
			text       TEXT NOT NULL,
			reference  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_article_replies_article ON article_replies(article_id)`,
		`CREATE TABLE IF NOT EXISTS article_submissions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    TEXT NOT NULL,
			text       TEXT NOT NULL,
			source     TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

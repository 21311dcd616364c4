package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetContext returns the stored context blob for the user, or nil when the
// user has no context. Implements session.Store.
func (db *DB) GetContext(ctx context.Context, userID string) ([]byte, error) {
	defer db.observe("session_get", time.Now())

	var raw []byte
	err := db.conn.QueryRowContext(ctx,
		`SELECT context FROM sessions WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session for %s: %w", userID, err)
	}
	return raw, nil
}

// SetContext inserts or replaces the stored context blob for the user.
func (db *DB) SetContext(ctx context.Context, userID string, raw []byte) error {
	defer db.observe("session_set", time.Now())

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sessions (user_id, context, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			context = excluded.context,
			updated_at = excluded.updated_at
	`, userID, raw, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save session for %s: %w", userID, err)
	}
	return nil
}

// DeleteContext removes the stored context for the user.
func (db *DB) DeleteContext(ctx context.Context, userID string) error {
	defer db.observe("session_delete", time.Now())

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete session for %s: %w", userID, err)
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SetAllowNewReplyUpdate records whether the user wants to be notified when
// new replies arrive for articles they searched. Toggled on follow/unfollow.
func (db *DB) SetAllowNewReplyUpdate(ctx context.Context, userID string, allow bool) error {
	defer db.observe("settings_set", time.Now())

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, allow_new_reply_update, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			allow_new_reply_update = excluded.allow_new_reply_update,
			updated_at = excluded.updated_at
	`, userID, allow, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save settings for %s: %w", userID, err)
	}
	return nil
}

// GetAllowNewReplyUpdate returns the user's notification preference.
// Users without a stored setting default to true.
func (db *DB) GetAllowNewReplyUpdate(ctx context.Context, userID string) (bool, error) {
	defer db.observe("settings_get", time.Now())

	var allow bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT allow_new_reply_update FROM user_settings WHERE user_id = ?`,
		userID).Scan(&allow)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("query settings for %s: %w", userID, err)
	}
	return allow, nil
}

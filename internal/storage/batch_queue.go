package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/factcheck-tw/rumorbot/internal/chatbot"
)

// PushMessage appends a co-occurred message to the user's batch queue.
// Append order equals arrival order; seq is assigned by the database.
func (db *DB) PushMessage(ctx context.Context, userID string, msg chatbot.CooccurredMessage) error {
	defer db.observe("batch_push", time.Now())

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode batch message: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx,
		`INSERT INTO batch_queue (user_id, message) VALUES (?, ?)`, userID, raw); err != nil {
		return fmt.Errorf("push batch message for %s: %w", userID, err)
	}
	return nil
}

// LastMessage returns the newest message in the user's batch queue, or nil
// when the queue is empty.
func (db *DB) LastMessage(ctx context.Context, userID string) (*chatbot.CooccurredMessage, error) {
	defer db.observe("batch_last", time.Now())

	var raw []byte
	err := db.conn.QueryRowContext(ctx,
		`SELECT message FROM batch_queue WHERE user_id = ? ORDER BY seq DESC LIMIT 1`,
		userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query batch tail for %s: %w", userID, err)
	}

	var msg chatbot.CooccurredMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode batch message for %s: %w", userID, err)
	}
	return &msg, nil
}

// AllMessages returns the user's whole batch in append order.
func (db *DB) AllMessages(ctx context.Context, userID string) ([]chatbot.CooccurredMessage, error) {
	defer db.observe("batch_all", time.Now())

	rows, err := db.conn.QueryContext(ctx,
		`SELECT message FROM batch_queue WHERE user_id = ? ORDER BY seq ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query batch for %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var messages []chatbot.CooccurredMessage
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan batch message for %s: %w", userID, err)
		}
		var msg chatbot.CooccurredMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("decode batch message for %s: %w", userID, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch for %s: %w", userID, err)
	}
	return messages, nil
}

// DeleteBatch removes the user's whole batch queue. A sent reply ends the
// current input streak, so the engine calls this on every reply path.
func (db *DB) DeleteBatch(ctx context.Context, userID string) error {
	defer db.observe("batch_delete", time.Now())

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM batch_queue WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete batch for %s: %w", userID, err)
	}
	return nil
}

// Package session manages per-user conversation contexts.
//
// A context carries the session ID minted at the start of a logical search
// turn plus state-specific fields. The session ID is derived from the mint
// time, so later sessions always compare newer; it is embedded into button
// postbacks and compared against the live context to detect stale presses.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Context is one user's conversation context. It is owned by exactly one
// user, mutated only by state handlers and session re-initialization, and
// persisted after every processed interaction.
type Context struct {
	// SessionID identifies the current search session. Minted from the
	// creation timestamp in milliseconds, so it increases monotonically
	// across sessions of the same user.
	SessionID int64 `json:"sessionId"`

	// SearchedText is the user input that started the current session.
	SearchedText string `json:"searchedText,omitempty"`

	// SelectedArticleID is set once the user picks a candidate article.
	SelectedArticleID string `json:"selectedArticleId,omitempty"`

	// ArticleSource records the user's answer to the article source question.
	ArticleSource string `json:"articleSource,omitempty"`
}

// NewSessionID mints a session identifier from the current time.
func NewSessionID() int64 {
	return time.Now().UnixMilli()
}

// New creates a fresh context with a newly minted session ID.
func New() *Context {
	return &Context{SessionID: NewSessionID()}
}

// Store is the durable key-value backend for contexts, keyed by user ID.
// Get returns nil with no error when the user has no stored context.
type Store interface {
	GetContext(ctx context.Context, userID string) ([]byte, error)
	SetContext(ctx context.Context, userID string, data []byte) error
	DeleteContext(ctx context.Context, userID string) error
}

// Manager loads and saves conversation contexts.
type Manager struct {
	store Store
}

// NewManager creates a context manager backed by the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Load returns the user's stored context, or a freshly minted one when the
// user has no context yet. The fresh context is not persisted; callers save
// it through the normal reply path.
func (m *Manager) Load(ctx context.Context, userID string) (*Context, error) {
	raw, err := m.store.GetContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load context for %s: %w", userID, err)
	}
	if raw == nil {
		return New(), nil
	}

	var c Context
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode context for %s: %w", userID, err)
	}
	return &c, nil
}

// Save persists the context for the user.
func (m *Manager) Save(ctx context.Context, userID string, c *Context) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode context for %s: %w", userID, err)
	}
	if err := m.store.SetContext(ctx, userID, raw); err != nil {
		return fmt.Errorf("save context for %s: %w", userID, err)
	}
	return nil
}

// Delete removes the user's stored context.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	if err := m.store.DeleteContext(ctx, userID); err != nil {
		return fmt.Errorf("delete context for %s: %w", userID, err)
	}
	return nil
}

// Validate reports whether a postback minted under postbackSessionID is still
// valid against the live context. A mismatch is not an error; the caller
// answers with the expired-buttons reply and leaves the context untouched.
func Validate(postbackSessionID int64, c *Context) bool {
	return c != nil && postbackSessionID == c.SessionID
}

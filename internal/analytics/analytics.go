// Package analytics emits user interaction events for offline analysis.
package analytics

import (
	"context"

	"github.com/factcheck-tw/rumorbot/internal/logger"
)

// Event categories.
const (
	CategoryMessage = "Message"
	CategoryArticle = "Article"
	CategoryReply   = "Reply"
	CategoryUser    = "User"
)

// Event actions.
const (
	ActionMessageReceived = "MessageReceived"
	ActionSelected        = "Selected"
	ActionNoArticleFound  = "NoArticleFound"
	ActionSubmitted       = "ProvidingSource"
	ActionFollow          = "Follow"
	ActionUnfollow        = "Unfollow"
	ActionTimeout         = "Timeout"
)

// Event is a single interaction event.
type Event struct {
	UserID   string
	Category string
	Action   string
	Label    string
	Value    int
}

// Emitter sends interaction events. Emission is best effort; failures must
// never affect reply delivery.
type Emitter interface {
	Send(ctx context.Context, e Event)
}

// LogEmitter writes events to the structured log, where the log pipeline
// picks them up.
type LogEmitter struct {
	log *logger.Logger
}

// NewLogEmitter creates an emitter backed by the given logger.
func NewLogEmitter(log *logger.Logger) *LogEmitter {
	return &LogEmitter{log: log.WithModule("analytics")}
}

// Send writes the event as one log line.
func (l *LogEmitter) Send(_ context.Context, e Event) {
	l.log.WithUserID(e.UserID).WithFields(map[string]any{
		"category": e.Category,
		"action":   e.Action,
		"label":    e.Label,
		"value":    e.Value,
	}).Info("analytics event")
}

// NopEmitter discards all events.
type NopEmitter struct{}

// Send does nothing.
func (NopEmitter) Send(context.Context, Event) {}

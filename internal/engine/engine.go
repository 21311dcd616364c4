// Package engine implements the per-event conversation core: the reply
// timeout guard, the message batch coalescer, event classification, and the
// single reply funnel every outcome leaves through.
//
// There is no per-user lock. Concurrent events for the same user race
// optimistically: each in-flight interaction carries staleness tokens (the
// message ID it was started for, the session ID its buttons were minted
// under) and checks them right before replying, so late finishers cancel
// themselves instead of double-replying.
package engine

import (
	"context"
	"time"

	"github.com/factcheck-tw/rumorbot/internal/analytics"
	"github.com/factcheck-tw/rumorbot/internal/chatbot"
	"github.com/factcheck-tw/rumorbot/internal/config"
	"github.com/factcheck-tw/rumorbot/internal/logger"
	"github.com/factcheck-tw/rumorbot/internal/metrics"
	"github.com/factcheck-tw/rumorbot/internal/session"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// BatchQueue is the durable per-user queue of co-occurred messages.
// Implemented by *storage.DB.
type BatchQueue interface {
	PushMessage(ctx context.Context, userID string, msg chatbot.CooccurredMessage) error
	LastMessage(ctx context.Context, userID string) (*chatbot.CooccurredMessage, error)
	AllMessages(ctx context.Context, userID string) ([]chatbot.CooccurredMessage, error)
	DeleteBatch(ctx context.Context, userID string) error
}

// ReplyClient delivers reply messages for a reply token.
type ReplyClient interface {
	Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error
}

// Dispatcher routes a postback action to its state handler.
// Implemented by *chatbot.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, data *session.Context, pb *chatbot.PostbackAction, userID string) (*chatbot.Result, error)
}

// Processor handles finalized batches that are not a single text message.
// Implemented by *states.Handlers.
type Processor interface {
	ProcessBatch(ctx context.Context, data *session.Context, msgs []chatbot.CooccurredMessage, userID string) (*chatbot.Result, error)
	ProcessMedia(ctx context.Context, data *session.Context, msg *chatbot.CooccurredMessage, userID string) (*chatbot.Result, error)
}

// UserSettings stores per-user preferences toggled by follow/unfollow.
// Implemented by *storage.DB.
type UserSettings interface {
	SetAllowNewReplyUpdate(ctx context.Context, userID string, allow bool) error
}

// Config holds the engine timing knobs and the user blacklist.
type Config struct {
	// ReplyTimeout bounds how long an interaction may run before the busy
	// fallback is sent. Must stay under the reply-token validity window.
	ReplyTimeout time.Duration

	// BatchWindow is how long a message waits for co-occurring messages
	// before its batch finalizes.
	BatchWindow time.Duration

	// UserIDBlacklist lists user IDs whose events are dropped outright.
	UserIDBlacklist []string

	// SiteURL is the public article site, used for the article-link shortcut.
	SiteURL string
}

// Deps are the engine's collaborators.
type Deps struct {
	Sessions   *session.Manager
	Batches    BatchQueue
	Replier    ReplyClient
	Dispatcher Dispatcher
	Processor  Processor
	Settings   UserSettings
	Analytics  analytics.Emitter
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
}

// Engine is the single-user event handler.
type Engine struct {
	cfg       Config
	sessions  *session.Manager
	batches   BatchQueue
	replier   ReplyClient
	dispatch  Dispatcher
	processor Processor
	settings  UserSettings
	analytics analytics.Emitter
	log       *logger.Logger
	metrics   *metrics.Metrics
	blacklist map[string]struct{}
}

// New creates an engine. Zero timing values fall back to the defaults.
func New(cfg Config, deps Deps) *Engine {
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = config.ReplyTimeout
	}
	if cfg.BatchWindow <= 0 {
		cfg.BatchWindow = config.BatchWindow
	}
	emitter := deps.Analytics
	if emitter == nil {
		emitter = analytics.NopEmitter{}
	}

	blacklist := make(map[string]struct{}, len(cfg.UserIDBlacklist))
	for _, id := range cfg.UserIDBlacklist {
		blacklist[id] = struct{}{}
	}

	return &Engine{
		cfg:       cfg,
		sessions:  deps.Sessions,
		batches:   deps.Batches,
		replier:   deps.Replier,
		dispatch:  deps.Dispatcher,
		processor: deps.Processor,
		settings:  deps.Settings,
		analytics: emitter,
		log:       deps.Logger.WithModule("engine"),
		metrics:   deps.Metrics,
		blacklist: blacklist,
	}
}

func (e *Engine) blacklisted(userID string) bool {
	_, ok := e.blacklist[userID]
	return ok
}

// Package states implements the conversation-state handlers: searching the
// article store, walking the user through candidate articles and replies, and
// collecting new submissions.
package states

import (
	"context"
	"encoding/json"

	"github.com/factcheck-tw/rumorbot/internal/analytics"
	"github.com/factcheck-tw/rumorbot/internal/chatbot"
	"github.com/factcheck-tw/rumorbot/internal/errors"
	"github.com/factcheck-tw/rumorbot/internal/logger"
	"github.com/factcheck-tw/rumorbot/internal/metrics"
	"github.com/factcheck-tw/rumorbot/internal/session"
	"github.com/factcheck-tw/rumorbot/internal/storage"
)

// ArticleStore is the storage surface the handlers need. Implemented by
// *storage.DB.
type ArticleStore interface {
	SearchArticles(ctx context.Context, query string) ([]storage.Article, error)
	GetArticle(ctx context.Context, id string) (*storage.Article, error)
	GetArticleReplies(ctx context.Context, articleID string) ([]storage.ArticleReply, error)
	GetReply(ctx context.Context, id string) (*storage.ArticleReply, error)
	CreateSubmission(ctx context.Context, userID, text, source string) error
}

// Handlers bundles the state handlers with their shared collaborators.
type Handlers struct {
	store     ArticleStore
	analytics analytics.Emitter
	log       *logger.Logger
	siteURL   string
}

// New creates the handler set. siteURL is the public article site used in
// reply links and the article-link shortcut.
func New(store ArticleStore, emitter analytics.Emitter, log *logger.Logger, siteURL string) *Handlers {
	if emitter == nil {
		emitter = analytics.NopEmitter{}
	}
	return &Handlers{
		store:     store,
		analytics: emitter,
		log:       log.WithModule("states"),
		siteURL:   siteURL,
	}
}

// Dispatcher wires every handler into a chatbot.Dispatcher.
func (h *Handlers) Dispatcher(log *logger.Logger, m *metrics.Metrics) *chatbot.Dispatcher {
	return &chatbot.Dispatcher{
		Default:                        handlerFunc(h.handleDefault),
		Tutorial:                       handlerFunc(h.handleTutorial),
		ChoosingArticle:                handlerFunc(h.handleChoosingArticle),
		ChoosingReply:                  handlerFunc(h.handleChoosingReply),
		AskingArticleSource:            handlerFunc(h.handleAskingArticleSource),
		AskingArticleSubmissionConsent: handlerFunc(h.handleSubmissionConsent),
		Logger:                         log,
		Metrics:                        m,
	}
}

// handlerFunc adapts a method to chatbot.StateHandler.
type handlerFunc func(ctx context.Context, data *session.Context, input json.RawMessage, userID string) (*chatbot.Result, error)

func (f handlerFunc) Handle(ctx context.Context, data *session.Context, input json.RawMessage, userID string) (*chatbot.Result, error) {
	return f(ctx, data, input, userID)
}

// decodeStringInput decodes a JSON string input. Anything else in the input
// slot is a malformed button press, which is the user's doing, not ours.
func decodeStringInput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.NewManipulationError("請使用訊息下方的按鈕操作")
	}
	return s, nil
}

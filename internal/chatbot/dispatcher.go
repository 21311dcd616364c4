package chatbot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/factcheck-tw/rumorbot/internal/errors"
	"github.com/factcheck-tw/rumorbot/internal/lineutil"
	"github.com/factcheck-tw/rumorbot/internal/logger"
	"github.com/factcheck-tw/rumorbot/internal/metrics"
	"github.com/factcheck-tw/rumorbot/internal/session"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// StateHandler processes one conversation state. Handlers signal invalid
// user-driven input with *errors.ManipulationError; any other error fails
// the whole interaction. A handler may attach a partially updated context to
// the result it returns alongside a manipulation error.
type StateHandler interface {
	Handle(ctx context.Context, data *session.Context, input json.RawMessage, userID string) (*Result, error)
}

// Dispatcher routes a postback to the handler named in its state field.
// Every known state has its own arm; everything else goes to Default.
type Dispatcher struct {
	Default                        StateHandler
	Tutorial                       StateHandler
	ChoosingArticle                StateHandler
	ChoosingReply                  StateHandler
	AskingArticleSource            StateHandler
	AskingArticleSubmissionConsent StateHandler

	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Dispatch invokes the state handler for pb and intercepts manipulation
// errors at this single boundary, converting them into the standard warning
// reply while preserving the context the handler produced (or the input
// context when the handler attached none).
func (d *Dispatcher) Dispatch(ctx context.Context, data *session.Context, pb *PostbackAction, userID string) (*Result, error) {
	var h StateHandler
	switch pb.State {
	case StateTutorial:
		h = d.Tutorial
	case StateChoosingArticle:
		h = d.ChoosingArticle
	case StateChoosingReply:
		h = d.ChoosingReply
	case StateAskingArticleSource:
		h = d.AskingArticleSource
	case StateAskingArticleSubmissionConsent:
		h = d.AskingArticleSubmissionConsent
	case StateDefault:
		h = d.Default
	default:
		h = d.Default
	}

	result, err := h.Handle(ctx, data, pb.Input, userID)
	if err != nil {
		me, ok := errors.AsManipulationError(err)
		if !ok {
			return nil, fmt.Errorf("handle state %s: %w", pb.State, err)
		}

		if d.Metrics != nil {
			d.Metrics.ManipulationErrorsTotal.WithLabelValues(string(pb.State)).Inc()
		}
		if d.Logger != nil {
			d.Logger.WithModule("dispatcher").
				WithUserID(userID).
				WithField("state", string(pb.State)).
				WithField("message", me.Msg).
				Info("Invalid user action intercepted")
		}

		kept := data
		if result != nil && result.Context != nil {
			kept = result.Context
		}
		return &Result{
			Context: kept,
			Replies: []messaging_api.MessageInterface{lineutil.NewWarningBubble(me.Msg)},
		}, nil
	}

	return result, nil
}

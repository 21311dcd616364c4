package engine

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/factcheck-tw/rumorbot/internal/chatbot"
	"github.com/factcheck-tw/rumorbot/internal/session"
)

// coalesce runs the batch window for one inbound message. Every message gets
// its own waiter; after the window only the waiter whose message is still the
// newest in the queue finalizes the batch, identified by message ID rather
// than queue position so requeue races cannot elect two winners.
func (e *Engine) coalesce(ctx context.Context, in *interaction, data *session.Context, msg chatbot.CooccurredMessage) error {
	if err := e.batches.PushMessage(ctx, in.userID, msg); err != nil {
		in.cancel()
		return err
	}

	select {
	case <-ctx.Done():
		in.cancel()
		return ctx.Err()
	case <-time.After(e.cfg.BatchWindow):
	}

	last, err := e.batches.LastMessage(ctx, in.userID)
	if err != nil {
		in.cancel()
		return err
	}
	if last == nil || last.ID != msg.ID {
		// A newer message owns the batch now, or a concurrent reply
		// already consumed it.
		if e.metrics != nil {
			e.metrics.RecordBatchSuperseded()
		}
		in.cancel()
		return nil
	}

	msgs, err := e.batches.AllMessages(ctx, in.userID)
	if err != nil {
		in.cancel()
		return err
	}
	if len(msgs) == 0 {
		in.cancel()
		return nil
	}
	if e.metrics != nil {
		e.metrics.RecordBatchFinalized(len(msgs))
	}

	var result *chatbot.Result
	switch {
	case len(msgs) > 1:
		result, err = e.processor.ProcessBatch(ctx, data, msgs, in.userID)

	case msgs[0].Type != chatbot.MessageTypeText:
		result, err = e.processor.ProcessMedia(ctx, data, &msgs[0], in.userID)

	default:
		// A single text message starts a new search session.
		fresh := session.New()
		fresh.SearchedText = strings.TrimSpace(msgs[0].Text)
		result, err = e.dispatch.Dispatch(ctx, fresh,
			&chatbot.PostbackAction{State: chatbot.StateDefault, SessionID: fresh.SessionID}, in.userID)
	}
	if err != nil {
		in.cancel()
		return err
	}

	return in.send(ctx, result, &msg)
}

// encodeInput marshals a state-handler input for a pseudo-postback.
func encodeInput(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}

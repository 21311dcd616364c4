package engine

import (
	"context"
	"sync"
	"time"

	"github.com/factcheck-tw/rumorbot/internal/chatbot"
	"github.com/factcheck-tw/rumorbot/internal/lineutil"
	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// busyReplyText is the fallback sent when processing outlives the reply
// deadline. The reply token is still valid at that point; afterwards the
// interaction may only cancel.
const busyReplyText = "機器人現在有點忙,沒辦法即時處理您的訊息。請稍後再把訊息傳給我一次 🙏"

// interaction tracks one inbound event from arrival to its single exit:
// either one reply or a silent cancel. The timer and the timedOut/done flags
// are guarded by mu; checking and flipping them under the lock is what keeps
// the handler path and the timeout path from both replying.
type interaction struct {
	engine     *Engine
	id         string
	userID     string
	replyToken string
	event      webhook.EventInterface

	mu       sync.Mutex
	timer    *time.Timer
	timedOut bool
	done     bool
}

// newInteraction arms the reply timeout guard for one inbound event.
func (e *Engine) newInteraction(userID, replyToken string, event webhook.EventInterface) *interaction {
	in := &interaction{
		engine:     e,
		id:         uuid.NewString(),
		userID:     userID,
		replyToken: replyToken,
		event:      event,
	}
	in.timer = time.AfterFunc(e.cfg.ReplyTimeout, in.fireTimeout)
	return in
}

// fireTimeout runs when processing exceeds the reply deadline. It marks the
// interaction timed out, so a handler finishing later becomes a no-op, and
// spends the reply token on the busy fallback.
func (in *interaction) fireTimeout() {
	in.mu.Lock()
	if in.done || in.timedOut {
		in.mu.Unlock()
		return
	}
	in.timedOut = true
	in.mu.Unlock()

	e := in.engine
	if e.metrics != nil {
		e.metrics.TimeoutRepliesTotal.Inc()
	}
	log := e.log.WithUserID(in.userID).WithInteractionID(in.id)
	log.Warn("Reply deadline exceeded, sending busy fallback")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The busy fallback answers the current input streak, so its queued
	// messages must not carry over into the user's next turn.
	if err := e.batches.DeleteBatch(ctx, in.userID); err != nil {
		log.WithError(err).Error("Failed to clear batch queue")
	}

	if in.replyToken == "" {
		return
	}
	if err := e.replier.Reply(ctx, in.replyToken, []messaging_api.MessageInterface{
		lineutil.NewTextMessage(busyReplyText),
	}); err != nil {
		log.WithError(err).Error("Failed to send busy fallback")
	}
}

// cancel ends the interaction without a reply. Idempotent, and a no-op after
// the timeout has fired.
func (in *interaction) cancel() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.done || in.timedOut {
		return
	}
	in.done = true
	in.timer.Stop()
}

// send is the single reply funnel. Every successful interaction outcome goes
// through here exactly once; stale or timed-out interactions degrade to a
// silent cancel.
//
// forMsg, when set, is the message this result was computed for. The result
// is dropped if a newer message has been queued since, because that newer
// message's waiter owns the batch now.
func (in *interaction) send(ctx context.Context, result *chatbot.Result, forMsg *chatbot.CooccurredMessage) error {
	e := in.engine

	if forMsg != nil {
		last, err := e.batches.LastMessage(ctx, in.userID)
		if err != nil {
			in.cancel()
			return err
		}
		if last == nil || last.ID != forMsg.ID {
			if e.metrics != nil {
				e.metrics.RecordBatchSuperseded()
			}
			in.cancel()
			return nil
		}
	}

	in.mu.Lock()
	if in.done || in.timedOut {
		in.mu.Unlock()
		return nil
	}
	in.done = true
	in.timer.Stop()
	in.mu.Unlock()

	log := e.log.WithUserID(in.userID).WithInteractionID(in.id)

	// Replying ends the current input streak.
	if err := e.batches.DeleteBatch(ctx, in.userID); err != nil {
		log.WithError(err).Error("Failed to clear batch queue")
	}

	// Audit line pairing what came in with what goes out. One per
	// interaction, emitted before delivery so a failed send still leaves it.
	log.WithFields(map[string]any{
		"input":   in.event,
		"context": result.Context,
		"output":  result.Replies,
	}).Info("Interaction finished")

	switch {
	case in.replyToken == "":
		if e.metrics != nil {
			e.metrics.RecordReply("no_token")
		}
	case len(result.Replies) > 0:
		if err := e.replier.Reply(ctx, in.replyToken, result.Replies); err != nil {
			if e.metrics != nil {
				e.metrics.RecordReply("error")
			}
			log.WithError(err).Error("Failed to deliver reply")
		} else if e.metrics != nil {
			e.metrics.RecordReply("success")
		}
	}

	if result.Context != nil {
		if err := e.sessions.Save(ctx, in.userID, result.Context); err != nil {
			log.WithError(err).Error("Failed to persist context")
			return err
		}
	}
	return nil
}

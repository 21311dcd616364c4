package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/factcheck-tw/rumorbot/internal/analytics"
	"github.com/factcheck-tw/rumorbot/internal/chatbot"
	"github.com/factcheck-tw/rumorbot/internal/lineutil"
	"github.com/factcheck-tw/rumorbot/internal/session"
	"github.com/factcheck-tw/rumorbot/internal/states"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// resetCommand wipes the user's context and batch queue. Debug aid; the bot
// answers with silence.
const resetCommand = "RESET"

// expiredButtonsText answers a button press whose session has ended.
const expiredButtonsText = "這個按鈕已經過期囉,請重新把想查證的訊息傳給我。"

// HandleEvent processes one webhook event end to end. Events without a
// one-on-one user source are dropped. The returned error reports
// infrastructure failures only; user-level oddities are answered in-band.
func (e *Engine) HandleEvent(ctx context.Context, event webhook.EventInterface) error {
	userID, replyToken := eventSource(event)
	if userID == "" {
		e.log.Debug("Dropping event without user source")
		return nil
	}
	if e.blacklisted(userID) {
		e.log.WithUserID(userID).Info("Dropping event from blacklisted user")
		return nil
	}

	in := e.newInteraction(userID, replyToken, event)

	data, err := e.sessions.Load(ctx, userID)
	if err != nil {
		in.cancel()
		return err
	}

	switch ev := event.(type) {
	case webhook.FollowEvent:
		return e.handleFollow(ctx, in)
	case webhook.UnfollowEvent:
		return e.handleUnfollow(ctx, in)
	case webhook.PostbackEvent:
		return e.handlePostback(ctx, in, data, ev)
	case webhook.MessageEvent:
		return e.handleMessage(ctx, in, data, ev)
	default:
		in.cancel()
		return nil
	}
}

// handleFollow greets a new friend: enable new-reply updates, mint a fresh
// context, send the greeting with the first tutorial step.
func (e *Engine) handleFollow(ctx context.Context, in *interaction) error {
	if err := e.settings.SetAllowNewReplyUpdate(ctx, in.userID, true); err != nil {
		in.cancel()
		return err
	}

	e.analytics.Send(ctx, analytics.Event{
		UserID:   in.userID,
		Category: analytics.CategoryUser,
		Action:   analytics.ActionFollow,
	})

	data := session.New()
	greeting, err := states.GreetingMessages(data.SessionID)
	if err != nil {
		in.cancel()
		return err
	}
	return in.send(ctx, &chatbot.Result{Context: data, Replies: greeting}, nil)
}

// handleUnfollow turns off new-reply updates. No reply token exists.
func (e *Engine) handleUnfollow(ctx context.Context, in *interaction) error {
	defer in.cancel()

	e.analytics.Send(ctx, analytics.Event{
		UserID:   in.userID,
		Category: analytics.CategoryUser,
		Action:   analytics.ActionUnfollow,
	})
	return e.settings.SetAllowNewReplyUpdate(ctx, in.userID, false)
}

// handlePostback validates the pressed button against the live session and
// dispatches it. A stale button gets the expired answer and leaves the
// stored context untouched.
func (e *Engine) handlePostback(ctx context.Context, in *interaction, data *session.Context, ev webhook.PostbackEvent) error {
	pb, err := chatbot.ParsePostback(ev.Postback.Data)
	if err != nil {
		in.cancel()
		return fmt.Errorf("postback from %s: %w", in.userID, err)
	}

	if !session.Validate(pb.SessionID, data) {
		if e.metrics != nil {
			e.metrics.ExpiredSessionsTotal.Inc()
		}
		e.log.WithUserID(in.userID).WithInteractionID(in.id).
			WithField("state", string(pb.State)).
			Info("Stale button pressed")
		return in.send(ctx, &chatbot.Result{
			Replies: []messaging_api.MessageInterface{
				lineutil.NewTextMessage(expiredButtonsText),
			},
		}, nil)
	}

	result, err := e.dispatch.Dispatch(ctx, data, pb, in.userID)
	if err != nil {
		in.cancel()
		return err
	}
	return in.send(ctx, result, nil)
}

// handleMessage classifies one message event: special text commands first,
// then the batch coalescer for ordinary text and media. Unsupported message
// types cancel after an analytics note.
func (e *Engine) handleMessage(ctx context.Context, in *interaction, data *session.Context, ev webhook.MessageEvent) error {
	switch m := ev.Message.(type) {
	case webhook.TextMessageContent:
		text := strings.TrimSpace(m.Text)

		switch {
		case text == resetCommand:
			return e.handleReset(ctx, in)

		case text == states.TutorialTrigger:
			fresh := session.New()
			result, err := e.dispatch.Dispatch(ctx, fresh,
				&chatbot.PostbackAction{State: chatbot.StateTutorial, SessionID: fresh.SessionID}, in.userID)
			if err != nil {
				in.cancel()
				return err
			}
			return in.send(ctx, result, nil)

		case states.ExtractArticleID(e.cfg.SiteURL, text) != "":
			articleID := states.ExtractArticleID(e.cfg.SiteURL, text)
			// The session starts with no searched text: the user pasted a
			// link, not the rumor itself, and the link must not end up in a
			// later submission.
			fresh := session.New()
			input, err := encodeInput(articleID)
			if err != nil {
				in.cancel()
				return err
			}
			result, err := e.dispatch.Dispatch(ctx, fresh,
				&chatbot.PostbackAction{State: chatbot.StateChoosingArticle, SessionID: fresh.SessionID, Input: input}, in.userID)
			if err != nil {
				in.cancel()
				return err
			}
			return in.send(ctx, result, nil)

		default:
			return e.coalesce(ctx, in, data, chatbot.CooccurredMessage{
				ID:   m.Id,
				Type: chatbot.MessageTypeText,
				Text: text,
			})
		}

	case webhook.ImageMessageContent:
		return e.coalesce(ctx, in, data, chatbot.CooccurredMessage{ID: m.Id, Type: chatbot.MessageTypeImage})
	case webhook.VideoMessageContent:
		return e.coalesce(ctx, in, data, chatbot.CooccurredMessage{ID: m.Id, Type: chatbot.MessageTypeVideo})
	case webhook.AudioMessageContent:
		return e.coalesce(ctx, in, data, chatbot.CooccurredMessage{ID: m.Id, Type: chatbot.MessageTypeAudio})

	default:
		// Stickers, locations and friends. Noted, not answered.
		e.analytics.Send(ctx, analytics.Event{
			UserID:   in.userID,
			Category: analytics.CategoryMessage,
			Action:   analytics.ActionMessageReceived,
			Label:    "unsupported",
		})
		in.cancel()
		return nil
	}
}

// handleReset wipes the user's stored context and batch queue, silently.
func (e *Engine) handleReset(ctx context.Context, in *interaction) error {
	defer in.cancel()

	if err := e.sessions.Delete(ctx, in.userID); err != nil {
		return err
	}
	if err := e.batches.DeleteBatch(ctx, in.userID); err != nil {
		return err
	}
	e.log.WithUserID(in.userID).Info("Context reset")
	return nil
}

// eventSource extracts the one-on-one user ID and reply token of an event.
// Group and room events yield no user ID and are dropped by the caller.
func eventSource(event webhook.EventInterface) (userID, replyToken string) {
	var source webhook.SourceInterface

	switch e := event.(type) {
	case webhook.MessageEvent:
		source, replyToken = e.Source, e.ReplyToken
	case webhook.PostbackEvent:
		source, replyToken = e.Source, e.ReplyToken
	case webhook.FollowEvent:
		source, replyToken = e.Source, e.ReplyToken
	case webhook.UnfollowEvent:
		source = e.Source
	default:
		return "", ""
	}

	if user, ok := source.(webhook.UserSource); ok {
		return user.UserId, replyToken
	}
	return "", ""
}

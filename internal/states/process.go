package states

import (
	"context"

	"github.com/factcheck-tw/rumorbot/internal/analytics"
	"github.com/factcheck-tw/rumorbot/internal/chatbot"
	"github.com/factcheck-tw/rumorbot/internal/lineutil"
	"github.com/factcheck-tw/rumorbot/internal/session"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// ProcessBatch handles a finalized batch of more than one co-occurred
// message. Searching several messages at once is ambiguous, so the user is
// asked to pick one; picking re-sends the text as a single message, which
// then goes through the normal single-text path.
func (h *Handlers) ProcessBatch(ctx context.Context, data *session.Context, msgs []chatbot.CooccurredMessage, userID string) (*chatbot.Result, error) {
	h.analytics.Send(ctx, analytics.Event{
		UserID:   userID,
		Category: analytics.CategoryMessage,
		Action:   analytics.ActionMessageReceived,
		Label:    "batch",
		Value:    len(msgs),
	})

	var columns []lineutil.CarouselColumn
	mediaCount := 0
	for _, m := range msgs {
		if m.Type != chatbot.MessageTypeText {
			mediaCount++
			continue
		}
		columns = append(columns, lineutil.CarouselColumn{
			Text: m.Text,
			Actions: []lineutil.Action{
				lineutil.NewMessageAction("查這一則", m.Text),
			},
		})
	}

	if len(columns) == 0 {
		// Media only. Same answer as a single media message.
		return h.ProcessMedia(ctx, data, nil, userID)
	}

	replies := []messaging_api.MessageInterface{
		lineutil.NewTextMessage("您一次傳了多則訊息,我一次只能查一則。請選擇要查證的訊息:"),
		lineutil.NewCarouselTemplate("請選擇要查證的訊息", columns),
	}
	if mediaCount > 0 {
		replies = append(replies,
			lineutil.NewTextMessage("圖片或影音訊息目前還無法查證,已經先略過囉。"))
	}
	return &chatbot.Result{Context: data, Replies: replies}, nil
}

// ProcessMedia handles a batch that finalized on a single image, video or
// audio message. Media lookup is not supported; the user is told how to
// proceed instead of being left without a reply.
func (h *Handlers) ProcessMedia(ctx context.Context, data *session.Context, msg *chatbot.CooccurredMessage, userID string) (*chatbot.Result, error) {
	label := "media"
	if msg != nil {
		label = string(msg.Type)
	}
	h.analytics.Send(ctx, analytics.Event{
		UserID:   userID,
		Category: analytics.CategoryMessage,
		Action:   analytics.ActionMessageReceived,
		Label:    label,
	})

	return &chatbot.Result{
		Context: data,
		Replies: []messaging_api.MessageInterface{
			lineutil.NewTextMessage("我目前只能查證文字訊息。如果訊息中有文字內容,請把文字複製後傳給我。"),
		},
	}, nil
}

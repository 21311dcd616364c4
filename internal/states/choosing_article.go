package states

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/factcheck-tw/rumorbot/internal/analytics"
	"github.com/factcheck-tw/rumorbot/internal/chatbot"
	"github.com/factcheck-tw/rumorbot/internal/errors"
	"github.com/factcheck-tw/rumorbot/internal/lineutil"
	"github.com/factcheck-tw/rumorbot/internal/session"
	"github.com/factcheck-tw/rumorbot/internal/storage"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// handleChoosingArticle resolves the article the user picked from the search
// carousel and renders its replies. The "none of these" choice drops into the
// submission flow instead.
func (h *Handlers) handleChoosingArticle(ctx context.Context, data *session.Context, input json.RawMessage, userID string) (*chatbot.Result, error) {
	articleID, err := decodeStringInput(input)
	if err != nil {
		return nil, err
	}
	if articleID == "" {
		return nil, errors.NewManipulationError("請點選訊息下方的按鈕選擇訊息。")
	}

	if articleID == notFoundInput {
		h.analytics.Send(ctx, analytics.Event{
			UserID:   userID,
			Category: analytics.CategoryArticle,
			Action:   analytics.ActionNoArticleFound,
		})
		source, err := h.askSourceMessages(data.SessionID)
		if err != nil {
			return nil, err
		}
		return &chatbot.Result{Context: data, Replies: source}, nil
	}

	article, err := h.store.GetArticle(ctx, articleID)
	if stderrors.Is(err, errors.ErrArticleNotFound) {
		return nil, errors.NewManipulationError("選擇的訊息已經不在資料庫中,請重新傳送要查證的訊息。")
	}
	if err != nil {
		return nil, fmt.Errorf("load article %s: %w", articleID, err)
	}

	data.SelectedArticleID = article.ID
	h.analytics.Send(ctx, analytics.Event{
		UserID:   userID,
		Category: analytics.CategoryArticle,
		Action:   analytics.ActionSelected,
		Label:    article.ID,
	})

	replies, err := h.store.GetArticleReplies(ctx, article.ID)
	if err != nil {
		return nil, fmt.Errorf("load replies for %s: %w", article.ID, err)
	}

	if len(replies) == 0 {
		consent, err := h.askConsentMessages(data.SessionID)
		if err != nil {
			return nil, err
		}
		out := append([]messaging_api.MessageInterface{
			lineutil.NewTextMessage("目前還沒有人查證過這則訊息。"),
		}, consent...)
		return &chatbot.Result{Context: data, Replies: out}, nil
	}

	if len(replies) == 1 {
		return &chatbot.Result{Context: data, Replies: h.renderReply(article, &replies[0])}, nil
	}

	columns := make([]lineutil.CarouselColumn, 0, len(replies))
	for _, r := range replies {
		postback, err := chatbot.EncodePostback(chatbot.StateChoosingReply, data.SessionID, r.ID)
		if err != nil {
			return nil, fmt.Errorf("encode reply choice: %w", err)
		}
		columns = append(columns, lineutil.CarouselColumn{
			Title: replyTypeLabel(r.Type),
			Text:  r.Text,
			Actions: []lineutil.Action{
				lineutil.NewPostbackAction("看這則回應", postback, "我要看這則回應"),
			},
		})
	}

	out := []messaging_api.MessageInterface{
		lineutil.NewTextMessage(fmt.Sprintf("這則訊息有 %d 則查證回應,請選擇要閱讀的一則:", len(replies))),
		lineutil.NewCarouselTemplate("請選擇要閱讀的回應", columns),
	}
	return &chatbot.Result{Context: data, Replies: out}, nil
}

// replyTypeLabel maps a reply type to its user-facing label.
func replyTypeLabel(t storage.ReplyType) string {
	switch t {
	case storage.ReplyTypeRumor:
		return "❌ 含有不實訊息"
	case storage.ReplyTypeNotRumor:
		return "⭕ 含有真實訊息"
	case storage.ReplyTypeOpinionated:
		return "💬 含有個人意見"
	case storage.ReplyTypeNotArticle:
		return "⚠️ 不在查證範圍"
	default:
		return "回應"
	}
}

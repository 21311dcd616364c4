package states

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/factcheck-tw/rumorbot/internal/analytics"
	"github.com/factcheck-tw/rumorbot/internal/chatbot"
	"github.com/factcheck-tw/rumorbot/internal/lineutil"
	"github.com/factcheck-tw/rumorbot/internal/session"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// handleDefault searches the article store for the session's searched text
// and renders the candidates as a carousel. With no hits it goes straight to
// the submission flow.
func (h *Handlers) handleDefault(ctx context.Context, data *session.Context, input json.RawMessage, userID string) (*chatbot.Result, error) {
	text, err := decodeStringInput(input)
	if err != nil {
		return nil, err
	}
	if text != "" {
		data.SearchedText = text
	}

	h.analytics.Send(ctx, analytics.Event{
		UserID:   userID,
		Category: analytics.CategoryMessage,
		Action:   analytics.ActionMessageReceived,
		Value:    len(data.SearchedText),
	})

	articles, err := h.store.SearchArticles(ctx, data.SearchedText)
	if err != nil {
		return nil, fmt.Errorf("search articles: %w", err)
	}

	if len(articles) == 0 {
		h.analytics.Send(ctx, analytics.Event{
			UserID:   userID,
			Category: analytics.CategoryArticle,
			Action:   analytics.ActionNoArticleFound,
		})

		consent, err := h.askConsentMessages(data.SessionID)
		if err != nil {
			return nil, err
		}
		replies := append([]messaging_api.MessageInterface{
			lineutil.NewTextMessage("資料庫裡還沒有這則訊息的查證紀錄。"),
		}, consent...)
		return &chatbot.Result{Context: data, Replies: replies}, nil
	}

	columns := make([]lineutil.CarouselColumn, 0, len(articles))
	for _, a := range articles {
		postback, err := chatbot.EncodePostback(chatbot.StateChoosingArticle, data.SessionID, a.ID)
		if err != nil {
			return nil, fmt.Errorf("encode article choice: %w", err)
		}
		columns = append(columns, lineutil.CarouselColumn{
			Text: a.Text,
			Actions: []lineutil.Action{
				lineutil.NewPostbackAction("選擇此訊息", postback, "我要查這一則"),
			},
		})
	}

	notFound, err := chatbot.EncodePostback(chatbot.StateChoosingArticle, data.SessionID, notFoundInput)
	if err != nil {
		return nil, fmt.Errorf("encode not-found choice: %w", err)
	}

	replies := []messaging_api.MessageInterface{
		lineutil.NewTextMessage("資料庫裡有幾則相似的訊息,請選擇與您收到的最相近的一則:"),
		lineutil.NewCarouselTemplate("請選擇相符的訊息", columns),
		lineutil.NewButtonsTemplate(
			"找不到相符的訊息?", "",
			"如果上面沒有相符的訊息:",
			[]lineutil.Action{
				lineutil.NewPostbackAction("這裡沒有我要查的", notFound, "這裡沒有我要查的"),
			},
		),
	}
	return &chatbot.Result{Context: data, Replies: replies}, nil
}

package states

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/factcheck-tw/rumorbot/internal/analytics"
	"github.com/factcheck-tw/rumorbot/internal/chatbot"
	"github.com/factcheck-tw/rumorbot/internal/errors"
	"github.com/factcheck-tw/rumorbot/internal/lineutil"
	"github.com/factcheck-tw/rumorbot/internal/session"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// handleAskingArticleSource records where the user saw the message, then asks
// for submission consent.
func (h *Handlers) handleAskingArticleSource(ctx context.Context, data *session.Context, input json.RawMessage, userID string) (*chatbot.Result, error) {
	source, err := decodeStringInput(input)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(articleSourceOptions, source) {
		return nil, errors.NewManipulationError("請點選按鈕選擇訊息來源。")
	}

	data.ArticleSource = source
	h.analytics.Send(ctx, analytics.Event{
		UserID:   userID,
		Category: analytics.CategoryArticle,
		Action:   analytics.ActionSubmitted,
		Label:    source,
	})

	consent, err := h.askConsentMessages(data.SessionID)
	if err != nil {
		return nil, err
	}
	replies := append([]messaging_api.MessageInterface{
		lineutil.NewTextMessage("了解!"),
	}, consent...)
	return &chatbot.Result{Context: data, Replies: replies}, nil
}

// handleSubmissionConsent records the submission when the user agrees.
func (h *Handlers) handleSubmissionConsent(ctx context.Context, data *session.Context, input json.RawMessage, userID string) (*chatbot.Result, error) {
	answer, err := decodeStringInput(input)
	if err != nil {
		return nil, err
	}

	switch answer {
	case consentYes:
		if data.SearchedText == "" {
			return nil, errors.NewManipulationError("找不到要送出的訊息,請重新傳送要查證的訊息。")
		}
		if err := h.store.CreateSubmission(ctx, userID, data.SearchedText, data.ArticleSource); err != nil {
			return nil, fmt.Errorf("record submission: %w", err)
		}
		h.analytics.Send(ctx, analytics.Event{
			UserID:   userID,
			Category: analytics.CategoryArticle,
			Action:   analytics.ActionSubmitted,
			Label:    "consented",
		})
		return &chatbot.Result{
			Context: data,
			Replies: []messaging_api.MessageInterface{
				lineutil.NewTextMessage("已經把訊息送進公開資料庫了,謝謝您的回報!查核編輯查證之後,這裡就能查到結果。"),
			},
		}, nil

	case consentNo:
		return &chatbot.Result{
			Context: data,
			Replies: []messaging_api.MessageInterface{
				lineutil.NewTextMessage("沒問題,若您日後改變心意,歡迎再把訊息傳給我。"),
			},
		}, nil

	default:
		return nil, errors.NewManipulationError("請點選按鈕回答是否送出訊息。")
	}
}

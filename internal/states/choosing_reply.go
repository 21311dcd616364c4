package states

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/factcheck-tw/rumorbot/internal/chatbot"
	"github.com/factcheck-tw/rumorbot/internal/errors"
	"github.com/factcheck-tw/rumorbot/internal/lineutil"
	"github.com/factcheck-tw/rumorbot/internal/session"
	"github.com/factcheck-tw/rumorbot/internal/storage"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// handleChoosingReply renders the reply the user picked from the reply list.
func (h *Handlers) handleChoosingReply(ctx context.Context, data *session.Context, input json.RawMessage, userID string) (*chatbot.Result, error) {
	replyID, err := decodeStringInput(input)
	if err != nil {
		return nil, err
	}
	if replyID == "" {
		return nil, errors.NewManipulationError("請點選回應下方的按鈕選擇回應。")
	}

	reply, err := h.store.GetReply(ctx, replyID)
	if stderrors.Is(err, errors.ErrReplyNotFound) {
		return nil, errors.NewManipulationError("選擇的回應已經不存在,請重新傳送要查證的訊息。")
	}
	if err != nil {
		return nil, fmt.Errorf("load reply %s: %w", replyID, err)
	}

	// The buttons the user pressed were minted for the selected article;
	// a reply belonging to another article means a tampered payload.
	if data.SelectedArticleID != "" && reply.ArticleID != data.SelectedArticleID {
		return nil, errors.NewManipulationError("這則回應不屬於您選擇的訊息,請重新選擇。")
	}

	article, err := h.store.GetArticle(ctx, reply.ArticleID)
	if err != nil {
		return nil, fmt.Errorf("load article %s: %w", reply.ArticleID, err)
	}

	return &chatbot.Result{Context: data, Replies: h.renderReply(article, reply)}, nil
}

// renderReply builds the messages presenting one reply: verdict, reply text,
// reference, and a link to the article page.
func (h *Handlers) renderReply(article *storage.Article, reply *storage.ArticleReply) []messaging_api.MessageInterface {
	var b strings.Builder
	b.WriteString("網路上有人這樣回應這則訊息:\n")
	b.WriteString(replyTypeLabel(reply.Type))
	b.WriteString("\n\n")
	b.WriteString(reply.Text)
	if reply.Reference != "" {
		b.WriteString("\n\n出處:\n")
		b.WriteString(reply.Reference)
	}

	url := h.articleURL(article.ID)
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessage(b.String()),
		lineutil.NewButtonsTemplate(
			"查看完整查證內容", "",
			"以上查證內容僅供參考,歡迎到網站上查看完整的回應與討論。",
			[]lineutil.Action{
				lineutil.NewURIAction("查看完整內容", url),
			},
		),
	}
}

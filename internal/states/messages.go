package states

import (
	"fmt"

	"github.com/factcheck-tw/rumorbot/internal/chatbot"
	"github.com/factcheck-tw/rumorbot/internal/lineutil"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// notFoundInput marks the "none of these" choice in the article carousel.
const notFoundInput = "n/a"

// Consent answers for the submission question.
const (
	consentYes = "y"
	consentNo  = "n"
)

// articleSourceOptions are the accepted answers to the source question, in
// button order.
var articleSourceOptions = []string{
	"親友傳給我的",
	"群組轉傳的",
	"網路上看到的",
	"其他",
}

// askSourceMessages asks where the searched message came from. The buttons
// post back into ASKING_ARTICLE_SOURCE under the current session.
func (h *Handlers) askSourceMessages(sessionID int64) ([]messaging_api.MessageInterface, error) {
	actions := make([]lineutil.Action, 0, len(articleSourceOptions))
	for _, opt := range articleSourceOptions {
		data, err := chatbot.EncodePostback(chatbot.StateAskingArticleSource, sessionID, opt)
		if err != nil {
			return nil, fmt.Errorf("encode source option: %w", err)
		}
		actions = append(actions, lineutil.NewPostbackAction(opt, data, opt))
	}

	question := "請問這則訊息是從哪裡看到的呢?"
	return []messaging_api.MessageInterface{
		lineutil.NewButtonsTemplate(question, "", question, actions),
	}, nil
}

// askConsentMessages asks whether the searched text may be submitted to the
// open database for fact checkers to look at.
func (h *Handlers) askConsentMessages(sessionID int64) ([]messaging_api.MessageInterface, error) {
	yes, err := chatbot.EncodePostback(chatbot.StateAskingArticleSubmissionConsent, sessionID, consentYes)
	if err != nil {
		return nil, fmt.Errorf("encode consent option: %w", err)
	}
	no, err := chatbot.EncodePostback(chatbot.StateAskingArticleSubmissionConsent, sessionID, consentNo)
	if err != nil {
		return nil, fmt.Errorf("encode consent option: %w", err)
	}

	question := "要把這則訊息送進公開資料庫,讓查核編輯來查證嗎?"
	return []messaging_api.MessageInterface{
		lineutil.NewButtonsTemplate(question, "", question, []lineutil.Action{
			lineutil.NewPostbackAction("好,送出", yes, "好,送出"),
			lineutil.NewPostbackAction("先不要", no, "先不要"),
		}),
	}, nil
}

// articleURL builds the public page URL for an article.
func (h *Handlers) articleURL(articleID string) string {
	return fmt.Sprintf("%s/article/%s", h.siteURL, articleID)
}

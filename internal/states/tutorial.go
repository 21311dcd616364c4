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

// TutorialTrigger is the rich-menu text that starts the tutorial.
const TutorialTrigger = "📖 使用教學"

// Tutorial step keys carried in the postback input.
const (
	tutorialStepIntro   = ""
	tutorialStepForward = "forward"
	tutorialStepDone    = "done"
)

// handleTutorial walks the fixed tutorial step progression. The empty input
// is the entry step, so the rich-menu trigger and the follow greeting both
// start from the top.
func (h *Handlers) handleTutorial(ctx context.Context, data *session.Context, input json.RawMessage, userID string) (*chatbot.Result, error) {
	step, err := decodeStringInput(input)
	if err != nil {
		return nil, err
	}

	h.analytics.Send(ctx, analytics.Event{
		UserID:   userID,
		Category: analytics.CategoryUser,
		Action:   "TutorialStep",
		Label:    step,
	})

	switch step {
	case tutorialStepIntro:
		next, err := chatbot.EncodePostback(chatbot.StateTutorial, data.SessionID, tutorialStepForward)
		if err != nil {
			return nil, fmt.Errorf("encode tutorial step: %w", err)
		}
		return &chatbot.Result{
			Context: data,
			Replies: []messaging_api.MessageInterface{
				lineutil.NewTextMessage("我是查證小幫手!只要把可疑的訊息傳給我,我就會幫您找出網路上的查證回應。"),
				lineutil.NewButtonsTemplate(
					"使用教學", "",
					"想知道怎麼把訊息傳給我嗎?",
					[]lineutil.Action{
						lineutil.NewPostbackAction("下一步", next, "下一步"),
					},
				),
			},
		}, nil

	case tutorialStepForward:
		done, err := chatbot.EncodePostback(chatbot.StateTutorial, data.SessionID, tutorialStepDone)
		if err != nil {
			return nil, fmt.Errorf("encode tutorial step: %w", err)
		}
		return &chatbot.Result{
			Context: data,
			Replies: []messaging_api.MessageInterface{
				lineutil.NewTextMessage("在聊天室長按可疑訊息,點「轉傳」,再選擇我,就能把訊息傳過來囉。"),
				lineutil.NewButtonsTemplate(
					"使用教學", "",
					"準備好了嗎?",
					[]lineutil.Action{
						lineutil.NewPostbackAction("我知道了", done, "我知道了"),
					},
				),
			},
		}, nil

	case tutorialStepDone:
		return &chatbot.Result{
			Context: data,
			Replies: []messaging_api.MessageInterface{
				lineutil.NewTextMessage("太好了!現在就把想查證的訊息傳給我試試看吧。"),
			},
		}, nil

	default:
		// Old tutorial buttons may carry retired step names. Restart.
		return h.handleTutorial(ctx, data, nil, userID)
	}
}

// GreetingMessages builds the follow-event greeting: a welcome line plus the
// first tutorial step minted under the given session.
func GreetingMessages(sessionID int64) ([]messaging_api.MessageInterface, error) {
	next, err := chatbot.EncodePostback(chatbot.StateTutorial, sessionID, tutorialStepForward)
	if err != nil {
		return nil, fmt.Errorf("encode tutorial step: %w", err)
	}
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessage("謝謝您加我好友!我是查證小幫手,把可疑的訊息傳給我,我會幫您查證。"),
		lineutil.NewButtonsTemplate(
			"使用教學", "",
			"第一次使用嗎?來看看怎麼操作:",
			[]lineutil.Action{
				lineutil.NewPostbackAction("開始教學", next, "開始教學"),
			},
		),
	}, nil
}

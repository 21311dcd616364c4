// Package chatbot defines the conversation-state machine shared by the
// engine and the state handlers: the closed set of states, postback action
// payloads, co-occurred messages and handler results.
package chatbot

import (
	"encoding/json"
	"fmt"

	"github.com/factcheck-tw/rumorbot/internal/errors"
	"github.com/factcheck-tw/rumorbot/internal/session"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// State names a conversation state. The set is closed; unrecognized names
// fall back to StateDefault when dispatching (a stale rich menu may still
// carry retired state names, so this is not an error).
type State string

// Known conversation states.
const (
	StateDefault                        State = "DEFAULT"
	StateTutorial                       State = "TUTORIAL"
	StateChoosingArticle                State = "CHOOSING_ARTICLE"
	StateChoosingReply                  State = "CHOOSING_REPLY"
	StateAskingArticleSource            State = "ASKING_ARTICLE_SOURCE"
	StateAskingArticleSubmissionConsent State = "ASKING_ARTICLE_SUBMISSION_CONSENT"
)

// MessageType classifies a co-occurred message.
type MessageType string

// Message types accepted into a batch.
const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeAudio MessageType = "audio"
)

// CooccurredMessage is one inbound unit of user input. It is immutable once
// created and lives only inside the batch queue.
type CooccurredMessage struct {
	ID   string      `json:"id"`
	Type MessageType `json:"type"`
	Text string      `json:"text,omitempty"`
}

// PostbackAction is the decoded payload of a button press: the state to
// resume, the session the button was minted under, and state-specific input.
type PostbackAction struct {
	State     State           `json:"state"`
	SessionID int64           `json:"sessionId"`
	Input     json.RawMessage `json:"input,omitempty"`
}

// ParsePostback decodes the opaque postback data string.
func ParsePostback(data string) (*PostbackAction, error) {
	var pb PostbackAction
	if err := json.Unmarshal([]byte(data), &pb); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPostback, err)
	}
	return &pb, nil
}

// EncodePostback builds the postback data string embedded into buttons.
func EncodePostback(state State, sessionID int64, input any) (string, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("encode postback input: %w", err)
	}
	data, err := json.Marshal(PostbackAction{State: state, SessionID: sessionID, Input: raw})
	if err != nil {
		return "", fmt.Errorf("encode postback: %w", err)
	}
	return string(data), nil
}

// Result is the output of a state handler or batch processor: the updated
// context plus the ordered replies to send.
type Result struct {
	Context *session.Context
	Replies []messaging_api.MessageInterface
}

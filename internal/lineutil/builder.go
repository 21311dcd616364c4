// Package lineutil provides utility functions for building LINE messages and actions.
package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Action is an alias for the LINE SDK action interface for convenience.
type Action = messaging_api.ActionInterface

// CarouselColumn represents a column in a carousel template.
type CarouselColumn struct {
	Title   string
	Text    string
	Actions []Action
}

// NewTextMessage creates a simple text message.
// LINE API limits: max 5000 characters per text message
func NewTextMessage(text string) *messaging_api.TextMessage {
	// Validate and truncate if necessary (LINE API limit: 5000 chars)
	if len(text) > 5000 {
		text = TruncateRunes(text, 4997) + "..."
	}

	return &messaging_api.TextMessage{
		Text: text,
	}
}

// NewPostbackAction creates a postback action with a display text shown in
// the chat when the button is pressed.
func NewPostbackAction(label, data, displayText string) *messaging_api.PostbackAction {
	return &messaging_api.PostbackAction{
		Label:       label,
		Data:        data,
		DisplayText: displayText,
	}
}

// NewMessageAction creates an action that sends the given text as the user.
func NewMessageAction(label, text string) *messaging_api.MessageAction {
	return &messaging_api.MessageAction{
		Label: label,
		Text:  text,
	}
}

// NewURIAction creates an action opening the given URI.
func NewURIAction(label, uri string) *messaging_api.UriAction {
	return &messaging_api.UriAction{
		Label: label,
		Uri:   uri,
	}
}

// NewButtonsTemplate creates a buttons template message.
// LINE API limits: max 4 actions, text max 160 chars
func NewButtonsTemplate(altText, title, text string, actions []Action) messaging_api.MessageInterface {
	// Validate action count (LINE API limit: max 4 actions)
	if len(actions) > 4 {
		actions = actions[:4]
	}
	if len(text) > 160 {
		text = TruncateRunes(text, 157) + "..."
	}
	if len(title) > 40 {
		title = TruncateRunes(title, 37) + "..."
	}
	if len(altText) > 400 {
		altText = TruncateRunes(altText, 397) + "..."
	}

	template := &messaging_api.ButtonsTemplate{
		Text:    text,
		Actions: actions,
	}
	if title != "" {
		template.Title = title
	}

	return &messaging_api.TemplateMessage{
		AltText:  altText,
		Template: template,
	}
}

// NewCarouselTemplate creates a carousel template message with multiple columns.
// LINE API limits: max 10 columns, each with max 3 actions; all columns must
// carry the same number of actions.
func NewCarouselTemplate(altText string, columns []CarouselColumn) messaging_api.MessageInterface {
	if len(columns) > 10 {
		columns = columns[:10]
	}
	if len(altText) > 400 {
		altText = TruncateRunes(altText, 397) + "..."
	}

	templateColumns := make([]messaging_api.CarouselColumn, len(columns))
	for i, col := range columns {
		text := col.Text
		if len(text) > 120 {
			text = TruncateRunes(text, 117) + "..."
		}
		column := messaging_api.CarouselColumn{
			Text:    text,
			Actions: col.Actions,
		}
		if col.Title != "" {
			column.Title = col.Title
		}
		templateColumns[i] = column
	}

	return &messaging_api.TemplateMessage{
		AltText: altText,
		Template: &messaging_api.CarouselTemplate{
			Columns: templateColumns,
		},
	}
}

// TruncateRunes truncates s to at most n bytes without splitting a rune.
func TruncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

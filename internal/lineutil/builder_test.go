package lineutil

import (
	"strings"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextMessage(t *testing.T) {
	t.Parallel()

	msg := NewTextMessage("你好")
	assert.Equal(t, "你好", msg.Text)
}

func TestNewTextMessage_Truncates(t *testing.T) {
	t.Parallel()

	msg := NewTextMessage(strings.Repeat("a", 6000))
	assert.LessOrEqual(t, len(msg.Text), 5000)
	assert.True(t, strings.HasSuffix(msg.Text, "..."))
}

func TestTruncateRunes_DoesNotSplitRune(t *testing.T) {
	t.Parallel()

	s := "謠言查證" // 3 bytes per rune
	got := TruncateRunes(s, 4)
	assert.Equal(t, "謠", got)
}

func TestNewButtonsTemplate_LimitsActions(t *testing.T) {
	t.Parallel()

	actions := []Action{
		NewMessageAction("1", "1"),
		NewMessageAction("2", "2"),
		NewMessageAction("3", "3"),
		NewMessageAction("4", "4"),
		NewMessageAction("5", "5"),
	}
	msg := NewButtonsTemplate("alt", "title", "text", actions)

	tmpl, ok := msg.(*messaging_api.TemplateMessage)
	require.True(t, ok)
	buttons, ok := tmpl.Template.(*messaging_api.ButtonsTemplate)
	require.True(t, ok)
	assert.Len(t, buttons.Actions, 4)
}

func TestNewCarouselTemplate_LimitsColumns(t *testing.T) {
	t.Parallel()

	columns := make([]CarouselColumn, 12)
	for i := range columns {
		columns[i] = CarouselColumn{
			Text:    "候選訊息",
			Actions: []Action{NewMessageAction("選", "選")},
		}
	}
	msg := NewCarouselTemplate("alt", columns)

	tmpl, ok := msg.(*messaging_api.TemplateMessage)
	require.True(t, ok)
	carousel, ok := tmpl.Template.(*messaging_api.CarouselTemplate)
	require.True(t, ok)
	assert.Len(t, carousel.Columns, 10)
}

func TestNewWarningBubble(t *testing.T) {
	t.Parallel()

	msg := NewWarningBubble("該訊息已經被選擇過了")
	assert.Equal(t, "該訊息已經被選擇過了", msg.AltText)

	bubble, ok := msg.Contents.(*messaging_api.FlexBubble)
	require.True(t, ok)
	require.NotNil(t, bubble.Header)
	require.NotNil(t, bubble.Body)

	headerText, ok := bubble.Header.Contents[0].(*messaging_api.FlexText)
	require.True(t, ok)
	assert.Equal(t, ColorWarning, headerText.Color)

	bodyText, ok := bubble.Body.Contents[0].(*messaging_api.FlexText)
	require.True(t, ok)
	assert.Equal(t, "該訊息已經被選擇過了", bodyText.Text)
	assert.True(t, bodyText.Wrap)
}

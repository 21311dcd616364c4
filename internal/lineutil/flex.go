package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Colors used in flex messages.
const (
	ColorWarning = "#FFB600"
)

// NewFlexMessage creates a flex message with the given alt text and contents.
func NewFlexMessage(altText string, contents messaging_api.FlexContainerInterface) *messaging_api.FlexMessage {
	if len(altText) > 400 {
		altText = TruncateRunes(altText, 397) + "..."
	}
	return &messaging_api.FlexMessage{
		AltText:  altText,
		Contents: contents,
	}
}

// NewWarningBubble builds the standard warning card shown when a user action
// cannot be applied (e.g. a button pressed with parameters that no longer
// make sense). The body carries the user-facing message.
//
// Layout:
//
//	┌──────────────────────────┐
//	│ ⚠️ 使用方式錯誤          │  <- bold amber header
//	├──────────────────────────┤
//	│ <message, wrapped>       │
//	└──────────────────────────┘
func NewWarningBubble(text string) *messaging_api.FlexMessage {
	bubble := &messaging_api.FlexBubble{
		Header: &messaging_api.FlexBox{
			Layout: messaging_api.FlexBoxLAYOUT_VERTICAL,
			Contents: []messaging_api.FlexComponentInterface{
				&messaging_api.FlexText{
					Text:   "⚠️ 使用方式錯誤",
					Color:  ColorWarning,
					Weight: "bold",
				},
			},
		},
		Body: &messaging_api.FlexBox{
			Layout: messaging_api.FlexBoxLAYOUT_VERTICAL,
			Contents: []messaging_api.FlexComponentInterface{
				&messaging_api.FlexText{
					Text: text,
					Wrap: true,
				},
			},
		},
		Styles: &messaging_api.FlexBubbleStyles{
			Body: &messaging_api.FlexBlockStyle{
				Separator: true,
			},
		},
	}

	return NewFlexMessage(text, bubble)
}

package lineutil

import (
	"context"
	"fmt"

	"github.com/factcheck-tw/rumorbot/internal/logger"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// maxMessagesPerReply is the LINE API ceiling for one reply call.
const maxMessagesPerReply = 5

// Client wraps the LINE Messaging API for reply delivery.
type Client struct {
	api *messaging_api.MessagingApiAPI
	log *logger.Logger
}

// NewClient creates a reply client for the given channel access token.
func NewClient(channelToken string, log *logger.Logger) (*Client, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return &Client{api: api, log: log.WithModule("line")}, nil
}

// Reply delivers messages for a reply token. Messages beyond the API limit
// are dropped with a log line rather than failing the whole delivery.
func (c *Client) Reply(_ context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	if len(messages) == 0 {
		return nil
	}
	if len(messages) > maxMessagesPerReply {
		c.log.WithField("count", len(messages)).
			Warn("Too many reply messages; truncating to API limit")
		messages = messages[:maxMessagesPerReply]
	}

	if _, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	}); err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}

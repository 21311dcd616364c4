// Package webhook receives LINE webhook callbacks, validates their
// signature, and feeds each event into the engine on its own goroutine. The
// HTTP response returns immediately; all real work happens asynchronously.
package webhook

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/factcheck-tw/rumorbot/internal/engine"
	"github.com/factcheck-tw/rumorbot/internal/logger"
	"github.com/factcheck-tw/rumorbot/internal/metrics"
	"github.com/factcheck-tw/rumorbot/internal/sentry"
	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// maxEventsPerWebhook caps one callback body, mirroring the LINE API spec.
const maxEventsPerWebhook = 100

// Handler is the gin handler for the LINE webhook endpoint.
type Handler struct {
	channelSecret string
	engine        *engine.Engine
	metrics       *metrics.Metrics
	log           *logger.Logger
	wg            sync.WaitGroup
}

// NewHandler creates a webhook handler dispatching into the given engine.
func NewHandler(channelSecret string, eng *engine.Engine, m *metrics.Metrics, log *logger.Logger) *Handler {
	return &Handler{
		channelSecret: channelSecret,
		engine:        eng,
		metrics:       m,
		log:           log.WithModule("webhook"),
	}
}

// Handle parses and acknowledges one webhook callback. Every event is
// processed on its own goroutine because message events deliberately block
// for the batch window; serializing them would break coalescing.
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.log.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.log.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// LINE requires an immediate 200; retries come as redeliveries.
	c.Status(http.StatusOK)

	events := cb.Events
	if len(events) > maxEventsPerWebhook {
		h.log.WithField("event_count", len(events)).Warn("Oversized webhook batch; truncating")
		events = events[:maxEventsPerWebhook]
	}

	// Processing outlives this request, so events run on a detached context
	// that keeps only the request's Sentry scope.
	procCtx := sentry.DetachedContext(c.Request.Context())
	for _, event := range events {
		h.wg.Go(func() {
			h.processEvent(procCtx, event)
		})
	}
}

// processEvent runs one event through the engine with panic containment.
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface) {
	start := time.Now()
	eventType := eventTypeName(event)

	defer func() {
		if r := recover(); r != nil {
			h.log.WithField("panic", r).WithField("event_type", eventType).
				Error("Panic while processing event")
			if h.metrics != nil {
				h.metrics.RecordWebhook(eventType, "error", time.Since(start).Seconds())
			}
		}
	}()

	if err := h.engine.HandleEvent(ctx, event); err != nil {
		h.log.WithError(err).WithField("event_type", eventType).
			Error("Event processing failed")
		sentry.CaptureException(ctx, err)
		if h.metrics != nil {
			h.metrics.RecordWebhook(eventType, "error", time.Since(start).Seconds())
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordWebhook(eventType, "success", time.Since(start).Seconds())
	}
}

// Shutdown waits for in-flight event processing to finish or the context to
// expire.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func eventTypeName(event webhook.EventInterface) string {
	switch event.(type) {
	case webhook.MessageEvent:
		return "message"
	case webhook.PostbackEvent:
		return "postback"
	case webhook.FollowEvent:
		return "follow"
	case webhook.UnfollowEvent:
		return "unfollow"
	default:
		return "other"
	}
}

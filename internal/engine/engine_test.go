package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factcheck-tw/rumorbot/internal/chatbot"
	"github.com/factcheck-tw/rumorbot/internal/lineutil"
	"github.com/factcheck-tw/rumorbot/internal/logger"
	"github.com/factcheck-tw/rumorbot/internal/session"
	"github.com/factcheck-tw/rumorbot/internal/storage"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// fakeReplier records every delivery.
type fakeReplier struct {
	mu    sync.Mutex
	calls []replyCall
}

type replyCall struct {
	token    string
	messages []messaging_api.MessageInterface
}

func (f *fakeReplier) Reply(_ context.Context, token string, msgs []messaging_api.MessageInterface) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, replyCall{token: token, messages: msgs})
	return nil
}

func (f *fakeReplier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeReplier) last() replyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// fakeDispatcher returns a canned result, optionally after a delay.
type fakeDispatcher struct {
	mu    sync.Mutex
	delay time.Duration
	calls []*chatbot.PostbackAction
	fn    func(data *session.Context, pb *chatbot.PostbackAction) (*chatbot.Result, error)
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, data *session.Context, pb *chatbot.PostbackAction, _ string) (*chatbot.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, pb)
	delay := f.delay
	fn := f.fn
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if fn != nil {
		return fn(data, pb)
	}
	return &chatbot.Result{
		Context: data,
		Replies: []messaging_api.MessageInterface{lineutil.NewTextMessage("handled")},
	}, nil
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeProcessor answers batches with a fixed message.
type fakeProcessor struct {
	mu      sync.Mutex
	batches [][]chatbot.CooccurredMessage
	media   []*chatbot.CooccurredMessage
}

func (f *fakeProcessor) ProcessBatch(_ context.Context, data *session.Context, msgs []chatbot.CooccurredMessage, _ string) (*chatbot.Result, error) {
	f.mu.Lock()
	f.batches = append(f.batches, msgs)
	f.mu.Unlock()
	return &chatbot.Result{
		Context: data,
		Replies: []messaging_api.MessageInterface{lineutil.NewTextMessage("batch")},
	}, nil
}

func (f *fakeProcessor) ProcessMedia(_ context.Context, data *session.Context, msg *chatbot.CooccurredMessage, _ string) (*chatbot.Result, error) {
	f.mu.Lock()
	f.media = append(f.media, msg)
	f.mu.Unlock()
	return &chatbot.Result{
		Context: data,
		Replies: []messaging_api.MessageInterface{lineutil.NewTextMessage("media")},
	}, nil
}

type testEngine struct {
	engine     *Engine
	db         *storage.DB
	sessions   *session.Manager
	replier    *fakeReplier
	dispatcher *fakeDispatcher
	processor  *fakeProcessor
}

func newTestEngine(t *testing.T, cfg Config) *testEngine {
	t.Helper()

	db := storage.NewTestDB(t)
	sessions := session.NewManager(db)
	replier := &fakeReplier{}
	dispatcher := &fakeDispatcher{}
	processor := &fakeProcessor{}

	if cfg.ReplyTimeout == 0 {
		cfg.ReplyTimeout = 500 * time.Millisecond
	}
	if cfg.BatchWindow == 0 {
		cfg.BatchWindow = 30 * time.Millisecond
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = "https://cofacts.tw"
	}

	e := New(cfg, Deps{
		Sessions:   sessions,
		Batches:    db,
		Replier:    replier,
		Dispatcher: dispatcher,
		Processor:  processor,
		Settings:   db,
		Logger:     logger.NewWithWriter("error", io.Discard),
	})

	return &testEngine{
		engine:     e,
		db:         db,
		sessions:   sessions,
		replier:    replier,
		dispatcher: dispatcher,
		processor:  processor,
	}
}

func textEvent(userID, msgID, text string) webhook.MessageEvent {
	return webhook.MessageEvent{
		ReplyToken: "token-" + msgID,
		Source:     webhook.UserSource{UserId: userID},
		Message:    webhook.TextMessageContent{Id: msgID, Text: text},
	}
}

func postbackEvent(userID string, state chatbot.State, sessionID int64, input any) webhook.PostbackEvent {
	raw, _ := json.Marshal(input)
	data, _ := json.Marshal(chatbot.PostbackAction{State: state, SessionID: sessionID, Input: raw})
	return webhook.PostbackEvent{
		ReplyToken: "token-pb",
		Source:     webhook.UserSource{UserId: userID},
		Postback:   &webhook.PostbackContent{Data: string(data)},
	}
}

func TestSingleTextMessage(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, te.engine.HandleEvent(ctx, textEvent("U1", "m1", "  可疑訊息  ")))

	// Exactly one reply, dispatched to the default state under a fresh session.
	assert.Equal(t, 1, te.replier.count())
	require.Equal(t, 1, te.dispatcher.callCount())
	assert.Equal(t, chatbot.StateDefault, te.dispatcher.calls[0].State)

	// The trimmed text became the searched text of the persisted context.
	data, err := te.sessions.Load(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "可疑訊息", data.SearchedText)
	assert.Equal(t, te.dispatcher.calls[0].SessionID, data.SessionID)

	// The batch queue was consumed by the reply.
	msgs, err := te.db.AllMessages(ctx, "U1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRapidMessagesCoalesceIntoOneBatch(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{BatchWindow: 60 * time.Millisecond})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Stagger arrivals inside one batch window.
			time.Sleep(time.Duration(i) * 10 * time.Millisecond)
			ev := textEvent("U1", fmt.Sprintf("m%d", i), fmt.Sprintf("訊息 %d", i))
			assert.NoError(t, te.engine.HandleEvent(ctx, ev))
		}(i)
	}
	wg.Wait()

	// One finalization for the whole burst: one batch reply, no dispatch.
	assert.Equal(t, 1, te.replier.count())
	assert.Equal(t, 0, te.dispatcher.callCount())
	require.Len(t, te.processor.batches, 1)
	assert.Len(t, te.processor.batches[0], 3)
}

func TestSingleMediaMessageGoesToMediaProcessor(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{})
	ev := webhook.MessageEvent{
		ReplyToken: "token-img",
		Source:     webhook.UserSource{UserId: "U1"},
		Message:    webhook.ImageMessageContent{Id: "img1"},
	}

	require.NoError(t, te.engine.HandleEvent(context.Background(), ev))

	require.Len(t, te.processor.media, 1)
	assert.Equal(t, chatbot.MessageTypeImage, te.processor.media[0].Type)
	assert.Equal(t, 1, te.replier.count())
}

func TestStaleButtonGetsExpiredReply(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{})
	ctx := context.Background()

	live := &session.Context{SessionID: 100, SearchedText: "原本的訊息"}
	require.NoError(t, te.sessions.Save(ctx, "U1", live))

	ev := postbackEvent("U1", chatbot.StateChoosingArticle, 99, "a1")
	require.NoError(t, te.engine.HandleEvent(ctx, ev))

	// The expired answer went out and nothing reached the dispatcher.
	assert.Equal(t, 0, te.dispatcher.callCount())
	require.Equal(t, 1, te.replier.count())

	// Stored context is untouched.
	data, err := te.sessions.Load(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), data.SessionID)
	assert.Equal(t, "原本的訊息", data.SearchedText)
}

func TestMatchingPostbackDispatches(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, te.sessions.Save(ctx, "U1", &session.Context{SessionID: 100}))

	ev := postbackEvent("U1", chatbot.StateChoosingArticle, 100, "a1")
	require.NoError(t, te.engine.HandleEvent(ctx, ev))

	require.Equal(t, 1, te.dispatcher.callCount())
	assert.Equal(t, chatbot.StateChoosingArticle, te.dispatcher.calls[0].State)
	assert.Equal(t, 1, te.replier.count())
}

func TestMalformedPostbackIsAnError(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{})
	ev := webhook.PostbackEvent{
		ReplyToken: "token-pb",
		Source:     webhook.UserSource{UserId: "U1"},
		Postback:   &webhook.PostbackContent{Data: "{not json"},
	}

	err := te.engine.HandleEvent(context.Background(), ev)
	assert.Error(t, err)
	assert.Equal(t, 0, te.replier.count())
}

func TestSlowHandlerTriggersBusyFallback(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{ReplyTimeout: 80 * time.Millisecond, BatchWindow: 10 * time.Millisecond})
	te.dispatcher.delay = 200 * time.Millisecond
	ctx := context.Background()

	require.NoError(t, te.sessions.Save(ctx, "U1", &session.Context{SessionID: 100}))

	ev := postbackEvent("U1", chatbot.StateChoosingArticle, 100, "a1")
	require.NoError(t, te.engine.HandleEvent(ctx, ev))

	// Give the late handler completion time to (incorrectly) try replying.
	time.Sleep(50 * time.Millisecond)

	// The busy fallback is the one and only reply ever delivered.
	require.Equal(t, 1, te.replier.count())
	msgs := te.replier.last().messages
	require.Len(t, msgs, 1)
	text, ok := msgs[0].(*messaging_api.TextMessage)
	require.True(t, ok)
	assert.Equal(t, busyReplyText, text.Text)

	// The late result's context was not persisted.
	raw, err := te.db.GetContext(ctx, "U1")
	require.NoError(t, err)
	var stored session.Context
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, int64(100), stored.SessionID)
}

func TestTimeoutClearsBatchQueue(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{ReplyTimeout: 60 * time.Millisecond, BatchWindow: 10 * time.Millisecond})
	te.dispatcher.delay = 150 * time.Millisecond
	ctx := context.Background()

	require.NoError(t, te.engine.HandleEvent(ctx, textEvent("U1", "m1", "第一則")))

	// The busy fallback went out and took the queued message with it.
	require.Equal(t, 1, te.replier.count())
	msgs := te.replier.last().messages
	require.Len(t, msgs, 1)
	text, ok := msgs[0].(*messaging_api.TextMessage)
	require.True(t, ok)
	assert.Equal(t, busyReplyText, text.Text)

	queued, err := te.db.AllMessages(ctx, "U1")
	require.NoError(t, err)
	assert.Empty(t, queued)

	// The next message starts a clean turn: a single-text search, not a
	// multi-message batch contaminated by the timed-out turn.
	te.dispatcher.mu.Lock()
	te.dispatcher.delay = 0
	te.dispatcher.mu.Unlock()

	require.NoError(t, te.engine.HandleEvent(ctx, textEvent("U1", "m2", "第二則")))

	assert.Empty(t, te.processor.batches)
	require.Equal(t, 2, te.dispatcher.callCount())
	assert.Equal(t, chatbot.StateDefault, te.dispatcher.calls[1].State)

	data, err := te.sessions.Load(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "第二則", data.SearchedText)
}

func TestReplyFunnelEmitsAuditLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	db := storage.NewTestDB(t)
	sessions := session.NewManager(db)
	replier := &fakeReplier{}
	e := New(Config{
		ReplyTimeout: 500 * time.Millisecond,
		BatchWindow:  20 * time.Millisecond,
		SiteURL:      "https://cofacts.tw",
	}, Deps{
		Sessions:   sessions,
		Batches:    db,
		Replier:    replier,
		Dispatcher: &fakeDispatcher{},
		Processor:  &fakeProcessor{},
		Settings:   db,
		Logger:     logger.NewWithWriter("info", &buf),
	})

	require.NoError(t, e.HandleEvent(context.Background(), textEvent("U1", "m1", "查證這個")))

	// One audit line pairs the inbound event with the resulting context and
	// the reply payload.
	var audit map[string]any
	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["message"] == "Interaction finished" {
			audit = entry
			break
		}
	}
	require.NotNil(t, audit)

	rawInput, err := json.Marshal(audit["input"])
	require.NoError(t, err)
	assert.Contains(t, string(rawInput), "查證這個")

	resultCtx, ok := audit["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "查證這個", resultCtx["searchedText"])

	rawOutput, err := json.Marshal(audit["output"])
	require.NoError(t, err)
	assert.Contains(t, string(rawOutput), "handled")
}

func TestResetWipesStateSilently(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, te.sessions.Save(ctx, "U1", &session.Context{SessionID: 100, SearchedText: "x"}))
	require.NoError(t, te.db.PushMessage(ctx, "U1", chatbot.CooccurredMessage{ID: "m0", Type: chatbot.MessageTypeText, Text: "x"}))

	require.NoError(t, te.engine.HandleEvent(ctx, textEvent("U1", "m1", "RESET")))

	assert.Equal(t, 0, te.replier.count())

	raw, err := te.db.GetContext(ctx, "U1")
	require.NoError(t, err)
	assert.Nil(t, raw)

	msgs, err := te.db.AllMessages(ctx, "U1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestArticleLinkShortcut(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{})
	ctx := context.Background()

	ev := textEvent("U1", "m1", "這是真的嗎 https://cofacts.tw/article/abc123")
	require.NoError(t, te.engine.HandleEvent(ctx, ev))

	require.Equal(t, 1, te.dispatcher.callCount())
	pb := te.dispatcher.calls[0]
	assert.Equal(t, chatbot.StateChoosingArticle, pb.State)

	var articleID string
	require.NoError(t, json.Unmarshal(pb.Input, &articleID))
	assert.Equal(t, "abc123", articleID)

	// The shortcut skips the batch window entirely.
	msgs, err := te.db.AllMessages(ctx, "U1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// The minted session carries no searched text; the pasted link is not
	// the rumor and must not reach a later submission.
	data, err := te.sessions.Load(ctx, "U1")
	require.NoError(t, err)
	assert.Empty(t, data.SearchedText)
}

func TestTutorialTriggerStartsTutorial(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{})

	ev := textEvent("U1", "m1", "📖 使用教學")
	require.NoError(t, te.engine.HandleEvent(context.Background(), ev))

	require.Equal(t, 1, te.dispatcher.callCount())
	assert.Equal(t, chatbot.StateTutorial, te.dispatcher.calls[0].State)
}

func TestFollowGreetsAndEnablesUpdates(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{})
	ctx := context.Background()

	ev := webhook.FollowEvent{
		ReplyToken: "token-follow",
		Source:     webhook.UserSource{UserId: "U1"},
	}
	require.NoError(t, te.engine.HandleEvent(ctx, ev))

	assert.Equal(t, 1, te.replier.count())

	allow, err := te.db.GetAllowNewReplyUpdate(ctx, "U1")
	require.NoError(t, err)
	assert.True(t, allow)

	// Follow mints a fresh persisted context.
	data, err := te.sessions.Load(ctx, "U1")
	require.NoError(t, err)
	assert.NotZero(t, data.SessionID)
}

func TestUnfollowDisablesUpdates(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, te.db.SetAllowNewReplyUpdate(ctx, "U1", true))

	ev := webhook.UnfollowEvent{Source: webhook.UserSource{UserId: "U1"}}
	require.NoError(t, te.engine.HandleEvent(ctx, ev))

	assert.Equal(t, 0, te.replier.count())

	allow, err := te.db.GetAllowNewReplyUpdate(ctx, "U1")
	require.NoError(t, err)
	assert.False(t, allow)
}

func TestBlacklistedUserIsDropped(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{UserIDBlacklist: []string{"Ubad"}})

	require.NoError(t, te.engine.HandleEvent(context.Background(), textEvent("Ubad", "m1", "hello")))

	assert.Equal(t, 0, te.replier.count())
	assert.Equal(t, 0, te.dispatcher.callCount())
}

func TestGroupEventsAreDropped(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{})
	ev := webhook.MessageEvent{
		ReplyToken: "token-g",
		Source:     webhook.GroupSource{GroupId: "G1"},
		Message:    webhook.TextMessageContent{Id: "m1", Text: "hello"},
	}

	require.NoError(t, te.engine.HandleEvent(context.Background(), ev))
	assert.Equal(t, 0, te.replier.count())
}

func TestStickerMessageCancelsSilently(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{})
	ev := webhook.MessageEvent{
		ReplyToken: "token-s",
		Source:     webhook.UserSource{UserId: "U1"},
		Message:    webhook.StickerMessageContent{Id: "s1"},
	}

	require.NoError(t, te.engine.HandleEvent(context.Background(), ev))
	assert.Equal(t, 0, te.replier.count())
}

func TestInteractionCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Config{})
	in := te.engine.newInteraction("U1", "token", textEvent("U1", "m1", "hi"))

	in.cancel()
	in.cancel()

	// After cancel, send is a no-op.
	require.NoError(t, in.send(context.Background(), &chatbot.Result{
		Replies: []messaging_api.MessageInterface{lineutil.NewTextMessage("late")},
	}, nil))
	assert.Equal(t, 0, te.replier.count())
}

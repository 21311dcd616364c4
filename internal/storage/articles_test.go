package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/factcheck-tw/rumorbot/internal/errors"
)

func TestArticles(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveArticle(ctx, Article{ID: "a1", Text: "喝溫水可以治百病", CreatedAt: 100}))
	require.NoError(t, db.SaveArticle(ctx, Article{ID: "a2", Text: "喝溫水無法取代就醫", CreatedAt: 200}))
	require.NoError(t, db.SaveArticle(ctx, Article{ID: "a3", Text: "completely unrelated", CreatedAt: 300}))

	t.Run("search matches substring newest first", func(t *testing.T) {
		found, err := db.SearchArticles(ctx, "溫水")
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "a2", found[0].ID)
		assert.Equal(t, "a1", found[1].ID)
	})

	t.Run("search escapes LIKE metacharacters", func(t *testing.T) {
		require.NoError(t, db.SaveArticle(ctx, Article{ID: "a4", Text: "100% sure", CreatedAt: 400}))

		found, err := db.SearchArticles(ctx, "100%")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "a4", found[0].ID)
	})

	t.Run("search with no match returns empty", func(t *testing.T) {
		found, err := db.SearchArticles(ctx, "不存在的訊息")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("get returns the article", func(t *testing.T) {
		a, err := db.GetArticle(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "喝溫水可以治百病", a.Text)
	})

	t.Run("get missing article yields sentinel", func(t *testing.T) {
		_, err := db.GetArticle(ctx, "missing")
		assert.ErrorIs(t, err, boterrors.ErrArticleNotFound)
	})
}

func TestArticleReplies(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveArticle(ctx, Article{ID: "a1", Text: "某謠言", CreatedAt: 100}))
	require.NoError(t, db.SaveArticleReply(ctx, ArticleReply{
		ID: "r1", ArticleID: "a1", Type: ReplyTypeRumor,
		Text: "查證後為謠言", Reference: "https://example.org/proof",
	}))
	require.NoError(t, db.SaveArticleReply(ctx, ArticleReply{
		ID: "r2", ArticleID: "a1", Type: ReplyTypeOpinionated, Text: "含有個人意見",
	}))

	t.Run("list returns all replies for the article", func(t *testing.T) {
		replies, err := db.GetArticleReplies(ctx, "a1")
		require.NoError(t, err)
		require.Len(t, replies, 2)
		assert.Equal(t, ReplyTypeRumor, replies[0].Type)
	})

	t.Run("get returns a single reply", func(t *testing.T) {
		r, err := db.GetReply(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "https://example.org/proof", r.Reference)
	})

	t.Run("get missing reply yields sentinel", func(t *testing.T) {
		_, err := db.GetReply(ctx, "missing")
		assert.ErrorIs(t, err, boterrors.ErrReplyNotFound)
	})

	t.Run("reply for unknown article fails foreign key", func(t *testing.T) {
		err := db.SaveArticleReply(ctx, ArticleReply{
			ID: "r3", ArticleID: "no-such-article", Type: ReplyTypeRumor, Text: "x",
		})
		assert.Error(t, err)
	})
}

func TestUserSettings(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	ctx := context.Background()

	t.Run("unset user defaults to true", func(t *testing.T) {
		allow, err := db.GetAllowNewReplyUpdate(ctx, "Unew")
		require.NoError(t, err)
		assert.True(t, allow)
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		require.NoError(t, db.SetAllowNewReplyUpdate(ctx, "Ualice", false))

		allow, err := db.GetAllowNewReplyUpdate(ctx, "Ualice")
		require.NoError(t, err)
		assert.False(t, allow)

		require.NoError(t, db.SetAllowNewReplyUpdate(ctx, "Ualice", true))

		allow, err = db.GetAllowNewReplyUpdate(ctx, "Ualice")
		require.NoError(t, err)
		assert.True(t, allow)
	})
}

func TestSubmissions(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	ctx := context.Background()

	assert.NoError(t, db.CreateSubmission(ctx, "Ualice", "新的可疑訊息", "朋友傳來的"))
	assert.NoError(t, db.CreateSubmission(ctx, "Ualice", "另一則可疑訊息", ""))
}

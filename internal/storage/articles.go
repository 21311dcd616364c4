package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	boterrors "github.com/factcheck-tw/rumorbot/internal/errors"
)

// searchLimit caps article search results at one LINE carousel worth.
const searchLimit = 10

// SearchArticles returns articles whose text contains the query, newest
// first, capped at searchLimit.
func (db *DB) SearchArticles(ctx context.Context, query string) ([]Article, error) {
	defer db.observe("articles_search", time.Now())

	pattern := "%" + escapeLike(query) + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, text, created_at FROM articles
		WHERE text LIKE ? ESCAPE '\'
		ORDER BY created_at DESC
		LIMIT ?
	`, pattern, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var articles []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.Text, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

// GetArticle returns the article with the given ID, or ErrArticleNotFound.
func (db *DB) GetArticle(ctx context.Context, id string) (*Article, error) {
	defer db.observe("articles_get", time.Now())

	var a Article
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, text, created_at FROM articles WHERE id = ?`, id).
		Scan(&a.ID, &a.Text, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("article %s: %w", id, boterrors.ErrArticleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query article %s: %w", id, err)
	}
	return &a, nil
}

// GetArticleReplies returns all replies attached to the article.
func (db *DB) GetArticleReplies(ctx context.Context, articleID string) ([]ArticleReply, error) {
	defer db.observe("replies_list", time.Now())

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, article_id, reply_type, text, reference
		FROM article_replies WHERE article_id = ?
		ORDER BY id ASC
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("query replies for %s: %w", articleID, err)
	}
	defer func() { _ = rows.Close() }()

	var replies []ArticleReply
	for rows.Next() {
		var r ArticleReply
		if err := rows.Scan(&r.ID, &r.ArticleID, &r.Type, &r.Text, &r.Reference); err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		replies = append(replies, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replies: %w", err)
	}
	return replies, nil
}

// GetReply returns a single reply by ID, or ErrReplyNotFound.
func (db *DB) GetReply(ctx context.Context, id string) (*ArticleReply, error) {
	defer db.observe("replies_get", time.Now())

	var r ArticleReply
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, article_id, reply_type, text, reference
		FROM article_replies WHERE id = ?
	`, id).Scan(&r.ID, &r.ArticleID, &r.Type, &r.Text, &r.Reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reply %s: %w", id, boterrors.ErrReplyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query reply %s: %w", id, err)
	}
	return &r, nil
}

// SaveArticle inserts or replaces an article.
func (db *DB) SaveArticle(ctx context.Context, a Article) error {
	defer db.observe("articles_save", time.Now())

	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().Unix()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO articles (id, text, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET text = excluded.text
	`, a.ID, a.Text, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("save article %s: %w", a.ID, err)
	}
	return nil
}

// SaveArticleReply inserts or replaces a reply.
func (db *DB) SaveArticleReply(ctx context.Context, r ArticleReply) error {
	defer db.observe("replies_save", time.Now())

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO article_replies (id, article_id, reply_type, text, reference)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			reply_type = excluded.reply_type,
			text = excluded.text,
			reference = excluded.reference
	`, r.ID, r.ArticleID, r.Type, r.Text, r.Reference)
	if err != nil {
		return fmt.Errorf("save reply %s: %w", r.ID, err)
	}
	return nil
}

// CreateSubmission records a new rumor reported by a user.
func (db *DB) CreateSubmission(ctx context.Context, userID, text, source string) error {
	defer db.observe("submissions_create", time.Now())

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO article_submissions (user_id, text, source, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, text, source, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("create submission for %s: %w", userID, err)
	}
	return nil
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

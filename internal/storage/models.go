package storage

// Article is a rumor message reported to the fact-checking database.
type Article struct {
	ID        string
	Text      string
	CreatedAt int64
}

// ReplyType classifies an article reply.
type ReplyType string

const (
	ReplyTypeRumor       ReplyType = "RUMOR"
	ReplyTypeNotRumor    ReplyType = "NOT_RUMOR"
	ReplyTypeOpinionated ReplyType = "OPINIONATED"
	ReplyTypeNotArticle  ReplyType = "NOT_ARTICLE"
)

// ArticleReply is a crowd-sourced reply attached to an article.
type ArticleReply struct {
	ID        string
	ArticleID string
	Type      ReplyType
	Text      string
	Reference string
}

// Submission is a new rumor reported by a user together with its source.
type Submission struct {
	ID        int64
	UserID    string
	Text      string
	Source    string
	CreatedAt int64
}

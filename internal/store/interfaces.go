package store

import (
	"context"

	"github.com/rmaia/ponte/internal/model"
)

// ArticleReader provides read access to articles.
type ArticleReader interface {
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	FindBySlug(ctx context.Context, slug string) (*model.Article, error)
	ListArticles(ctx context.Context, f model.ArticleFilter) ([]model.Article, error)
	ListPending(ctx context.Context, limit int) ([]model.Article, error)
	CountByStage(ctx context.Context) (map[string]int, error)
}

// ArticleWriter provides write access to articles outside of stage
// transitions.
type ArticleWriter interface {
	CreateArticle(ctx context.Context, a model.Article) error
}

// StageTransitioner performs the atomic per-article stage transitions.
// Each method is a single all-or-nothing mutation: either the new stage,
// payload and reset counters are persisted together, or nothing changes.
type StageTransitioner interface {
	StoreTranslation(ctx context.Context, id, title, summary, body string) error
	AttachSummary(ctx context.Context, id, summary string) error
	StoreDocument(ctx context.Context, id, document string) error
	MarkPublishReady(ctx context.Context, id string) error
	RecordFailure(ctx context.Context, id string, maxAttempts int, errInfo string) (stage string, attempts int, err error)
	ResetForRetry(ctx context.Context, id string) error
}

// ArticleRepository combines all article operations for the CLI layer.
type ArticleRepository interface {
	ArticleReader
	ArticleWriter
	StageTransitioner
}

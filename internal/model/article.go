package model

import "time"

// Pipeline stage constants
const (
	StageIntake       = "INTAKE"
	StageTranslated   = "TRANSLATED"
	StageFormatted    = "FORMATTED"
	StagePublishReady = "PUBLISH_READY"
	StageFailed       = "FAILED"
)

// PendingStages lists the stages that still have pipeline work ahead of
// them, in pipeline order.
var PendingStages = []string{StageIntake, StageTranslated, StageFormatted}

// IsTerminal reports whether an article in the given stage takes no
// further pipeline operations.
func IsTerminal(stage string) bool {
	return stage == StagePublishReady || stage == StageFailed
}

// Article represents one source article moving through the pipeline.
// The stage-specific payload fields are filled in as the article advances:
// the Translated* fields at TRANSLATED, Document at FORMATTED.
type Article struct {
	ID         string  `json:"id"`
	Slug       string  `json:"slug"`
	SourceName string  `json:"source_name"`
	SourceURL  string  `json:"source_url"`
	Title      string  `json:"title"`
	Summary    string  `json:"summary,omitempty"`
	Body       string  `json:"body"`
	TransTitle string  `json:"translated_title,omitempty"`
	TransSum   string  `json:"translated_summary,omitempty"`
	TransBody  string  `json:"translated_body,omitempty"`
	Document   string  `json:"document,omitempty"` // serialized Sanity document
	Stage      string  `json:"stage"`
	Attempts   int     `json:"attempts"`
	LastError  *string `json:"last_error,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// ArticleFilter holds query parameters for listing articles.
type ArticleFilter struct {
	Stages []string
}

// TimeLayout is RFC3339 with a fixed-width nanosecond fraction, so
// timestamp strings sort in chronological order even within one second.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// NewArticle creates a new Article in the INTAKE stage.
func NewArticle(id, slug, sourceName, sourceURL, title, summary, body string) Article {
	now := time.Now().UTC().Format(TimeLayout)
	return Article{
		ID:         id,
		Slug:       slug,
		SourceName: sourceName,
		SourceURL:  sourceURL,
		Title:      title,
		Summary:    summary,
		Body:       body,
		Stage:      StageIntake,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

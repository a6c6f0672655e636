package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rmaia/ponte/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ ArticleReader     = (*Store)(nil)
	_ ArticleWriter     = (*Store)(nil)
	_ StageTransitioner = (*Store)(nil)
)

// ErrNotFound is returned when an article does not exist.
var ErrNotFound = errors.New("article not found")

// ErrWrongStage is returned when a stage transition is attempted on an
// article that is not in the expected source stage. Transitions are
// monotonic; the only backward move is ResetForRetry on a FAILED article.
var ErrWrongStage = errors.New("article not in expected stage")

// Store provides data access to the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// migrations is an ordered list of migration functions.
	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: initial schema
		s.migrateV2, // v1 → v2: add translated_summary column
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema (v0 → v1).
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id               TEXT PRIMARY KEY,
		slug             TEXT NOT NULL,
		source_name      TEXT,
		source_url       TEXT,
		title            TEXT NOT NULL,
		summary          TEXT NOT NULL DEFAULT '',
		body             TEXT NOT NULL,
		translated_title TEXT NOT NULL DEFAULT '',
		translated_body  TEXT NOT NULL DEFAULT '',
		document         TEXT NOT NULL DEFAULT '',
		stage            TEXT NOT NULL,
		attempts         INTEGER NOT NULL DEFAULT 0,
		last_error       TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_articles_slug ON articles(slug);
	CREATE INDEX IF NOT EXISTS idx_articles_stage ON articles(stage, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds the translated_summary column (v1 → v2), added when the
// summarize side-channel landed.
func (s *Store) migrateV2() error {
	_, err := s.db.Exec(`ALTER TABLE articles ADD COLUMN translated_summary TEXT NOT NULL DEFAULT ''`)
	return err
}

const articleColumns = `id, slug, source_name, source_url, title, summary, body, translated_title, translated_summary, translated_body, document, stage, attempts, last_error, created_at, updated_at`

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// GetArticle returns one article by id.
func (s *Store) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, err
}

// FindBySlug returns the article with the given slug, or nil if none exists.
func (s *Store) FindBySlug(ctx context.Context, slug string) (*model.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE slug = ?`, slug)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// ListArticles returns articles matching the filter, oldest first.
func (s *Store) ListArticles(ctx context.Context, f model.ArticleFilter) ([]model.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles`
	var args []interface{}
	if len(f.Stages) > 0 {
		placeholders := make([]string, len(f.Stages))
		for i, st := range f.Stages {
			placeholders[i] = "?"
			args = append(args, st)
		}
		query += ` WHERE stage IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// ListPending returns up to limit articles that still have pipeline work,
// in first-in-first-out order by intake arrival.
func (s *Store) ListPending(ctx context.Context, limit int) ([]model.Article, error) {
	placeholders := make([]string, len(model.PendingStages))
	args := make([]interface{}, 0, len(model.PendingStages)+1)
	for i, st := range model.PendingStages {
		placeholders[i] = "?"
		args = append(args, st)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles
		 WHERE stage IN (`+strings.Join(placeholders, ",")+`)
		 ORDER BY created_at ASC, id ASC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// CountByStage returns the number of articles per stage.
func (s *Store) CountByStage(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stage, COUNT(*) FROM articles GROUP BY stage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, err
		}
		counts[stage] = n
	}
	return counts, rows.Err()
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// CreateArticle inserts a new article.
func (s *Store) CreateArticle(ctx context.Context, a model.Article) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (`+articleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Slug, a.SourceName, a.SourceURL, a.Title, a.Summary, a.Body,
		a.TransTitle, a.TransSum, a.TransBody, a.Document,
		a.Stage, a.Attempts, a.LastError, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// ---------------------------------------------------------------------------
// Stage transitions
// ---------------------------------------------------------------------------

// StoreTranslation commits the INTAKE → TRANSLATED transition: the
// translated fields, the new stage and the reset attempt counter are
// persisted in a single statement.
func (s *Store) StoreTranslation(ctx context.Context, id, title, summary, body string) error {
	return s.transition(ctx, id, model.StageIntake, `
		UPDATE articles
		SET translated_title = ?, translated_summary = ?, translated_body = ?,
		    stage = ?, attempts = 0, last_error = NULL, updated_at = ?
		WHERE id = ? AND stage = ?`,
		title, summary, body, model.StageTranslated, nowUTC(), id, model.StageIntake)
}

// AttachSummary stores a side-channel summary without changing stage.
func (s *Store) AttachSummary(ctx context.Context, id, summary string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE articles SET translated_summary = ?, updated_at = ? WHERE id = ?`,
		summary, nowUTC(), id)
	return err
}

// StoreDocument commits the TRANSLATED → FORMATTED transition.
func (s *Store) StoreDocument(ctx context.Context, id, document string) error {
	return s.transition(ctx, id, model.StageTranslated, `
		UPDATE articles
		SET document = ?, stage = ?, attempts = 0, last_error = NULL, updated_at = ?
		WHERE id = ? AND stage = ?`,
		document, model.StageFormatted, nowUTC(), id, model.StageTranslated)
}

// MarkPublishReady commits the FORMATTED → PUBLISH_READY transition.
func (s *Store) MarkPublishReady(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.StageFormatted, `
		UPDATE articles
		SET stage = ?, attempts = 0, last_error = NULL, updated_at = ?
		WHERE id = ? AND stage = ?`,
		model.StagePublishReady, nowUTC(), id, model.StageFormatted)
}

// RecordFailure increments the attempt counter and records the last error.
// When the counter reaches maxAttempts the article moves to FAILED. The
// resulting stage and attempt count are returned.
func (s *Store) RecordFailure(ctx context.Context, id string, maxAttempts int, errInfo string) (string, int, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE articles
		SET attempts = attempts + 1,
		    last_error = ?,
		    stage = CASE WHEN attempts + 1 >= ? THEN ? ELSE stage END,
		    updated_at = ?
		WHERE id = ?
		RETURNING stage, attempts`,
		errInfo, maxAttempts, model.StageFailed, nowUTC(), id)

	var stage string
	var attempts int
	if err := row.Scan(&stage, &attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return "", 0, err
	}
	return stage, attempts, nil
}

// ResetForRetry moves a FAILED article back to the stage implied by its
// payload, clearing the attempt counter and last error. This is the only
// backward transition the store permits.
func (s *Store) ResetForRetry(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.StageFailed, `
		UPDATE articles
		SET stage = CASE
			WHEN document != '' THEN ?
			WHEN translated_body != '' THEN ?
			ELSE ?
		END,
		attempts = 0, last_error = NULL, updated_at = ?
		WHERE id = ? AND stage = ?`,
		model.StageFormatted, model.StageTranslated, model.StageIntake,
		nowUTC(), id, model.StageFailed)
}

// transition runs a guarded single-statement transition and maps a zero
// row count to ErrWrongStage (or ErrNotFound when the id is unknown).
func (s *Store) transition(ctx context.Context, id, fromStage, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM articles WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("%w: %s is not in %s", ErrWrongStage, id, fromStage)
	}
	return nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row scanner) (*model.Article, error) {
	var a model.Article
	err := row.Scan(&a.ID, &a.Slug, &a.SourceName, &a.SourceURL, &a.Title, &a.Summary, &a.Body,
		&a.TransTitle, &a.TransSum, &a.TransBody, &a.Document,
		&a.Stage, &a.Attempts, &a.LastError, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func nowUTC() string {
	return time.Now().UTC().Format(model.TimeLayout)
}

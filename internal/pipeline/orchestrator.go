// Package pipeline contains the orchestrator: the state machine that
// moves articles through intake → translated → formatted → publish-ready,
// one article at a time.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rmaia/ponte/internal/engine"
	"github.com/rmaia/ponte/internal/model"
	"github.com/rmaia/ponte/internal/placeholder"
	"github.com/rmaia/ponte/internal/sanity"
	"github.com/rmaia/ponte/internal/validate"
)

// StageStore is the subset of the store the orchestrator needs. It is the
// single source of truth for which article is in which stage; the
// orchestrator never caches stages across retries.
type StageStore interface {
	ListPending(ctx context.Context, limit int) ([]model.Article, error)
	StoreTranslation(ctx context.Context, id, title, summary, body string) error
	AttachSummary(ctx context.Context, id, summary string) error
	StoreDocument(ctx context.Context, id, document string) error
	MarkPublishReady(ctx context.Context, id string) error
	RecordFailure(ctx context.Context, id string, maxAttempts int, errInfo string) (stage string, attempts int, err error)
}

// Config holds the orchestrator's tunables.
type Config struct {
	// MaxAttempts is the per-stage retry bound (default 3).
	MaxAttempts int

	// TargetLang overrides the engine's default target language when set.
	TargetLang string

	// SummaryMaxWords is the word budget for generated summaries (default 100).
	SummaryMaxWords int
}

// Report counts per-article outcomes of one pipeline run.
type Report struct {
	Processed int
	Advanced  int
	Retried   int
	Failed    int
}

// Orchestrator drives articles through their stage transitions.
type Orchestrator struct {
	store   StageStore
	engine  engine.Client
	checker *validate.Checker
	cfg     Config
}

// New creates an orchestrator, applying config defaults.
func New(store StageStore, eng engine.Client, checker *validate.Checker, cfg Config) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.SummaryMaxWords <= 0 {
		cfg.SummaryMaxWords = 100
	}
	return &Orchestrator{store: store, engine: eng, checker: checker, cfg: cfg}
}

// Run processes up to maxArticles pending articles in intake arrival
// order, each to completion (or failure) before the next begins. It
// returns early only on a fatal engine condition or cancellation; both
// are honored between articles, never mid-transition.
func (o *Orchestrator) Run(ctx context.Context, maxArticles int) (Report, error) {
	var rep Report

	if err := o.engine.Verify(ctx); err != nil {
		return rep, fmt.Errorf("engine verification: %w", err)
	}

	pending, err := o.store.ListPending(ctx, maxArticles)
	if err != nil {
		return rep, fmt.Errorf("list pending articles: %w", err)
	}
	slog.Info("pipeline run starting", "pending", len(pending), "max_articles", maxArticles)

	for i := range pending {
		select {
		case <-ctx.Done():
			slog.Info("run cancelled", "processed", rep.Processed)
			return rep, ctx.Err()
		default:
		}

		a := &pending[i]
		slog.Info("processing article", "id", a.ID, "slug", a.Slug, "stage", a.Stage)

		outcome, err := o.processArticle(ctx, a)
		if err != nil {
			// Fatal: the run aborts, remaining articles stay untouched.
			return rep, err
		}
		rep.Processed++
		switch outcome {
		case outcomeAdvanced:
			rep.Advanced++
		case outcomeRetried:
			rep.Retried++
		case outcomeFailed:
			rep.Failed++
		}
	}

	slog.Info("pipeline run finished",
		"processed", rep.Processed, "advanced", rep.Advanced,
		"retried", rep.Retried, "failed", rep.Failed)
	return rep, nil
}

type outcome int

const (
	outcomeAdvanced outcome = iota
	outcomeRetried
	outcomeFailed
)

// processArticle drives one article as far as it will go. A retryable
// failure leaves the article in its stage (attempt counter bumped) and
// moves on; only fatal engine conditions are returned as errors.
func (o *Orchestrator) processArticle(ctx context.Context, a *model.Article) (outcome, error) {
	for !model.IsTerminal(a.Stage) {
		if err := o.step(ctx, a); err != nil {
			if engine.IsFatal(err) {
				return 0, err
			}
			if ctx.Err() != nil {
				// The run was stopped mid-call. The failure belongs to
				// the interrupt, not the article; no attempt is charged.
				return 0, ctx.Err()
			}
			return o.recordFailure(ctx, a, err)
		}
	}
	return outcomeAdvanced, nil
}

// step performs the operation bound to the article's current stage and
// commits the transition. On success the article's in-memory state is
// updated to match the store.
func (o *Orchestrator) step(ctx context.Context, a *model.Article) error {
	switch a.Stage {
	case model.StageIntake:
		return o.translate(ctx, a)
	case model.StageTranslated:
		return o.format(ctx, a)
	case model.StageFormatted:
		return o.publish(ctx, a)
	default:
		return &StageError{Stage: a.Stage, Err: fmt.Errorf("no operation bound to stage")}
	}
}

// ---------------------------------------------------------------------------
// intake → translated
// ---------------------------------------------------------------------------

func (o *Orchestrator) translate(ctx context.Context, a *model.Article) error {
	title, err := o.translateField(ctx, a.Title)
	if err != nil {
		return &StageError{Stage: model.StageIntake, Err: fmt.Errorf("title: %w", err)}
	}

	summary := ""
	if a.Summary != "" {
		if summary, err = o.translateField(ctx, a.Summary); err != nil {
			return &StageError{Stage: model.StageIntake, Err: fmt.Errorf("summary: %w", err)}
		}
	}

	body, err := o.translateField(ctx, a.Body)
	if err != nil {
		return &StageError{Stage: model.StageIntake, Err: fmt.Errorf("body: %w", err)}
	}

	if err := o.store.StoreTranslation(ctx, a.ID, title, summary, body); err != nil {
		return &StageError{Stage: model.StageIntake, Err: fmt.Errorf("commit translation: %w", err)}
	}
	a.TransTitle, a.TransSum, a.TransBody = title, summary, body
	a.Stage = model.StageTranslated
	a.Attempts = 0

	// Summarize side-channel: attached to metadata, never gating the
	// transition. Only a fatal engine condition propagates.
	if a.TransSum == "" {
		if err := o.summarize(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// translateField protects markup, runs one translate call, restores the
// markup and validates the result against the original text.
func (o *Orchestrator) translateField(ctx context.Context, text string) (string, error) {
	protected, markers := placeholder.Protect(text)

	resp, err := o.engine.Invoke(ctx, engine.Request{
		Op:         engine.OpTranslate,
		Text:       protected,
		TargetLang: o.cfg.TargetLang,
	})
	if err != nil {
		return "", err
	}

	restored := placeholder.Restore(resp.Text, markers)
	res := o.checker.Check(
		engine.Request{Op: engine.OpTranslate, Text: text},
		engine.Response{Text: restored},
	)
	if !res.OK {
		return "", &ValidationError{Reason: res.Reason}
	}
	return restored, nil
}

// summarize generates a summary for articles whose source had none.
// Failures are logged and swallowed unless fatal.
func (o *Orchestrator) summarize(ctx context.Context, a *model.Article) error {
	req := engine.Request{
		Op:       engine.OpSummarize,
		Text:     a.TransBody,
		MaxWords: o.cfg.SummaryMaxWords,
	}
	resp, err := o.engine.Invoke(ctx, req)
	if err != nil {
		if engine.IsFatal(err) {
			return err
		}
		slog.Warn("summarize failed", "id", a.ID, "error", err)
		return nil
	}

	if res := o.checker.Check(req, resp); !res.OK {
		slog.Warn("summary rejected", "id", a.ID, "reason", res.Reason)
		return nil
	}

	if err := o.store.AttachSummary(ctx, a.ID, resp.Text); err != nil {
		slog.Warn("attach summary failed", "id", a.ID, "error", err)
		return nil
	}
	a.TransSum = resp.Text
	return nil
}

// ---------------------------------------------------------------------------
// translated → formatted
// ---------------------------------------------------------------------------

func (o *Orchestrator) format(ctx context.Context, a *model.Article) error {
	summary := a.TransSum
	if summary == "" {
		if paras := sanity.SplitParagraphs(a.TransBody); len(paras) > 0 {
			summary = paras[0]
		}
	}

	doc := sanity.Format(sanity.Input{
		Title:       a.TransTitle,
		Body:        a.TransBody,
		Summary:     summary,
		SourceName:  a.SourceName,
		SourceURL:   a.SourceURL,
		SourceTitle: a.Title,
		PublishedAt: a.CreatedAt,
	})

	raw, err := doc.Marshal()
	if err != nil {
		return &StageError{Stage: model.StageTranslated, Err: fmt.Errorf("marshal document: %w", err)}
	}

	res := o.checker.Check(engine.Request{Op: engine.OpFormat}, engine.Response{Text: string(raw)})
	if !res.OK {
		return &StageError{Stage: model.StageTranslated, Err: &ValidationError{Reason: res.Reason}}
	}

	if err := o.store.StoreDocument(ctx, a.ID, string(raw)); err != nil {
		return &StageError{Stage: model.StageTranslated, Err: fmt.Errorf("commit document: %w", err)}
	}
	a.Document = string(raw)
	a.Stage = model.StageFormatted
	a.Attempts = 0
	return nil
}

// ---------------------------------------------------------------------------
// formatted → publish-ready
// ---------------------------------------------------------------------------

// publish re-parses the persisted document so nothing that fails to
// round-trip through the destination schema is ever marked ready.
func (o *Orchestrator) publish(ctx context.Context, a *model.Article) error {
	if _, err := sanity.Parse([]byte(a.Document)); err != nil {
		return &StageError{Stage: model.StageFormatted, Err: &ValidationError{Reason: err.Error()}}
	}

	if err := o.store.MarkPublishReady(ctx, a.ID); err != nil {
		return &StageError{Stage: model.StageFormatted, Err: fmt.Errorf("commit publish-ready: %w", err)}
	}
	a.Stage = model.StagePublishReady
	a.Attempts = 0
	return nil
}

// ---------------------------------------------------------------------------
// failure bookkeeping
// ---------------------------------------------------------------------------

func (o *Orchestrator) recordFailure(ctx context.Context, a *model.Article, cause error) (outcome, error) {
	info := model.ErrorInfo{
		Stage:     stageOf(cause, a.Stage),
		Message:   cause.Error(),
		Retryable: true,
		FailedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	stage, attempts, err := o.store.RecordFailure(ctx, a.ID, o.cfg.MaxAttempts, info.ToJSON())
	if err != nil {
		return 0, fmt.Errorf("record failure for %s: %w", a.ID, err)
	}
	a.Stage = stage
	a.Attempts = attempts

	if stage == model.StageFailed {
		slog.Error("article exhausted retries", "id", a.ID, "attempts", attempts, "error", cause)
		return outcomeFailed, nil
	}
	slog.Warn("article will be retried", "id", a.ID, "stage", stage, "attempts", attempts, "error", cause)
	return outcomeRetried, nil
}

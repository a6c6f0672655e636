package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rmaia/ponte/internal/engine"
	"github.com/rmaia/ponte/internal/model"
	"github.com/rmaia/ponte/internal/sanity"
	"github.com/rmaia/ponte/internal/store"
	"github.com/rmaia/ponte/internal/validate"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := store.New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func newOrchestrator(s *store.Store, eng engine.Client) *Orchestrator {
	return New(s, eng, &validate.Checker{}, Config{MaxAttempts: 3, SummaryMaxWords: 100})
}

func seedArticle(t *testing.T, s *store.Store, id string) {
	t.Helper()
	a := model.NewArticle(id, "hello-world-"+id, "Example News",
		"https://example.com/hello", "Hello world article", "",
		"Hello world.\n\nSecond paragraph.")
	if err := s.CreateArticle(context.Background(), a); err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
}

func TestRun_FullPassToPublishReady(t *testing.T) {
	s := newTestStore(t)
	stub := engine.NewStubClient()
	seedArticle(t, s, "a-1")

	rep, err := newOrchestrator(s, stub).Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Advanced != 1 || rep.Retried != 0 || rep.Failed != 0 {
		t.Errorf("report = %+v, want 1 advanced", rep)
	}

	got, err := s.GetArticle(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if got.Stage != model.StagePublishReady {
		t.Fatalf("Stage = %q, want %q", got.Stage, model.StagePublishReady)
	}

	doc, err := sanity.Parse([]byte(got.Document))
	if err != nil {
		t.Fatalf("stored document does not parse: %v", err)
	}
	if len(doc.Content) != 2 {
		t.Fatalf("blocks = %d, want 2", len(doc.Content))
	}
	if text := doc.Content[0].Children[0].Text; text != "HELLO WORLD." {
		t.Errorf("first span = %q, want %q", text, "HELLO WORLD.")
	}
	// Source attribution survives into the document.
	if doc.Source.Site != "Example News" || doc.Source.URL != "https://example.com/hello" {
		t.Errorf("source attribution = %+v", doc.Source)
	}
}

func TestRun_PublishReadyIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	stub := engine.NewStubClient()
	seedArticle(t, s, "a-1")

	if _, err := newOrchestrator(s, stub).Run(context.Background(), 10); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	before, _ := s.GetArticle(context.Background(), "a-1")
	calls := stub.Invocations[engine.OpTranslate] + stub.Invocations[engine.OpSummarize]

	rep, err := newOrchestrator(s, stub).Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if rep.Processed != 0 {
		t.Errorf("second run processed %d articles, want 0", rep.Processed)
	}
	if got := stub.Invocations[engine.OpTranslate] + stub.Invocations[engine.OpSummarize]; got != calls {
		t.Errorf("second run made %d extra engine calls", got-calls)
	}

	after, _ := s.GetArticle(context.Background(), "a-1")
	if after.UpdatedAt != before.UpdatedAt || after.Stage != before.Stage {
		t.Errorf("second run changed state: %+v -> %+v", before, after)
	}
}

// brokenEngine always fails its calls with a retryable error.
type brokenEngine struct {
	calls int
}

func (e *brokenEngine) Verify(context.Context) error { return nil }
func (e *brokenEngine) Invoke(_ context.Context, req engine.Request) (engine.Response, error) {
	e.calls++
	return engine.Response{}, &engine.CallError{Op: req.Op, Detail: "canned failure"}
}

func TestRun_RetryBoundReachesFailedExactly(t *testing.T) {
	s := newTestStore(t)
	eng := &brokenEngine{}
	seedArticle(t, s, "a-1")
	orch := newOrchestrator(s, eng)

	for attempt := 1; attempt <= 3; attempt++ {
		rep, err := orch.Run(context.Background(), 10)
		if err != nil {
			t.Fatalf("Run %d: %v", attempt, err)
		}

		got, _ := s.GetArticle(context.Background(), "a-1")
		if attempt < 3 {
			if rep.Retried != 1 || got.Stage != model.StageIntake || got.Attempts != attempt {
				t.Errorf("attempt %d: report=%+v stage=%s attempts=%d", attempt, rep, got.Stage, got.Attempts)
			}
		} else {
			if rep.Failed != 1 || got.Stage != model.StageFailed {
				t.Errorf("attempt %d: report=%+v stage=%s", attempt, rep, got.Stage)
			}
			if got.LastError == nil {
				t.Error("failed article lost its last error")
			}
		}
	}

	// Exhausted articles are never picked up again.
	rep, err := orch.Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("post-failure Run: %v", err)
	}
	if rep.Processed != 0 {
		t.Errorf("failed article was processed again: %+v", rep)
	}
}

// noopEngine answers every call by echoing the input unchanged, which the
// translate validator must reject.
type noopEngine struct{}

func (noopEngine) Verify(context.Context) error { return nil }
func (noopEngine) Invoke(_ context.Context, req engine.Request) (engine.Response, error) {
	return engine.Response{Text: req.Text}, nil
}

func TestRun_NoOpTranslationIsRejected(t *testing.T) {
	s := newTestStore(t)
	seedArticle(t, s, "a-1")

	rep, err := newOrchestrator(s, noopEngine{}).Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Retried != 1 {
		t.Errorf("report = %+v, want 1 retried", rep)
	}

	got, _ := s.GetArticle(context.Background(), "a-1")
	if got.Stage != model.StageIntake || got.Attempts != 1 {
		t.Errorf("stage=%s attempts=%d, want INTAKE/1", got.Stage, got.Attempts)
	}
}

// deadEngine fails verification, the fatal path.
type deadEngine struct{}

func (deadEngine) Verify(context.Context) error {
	return fmt.Errorf("%w: binary not found", engine.ErrUnavailable)
}
func (deadEngine) Invoke(context.Context, engine.Request) (engine.Response, error) {
	return engine.Response{}, engine.ErrUnavailable
}

func TestRun_UnavailableEngineAbortsBeforeAnyArticle(t *testing.T) {
	s := newTestStore(t)
	seedArticle(t, s, "a-1")

	rep, err := newOrchestrator(s, deadEngine{}).Run(context.Background(), 10)
	if !errors.Is(err, engine.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if rep.Processed != 0 {
		t.Errorf("report = %+v, want nothing processed", rep)
	}

	// No record was touched.
	got, _ := s.GetArticle(context.Background(), "a-1")
	if got.Stage != model.StageIntake || got.Attempts != 0 || got.LastError != nil {
		t.Errorf("article mutated by aborted run: %+v", got)
	}
}

// summarylessEngine translates fine but cannot summarize.
type summarylessEngine struct {
	inner *engine.StubClient
}

func (e summarylessEngine) Verify(context.Context) error { return nil }
func (e summarylessEngine) Invoke(ctx context.Context, req engine.Request) (engine.Response, error) {
	if req.Op == engine.OpSummarize {
		return engine.Response{}, &engine.CallError{Op: req.Op, Detail: "summaries offline"}
	}
	return e.inner.Invoke(ctx, req)
}

func TestRun_SummarizeFailureIsNotFatalToTransition(t *testing.T) {
	s := newTestStore(t)
	seedArticle(t, s, "a-1")
	eng := summarylessEngine{inner: engine.NewStubClient()}

	rep, err := newOrchestrator(s, eng).Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Advanced != 1 {
		t.Errorf("report = %+v, want 1 advanced", rep)
	}

	got, _ := s.GetArticle(context.Background(), "a-1")
	if got.Stage != model.StagePublishReady {
		t.Errorf("Stage = %q, want %q despite summarize failure", got.Stage, model.StagePublishReady)
	}
	if got.TransSum != "" {
		t.Errorf("TransSum = %q, want empty", got.TransSum)
	}
}

// interruptingEngine cancels the run context from inside its own call,
// the shape of a SIGINT arriving while a subprocess is in flight.
type interruptingEngine struct {
	cancel context.CancelFunc
}

func (e interruptingEngine) Verify(context.Context) error { return nil }
func (e interruptingEngine) Invoke(ctx context.Context, _ engine.Request) (engine.Response, error) {
	e.cancel()
	return engine.Response{}, ctx.Err()
}

func TestRun_InterruptMidCallDoesNotChargeAnAttempt(t *testing.T) {
	s := newTestStore(t)
	seedArticle(t, s, "a-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rep, err := newOrchestrator(s, interruptingEngine{cancel: cancel}).Run(ctx, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if rep.Retried != 0 || rep.Failed != 0 {
		t.Errorf("report = %+v, want no article outcomes", rep)
	}

	got, _ := s.GetArticle(context.Background(), "a-1")
	if got.Attempts != 0 || got.LastError != nil || got.Stage != model.StageIntake {
		t.Errorf("interrupt was persisted against the article: %+v", got)
	}
}

func TestRun_CancelledBeforeArticles(t *testing.T) {
	s := newTestStore(t)
	stub := engine.NewStubClient()
	seedArticle(t, s, "a-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := newOrchestrator(s, stub).Run(ctx, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if rep.Processed != 0 {
		t.Errorf("report = %+v, want nothing processed", rep)
	}
}

func TestRun_MaxArticlesBoundsTheRun(t *testing.T) {
	s := newTestStore(t)
	stub := engine.NewStubClient()
	seedArticle(t, s, "a-1")
	seedArticle(t, s, "a-2")
	seedArticle(t, s, "a-3")

	rep, err := newOrchestrator(s, stub).Run(context.Background(), 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Processed != 2 || rep.Advanced != 2 {
		t.Errorf("report = %+v, want exactly 2 processed", rep)
	}
}

package engine

import "context"

// Op identifies the kind of operation an engine request performs.
type Op string

const (
	OpTranslate Op = "translate"
	OpSummarize Op = "summarize"
	OpFormat    Op = "format"
)

// Request describes one call to the external text engine.
type Request struct {
	Op   Op
	Text string

	// TargetLang overrides the client's configured target language.
	TargetLang string

	// MaxWords bounds the output length for OpSummarize. Zero means the
	// client default.
	MaxWords int

	// Format payload fields, used only for OpFormat.
	Title      string
	Summary    string
	SourceName string
	SourceURL  string
}

// Response is the raw engine output. The client never interprets output
// semantics; validation happens downstream.
type Response struct {
	Text string
}

// Client abstracts the external text engine. Implementations can wrap a
// CLI subprocess, an HTTP API, or canned responses for tests; the rest of
// the system is agnostic to the transport.
type Client interface {
	// Invoke performs one blocking engine call. It returns ErrUnavailable
	// when the engine cannot be reached at all, ErrTimeout when the call
	// exceeded its wall-clock budget, and *CallError for other failures.
	Invoke(ctx context.Context, req Request) (Response, error)

	// Verify checks that the engine is reachable and authenticated.
	// A Verify failure is fatal to a pipeline run.
	Verify(ctx context.Context) error
}

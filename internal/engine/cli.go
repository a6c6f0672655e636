package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLIClient implements Client by spawning an external engine binary for
// each call (`claude -p "<prompt>"` style). The process is killed when
// the call's wall-clock budget expires.
type CLIClient struct {
	binary       string
	timeout      time.Duration
	targetLang   string
	summaryWords int
}

// CLIOption configures the CLI client.
type CLIOption func(*CLIClient)

// WithBinary sets the engine binary path (default: "claude").
func WithBinary(path string) CLIOption {
	return func(c *CLIClient) { c.binary = path }
}

// WithTimeout sets the per-call wall-clock budget (default: 60s).
func WithTimeout(d time.Duration) CLIOption {
	return func(c *CLIClient) { c.timeout = d }
}

// WithTargetLang sets the default target language (default: "Brazilian Portuguese").
func WithTargetLang(lang string) CLIOption {
	return func(c *CLIClient) { c.targetLang = lang }
}

// WithSummaryWords sets the default summary word budget (default: 100).
func WithSummaryWords(n int) CLIOption {
	return func(c *CLIClient) { c.summaryWords = n }
}

// NewCLIClient creates a subprocess-backed engine client.
func NewCLIClient(opts ...CLIOption) *CLIClient {
	c := &CLIClient{
		binary:       "claude",
		timeout:      60 * time.Second,
		targetLang:   "Brazilian Portuguese",
		summaryWords: 100,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify runs `<binary> --version` to check the engine is installed and
// runnable.
func (c *CLIClient) Verify(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, c.binary, "--version").CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s --version: %v", ErrUnavailable, c.binary, firstLine(out, err))
	}
	return nil
}

// Invoke runs one engine call as a subprocess and returns its stdout.
func (c *CLIClient) Invoke(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Text) == "" && req.Op != OpFormat {
		return Response{}, &CallError{Op: req.Op, Detail: "empty input text"}
	}

	prompt := buildPrompt(req, c.targetLang, c.summaryWords)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(callCtx, c.binary, "-p", prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Engine binaries spawn helper processes that inherit the output
	// pipes. Killing the direct child does not close those pipes, so
	// without a wait delay Run blocks until every descendant exits.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if callCtx.Err() == context.DeadlineExceeded {
		return Response{}, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	if ctx.Err() != nil {
		// The run was stopped; the killed call is not an engine failure.
		return Response{}, ctx.Err()
	}
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			// Binary missing or not executable: fatal, not per-article.
			return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, execErr)
		}
		return Response{}, &CallError{Op: req.Op, Detail: firstLine(stderr.Bytes(), err)}
	}

	return Response{Text: strings.TrimSpace(stdout.String())}, nil
}

// firstLine returns the first non-empty output line, falling back to the
// error string. Keeps diagnostics to one line in logs and stored errors.
func firstLine(out []byte, err error) string {
	for _, line := range strings.Split(string(out), "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return err.Error()
}

// Package validate checks engine output for structural and content
// well-formedness before the pipeline trusts it.
package validate

import (
	"fmt"
	"strings"

	"github.com/rmaia/ponte/internal/engine"
	"github.com/rmaia/ponte/internal/placeholder"
	"github.com/rmaia/ponte/internal/sanity"
)

// Result is the outcome of validating one engine response. Validation
// failures are data, not errors; the orchestrator decides what to do
// with them.
type Result struct {
	OK     bool
	Reason string
}

// Valid is the passing result.
func Valid() Result { return Result{OK: true} }

// Failed builds a failing result with a formatted reason.
func Failed(format string, args ...interface{}) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

const (
	defaultMaxWords  = 100
	defaultTolerance = 0.2
)

// Checker validates engine responses per operation kind.
type Checker struct {
	// SummaryTolerance is the fraction by which a summary may exceed the
	// requested word budget (default 0.2).
	SummaryTolerance float64
}

// Check validates resp against the request that produced it.
func (c *Checker) Check(req engine.Request, resp engine.Response) Result {
	switch req.Op {
	case engine.OpTranslate:
		return c.checkTranslate(req, resp)
	case engine.OpSummarize:
		return c.checkSummarize(req, resp)
	case engine.OpFormat:
		return c.checkFormat(resp)
	default:
		return Failed("unknown operation %q", req.Op)
	}
}

// checkTranslate guards against the engine's no-op failure modes: empty
// output, output byte-identical to the input, and leftover [PHn] markers
// reserved for the pipeline's internal templating.
func (c *Checker) checkTranslate(req engine.Request, resp engine.Response) Result {
	out := strings.TrimSpace(resp.Text)
	if out == "" {
		return Failed("translation is empty")
	}
	if resp.Text == req.Text {
		return Failed("translation is identical to the input")
	}
	if placeholder.HasMarkers(out) {
		return Failed("translation contains unrestored placeholder markers")
	}
	return Valid()
}

func (c *Checker) checkSummarize(req engine.Request, resp engine.Response) Result {
	out := strings.TrimSpace(resp.Text)
	if out == "" {
		return Failed("summary is empty")
	}

	maxWords := req.MaxWords
	if maxWords == 0 {
		maxWords = defaultMaxWords
	}
	tolerance := c.SummaryTolerance
	if tolerance == 0 {
		tolerance = defaultTolerance
	}

	budget := int(float64(maxWords) * (1 + tolerance))
	if n := len(strings.Fields(out)); n > budget {
		return Failed("summary has %d words, budget is %d (+%d%% tolerance)", n, maxWords, int(tolerance*100))
	}
	return Valid()
}

func (c *Checker) checkFormat(resp engine.Response) Result {
	doc, err := sanity.Parse([]byte(resp.Text))
	if err != nil {
		return Failed("format output: %v", err)
	}
	// Parse already checks block/span structure; re-marshal to be sure the
	// document round-trips through the destination schema.
	if _, err := doc.Marshal(); err != nil {
		return Failed("format output does not round-trip: %v", err)
	}
	return Valid()
}

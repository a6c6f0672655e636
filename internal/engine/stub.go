package engine

import (
	"context"
	"encoding/json"
	"strings"
)

// StubClient returns deterministic canned responses (for development and
// tests). Translation uppercases the input, summarization truncates to the
// word budget, and format produces a minimal one-block document.
type StubClient struct {
	// Invocations counts Invoke calls, by operation.
	Invocations map[Op]int
}

// NewStubClient creates a stub engine.
func NewStubClient() *StubClient {
	return &StubClient{Invocations: make(map[Op]int)}
}

func (s *StubClient) Verify(_ context.Context) error { return nil }

func (s *StubClient) Invoke(_ context.Context, req Request) (Response, error) {
	if s.Invocations != nil {
		s.Invocations[req.Op]++
	}

	switch req.Op {
	case OpSummarize:
		maxWords := req.MaxWords
		if maxWords == 0 {
			maxWords = 100
		}
		words := strings.Fields(req.Text)
		if len(words) > maxWords {
			words = words[:maxWords]
		}
		return Response{Text: strings.Join(words, " ")}, nil
	case OpFormat:
		doc := map[string]interface{}{
			"_type": "post",
			"title": req.Title,
			"slug":  map[string]string{"_type": "slug", "current": "stub-post"},
			"content": []map[string]interface{}{
				{
					"_type": "block", "_key": "stub-block-0", "style": "normal",
					"markDefs": []string{},
					"children": []map[string]interface{}{
						{"_type": "span", "_key": "stub-span-0", "text": req.Text, "marks": []string{}},
					},
				},
			},
		}
		b, _ := json.Marshal(doc)
		return Response{Text: string(b)}, nil
	default:
		return Response{Text: strings.ToUpper(req.Text)}, nil
	}
}

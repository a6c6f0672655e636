package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIClient implements Client using the Anthropic Messages API directly,
// as an alternative transport to the CLI subprocess.
type APIClient struct {
	apiKey       string
	model        string
	baseURL      string
	targetLang   string
	summaryWords int
	httpClient   *http.Client
}

// APIOption configures the API client.
type APIOption func(*APIClient)

// WithModel sets the model name.
func WithModel(model string) APIOption {
	return func(c *APIClient) { c.model = model }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) APIOption {
	return func(c *APIClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAPITimeout sets the per-call wall-clock budget (default: 60s).
func WithAPITimeout(d time.Duration) APIOption {
	return func(c *APIClient) { c.httpClient.Timeout = d }
}

// WithAPITargetLang sets the default target language.
func WithAPITargetLang(lang string) APIOption {
	return func(c *APIClient) { c.targetLang = lang }
}

// NewAPIClient creates an HTTP-backed engine client.
func NewAPIClient(apiKey string, opts ...APIOption) *APIClient {
	c := &APIClient{
		apiKey:       apiKey,
		model:        "claude-sonnet-4-20250514",
		baseURL:      "https://api.anthropic.com",
		targetLang:   "Brazilian Portuguese",
		summaryWords: 100,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Verify sends a minimal request to confirm the key is accepted.
func (c *APIClient) Verify(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: no API key configured", ErrUnavailable)
	}
	_, err := c.Invoke(ctx, Request{Op: OpTranslate, Text: "ping"})
	if err != nil && IsFatal(err) {
		return err
	}
	return nil
}

// Invoke sends a prompt to the Anthropic Messages API and returns the
// response text.
func (c *APIClient) Invoke(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Text) == "" && req.Op != OpFormat {
		return Response{}, &CallError{Op: req.Op, Detail: "empty input text"}
	}

	prompt := buildPrompt(req, c.targetLang, c.summaryWords)
	body, err := json.Marshal(messagesRequest{
		Model:       c.model,
		MaxTokens:   4096,
		Temperature: 0.3,
		Messages:    []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return Response{}, &CallError{Op: req.Op, Detail: fmt.Sprintf("marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, &CallError{Op: req.Op, Detail: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) && ue.Timeout() {
			return Response{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return Response{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &CallError{Op: req.Op, Detail: fmt.Sprintf("read response: %v", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Response{}, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Response{}, &CallError{Op: req.Op, Detail: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, firstLine(respBody, errors.New("no body")))}
	}

	var mr messagesResponse
	if err := json.Unmarshal(respBody, &mr); err != nil {
		return Response{}, &CallError{Op: req.Op, Detail: fmt.Sprintf("unmarshal response: %v", err)}
	}
	if mr.Error != nil {
		return Response{}, &CallError{Op: req.Op, Detail: mr.Error.Message}
	}

	for _, block := range mr.Content {
		if block.Type == "text" {
			return Response{Text: strings.TrimSpace(block.Text)}, nil
		}
	}
	return Response{}, &CallError{Op: req.Op, Detail: "no text content in response"}
}

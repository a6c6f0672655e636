package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newAPITestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") == "" {
			t.Error("missing x-api-key header")
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAPIClient_Invoke(t *testing.T) {
	srv := newAPITestServer(t, http.StatusOK,
		`{"content":[{"type":"text","text":"Olá mundo"}]}`)
	c := NewAPIClient("test-key", WithBaseURL(srv.URL))

	resp, err := c.Invoke(context.Background(), Request{Op: OpTranslate, Text: "Hello world"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if resp.Text != "Olá mundo" {
		t.Errorf("Text = %q", resp.Text)
	}
}

func TestAPIClient_UnauthorizedIsFatal(t *testing.T) {
	srv := newAPITestServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`)
	c := NewAPIClient("bad-key", WithBaseURL(srv.URL))

	_, err := c.Invoke(context.Background(), Request{Op: OpTranslate, Text: "Hello"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if !IsFatal(err) {
		t.Error("unauthorized must be fatal")
	}
}

func TestAPIClient_ServerErrorIsRetryable(t *testing.T) {
	srv := newAPITestServer(t, http.StatusInternalServerError, `{"error":{"message":"overloaded"}}`)
	c := NewAPIClient("test-key", WithBaseURL(srv.URL))

	_, err := c.Invoke(context.Background(), Request{Op: OpTranslate, Text: "Hello"})
	var ce *CallError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CallError", err)
	}
	if IsFatal(err) {
		t.Error("server error must not be fatal")
	}
}

func TestAPIClient_VerifyWithoutKey(t *testing.T) {
	c := NewAPIClient("")
	if err := c.Verify(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

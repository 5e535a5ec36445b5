package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestAnthropicCompleteRequestShape(t *testing.T) {
	var gotReq *http.Request
	var gotBody map[string]json.RawMessage
	c := NewAnthropicClient("key-123", "claude-sonnet-4-20250514", time.Minute)
	c.httpClient.Transport = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		gotReq = req
		if err := json.NewDecoder(req.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		return stubResponse(http.StatusOK, `{"content": [{"type": "text", "text": "And when do you depart?"}]}`), nil
	})

	reply, err := c.Complete(context.Background(), "be helpful", []Message{{Role: "user", Content: "hi"}}, 500)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if reply != "And when do you depart?" {
		t.Errorf("reply = %q", reply)
	}

	if got := gotReq.Header.Get("x-api-key"); got != "key-123" {
		t.Errorf("x-api-key = %q", got)
	}
	if got := gotReq.Header.Get("anthropic-version"); got != "2023-06-01" {
		t.Errorf("anthropic-version = %q", got)
	}
	for _, field := range []string{"model", "max_tokens", "system", "messages"} {
		if _, ok := gotBody[field]; !ok {
			t.Errorf("request body is missing %q", field)
		}
	}
}

func TestAnthropicCompleteSurfacesAPIErrorMessage(t *testing.T) {
	c := NewAnthropicClient("key", "model", time.Minute)
	c.httpClient.Transport = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusTooManyRequests, `{"error": {"type": "rate_limit_error", "message": "rate limited, slow down"}}`), nil
	})

	_, err := c.Complete(context.Background(), "sys", nil, 100)
	if err == nil || err.Error() != "rate limited, slow down" {
		t.Fatalf("error = %v; want the API's own message", err)
	}
}

func TestAnthropicCompleteFallsBackToStatus(t *testing.T) {
	c := NewAnthropicClient("key", "model", time.Minute)
	c.httpClient.Transport = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusServiceUnavailable, `not json at all`), nil
	})

	_, err := c.Complete(context.Background(), "sys", nil, 100)
	if err == nil || !strings.Contains(err.Error(), "chat endpoint error") {
		t.Fatalf("error = %v; want the status fallback", err)
	}
}

func TestAnthropicCompleteEmptyContent(t *testing.T) {
	c := NewAnthropicClient("key", "model", time.Minute)
	c.httpClient.Transport = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusOK, `{"content": []}`), nil
	})

	if _, err := c.Complete(context.Background(), "sys", nil, 100); err == nil {
		t.Fatal("empty content must be an error, not an empty reply")
	}
}

func TestProxyCompleteParsesResponse(t *testing.T) {
	var gotBody map[string]json.RawMessage
	c := NewProxyClient("http://proxy.test/api/chat", time.Minute)
	c.httpClient.Transport = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(req.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		return stubResponse(http.StatusOK, `{"response": "Which aircraft?"}`), nil
	})

	reply, err := c.Complete(context.Background(), "sys", []Message{{Role: "user", Content: "hi"}}, 300)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if reply != "Which aircraft?" {
		t.Errorf("reply = %q", reply)
	}
	for _, field := range []string{"system", "messages", "max_tokens"} {
		if _, ok := gotBody[field]; !ok {
			t.Errorf("request body is missing %q", field)
		}
	}
}

func TestProxyCompleteEmptyReply(t *testing.T) {
	c := NewProxyClient("http://proxy.test/api/chat", time.Minute)
	c.httpClient.Transport = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusOK, `{}`), nil
	})

	if _, err := c.Complete(context.Background(), "sys", nil, 300); err == nil {
		t.Fatal("empty proxy reply must be an error")
	}
}

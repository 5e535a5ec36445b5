package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one turn of the conversation as the chat endpoint expects it.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the chat transport: full history in, reply text out. The two
// implementations below cover a direct Anthropic call and a same-origin
// proxy speaking the same {system, messages} contract. The transport is
// chosen once at server construction, never branched on at call sites.
type Client interface {
	Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error)
}

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
)

// AnthropicClient calls the Anthropic messages API directly.
type AnthropicClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
}

// NewAnthropicClient builds a direct client. The timeout bounds the whole
// call; expiry surfaces as a plain transport error to the caller.
func NewAnthropicClient(apiKey, model string, timeout time.Duration) *AnthropicClient {
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   anthropicEndpoint,
		apiKey:     apiKey,
		model:      model,
	}
}

func (c *AnthropicClient) Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
	payload := map[string]interface{}{
		"model":      c.model,
		"max_tokens": maxTokens,
		"system":     system,
		"messages":   messages,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", parseAPIError(resp)
	}

	var out struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Content) == 0 {
		return "", errors.New("model returned an empty message")
	}
	return out.Content[0].Text, nil
}

// ProxyClient forwards the same logical request through a backend proxy,
// keeping the API key off the client entirely.
type ProxyClient struct {
	httpClient *http.Client
	url        string
}

func NewProxyClient(url string, timeout time.Duration) *ProxyClient {
	return &ProxyClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
	}
}

func (c *ProxyClient) Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
	// The proxy decides the model and token budget itself; maxTokens is
	// carried for parity with the direct transport.
	payload := map[string]interface{}{
		"system":     system,
		"messages":   messages,
		"max_tokens": maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", parseAPIError(resp)
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Response == "" {
		return "", errors.New("proxy returned an empty message")
	}
	return out.Response, nil
}

// parseAPIError pulls a usable message out of an error response body,
// falling back to the HTTP status.
func parseAPIError(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		return fmt.Errorf("chat endpoint error: %s", resp.Status)
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error.Message != "" {
		return errors.New(payload.Error.Message)
	}
	return fmt.Errorf("chat endpoint error: %s", resp.Status)
}

// Package reasoning provides the client for the AI reasoning service used by
// the oracle classifier and the judge panel. It speaks the OpenAI-compatible
// chat-completions protocol and treats responses as free text that merely
// tends to contain JSON.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Request is one call to the reasoning service.
type Request struct {
	// Instructions is the system-level framing for the call.
	Instructions string

	// Prompt is the user-level content.
	Prompt string

	// WebSearch asks the service to ground the answer with a web search when
	// the deployment supports it.
	WebSearch bool
}

// Response carries the raw free-text answer. Callers must tolerate markdown
// fencing and surrounding prose; see ExtractJSON.
type Response struct {
	Text string
}

// Service is the reasoning-service contract consumed by the classifier and
// the consensus engine.
type Service interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ClientConfig holds connection parameters for the reasoning service.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client is an HTTP client for an OpenAI-compatible chat-completions
// endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewClient creates a reasoning-service client. The base URL is normalised to
// end in /v1.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: normalizeBaseURL(cfg.BaseURL),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:   true,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	Tools       []chatTool    `json:"tools,omitempty"`
}

type chatTool struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one chat-completion request and returns the raw text of the
// first choice.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	if c.baseURL == "" {
		return Response{}, fmt.Errorf("reasoning: base URL is not configured")
	}

	body := chatRequest{
		Model:       c.model,
		Temperature: 0.1,
		Messages: []chatMessage{
			{Role: "system", Content: req.Instructions},
			{Role: "user", Content: req.Prompt},
		},
	}
	if req.WebSearch {
		body.Tools = []chatTool{{Type: "web_search"}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("reasoning: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("reasoning: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("reasoning: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, fmt.Errorf("reasoning: unexpected status %s", resp.Status)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Response{}, fmt.Errorf("reasoning: decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return Response{}, fmt.Errorf("reasoning: response missing choices")
	}

	text := decoded.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return Response{}, fmt.Errorf("reasoning: response empty")
	}
	return Response{Text: text}, nil
}

// normalizeBaseURL trims trailing slashes and appends /v1 when missing. An
// empty input stays empty so the caller can detect an unconfigured service.
func normalizeBaseURL(baseURL string) string {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if strings.HasSuffix(trimmed, "/v1") {
		return trimmed
	}
	return trimmed + "/v1"
}

var _ Service = (*Client)(nil)

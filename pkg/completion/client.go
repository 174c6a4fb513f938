// Package completion wraps the one external integration point: a plain
// text-completion HTTP endpoint. Every caller treats it as optional and
// falls back to deterministic templates when it is unconfigured or
// fails, so the user-visible behavior is always a successful response.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/pkg/errors"
)

// ErrUnavailable signals that no endpoint or API key is configured and
// the caller should take its template fallback path.
var ErrUnavailable = errors.New("completion endpoint not configured")

// Client sends a prompt to a text-completion provider.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

type completionRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

type completionResponse struct {
	Text string `json:"text"`
}

// HTTPClient is the HTTP implementation of Client.
type HTTPClient struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewHTTPClient(endpoint, apiKey, model string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Model() string { return c.model }

// Complete posts the prompt and returns the completion text. A missing
// endpoint or key returns ErrUnavailable rather than attempting a call.
func (c *HTTPClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.endpoint == "" || c.apiKey == "" {
		return "", ErrUnavailable
	}

	body, err := json.Marshal(completionRequest{Model: c.model, Prompt: prompt, MaxTokens: 2048})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "completion request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion request failed: status code %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "failed to decode response body")
	}
	if out.Text == "" {
		return "", errors.New("empty completion")
	}
	return out.Text, nil
}

var jsonBlock = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON pulls the first JSON object out of a completion, which
// providers routinely wrap in prose or code fences.
func ExtractJSON(s string) (string, bool) {
	m := jsonBlock.FindString(s)
	if m == "" {
		return "", false
	}
	return m, true
}

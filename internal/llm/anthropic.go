package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"abstractscreen/internal/config"
	"abstractscreen/internal/ports"
)

const (
	defaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion         = "2023-06-01"
)

// Anthropic implements ports.Gateway against the Anthropic messages API.
type Anthropic struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Gateway = (*Anthropic)(nil)

// NewAnthropic builds an adapter from configuration.
func NewAnthropic(cfg config.ProviderConfig, timeout time.Duration) *Anthropic {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultAnthropicEndpoint
	}
	return &Anthropic{
		endpoint: endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ModelID identifies the provider and model for decision records.
func (c *Anthropic) ModelID() string { return "anthropic/" + c.model }

// Complete posts the prompt as a single user message and returns the first
// text block of the reply.
func (c *Anthropic) Complete(ctx context.Context, promptText string) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", &ports.ProviderError{Provider: "anthropic", Transient: false, Err: fmt.Errorf("client misconfigured")}
	}

	body, err := json.Marshal(map[string]any{
		"model":      c.model,
		"max_tokens": 500,
		"system":     systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": promptText},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransport("anthropic", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", classifyStatus("anthropic", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &ports.ProviderError{Provider: "anthropic", Transient: true, Err: fmt.Errorf("decode response: %w", err)}
	}
	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", &ports.ProviderError{Provider: "anthropic", Transient: true, Err: fmt.Errorf("response contains no text block")}
}

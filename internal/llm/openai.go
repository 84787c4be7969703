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

const defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"

const systemPrompt = "You are a helpful research assistant."

// OpenAI implements ports.Gateway against OpenAI-compatible chat completion
// APIs.
type OpenAI struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Gateway = (*OpenAI)(nil)

// NewOpenAI builds an adapter from configuration.
func NewOpenAI(cfg config.ProviderConfig, timeout time.Duration) *OpenAI {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	return &OpenAI{
		endpoint: endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ModelID identifies the provider and model for decision records.
func (c *OpenAI) ModelID() string { return "openai/" + c.model }

// Complete posts the prompt as a user message and returns the reply text.
func (c *OpenAI) Complete(ctx context.Context, promptText string) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", &ports.ProviderError{Provider: "openai", Transient: false, Err: fmt.Errorf("client misconfigured")}
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": promptText},
		},
		"temperature": 0.1,
		"max_tokens":  500,
	})
	if err != nil {
		return "", fmt.Errorf("marshal openai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransport("openai", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", classifyStatus("openai", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &ports.ProviderError{Provider: "openai", Transient: true, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &ports.ProviderError{Provider: "openai", Transient: true, Err: fmt.Errorf("response contains no choices")}
	}

	return parsed.Choices[0].Message.Content, nil
}

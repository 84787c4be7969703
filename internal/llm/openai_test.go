package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abstractscreen/internal/config"
	"abstractscreen/internal/ports"
)

func openAIFor(t *testing.T, server *httptest.Server, timeout time.Duration) *OpenAI {
	t.Helper()
	return NewOpenAI(config.ProviderConfig{
		Name:     config.ProviderOpenAI,
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
		Endpoint: server.URL,
	}, timeout)
}

func TestOpenAICompleteSuccess(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"decision\":\"Include\"}"}}]}`))
	}))
	defer server.Close()

	client := openAIFor(t, server, 5*time.Second)
	raw, err := client.Complete(context.Background(), "screen this abstract")
	require.NoError(t, err)
	assert.Equal(t, `{"decision":"Include"}`, raw)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])

	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, "screen this abstract", user["content"])
}

func TestOpenAIRateLimitIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := openAIFor(t, server, 5*time.Second).Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, ports.IsTransient(err))
}

func TestOpenAIServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := openAIFor(t, server, 5*time.Second).Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, ports.IsTransient(err))
}

func TestOpenAIAuthFailureIsFatal(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := openAIFor(t, server, 5*time.Second).Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, ports.IsFatal(err))

	var pe *ports.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
}

func TestOpenAITimeoutIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	_, err := openAIFor(t, server, 20*time.Millisecond).Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, ports.IsTransient(err))
}

func TestOpenAIEmptyChoicesIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := openAIFor(t, server, 5*time.Second).Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, ports.IsTransient(err))
}

func TestOpenAIMisconfiguredIsFatal(t *testing.T) {
	t.Parallel()

	client := NewOpenAI(config.ProviderConfig{Name: config.ProviderOpenAI}, time.Second)
	_, err := client.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, ports.IsFatal(err))
}

func TestNewResolvesProviders(t *testing.T) {
	t.Parallel()

	gw, err := New(config.ProviderConfig{Name: config.ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "k"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o-mini", gw.ModelID())

	gw, err = New(config.ProviderConfig{Name: config.ProviderAnthropic, Model: "claude-sonnet-4-5", APIKey: "k"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-sonnet-4-5", gw.ModelID())

	_, err = New(config.ProviderConfig{Name: "cohere"}, time.Second)
	require.Error(t, err)
}

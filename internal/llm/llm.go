// Package llm holds one gateway adapter per supported provider. Adapters
// shape the provider-specific request, pull the reply text out of the
// response, and classify failures as transient or fatal. They never retry
// internally; that is the retry policy's job.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"abstractscreen/internal/config"
	"abstractscreen/internal/ports"
)

// New resolves a gateway adapter from configuration.
func New(cfg config.ProviderConfig, timeout time.Duration) (ports.Gateway, error) {
	switch cfg.Name {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg, timeout), nil
	case config.ProviderAnthropic:
		return NewAnthropic(cfg, timeout), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Name)
	}
}

// classifyStatus maps an HTTP failure status to the provider error taxonomy.
// Rate limits, request timeouts, and server-side failures are transient;
// auth and request-shape problems are fatal.
func classifyStatus(provider string, status int, detail string) error {
	transient := status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= 500
	return &ports.ProviderError{
		Provider:  provider,
		Status:    status,
		Transient: transient,
		Err:       fmt.Errorf("unexpected status %d: %s", status, detail),
	}
}

// classifyTransport wraps connection-level failures. Timeouts and dropped
// connections are transient by definition; a canceled context is handed back
// untouched so the run-level cancellation path sees it.
func classifyTransport(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ports.ProviderError{
		Provider:  provider,
		Transient: true,
		Err:       err,
	}
}

package ports

import (
	"context"
	"errors"
	"fmt"

	"abstractscreen/internal/domain"
)

// Gateway submits a finished prompt to one LLM provider and returns the raw
// text of the model's reply. Adapters own request shaping and failure
// classification only; retries live one layer up so backoff stays
// provider-agnostic.
type Gateway interface {
	Complete(ctx context.Context, prompt string) (string, error)
	ModelID() string
}

// DecisionRepository persists run output for later inspection. Implementations
// must tolerate an absent backend by turning saves into no-ops.
type DecisionRepository interface {
	SaveDecisions(ctx context.Context, runID string, decisions []domain.Decision) error
}

// Progress is the per-item state the caller may observe mid-run.
type Progress struct {
	Succeeded int
	Failed    int
	Pending   int
}

// ProgressFunc receives counters after each completed item. Calls are
// serialized by the processor.
type ProgressFunc func(Progress)

// ProviderError classifies a gateway failure. Transient failures (rate
// limits, timeouts, 5xx) are worth retrying; fatal ones (auth, malformed
// request) never recover by waiting.
type ProviderError struct {
	Provider  string
	Status    int
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s provider error (status %d): %v", e.Provider, kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s provider error: %v", e.Provider, kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}

// IsFatal reports whether err is a provider failure that retrying cannot fix.
func IsFatal(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && !pe.Transient
}

// Package retry wraps gateway calls with bounded retries and exponential
// backoff. Classification lives with the provider adapters; this layer only
// reacts to it, which keeps backoff provider-agnostic and testable with
// plain stubs.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"abstractscreen/internal/ports"
)

// ExhaustedError reports that every attempt failed with a transient error.
// The caller converts it into an Error-outcome decision; it never aborts the
// surrounding batch.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Policy retries transient provider failures with capped exponential backoff
// plus jitter. Fatal failures abort immediately: no amount of waiting fixes
// an auth error.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a policy with the given retry budget. MaxRetries counts retries
// beyond the first attempt, so the total attempt ceiling is MaxRetries+1.
func New(maxRetries int, baseDelay, maxDelay time.Duration) *Policy {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	return &Policy{
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		MaxDelay:   maxDelay,
		sleep:      sleepCtx,
	}
}

// Execute runs op until it succeeds, fails fatally, or the retry budget is
// spent. It returns the op's value together with the number of attempts
// made, so callers can audit how hard each item was.
func (p *Policy) Execute(ctx context.Context, op func(context.Context) (string, error)) (string, int, error) {
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", attempt, err
		}

		value, err := op(ctx)
		if err == nil {
			return value, attempt + 1, nil
		}
		if !ports.IsTransient(err) {
			// Fatal provider errors and anything unclassified short-circuit.
			return "", attempt + 1, err
		}
		lastErr = err

		if attempt < p.MaxRetries {
			if err := p.sleep(ctx, p.delay(attempt)); err != nil {
				return "", attempt + 1, err
			}
		}
	}

	return "", p.MaxRetries + 1, &ExhaustedError{Attempts: p.MaxRetries + 1, Last: lastErr}
}

// delay computes base*2^attempt capped at MaxDelay, plus up to 10% jitter to
// avoid synchronized retries across concurrent workers.
func (p *Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d)/10 + 1))
	return d + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

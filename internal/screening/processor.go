// Package screening is the batch orchestrator: it turns criteria plus a
// sequence of abstracts into exactly one decision per abstract, surviving
// item-level failures and stopping only for run-level ones.
package screening

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"abstractscreen/internal/audit"
	"abstractscreen/internal/domain"
	"abstractscreen/internal/parser"
	"abstractscreen/internal/ports"
	"abstractscreen/internal/prompt"
	"abstractscreen/internal/retry"
)

// Deps wires all collaborators into the processor.
type Deps struct {
	Gateway ports.Gateway
	Builder *prompt.Builder
	Policy  *retry.Policy
	Audit   *audit.Log
	Logger  *slog.Logger

	BatchSize  int
	Workers    int
	BatchPause time.Duration
}

// Processor iterates abstracts in fixed-size batches, dispatching items
// within a batch concurrently up to the worker limit. Batches themselves run
// sequentially so inter-batch pacing bounds the request rate.
type Processor struct {
	gateway ports.Gateway
	builder *prompt.Builder
	policy  *retry.Policy
	audit   *audit.Log
	logger  *slog.Logger

	batchSize  int
	workers    int
	batchPause time.Duration
}

// Result is one completed (or partial) screening run.
type Result struct {
	RunID     string
	Decisions []domain.Decision
	Stats     Stats

	// Partial is set when cancellation or a fatal provider error stopped the
	// run before every abstract was decided. Decisions then holds the items
	// decided so far, still in input order.
	Partial bool
}

// NewProcessor constructs the orchestrator.
func NewProcessor(deps Deps) *Processor {
	p := &Processor{
		gateway:    deps.Gateway,
		builder:    deps.Builder,
		policy:     deps.Policy,
		audit:      deps.Audit,
		logger:     deps.Logger,
		batchSize:  deps.BatchSize,
		workers:    deps.Workers,
		batchPause: deps.BatchPause,
	}
	if p.batchSize <= 0 {
		p.batchSize = 10
	}
	if p.workers <= 0 {
		p.workers = 1
	}
	if p.audit == nil {
		p.audit = audit.NewLog()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run screens every abstract against the criteria. It validates all input
// before any network activity, then guarantees exactly one decision per
// record in input order. A single item's retry exhaustion becomes an
// Error-outcome decision; a fatal provider error or cancellation returns the
// partial result with a non-nil error.
func (p *Processor) Run(ctx context.Context, criteria domain.Criteria, abstracts []domain.Abstract, progress ports.ProgressFunc) (Result, error) {
	if err := criteria.Validate(); err != nil {
		return Result{}, err
	}
	if err := domain.ValidateBatch(abstracts); err != nil {
		return Result{}, err
	}
	if err := p.builder.ValidateBudget(criteria); err != nil {
		return Result{}, err
	}

	cleaned := make([]domain.Abstract, len(abstracts))
	for i, a := range abstracts {
		cleaned[i] = a.Cleaned()
	}

	run := &runState{
		decisions: make([]domain.Decision, len(cleaned)),
		decided:   make([]bool, len(cleaned)),
		total:     len(cleaned),
		progress:  progress,
	}
	runID := uuid.NewString()
	p.logger.Info("screening run started",
		"run_id", runID,
		"records", len(cleaned),
		"batch_size", p.batchSize,
		"workers", p.workers,
		"model", p.gateway.ModelID())

	var runErr error
	totalBatches := (len(cleaned) + p.batchSize - 1) / p.batchSize

	for start := 0; start < len(cleaned); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		end := start + p.batchSize
		if end > len(cleaned) {
			end = len(cleaned)
		}

		if err := p.runBatch(ctx, runID, criteria, cleaned, start, end, run); err != nil {
			runErr = err
			break
		}

		batchNum := start/p.batchSize + 1
		p.logger.Debug("batch complete", "run_id", runID, "batch", batchNum, "of", totalBatches)

		if end < len(cleaned) && p.batchPause > 0 {
			if err := pause(ctx, p.batchPause); err != nil {
				runErr = err
				break
			}
		}
	}

	result := run.buildResult(runID)
	result.Partial = runErr != nil

	if runErr != nil {
		p.logger.Warn("screening run stopped early",
			"run_id", runID,
			"decided", result.Stats.Succeeded+result.Stats.Failed,
			"pending", result.Stats.Pending,
			"error", runErr)
		return result, fmt.Errorf("screening run %s: %w", runID, runErr)
	}

	p.logger.Info("screening run complete",
		"run_id", runID,
		"included", result.Stats.Included,
		"excluded", result.Stats.Excluded,
		"errors", result.Stats.Failed,
		"flagged", result.Stats.NeedsReview)
	return result, nil
}

// runBatch dispatches one batch with bounded concurrency. Decisions land in
// their input position, so completion order never reorders output.
func (p *Processor) runBatch(ctx context.Context, runID string, criteria domain.Criteria, cleaned []domain.Abstract, start, end int, run *runState) error {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers)

	for i := start; i < end; i++ {
		i := i
		group.Go(func() error {
			// Cooperative cancellation is checked at item boundaries only;
			// an in-flight call is never aborted from here.
			if err := gctx.Err(); err != nil {
				return err
			}
			decision, err := p.screenOne(gctx, criteria, cleaned[i])
			if err != nil {
				return err
			}
			run.record(i, decision)
			return nil
		})
	}

	return group.Wait()
}

// screenOne runs the per-item pipeline: prompt, retry-wrapped gateway call,
// parse, decision, audit entry. Item-level failures are converted into an
// Error decision here; only fatal provider errors and cancellation escape.
func (p *Processor) screenOne(ctx context.Context, criteria domain.Criteria, record domain.Abstract) (domain.Decision, error) {
	promptText := p.builder.Build(criteria, record)

	raw, attempts, err := p.policy.Execute(ctx, func(callCtx context.Context) (string, error) {
		return p.gateway.Complete(callCtx, promptText)
	})
	now := time.Now().UTC()

	if err != nil {
		var exhausted *retry.ExhaustedError
		switch {
		case errors.As(err, &exhausted):
			decision := domain.Decision{
				ReferenceID: record.ReferenceID,
				Outcome:     domain.OutcomeError,
				Reasoning:   fmt.Sprintf("screening failed: %v", exhausted),
				ModelID:     p.gateway.ModelID(),
				Timestamp:   now,
			}
			p.appendAudit(record.ReferenceID, promptText, "", decision, attempts, false)
			p.logger.Warn("item failed after retries", "reference_id", record.ReferenceID, "attempts", attempts, "error", exhausted.Last)
			return decision, nil
		case ports.IsFatal(err):
			// Recorded before aborting so the audit trail covers the item
			// that exposed the configuration problem.
			p.appendAudit(record.ReferenceID, promptText, "", domain.Decision{
				ReferenceID: record.ReferenceID,
				Outcome:     domain.OutcomeError,
				Reasoning:   err.Error(),
				ModelID:     p.gateway.ModelID(),
				Timestamp:   now,
			}, attempts, false)
			return domain.Decision{}, err
		default:
			// Context cancellation: the item stays pending.
			return domain.Decision{}, err
		}
	}

	parsed := parser.Parse(raw)
	decision := domain.Decision{
		ReferenceID: record.ReferenceID,
		Outcome:     parsed.Outcome,
		Reasoning:   parsed.Reasoning,
		ModelID:     p.gateway.ModelID(),
		Timestamp:   now,
		NeedsReview: parsed.NeedsReview,
	}
	p.appendAudit(record.ReferenceID, promptText, raw, decision, attempts, parsed.NeedsReview)

	if parsed.NeedsReview {
		p.logger.Info("decision flagged for review", "reference_id", record.ReferenceID, "outcome", decision.Outcome)
	}
	return decision, nil
}

func (p *Processor) appendAudit(refID, promptText, raw string, d domain.Decision, attempts int, flagged bool) {
	p.audit.Append(audit.Entry{
		ReferenceID: refID,
		Prompt:      promptText,
		RawResponse: raw,
		Outcome:     d.Outcome,
		Reasoning:   d.Reasoning,
		ModelID:     d.ModelID,
		Timestamp:   d.Timestamp,
		Attempts:    attempts,
		Flagged:     flagged,
	})
}

// runState accumulates decisions by input position under a lock shared by
// the batch workers.
type runState struct {
	mu        sync.Mutex
	decisions []domain.Decision
	decided   []bool
	total     int
	succeeded int
	failed    int
	progress  ports.ProgressFunc
}

func (r *runState) record(i int, d domain.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions[i] = d
	r.decided[i] = true
	if d.Failed() {
		r.failed++
	} else {
		r.succeeded++
	}
	if r.progress != nil {
		r.progress(ports.Progress{
			Succeeded: r.succeeded,
			Failed:    r.failed,
			Pending:   r.total - r.succeeded - r.failed,
		})
	}
}

func (r *runState) buildResult(runID string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	decisions := make([]domain.Decision, 0, r.succeeded+r.failed)
	for i, ok := range r.decided {
		if ok {
			decisions = append(decisions, r.decisions[i])
		}
	}
	return Result{
		RunID:     runID,
		Decisions: decisions,
		Stats:     computeStats(decisions, r.total),
	}
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

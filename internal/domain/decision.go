package domain

import "time"

// Outcome enumerates the screening outcomes for a single abstract.
type Outcome string

const (
	// OutcomeInclude keeps the study for full-text review.
	OutcomeInclude Outcome = "Include"
	// OutcomeExclude rejects the study with a criterion-referencing reason.
	OutcomeExclude Outcome = "Exclude"
	// OutcomeError marks a processing failure after retries were exhausted.
	// It is distinct from a genuine Exclude and must be triaged separately.
	OutcomeError Outcome = "Error"
)

// Decision is the per-abstract result of one screening run. Reasoning is
// empty exactly when the outcome is Include; Exclude and Error carry a
// human-readable explanation.
type Decision struct {
	ReferenceID string
	Outcome     Outcome
	Reasoning   string
	ModelID     string
	Timestamp   time.Time

	// NeedsReview flags decisions produced through a degraded path: a
	// malformed model response or an Exclude whose reasoning does not
	// reference any criterion.
	NeedsReview bool
}

// Included reports whether the study passed screening.
func (d Decision) Included() bool { return d.Outcome == OutcomeInclude }

// Excluded reports whether the study was rejected by the model.
func (d Decision) Excluded() bool { return d.Outcome == OutcomeExclude }

// Failed reports whether processing failed rather than the study being judged.
func (d Decision) Failed() bool { return d.Outcome == OutcomeError }

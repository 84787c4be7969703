// Package parser turns raw model text into a validated screening outcome.
// Malformed responses are a certainty at scale, so this package never
// returns an error: anything it cannot understand degrades to the
// conservative default of Include, flagged for manual review.
package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"abstractscreen/internal/domain"
)

// Result is the decision fragment extracted from one model response.
type Result struct {
	Outcome   domain.Outcome
	Reasoning string

	// NeedsReview marks degraded parses: either the payload was malformed
	// (outcome defaulted to Include) or an Exclude arrived without
	// criterion-referencing reasoning.
	NeedsReview bool
}

// payload is the wire format the prompt instructs the model to return.
type payload struct {
	Decision  string `json:"decision"`
	Reasoning string `json:"reasoning"`
}

const malformedReasoning = "model response could not be parsed; defaulted to Include for manual review"

var (
	jsonBlock      = regexp.MustCompile(`(?s)\{.*\}`)
	decisionField  = regexp.MustCompile(`(?i)"decision"\s*:\s*"([^"]+)"`)
	reasoningField = regexp.MustCompile(`(?i)"reasoning"\s*:\s*"([^"]+)"`)

	// criterionTerms is the vocabulary an Exclude reasoning must touch to
	// count as explaining which criterion was violated.
	criterionTerms = []string{
		"population", "intervention", "comparator",
		"criterion", "criteria", "inclusion", "exclusion",
	}
)

// Parse validates raw model output. The rules, in order: unparseable payloads
// default to Include with a diagnostic (never Exclude, never dropped);
// Exclude without criterion-referencing reasoning is kept but flagged;
// Include has its reasoning forced empty regardless of what the model wrote.
func Parse(raw string) Result {
	p, ok := extract(raw)
	if !ok {
		return Result{
			Outcome:     domain.OutcomeInclude,
			Reasoning:   malformedReasoning,
			NeedsReview: true,
		}
	}

	reasoning := strings.TrimSpace(p.Reasoning)
	switch normalizeDecision(p.Decision) {
	case domain.OutcomeInclude:
		// Output contract: no reasoning for inclusions.
		return Result{Outcome: domain.OutcomeInclude}
	case domain.OutcomeExclude:
		return Result{
			Outcome:     domain.OutcomeExclude,
			Reasoning:   reasoning,
			NeedsReview: !referencesCriterion(reasoning),
		}
	default:
		return Result{
			Outcome:     domain.OutcomeInclude,
			Reasoning:   malformedReasoning,
			NeedsReview: true,
		}
	}
}

// extract tries strict JSON first, then the first {...} block, then a field
// level regex salvage for responses where the model wrapped the JSON in
// prose or broke the structure.
func extract(raw string) (payload, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return payload{}, false
	}

	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err == nil && p.Decision != "" {
		return p, true
	}

	if block := jsonBlock.FindString(raw); block != "" {
		if err := json.Unmarshal([]byte(block), &p); err == nil && p.Decision != "" {
			return p, true
		}
	}

	if m := decisionField.FindStringSubmatch(raw); m != nil {
		p = payload{Decision: m[1]}
		if r := reasoningField.FindStringSubmatch(raw); r != nil {
			p.Reasoning = r[1]
		}
		return p, true
	}

	return payload{}, false
}

func normalizeDecision(text string) domain.Outcome {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(lower, "include"):
		return domain.OutcomeInclude
	case strings.Contains(lower, "exclude"):
		return domain.OutcomeExclude
	default:
		return ""
	}
}

func referencesCriterion(reasoning string) bool {
	if reasoning == "" {
		return false
	}
	lower := strings.ToLower(reasoning)
	for _, term := range criterionTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

package domain

import (
	"fmt"
	"strings"
)

// Abstract is one row of screening input: a reference identifier plus the
// title and abstract text of a study. GroundTruth carries an optional expert
// decision used for accuracy reporting only; the pipeline never reads it.
type Abstract struct {
	ReferenceID  string
	Title        string
	AbstractText string
	GroundTruth  string
}

// Validate checks the fields required before an abstract may enter the
// pipeline. An empty abstract text is allowed (the model sees the title).
func (a Abstract) Validate() error {
	if strings.TrimSpace(a.ReferenceID) == "" {
		return &ValidationError{Field: "reference_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(a.Title) == "" {
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("must not be empty (reference %s)", a.ReferenceID)}
	}
	return nil
}

// Cleaned returns a copy with title and abstract text normalized for LLM
// consumption. The original record is never mutated.
func (a Abstract) Cleaned() Abstract {
	return Abstract{
		ReferenceID:  strings.TrimSpace(a.ReferenceID),
		Title:        CleanTitle(a.Title),
		AbstractText: CleanText(a.AbstractText),
		GroundTruth:  strings.TrimSpace(a.GroundTruth),
	}
}

// ValidateBatch checks every record and rejects duplicate reference ids,
// which would make decisions ambiguous downstream.
func ValidateBatch(abstracts []Abstract) error {
	seen := make(map[string]struct{}, len(abstracts))
	for i, a := range abstracts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
		id := strings.TrimSpace(a.ReferenceID)
		if _, dup := seen[id]; dup {
			return &ValidationError{Field: "reference_id", Reason: fmt.Sprintf("duplicate id %q", id)}
		}
		seen[id] = struct{}{}
	}
	return nil
}

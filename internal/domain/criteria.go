package domain

import (
	"fmt"
	"strings"
)

// Criteria is the inclusion/exclusion policy a whole batch is screened
// against. It is built once from user input and treated as read-only for the
// duration of a run so that every abstract is judged by the same text.
type Criteria struct {
	Population   string
	Intervention string
	Comparator   string

	// AdditionalInclusion and AdditionalExclusion extend the structured
	// criteria with free-form bullet points.
	AdditionalInclusion []string
	AdditionalExclusion []string

	// FreeTextOverride replaces the structured fields entirely when set.
	FreeTextOverride string
}

// Validate checks that at least one complete criteria representation exists:
// either all three structured fields or the free-text override.
func (c Criteria) Validate() error {
	if strings.TrimSpace(c.FreeTextOverride) != "" {
		return nil
	}

	missing := make([]string, 0, 3)
	if strings.TrimSpace(c.Population) == "" {
		missing = append(missing, "population")
	}
	if strings.TrimSpace(c.Intervention) == "" {
		missing = append(missing, "intervention")
	}
	if strings.TrimSpace(c.Comparator) == "" {
		missing = append(missing, "comparator")
	}
	if len(missing) > 0 {
		return &ValidationError{Field: strings.Join(missing, ", "), Reason: "criteria field is empty and no free-text override is set"}
	}
	return nil
}

// PromptText renders the criteria block embedded into every prompt. The
// structured fields are concatenated with labels; the override wins when set.
func (c Criteria) PromptText() string {
	if strings.TrimSpace(c.FreeTextOverride) != "" {
		return strings.TrimSpace(c.FreeTextOverride)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- Population: %s\n", strings.TrimSpace(c.Population))
	fmt.Fprintf(&b, "- Intervention: %s\n", strings.TrimSpace(c.Intervention))
	fmt.Fprintf(&b, "- Comparator: %s", strings.TrimSpace(c.Comparator))

	for _, extra := range c.AdditionalInclusion {
		if extra = strings.TrimSpace(extra); extra != "" {
			fmt.Fprintf(&b, "\n- Additional inclusion: %s", extra)
		}
	}
	for _, extra := range c.AdditionalExclusion {
		if extra = strings.TrimSpace(extra); extra != "" {
			fmt.Fprintf(&b, "\n- Additional exclusion: %s", extra)
		}
	}
	return b.String()
}

package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"abstractscreen/internal/domain"
)

const truncationMarker = " [abstract truncated]"

// template is the single screening prompt. %s slots: criteria block, title,
// abstract text. The trailing instructions pin the wire format the parser
// expects.
const template = `You are an expert systematic review researcher. Your task is to screen a research abstract to determine if it should be included in a systematic review based on specific criteria.

INCLUSION CRITERIA:
%s

ABSTRACT TO SCREEN:
Title: %s

Abstract: %s

INSTRUCTIONS:
1. Carefully read the abstract and determine if it meets ALL inclusion criteria
2. The study must clearly involve the specified population, intervention, and comparator
3. If ANY criterion is not met, the abstract should be EXCLUDED
4. If ALL criteria are met, the abstract should be INCLUDED

RESPONSE FORMAT:
Provide your response in the following JSON format:
{
    "decision": "Include" or "Exclude",
    "reasoning": "Brief explanation of your decision, specifically referencing which criteria were met or not met"
}

Your response must be valid JSON only, with no additional text before or after.`

// Builder renders screening prompts under a fixed character budget. It is a
// pure function of its inputs: identical criteria and abstract always yield
// byte-identical prompt text, which is what makes retries meaningful.
type Builder struct {
	charBudget int
}

// NewBuilder creates a builder with the given character budget. A budget of
// zero or less disables truncation.
func NewBuilder(charBudget int) *Builder {
	return &Builder{charBudget: charBudget}
}

// ValidateBudget checks that the instructions and criteria fit the budget on
// their own. When they do not, no abstract could ever be screened, so the
// run must not start.
func (b *Builder) ValidateBudget(criteria domain.Criteria) error {
	if b.charBudget <= 0 {
		return nil
	}
	fixed := len(b.render(criteria, "", ""))
	if fixed+len(truncationMarker) > b.charBudget {
		return &domain.ValidationError{
			Field:  "promptCharBudget",
			Reason: fmt.Sprintf("criteria and instructions alone need %d characters, budget is %d", fixed, b.charBudget),
		}
	}
	return nil
}

// Build renders the complete prompt for one abstract. When the combined text
// exceeds the budget, only the abstract is shortened from the tail; criteria
// and instructions are never cut, because losing abstract text reduces
// evidence while losing criteria corrupts the decision policy itself.
func (b *Builder) Build(criteria domain.Criteria, record domain.Abstract) string {
	full := b.render(criteria, record.Title, record.AbstractText)
	if b.charBudget <= 0 || len(full) <= b.charBudget {
		return full
	}

	overhead := len(full) - len(record.AbstractText)
	allowed := b.charBudget - overhead - len(truncationMarker)
	if allowed < 0 {
		allowed = 0
	}
	// Back off to a rune boundary so the cut never splits a character.
	for allowed > 0 && !utf8.RuneStart(record.AbstractText[allowed]) {
		allowed--
	}
	truncated := record.AbstractText[:allowed] + truncationMarker
	return b.render(criteria, record.Title, truncated)
}

func (b *Builder) render(criteria domain.Criteria, title, abstractText string) string {
	return fmt.Sprintf(template, criteria.PromptText(), title, abstractText)
}

// EstimateTokens gives a rough token count for budget reasoning, using the
// common four-characters-per-token approximation.
func EstimateTokens(prompt string) int {
	return len(strings.TrimSpace(prompt)) / 4
}

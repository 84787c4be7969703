package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abstractscreen/internal/domain"
)

var testCriteria = domain.Criteria{
	Population:   "adults with type 2 diabetes",
	Intervention: "metformin",
	Comparator:   "placebo",
}

func TestBuildIsDeterministic(t *testing.T) {
	t.Parallel()

	b := NewBuilder(0)
	record := domain.Abstract{
		ReferenceID:  "REF001",
		Title:        "Metformin vs placebo in T2DM",
		AbstractText: "A randomized trial of metformin 500mg vs placebo in 200 adults.",
	}

	first := b.Build(testCriteria, record)
	second := b.Build(testCriteria, record)
	assert.Equal(t, first, second, "identical inputs must yield byte-identical prompts")
}

func TestBuildEmbedsCriteriaAndAbstract(t *testing.T) {
	t.Parallel()

	b := NewBuilder(0)
	record := domain.Abstract{
		ReferenceID:  "REF001",
		Title:        "Metformin vs placebo in T2DM",
		AbstractText: "A randomized trial of metformin.",
	}

	got := b.Build(testCriteria, record)
	assert.Contains(t, got, "- Population: adults with type 2 diabetes")
	assert.Contains(t, got, "Title: Metformin vs placebo in T2DM")
	assert.Contains(t, got, "Abstract: A randomized trial of metformin.")
	assert.Contains(t, got, `"decision": "Include" or "Exclude"`)
}

func TestBuildTruncatesOnlyTheAbstract(t *testing.T) {
	t.Parallel()

	record := domain.Abstract{
		ReferenceID:  "REF001",
		Title:        "Long abstract study",
		AbstractText: strings.Repeat("evidence ", 2000),
	}

	unbounded := NewBuilder(0)
	full := unbounded.Build(testCriteria, record)
	budget := len(full) - 5000

	b := NewBuilder(budget)
	got := b.Build(testCriteria, record)

	assert.LessOrEqual(t, len(got), budget)
	// Criteria and instructions survive intact.
	assert.Contains(t, got, testCriteria.PromptText())
	assert.Contains(t, got, "INSTRUCTIONS:")
	assert.Contains(t, got, "Your response must be valid JSON only")
	// The abstract is shortened from the tail and marked.
	assert.Contains(t, got, "[abstract truncated]")
}

func TestBuildWithinBudgetUnchanged(t *testing.T) {
	t.Parallel()

	record := domain.Abstract{ReferenceID: "REF001", Title: "Short", AbstractText: "Tiny abstract."}

	unbounded := NewBuilder(0).Build(testCriteria, record)
	bounded := NewBuilder(len(unbounded) + 100).Build(testCriteria, record)
	assert.Equal(t, unbounded, bounded)
}

func TestValidateBudgetRejectsImpossibleBudget(t *testing.T) {
	t.Parallel()

	b := NewBuilder(50)
	err := b.ValidateBudget(testCriteria)
	require.Error(t, err)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, NewBuilder(0).ValidateBudget(testCriteria))
	require.NoError(t, NewBuilder(100000).ValidateBudget(testCriteria))
}

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("a", 100)))
}

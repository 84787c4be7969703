package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbstractValidate(t *testing.T) {
	t.Parallel()

	ok := Abstract{ReferenceID: "REF001", Title: "Metformin vs placebo"}
	require.NoError(t, ok.Validate())

	noID := Abstract{Title: "Some study"}
	require.Error(t, noID.Validate())

	noTitle := Abstract{ReferenceID: "REF002"}
	require.Error(t, noTitle.Validate())

	// Empty abstract text is explicitly allowed.
	emptyBody := Abstract{ReferenceID: "REF003", Title: "Title only"}
	require.NoError(t, emptyBody.Validate())
}

func TestValidateBatchRejectsDuplicates(t *testing.T) {
	t.Parallel()

	batch := []Abstract{
		{ReferenceID: "REF001", Title: "First"},
		{ReferenceID: "REF002", Title: "Second"},
		{ReferenceID: "REF001", Title: "Duplicate"},
	}
	err := ValidateBatch(batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REF001")
}

func TestCleanedDoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	original := Abstract{
		ReferenceID:  " REF001 ",
		Title:        "A <i>trial</i> of metformin.",
		AbstractText: "Line one-\ncontinued.",
	}
	cleaned := original.Cleaned()

	assert.Equal(t, " REF001 ", original.ReferenceID)
	assert.Equal(t, "REF001", cleaned.ReferenceID)
	assert.Equal(t, "A trial of metformin", cleaned.Title)
	assert.Equal(t, "Line onecontinued.", cleaned.AbstractText)
}

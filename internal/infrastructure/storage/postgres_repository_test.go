package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abstractscreen/internal/audit"
	"abstractscreen/internal/domain"
)

func TestNoopRepositoryWithoutDSN(t *testing.T) {
	t.Parallel()

	repo, err := Open("")
	require.NoError(t, err)

	ctx := context.Background()
	assert.NoError(t, repo.SaveDecisions(ctx, "run-1", []domain.Decision{{ReferenceID: "R01", Outcome: domain.OutcomeInclude}}))
	assert.NoError(t, repo.SaveAuditEntries(ctx, "run-1", []audit.Entry{{ReferenceID: "R01"}}))
	assert.NoError(t, repo.Close())
}

func TestSaveSkipsEmptyInput(t *testing.T) {
	t.Parallel()

	repo := NewPostgresRepository(nil)
	assert.NoError(t, repo.SaveDecisions(context.Background(), "run-1", nil))
	assert.NoError(t, repo.SaveAuditEntries(context.Background(), "run-1", nil))
}

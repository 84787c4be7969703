package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"abstractscreen/internal/audit"
	"abstractscreen/internal/domain"
	"abstractscreen/internal/ports"
)

// PostgresRepository persists decisions and audit entries into Postgres so a
// run's output survives the process. A nil db makes every call a no-op,
// which keeps the sink optional.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.DecisionRepository = (*PostgresRepository)(nil)

// Open connects using the given DSN. An empty DSN yields a no-op repository.
func Open(dsn string) (*PostgresRepository, error) {
	if dsn == "" {
		return NewPostgresRepository(nil), nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open postgres: %w", err)
	}
	return NewPostgresRepository(db), nil
}

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Close releases the underlying connection pool.
func (r *PostgresRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveDecisions upserts the run's decisions. A re-run of the same reference
// supersedes the stored decision rather than piling up duplicates.
func (r *PostgresRepository) SaveDecisions(ctx context.Context, runID string, decisions []domain.Decision) error {
	if r.db == nil || len(decisions) == 0 {
		return nil
	}

	insert := r.builder.
		Insert("screening_decisions").
		Columns("run_id", "reference_id", "outcome", "reasoning", "model_id", "needs_review", "decided_at").
		Suffix(`ON CONFLICT (run_id, reference_id) DO UPDATE
                SET outcome = EXCLUDED.outcome,
                    reasoning = EXCLUDED.reasoning,
                    model_id = EXCLUDED.model_id,
                    needs_review = EXCLUDED.needs_review,
                    decided_at = EXCLUDED.decided_at`)

	for _, d := range decisions {
		insert = insert.Values(runID, d.ReferenceID, string(d.Outcome), d.Reasoning, d.ModelID, d.NeedsReview, d.Timestamp)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("storage: build decisions insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("storage: upsert decisions: %w", err)
	}
	return nil
}

// SaveAuditEntries appends the run's audit trail. Entries are never updated:
// the trail is append-only in the database as well.
func (r *PostgresRepository) SaveAuditEntries(ctx context.Context, runID string, entries []audit.Entry) error {
	if r.db == nil || len(entries) == 0 {
		return nil
	}

	insert := r.builder.
		Insert("screening_audit").
		Columns("run_id", "reference_id", "prompt", "raw_response", "outcome", "reasoning", "model_id", "attempts", "flagged", "recorded_at")

	for _, e := range entries {
		insert = insert.Values(runID, e.ReferenceID, e.Prompt, e.RawResponse, string(e.Outcome), e.Reasoning, e.ModelID, e.Attempts, e.Flagged, e.Timestamp)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("storage: build audit insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("storage: insert audit entries: %w", err)
	}
	return nil
}

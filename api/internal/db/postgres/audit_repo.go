package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/irgordon/insight/api/internal/core/domain"
)

// AuditRepository keeps the history of encryption sweeps.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) RecordSweep(ctx context.Context, run *domain.SweepRun) error {
	query := `
		INSERT INTO encryption_sweeps (target, pending, converted, failed)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query,
		run.Target,
		run.Pending,
		run.Converted,
		run.Failed,
	).Scan(&run.ID, &run.CreatedAt)
}

// ListSweeps returns the most recent runs first.
func (r *AuditRepository) ListSweeps(ctx context.Context, limit int) ([]domain.SweepRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, target, pending, converted, failed, created_at
		FROM encryption_sweeps
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[domain.SweepRun])
}

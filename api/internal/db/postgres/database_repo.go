package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/irgordon/insight/api/internal/core/domain"
)

// DatabaseRepo stores warehouse connections. Details arrive already sealed.
type DatabaseRepo struct {
	pool *pgxpool.Pool
}

func NewDatabaseRepo(pool *pgxpool.Pool) *DatabaseRepo {
	return &DatabaseRepo{pool: pool}
}

func (r *DatabaseRepo) Create(ctx context.Context, db *domain.StoredDatabaseConnection) error {
	query := `
		INSERT INTO database_connections (name, engine, details)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query, db.Name, db.Engine, db.Details).
		Scan(&db.ID, &db.CreatedAt, &db.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", translateError(err))
	}
	return nil
}

func (r *DatabaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredDatabaseConnection, error) {
	query := `
		SELECT id, name, engine, details, created_at, updated_at
		FROM database_connections
		WHERE id = $1
	`

	var db domain.StoredDatabaseConnection
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&db.ID, &db.Name, &db.Engine, &db.Details, &db.CreatedAt, &db.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &db, nil
}

func (r *DatabaseRepo) List(ctx context.Context) ([]domain.StoredDatabaseConnection, error) {
	query := `
		SELECT id, name, engine, details, created_at, updated_at
		FROM database_connections
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StoredDatabaseConnection
	for rows.Next() {
		var db domain.StoredDatabaseConnection
		if err := rows.Scan(&db.ID, &db.Name, &db.Engine, &db.Details, &db.CreatedAt, &db.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, db)
	}
	return out, rows.Err()
}

func (r *DatabaseRepo) UpdateDetails(ctx context.Context, id uuid.UUID, details string) error {
	query := `UPDATE database_connections SET details = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, details, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *DatabaseRepo) ReplaceDetails(ctx context.Context, id uuid.UUID, old, new string) (bool, error) {
	query := `UPDATE database_connections SET details = $1, updated_at = NOW() WHERE id = $2 AND details = $3`

	tag, err := r.pool.Exec(ctx, query, new, id, old)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *DatabaseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM database_connections WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/irgordon/insight/api/internal/core/domain"
)

// SecretRepo stores binary secrets as bytea.
type SecretRepo struct {
	pool *pgxpool.Pool
}

func NewSecretRepo(pool *pgxpool.Pool) *SecretRepo {
	return &SecretRepo{pool: pool}
}

func (r *SecretRepo) Create(ctx context.Context, s *domain.Secret) error {
	query := `
		INSERT INTO secrets (name, kind, value)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query, s.Name, string(s.Kind), s.Value).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create secret: %w", translateError(err))
	}
	return nil
}

func (r *SecretRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Secret, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, kind, value, created_at, updated_at
		FROM secrets
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSecret)
	if err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

func (r *SecretRepo) List(ctx context.Context) ([]domain.Secret, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, kind, value, created_at, updated_at
		FROM secrets
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanSecret)
}

func (r *SecretRepo) ReplaceValue(ctx context.Context, id uuid.UUID, old, new []byte) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE secrets SET value = $1, updated_at = NOW() WHERE id = $2 AND value = $3`,
		new, id, old)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SecretRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM secrets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanSecret(row pgx.CollectableRow) (domain.Secret, error) {
	var (
		s    domain.Secret
		kind string
	)
	err := row.Scan(&s.ID, &s.Name, &kind, &s.Value, &s.CreatedAt, &s.UpdatedAt)
	s.Kind = domain.SecretKind(kind)
	return s, err
}

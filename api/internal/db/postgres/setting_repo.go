package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/irgordon/insight/api/internal/core/domain"
)

// SettingRepo is a key/value table accessed through sqlx.
type SettingRepo struct {
	db *sqlx.DB
}

func NewSettingRepo(db *sqlx.DB) *SettingRepo {
	return &SettingRepo{db: db}
}

func (r *SettingRepo) Get(ctx context.Context, key string) (*domain.Setting, error) {
	var s domain.Setting
	err := r.db.GetContext(ctx, &s, `SELECT key, value, updated_at FROM settings WHERE key = $1`, key)
	if err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

// Upsert writes the setting, replacing any existing value.
func (r *SettingRepo) Upsert(ctx context.Context, s *domain.Setting) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES (:key, :value, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	_, err := r.db.NamedExecContext(ctx, query, s)
	return err
}

func (r *SettingRepo) ReplaceValue(ctx context.Context, key, old, new string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE settings SET value = $1, updated_at = NOW() WHERE key = $2 AND value = $3`,
		new, key, old)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *SettingRepo) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SettingRepo) List(ctx context.Context) ([]domain.Setting, error) {
	var settings []domain.Setting
	err := r.db.SelectContext(ctx, &settings, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	return settings, err
}

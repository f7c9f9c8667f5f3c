package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/irgordon/insight/api/internal/core/domain"
)

var (
	ErrEmptyConnectionString = errors.New("empty postgres connection string, set DATABASE_URL")
	ErrConnectFailed         = errors.New("failed to open db connection")
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// NewPool opens a pgx pool and verifies it with a ping, retrying while the
// database container comes up.
func NewPool(ctx context.Context, connString string, logger *slog.Logger) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, ErrEmptyConnectionString
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 10 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err

		logger.Warn("Database not ready", slog.Int("attempt", attempt), slog.Any("error", err))
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrConnectFailed, ctx.Err())
		case <-time.After(time.Duration(attempt) * connectBackoff):
		}
	}
	return nil, errors.Join(ErrConnectFailed, lastErr)
}

// OpenSQL exposes the pool through database/sql for goose and sqlx.
func OpenSQL(pool *pgxpool.Pool) *sql.DB {
	return stdlib.OpenDBFromPool(pool)
}

// OpenSQLX wraps the pool for the sqlx-backed repositories.
func OpenSQLX(pool *pgxpool.Pool) *sqlx.DB {
	return sqlx.NewDb(OpenSQL(pool), "pgx")
}

// Healthcheck returns a probe suitable for the /health endpoint.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}

// translateError maps driver errors onto domain errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err)
	}
	return err
}

// IsDuplicateKeyError reports a unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

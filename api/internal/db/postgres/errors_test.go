package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/irgordon/insight/api/internal/core/domain"
)

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.ErrorIs(t, translateError(pgx.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, translateError(sql.ErrNoRows), domain.ErrNotFound)

	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, IsDuplicateKeyError(dup))
	assert.ErrorIs(t, translateError(dup), domain.ErrAlreadyExists)

	other := errors.New("connection reset")
	assert.Equal(t, other, translateError(other))
	assert.False(t, IsDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := embedMigrations.ReadDir("migrations")
	assert.NoError(t, err)
	assert.NotEmpty(t, entries)

	body, err := embedMigrations.ReadFile("migrations/00001_encrypted_storage.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "BYTEA")
}

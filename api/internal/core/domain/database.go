package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DatabaseConnection is a warehouse the BI layer queries. Details holds the
// connection parameters (host, user, password, certificates...) and is the
// field encrypted at rest.
type DatabaseConnection struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Engine    string         `json:"engine"` // postgres, mysql, bigquery, snowflake...
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// StoredDatabaseConnection is the persisted shape: Details is already
// serialized and possibly encrypted. Repositories never see plaintext.
type StoredDatabaseConnection struct {
	ID        uuid.UUID
	Name      string
	Engine    string
	Details   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DatabaseRepository interface {
	Create(ctx context.Context, db *StoredDatabaseConnection) error
	GetByID(ctx context.Context, id uuid.UUID) (*StoredDatabaseConnection, error)
	List(ctx context.Context) ([]StoredDatabaseConnection, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, details string) error
	// ReplaceDetails is UpdateDetails conditioned on the stored value still
	// being old; false means the row changed or is gone.
	ReplaceDetails(ctx context.Context, id uuid.UUID, old, new string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

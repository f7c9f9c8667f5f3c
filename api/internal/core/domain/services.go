package domain

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service contracts consumed by the HTTP layer.

type DatabaseService interface {
	CreateDatabase(ctx context.Context, db *DatabaseConnection) (*DatabaseConnection, error)
	GetDatabase(ctx context.Context, id uuid.UUID) (*DatabaseConnection, error)
	ListDatabases(ctx context.Context) ([]DatabaseConnection, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, details map[string]any) error
	DeleteDatabase(ctx context.Context, id uuid.UUID) error
}

type SettingService interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Setting, error)
}

type SecretService interface {
	Create(ctx context.Context, name string, kind SecretKind, value []byte) (*Secret, error)
	Get(ctx context.Context, id uuid.UUID) (*Secret, error)
	Value(ctx context.Context, id uuid.UUID) ([]byte, error)
	List(ctx context.Context) ([]Secret, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type AttachmentService interface {
	Put(ctx context.Context, name string, r io.Reader) (*AttachmentInfo, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Stat(ctx context.Context, name string) (*AttachmentInfo, error)
	Delete(ctx context.Context, name string) error
}

// SweepTarget is a table whose plaintext rows can be re-saved encrypted.
type SweepTarget interface {
	Name() string
	PendingPlaintext(ctx context.Context) ([]string, error)
	Reencrypt(ctx context.Context, id string) error
}

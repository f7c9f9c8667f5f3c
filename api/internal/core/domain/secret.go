package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SecretKind names what a binary secret holds.
type SecretKind string

const (
	SecretKeystore    SecretKind = "keystore"
	SecretCertificate SecretKind = "certificate"
	SecretPassword    SecretKind = "password"
	SecretSSHKey      SecretKind = "ssh-key"
)

// Secret is a binary credential (keystore, PEM bundle, private key).
// Value is only populated when explicitly requested.
type Secret struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Kind      SecretKind `json:"kind"`
	Value     []byte     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type SecretRepository interface {
	Create(ctx context.Context, secret *Secret) error
	GetByID(ctx context.Context, id uuid.UUID) (*Secret, error)
	List(ctx context.Context) ([]Secret, error)
	ReplaceValue(ctx context.Context, id uuid.UUID, old, new []byte) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/irgordon/insight/api/internal/core/domain"
	"github.com/irgordon/insight/api/internal/infrastructure/crypto"
)

type SecretService struct {
	repo          domain.SecretRepository
	cryptoService domain.CryptoService
	logger        *slog.Logger
}

func NewSecretService(repo domain.SecretRepository, crypto domain.CryptoService, logger *slog.Logger) *SecretService {
	return &SecretService{repo: repo, cryptoService: crypto, logger: logger}
}

// Create stores a binary secret, encrypted when a key is configured.
// The returned Secret never carries the value.
func (s *SecretService) Create(ctx context.Context, name string, kind domain.SecretKind, value []byte) (*domain.Secret, error) {
	if len(value) == 0 {
		return nil, fmt.Errorf("%w: secret value is empty", domain.ErrInvalidInput)
	}

	sealed, err := s.cryptoService.MaybeEncryptBytes(ctx, value)
	if err != nil {
		s.logger.Error("Encryption failure", slog.String("secret", name), slog.Any("error", err))
		return nil, fmt.Errorf("cryptographic failure")
	}

	secret := &domain.Secret{Name: name, Kind: kind, Value: sealed}
	if err := s.repo.Create(ctx, secret); err != nil {
		return nil, err
	}

	s.logger.Info("Secret stored",
		slog.String("secret_id", secret.ID.String()),
		slog.String("kind", string(kind)),
		slog.Int("size", len(value)))

	secret.Value = nil
	return secret, nil
}

// Get returns the secret metadata without its value.
func (s *SecretService) Get(ctx context.Context, id uuid.UUID) (*domain.Secret, error) {
	secret, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	secret.Value = nil
	return secret, nil
}

// Value returns the decrypted secret bytes.
func (s *SecretService) Value(ctx context.Context, id uuid.UUID) ([]byte, error) {
	secret, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cryptoService.MaybeDecryptBytes(ctx, secret.Value), nil
}

func (s *SecretService) List(ctx context.Context) ([]domain.Secret, error) {
	secrets, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}
	for i := range secrets {
		secrets[i].Value = nil
	}
	return secrets, nil
}

func (s *SecretService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *SecretService) Name() string { return "secrets" }

func (s *SecretService) PendingPlaintext(ctx context.Context) ([]string, error) {
	secrets, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, secret := range secrets {
		if len(secret.Value) > 0 && !crypto.LooksEncrypted(secret.Value) {
			ids = append(ids, secret.ID.String())
		}
	}
	return ids, nil
}

func (s *SecretService) Reencrypt(ctx context.Context, id string) error {
	secretID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: secret id %q", domain.ErrInvalidInput, id)
	}

	secret, err := s.repo.GetByID(ctx, secretID)
	if err != nil {
		return err
	}
	if crypto.LooksEncrypted(secret.Value) {
		return nil
	}

	sealed, err := s.cryptoService.MaybeEncryptBytes(ctx, secret.Value)
	if err != nil {
		return fmt.Errorf("cryptographic failure: %w", err)
	}

	swapped, err := s.repo.ReplaceValue(ctx, secretID, secret.Value, sealed)
	if err != nil {
		return err
	}
	if !swapped {
		s.logger.Debug("Secret changed during sweep, skipped", slog.String("id", id))
	}
	return nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/irgordon/insight/api/internal/core/domain"
	"github.com/irgordon/insight/api/internal/infrastructure/crypto"
)

// ErrCorruptDetails means stored connection details could not be turned
// back into JSON, typically because they were sealed under another key.
var ErrCorruptDetails = errors.New("stored connection details are unreadable")

const redactedValue = "********"

type CredentialService struct {
	repo          domain.DatabaseRepository
	cryptoService domain.CryptoService
	logger        *slog.Logger
}

func NewCredentialService(
	repo domain.DatabaseRepository,
	crypto domain.CryptoService,
	logger *slog.Logger,
) *CredentialService {
	return &CredentialService{
		repo:          repo,
		cryptoService: crypto,
		logger:        logger,
	}
}

// CreateDatabase serializes and encrypts the connection details before the
// repository ever sees them.
func (s *CredentialService) CreateDatabase(ctx context.Context, db *domain.DatabaseConnection) (*domain.DatabaseConnection, error) {
	sealed, err := s.sealDetails(ctx, db.Details)
	if err != nil {
		return nil, err
	}

	stored := &domain.StoredDatabaseConnection{
		Name:    db.Name,
		Engine:  db.Engine,
		Details: sealed,
	}
	if err := s.repo.Create(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to persist database connection: %w", err)
	}

	s.logger.Info("Database connection created",
		slog.String("database_id", stored.ID.String()),
		slog.String("engine", stored.Engine),
		slog.Bool("encrypted", s.cryptoService.Enabled()))

	created := *db
	created.ID = stored.ID
	created.CreatedAt = stored.CreatedAt
	created.UpdatedAt = stored.UpdatedAt
	return &created, nil
}

// GetDatabase returns the connection with its details decrypted, for the
// query layer. Handlers must redact before responding.
func (s *CredentialService) GetDatabase(ctx context.Context, id uuid.UUID) (*domain.DatabaseConnection, error) {
	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	details, err := s.openDetails(ctx, stored.Details)
	if err != nil {
		s.logger.Warn("Database connection details unreadable", slog.String("database_id", id.String()))
		return nil, err
	}

	return toConnection(stored, details), nil
}

// ListDatabases returns every connection with sensitive details masked.
// One unreadable row does not fail the listing.
func (s *CredentialService) ListDatabases(ctx context.Context) ([]domain.DatabaseConnection, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list database connections: %w", err)
	}

	out := make([]domain.DatabaseConnection, 0, len(rows))
	for i := range rows {
		details, err := s.openDetails(ctx, rows[i].Details)
		if err != nil {
			s.logger.Warn("Skipping unreadable connection details", slog.String("database_id", rows[i].ID.String()))
			details = nil
		}
		out = append(out, *toConnection(&rows[i], RedactDetails(details)))
	}
	return out, nil
}

// UpdateDetails replaces the connection details.
func (s *CredentialService) UpdateDetails(ctx context.Context, id uuid.UUID, details map[string]any) error {
	sealed, err := s.sealDetails(ctx, details)
	if err != nil {
		return err
	}
	return s.repo.UpdateDetails(ctx, id, sealed)
}

func (s *CredentialService) DeleteDatabase(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// ==============================================================================
// Sweep support: rows written before encryption was enabled
// ==============================================================================

func (s *CredentialService) Name() string { return "database_connections" }

func (s *CredentialService) PendingPlaintext(ctx context.Context) ([]string, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, row := range rows {
		if strings.TrimSpace(row.Details) != "" && !crypto.LooksEncryptedText(row.Details) {
			ids = append(ids, row.ID.String())
		}
	}
	return ids, nil
}

func (s *CredentialService) Reencrypt(ctx context.Context, id string) error {
	dbID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: database id %q", domain.ErrInvalidInput, id)
	}

	stored, err := s.repo.GetByID(ctx, dbID)
	if err != nil {
		return err
	}
	if crypto.LooksEncryptedText(stored.Details) {
		return nil
	}

	sealed, err := s.cryptoService.MaybeEncrypt(ctx, stored.Details)
	if err != nil {
		return fmt.Errorf("cryptographic failure: %w", err)
	}

	swapped, err := s.repo.ReplaceDetails(ctx, dbID, stored.Details, sealed)
	if err != nil {
		return err
	}
	if !swapped {
		s.logger.Debug("Connection changed during sweep, skipped", slog.String("id", id))
	}
	return nil
}

// ==============================================================================
// Helpers
// ==============================================================================

func (s *CredentialService) sealDetails(ctx context.Context, details map[string]any) (string, error) {
	if details == nil {
		details = map[string]any{}
	}

	plaintext, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("failed to serialize connection details: %w", err)
	}

	sealed, err := s.cryptoService.MaybeEncrypt(ctx, string(plaintext))
	if err != nil {
		// 🛡️ Never log the details themselves
		s.logger.Error("Encryption failure", slog.Any("error", err))
		return "", fmt.Errorf("cryptographic failure")
	}
	return sealed, nil
}

func (s *CredentialService) openDetails(ctx context.Context, stored string) (map[string]any, error) {
	if strings.TrimSpace(stored) == "" {
		return map[string]any{}, nil
	}

	plaintext := s.cryptoService.MaybeDecrypt(ctx, stored)

	var details map[string]any
	if err := json.Unmarshal([]byte(plaintext), &details); err != nil {
		return nil, ErrCorruptDetails
	}
	return details, nil
}

func toConnection(stored *domain.StoredDatabaseConnection, details map[string]any) *domain.DatabaseConnection {
	return &domain.DatabaseConnection{
		ID:        stored.ID,
		Name:      stored.Name,
		Engine:    stored.Engine,
		Details:   details,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}
}

// sensitiveFragments mark detail and setting keys whose values are masked.
var sensitiveFragments = []string{"password", "pass", "secret", "token", "key", "keystore", "credential"}

// IsSensitiveKey reports whether a key names a credential.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, f := range sensitiveFragments {
		if strings.Contains(k, f) {
			return true
		}
	}
	return false
}

// RedactDetails returns a copy of details with credential values masked.
// Nested objects are redacted recursively.
func RedactDetails(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}

	out := make(map[string]any, len(details))
	for k, v := range details {
		switch {
		case IsSensitiveKey(k) && v != nil && v != "":
			out[k] = redactedValue
		default:
			if nested, ok := v.(map[string]any); ok {
				out[k] = RedactDetails(nested)
				continue
			}
			out[k] = v
		}
	}
	return out
}

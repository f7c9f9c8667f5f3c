package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/irgordon/insight/api/internal/core/domain"
	"github.com/irgordon/insight/api/internal/infrastructure/crypto"
)

type SettingService struct {
	repo          domain.SettingRepository
	cryptoService domain.CryptoService
	logger        *slog.Logger
}

func NewSettingService(repo domain.SettingRepository, crypto domain.CryptoService, logger *slog.Logger) *SettingService {
	return &SettingService{repo: repo, cryptoService: crypto, logger: logger}
}

// Get returns the decrypted value of a setting. A value that cannot be
// decrypted is returned as stored.
func (s *SettingService) Get(ctx context.Context, key string) (string, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return s.cryptoService.MaybeDecrypt(ctx, setting.Value), nil
}

// Set stores a setting, encrypting it when a key is configured. A blank
// value removes the setting.
func (s *SettingService) Set(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: setting key is required", domain.ErrInvalidInput)
	}

	if strings.TrimSpace(value) == "" {
		err := s.repo.Delete(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	sealed, err := s.cryptoService.MaybeEncrypt(ctx, value)
	if err != nil {
		s.logger.Error("Encryption failure", slog.String("setting", key), slog.Any("error", err))
		return fmt.Errorf("cryptographic failure")
	}

	return s.repo.Upsert(ctx, &domain.Setting{Key: key, Value: sealed})
}

func (s *SettingService) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}

// List returns every setting decrypted, with credential-like keys masked.
func (s *SettingService) List(ctx context.Context) ([]domain.Setting, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	for i := range rows {
		if IsSensitiveKey(rows[i].Key) {
			rows[i].Value = redactedValue
			continue
		}
		rows[i].Value = s.cryptoService.MaybeDecrypt(ctx, rows[i].Value)
	}
	return rows, nil
}

func (s *SettingService) Name() string { return "settings" }

func (s *SettingService) PendingPlaintext(ctx context.Context) ([]string, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, row := range rows {
		if strings.TrimSpace(row.Value) != "" && !crypto.LooksEncryptedText(row.Value) {
			keys = append(keys, row.Key)
		}
	}
	return keys, nil
}

func (s *SettingService) Reencrypt(ctx context.Context, key string) error {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return err
	}
	if crypto.LooksEncryptedText(setting.Value) {
		return nil
	}

	sealed, err := s.cryptoService.MaybeEncrypt(ctx, setting.Value)
	if err != nil {
		return fmt.Errorf("cryptographic failure: %w", err)
	}

	// A concurrent Set wins; the next pass picks the row up again if needed.
	swapped, err := s.repo.ReplaceValue(ctx, key, setting.Value, sealed)
	if err != nil {
		return err
	}
	if !swapped {
		s.logger.Debug("Setting changed during sweep, skipped", slog.String("setting", key))
	}
	return nil
}

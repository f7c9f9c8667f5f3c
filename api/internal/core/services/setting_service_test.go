package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/insight/api/internal/core/domain"
	"github.com/irgordon/insight/api/internal/core/services"
	"github.com/irgordon/insight/api/internal/infrastructure/crypto"
)

func TestSettingService_SetAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newMemSettingRepo()
	svc := services.NewSettingService(repo, enabledCrypto(), discardLogger())

	require.NoError(t, svc.Set(ctx, "site-name", "Quarterly Numbers"))

	raw, err := repo.Get(ctx, "site-name")
	require.NoError(t, err)
	assert.True(t, crypto.LooksEncryptedText(raw.Value))

	got, err := svc.Get(ctx, "site-name")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly Numbers", got)
}

func TestSettingService_BlankValueDeletes(t *testing.T) {
	ctx := context.Background()
	repo := newMemSettingRepo()
	svc := services.NewSettingService(repo, enabledCrypto(), discardLogger())

	require.NoError(t, svc.Set(ctx, "site-name", "x"))
	require.NoError(t, svc.Set(ctx, "site-name", "   "))

	_, err := svc.Get(ctx, "site-name")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting twice through Set is not an error.
	assert.NoError(t, svc.Set(ctx, "site-name", ""))
	assert.ErrorIs(t, svc.Set(ctx, " ", "value"), domain.ErrInvalidInput)
}

func TestSettingService_UndecryptableValueReturnedAsStored(t *testing.T) {
	ctx := context.Background()
	repo := newMemSettingRepo()

	require.NoError(t, services.NewSettingService(repo, otherCrypto(), discardLogger()).Set(ctx, "site-name", "x"))
	raw, _ := repo.Get(ctx, "site-name")

	got, err := services.NewSettingService(repo, enabledCrypto(), discardLogger()).Get(ctx, "site-name")
	require.NoError(t, err)
	assert.Equal(t, raw.Value, got)
}

func TestSettingService_ListMasksSensitiveKeys(t *testing.T) {
	ctx := context.Background()
	svc := services.NewSettingService(newMemSettingRepo(), enabledCrypto(), discardLogger())

	require.NoError(t, svc.Set(ctx, "email-smtp-password", "smtp-pass"))
	require.NoError(t, svc.Set(ctx, "site-url", "https://bi.example.com"))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "email-smtp-password", list[0].Key)
	assert.Equal(t, "********", list[0].Value)
	assert.Equal(t, "site-url", list[1].Key)
	assert.Equal(t, "https://bi.example.com", list[1].Value)
}

func TestSettingService_Reencrypt(t *testing.T) {
	ctx := context.Background()
	repo := newMemSettingRepo()
	require.NoError(t, repo.Upsert(ctx, &domain.Setting{Key: "site-url", Value: "https://bi.example.com"}))

	svc := services.NewSettingService(repo, enabledCrypto(), discardLogger())
	pending, err := svc.PendingPlaintext(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"site-url"}, pending)

	require.NoError(t, svc.Reencrypt(ctx, "site-url"))
	raw, _ := repo.Get(ctx, "site-url")
	assert.True(t, crypto.LooksEncryptedText(raw.Value))

	// Already sealed values are left alone.
	before := raw.Value
	require.NoError(t, svc.Reencrypt(ctx, "site-url"))
	raw, _ = repo.Get(ctx, "site-url")
	assert.Equal(t, before, raw.Value)

	got, err := svc.Get(ctx, "site-url")
	require.NoError(t, err)
	assert.Equal(t, "https://bi.example.com", got)
}

func TestSettingService_ReencryptKeepsConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	repo := &interleavedSettingRepo{SettingRepo: newMemSettingRepo()}

	legacy := services.NewSettingService(repo, disabledCrypto(), discardLogger())
	require.NoError(t, legacy.Set(ctx, "smtp-host", "old.example.com"))

	svc := services.NewSettingService(repo, enabledCrypto(), discardLogger())
	repo.afterRead = func() {
		require.NoError(t, svc.Set(ctx, "smtp-host", "new.example.com"))
	}

	require.NoError(t, svc.Reencrypt(ctx, "smtp-host"))

	got, err := svc.Get(ctx, "smtp-host")
	require.NoError(t, err)
	assert.Equal(t, "new.example.com", got)

	raw, err := repo.SettingRepo.Get(ctx, "smtp-host")
	require.NoError(t, err)
	assert.True(t, crypto.LooksEncryptedText(raw.Value))
}

func TestSettingService_ReencryptSkipsDeletedSetting(t *testing.T) {
	ctx := context.Background()
	repo := &interleavedSettingRepo{SettingRepo: newMemSettingRepo()}
	require.NoError(t, repo.Upsert(ctx, &domain.Setting{Key: "site-url", Value: "https://bi.example.com"}))

	svc := services.NewSettingService(repo, enabledCrypto(), discardLogger())
	repo.afterRead = func() {
		require.NoError(t, svc.Delete(ctx, "site-url"))
	}

	require.NoError(t, svc.Reencrypt(ctx, "site-url"))

	_, err := svc.Get(ctx, "site-url")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

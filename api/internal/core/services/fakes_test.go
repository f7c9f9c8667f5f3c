package services_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/irgordon/insight/api/internal/core/domain"
	"github.com/irgordon/insight/api/internal/db/memory"
	"github.com/irgordon/insight/api/internal/infrastructure/crypto"
)

const encryptionSecret = "correct-horse-battery-staple"

var (
	sharedKey      *crypto.Key
	otherSharedKey *crypto.Key
)

func init() {
	var err error
	if sharedKey, err = crypto.DeriveKey(encryptionSecret); err != nil {
		panic(err)
	}
	if otherSharedKey, err = crypto.DeriveKey("a-completely-different-secret"); err != nil {
		panic(err)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func enabledCrypto() *crypto.Service  { return crypto.NewService(sharedKey, discardLogger()) }
func otherCrypto() *crypto.Service    { return crypto.NewService(otherSharedKey, discardLogger()) }
func disabledCrypto() *crypto.Service { return crypto.NewService(nil, discardLogger()) }

// ==============================================================================
// In-memory stores
// ==============================================================================

func newMemDatabaseRepo() *memory.DatabaseRepo { return memory.NewDatabaseRepo() }
func newMemSettingRepo() *memory.SettingRepo   { return memory.NewSettingRepo() }
func newMemSecretRepo() *memory.SecretRepo     { return memory.NewSecretRepo() }

// The interleaved repos run afterRead once, straight after the first read,
// so a test can land a user write between a sweep's read and its write.

type interleavedSettingRepo struct {
	*memory.SettingRepo
	afterRead func()
	once      sync.Once
}

func (r *interleavedSettingRepo) Get(ctx context.Context, key string) (*domain.Setting, error) {
	s, err := r.SettingRepo.Get(ctx, key)
	r.once.Do(r.afterRead)
	return s, err
}

type interleavedDatabaseRepo struct {
	*memory.DatabaseRepo
	afterRead func()
	once      sync.Once
}

func (r *interleavedDatabaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredDatabaseConnection, error) {
	db, err := r.DatabaseRepo.GetByID(ctx, id)
	r.once.Do(r.afterRead)
	return db, err
}

type interleavedSecretRepo struct {
	*memory.SecretRepo
	afterRead func()
	once      sync.Once
}

func (r *interleavedSecretRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Secret, error) {
	secret, err := r.SecretRepo.GetByID(ctx, id)
	r.once.Do(r.afterRead)
	return secret, err
}

// memAttachmentStore exposes stored bytes so tests can inspect the layout.
type memAttachmentStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemAttachmentStore() *memAttachmentStore {
	return &memAttachmentStore{files: map[string][]byte{}}
}

func (m *memAttachmentStore) Put(_ context.Context, name string, r io.Reader) (*domain.AttachmentInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
	return &domain.AttachmentInfo{Name: name, StoredSize: int64(len(data)), ModifiedAt: time.Now()}, nil
}

func (m *memAttachmentStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memAttachmentStore) Stat(_ context.Context, name string) (*domain.AttachmentInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.AttachmentInfo{Name: name, StoredSize: int64(len(data))}, nil
}

func (m *memAttachmentStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

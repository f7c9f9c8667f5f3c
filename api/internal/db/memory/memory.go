// Package memory holds in-process implementations of the repositories, used
// for local development without Postgres and in tests.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/irgordon/insight/api/internal/core/domain"
)

type DatabaseRepo struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.StoredDatabaseConnection
}

func NewDatabaseRepo() *DatabaseRepo {
	return &DatabaseRepo{rows: map[uuid.UUID]domain.StoredDatabaseConnection{}}
}

func (r *DatabaseRepo) Create(_ context.Context, db *domain.StoredDatabaseConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.Name == db.Name {
			return domain.ErrAlreadyExists
		}
	}
	db.ID = uuid.New()
	db.CreatedAt = time.Now()
	db.UpdatedAt = db.CreatedAt
	r.rows[db.ID] = *db
	return nil
}

func (r *DatabaseRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.StoredDatabaseConnection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &row, nil
}

func (r *DatabaseRepo) List(_ context.Context) ([]domain.StoredDatabaseConnection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.StoredDatabaseConnection, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *DatabaseRepo) UpdateDetails(_ context.Context, id uuid.UUID, details string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	row.Details = details
	row.UpdatedAt = time.Now()
	r.rows[id] = row
	return nil
}

func (r *DatabaseRepo) ReplaceDetails(_ context.Context, id uuid.UUID, old, new string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.Details != old {
		return false, nil
	}
	row.Details = new
	row.UpdatedAt = time.Now()
	r.rows[id] = row
	return true, nil
}

func (r *DatabaseRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type SettingRepo struct {
	mu   sync.RWMutex
	rows map[string]domain.Setting
}

func NewSettingRepo() *SettingRepo {
	return &SettingRepo{rows: map[string]domain.Setting{}}
}

func (r *SettingRepo) Get(_ context.Context, key string) (*domain.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.rows[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *SettingRepo) Upsert(_ context.Context, s *domain.Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rows[s.Key] = domain.Setting{Key: s.Key, Value: s.Value, UpdatedAt: time.Now()}
	return nil
}

func (r *SettingRepo) ReplaceValue(_ context.Context, key, old, new string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.rows[key]
	if !ok || s.Value != old {
		return false, nil
	}
	r.rows[key] = domain.Setting{Key: key, Value: new, UpdatedAt: time.Now()}
	return true, nil
}

func (r *SettingRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[key]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rows, key)
	return nil
}

func (r *SettingRepo) List(_ context.Context) ([]domain.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Setting, 0, len(r.rows))
	for _, s := range r.rows {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type SecretRepo struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.Secret
}

func NewSecretRepo() *SecretRepo {
	return &SecretRepo{rows: map[uuid.UUID]domain.Secret{}}
}

func (r *SecretRepo) Create(_ context.Context, s *domain.Secret) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.Name == s.Name {
			return domain.ErrAlreadyExists
		}
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt

	row := *s
	row.Value = bytes.Clone(s.Value)
	r.rows[s.ID] = row
	return nil
}

func (r *SecretRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Secret, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	row.Value = bytes.Clone(row.Value)
	return &row, nil
}

func (r *SecretRepo) List(_ context.Context) ([]domain.Secret, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Secret, 0, len(r.rows))
	for _, row := range r.rows {
		row.Value = bytes.Clone(row.Value)
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *SecretRepo) ReplaceValue(_ context.Context, id uuid.UUID, old, new []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || !bytes.Equal(row.Value, old) {
		return false, nil
	}
	row.Value = bytes.Clone(new)
	row.UpdatedAt = time.Now()
	r.rows[id] = row
	return true, nil
}

func (r *SecretRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

// SweepRepo keeps the most recent sweep runs.
type SweepRepo struct {
	mu   sync.RWMutex
	runs []domain.SweepRun
}

func NewSweepRepo() *SweepRepo {
	return &SweepRepo{}
}

func (r *SweepRepo) RecordSweep(_ context.Context, run *domain.SweepRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run.ID = uuid.New()
	run.CreatedAt = time.Now()
	r.runs = append(r.runs, *run)
	return nil
}

func (r *SweepRepo) ListSweeps(_ context.Context, limit int) ([]domain.SweepRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	out := make([]domain.SweepRun, 0, limit)
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.runs[i])
	}
	return out, nil
}

package domain

import (
	"context"
	"time"
)

// Setting is an application setting. Values are encrypted at rest when a
// key is configured, whatever the setting.
type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type SettingRepository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	Upsert(ctx context.Context, setting *Setting) error
	// ReplaceValue swaps the value only while it still equals old. It
	// reports false when the row changed or no longer exists.
	ReplaceValue(ctx context.Context, key, old, new string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Setting, error)
}

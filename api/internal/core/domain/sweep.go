package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SweepRun records one pass of the plaintext-to-ciphertext sweeper over a
// single target table.
type SweepRun struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Target    string    `json:"target" db:"target"`
	Pending   int       `json:"pending" db:"pending"`
	Converted int       `json:"converted" db:"converted"`
	Failed    int       `json:"failed" db:"failed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type SweepRepository interface {
	RecordSweep(ctx context.Context, run *SweepRun) error
	ListSweeps(ctx context.Context, limit int) ([]SweepRun, error)
}

package domain

import (
	"context"
	"io"
	"time"
)

// AttachmentInfo describes a stored attachment. Size is the stored size,
// which includes the stream cipher header when encrypted.
type AttachmentInfo struct {
	Name       string    `json:"name"`
	StoredSize int64     `json:"stored_size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// AttachmentStore persists opaque byte streams. It never buffers a whole
// attachment in memory.
type AttachmentStore interface {
	Put(ctx context.Context, name string, r io.Reader) (*AttachmentInfo, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Stat(ctx context.Context, name string) (*AttachmentInfo, error)
	Delete(ctx context.Context, name string) error
}

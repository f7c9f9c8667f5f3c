package domain

import (
	"context"
	"io"
)

// CryptoService is the at-rest encryption contract used by every service
// that persists secrets. Writes are strict; reads never fail, because a
// stored value must stay readable even when its encryption state is unclear.
type CryptoService interface {
	// Enabled reports whether an encryption key is configured.
	Enabled() bool

	MaybeEncrypt(ctx context.Context, value string) (string, error)
	MaybeDecrypt(ctx context.Context, value string) string

	MaybeEncryptBytes(ctx context.Context, value []byte) ([]byte, error)
	MaybeDecryptBytes(ctx context.Context, value []byte) []byte

	// The stream variants take ownership of r and close it via the returned reader.
	MaybeEncryptStream(ctx context.Context, r io.Reader) (io.ReadCloser, error)
	MaybeDecryptStream(ctx context.Context, r io.Reader) (io.ReadCloser, error)
}

package crypto

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Service is the surface the rest of the API talks to. It is strict on the
// write path and lenient on the read path: a stored value that cannot be
// decrypted is logged and handed back unchanged rather than failing the
// request. With no key configured every call is a pass-through.
//
// Service is safe for concurrent use.
type Service struct {
	key    *Key
	logger *slog.Logger
}

// NewService wraps key, which may be nil to disable encryption.
func NewService(key *Key, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{key: key, logger: logger}
}

// NewServiceFromSecret derives the key from the operator secret. A blank
// secret yields a disabled service; a short one is ErrConfiguration.
func NewServiceFromSecret(secret string, logger *slog.Logger) (*Service, error) {
	key, err := LoadKey(secret)
	if err != nil {
		return nil, err
	}
	return NewService(key, logger), nil
}

// Enabled reports whether a key is configured.
func (s *Service) Enabled() bool {
	return s.key != nil
}

// MaybeEncrypt seals non-blank values when a key is present.
func (s *Service) MaybeEncrypt(ctx context.Context, value string) (string, error) {
	if !s.Enabled() || strings.TrimSpace(value) == "" {
		return value, nil
	}
	return EncryptText(s.key, value)
}

// MaybeDecrypt opens values that look like ciphertext. Anything else,
// including ciphertext sealed under another key, is returned as-is.
func (s *Service) MaybeDecrypt(ctx context.Context, value string) string {
	if !s.Enabled() || !LooksEncryptedText(value) {
		return value
	}

	plain, err := DecryptText(s.key, value)
	if err != nil {
		s.warnUndecryptable(ctx, "string", err)
		return value
	}
	return plain
}

// MaybeEncryptBytes is MaybeEncrypt for binary columns.
func (s *Service) MaybeEncryptBytes(ctx context.Context, value []byte) ([]byte, error) {
	if !s.Enabled() || len(value) == 0 {
		return value, nil
	}
	return Encrypt(s.key, value)
}

// MaybeDecryptBytes is MaybeDecrypt for binary columns.
func (s *Service) MaybeDecryptBytes(ctx context.Context, value []byte) []byte {
	if !s.Enabled() || !LooksEncrypted(value) {
		return value
	}

	plain, err := Decrypt(s.key, value)
	if err != nil {
		s.warnUndecryptable(ctx, "bytes", err)
		return value
	}
	return plain
}

// MaybeEncryptStream wraps r in the stream cipher when a key is present.
// The returned reader always closes r.
func (s *Service) MaybeEncryptStream(ctx context.Context, r io.Reader) (io.ReadCloser, error) {
	if !s.Enabled() {
		return &streamReadCloser{Reader: r, src: r}, nil
	}
	return EncryptStream(s.key, r)
}

// MaybeDecryptStream decrypts streams carrying the cipher header and replays
// everything else. Errors found inside the body surface from Read.
func (s *Service) MaybeDecryptStream(ctx context.Context, r io.Reader) (io.ReadCloser, error) {
	if !s.Enabled() {
		return &streamReadCloser{Reader: r, src: r}, nil
	}
	return decryptStream(s.key, r, func(err error) {
		s.warnUndecryptable(ctx, "stream", err)
	})
}

// 🛡️ Zero-Trust logging: the field kind and error only, never key or value
func (s *Service) warnUndecryptable(ctx context.Context, kind string, err error) {
	s.logger.WarnContext(ctx, "Cannot decrypt encrypted value, returning it unchanged. Has the encryption secret changed?",
		slog.String("kind", kind),
		slog.Any("error", err),
	)
}

package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/irgordon/insight/api/internal/core/domain"
)

// AttachmentService streams uploaded files through the stream cipher on the
// way to and from the store. Nothing is buffered whole.
type AttachmentService struct {
	store         domain.AttachmentStore
	cryptoService domain.CryptoService
	logger        *slog.Logger
}

func NewAttachmentService(store domain.AttachmentStore, crypto domain.CryptoService, logger *slog.Logger) *AttachmentService {
	return &AttachmentService{store: store, cryptoService: crypto, logger: logger}
}

func (s *AttachmentService) Put(ctx context.Context, name string, r io.Reader) (*domain.AttachmentInfo, error) {
	sealed, err := s.cryptoService.MaybeEncryptStream(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("cryptographic failure: %w", err)
	}
	defer sealed.Close()

	info, err := s.store.Put(ctx, name, sealed)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Attachment stored",
		slog.String("name", name),
		slog.Int64("stored_size", info.StoredSize),
		slog.Bool("encrypted", s.cryptoService.Enabled()))
	return info, nil
}

// Open returns the attachment content. Attachments written before
// encryption was enabled are returned unchanged. The caller must close the
// reader.
func (s *AttachmentService) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	raw, err := s.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	plain, err := s.cryptoService.MaybeDecryptStream(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("attachment %q: %w", name, err)
	}
	return plain, nil
}

func (s *AttachmentService) Stat(ctx context.Context, name string) (*domain.AttachmentInfo, error) {
	return s.store.Stat(ctx, name)
}

func (s *AttachmentService) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, name)
}

// Package filesystem stores attachments as files in a single directory.
// Writes go to a temporary file that is renamed into place, so readers never
// observe a partial attachment.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/irgordon/insight/api/internal/core/domain"
)

const tempPrefix = ".upload-"

type Store struct {
	dir string
}

// NewStore creates dir when missing.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create attachment dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Put(ctx context.Context, name string, r io.Reader) (*domain.AttachmentInfo, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync attachment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close attachment: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("failed to commit attachment: %w", err)
	}
	committed = true

	return s.Stat(ctx, name)
}

func (s *Store) Open(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

func (s *Store) Stat(_ context.Context, name string) (*domain.AttachmentInfo, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, translate(err)
	}
	return &domain.AttachmentInfo{Name: name, StoredSize: fi.Size(), ModifiedAt: fi.ModTime()}, nil
}

func (s *Store) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	return translate(os.Remove(path))
}

// path confines name to the store directory.
func (s *Store) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`+"\x00") ||
		strings.HasPrefix(name, tempPrefix) {
		return "", fmt.Errorf("%w: attachment name %q", domain.ErrInvalidInput, name)
	}
	return filepath.Join(s.dir, name), nil
}

func translate(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrNotFound
	}
	return err
}

// ctxReader aborts a long copy once the request is gone.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

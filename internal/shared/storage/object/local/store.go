package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"collateral-backend/internal/shared/metrics"
	"collateral-backend/internal/shared/storage/object"
)

const backendName = "local"

// Store implements BlobStore using the local filesystem. Objects are served
// by the HTTP router under baseURL.
type Store struct {
	baseDir string
	baseURL string
	now     func() time.Time
}

// New creates a new local object store rooted at baseDir.
func New(baseDir, baseURL string) *Store {
	return &Store{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

// Dir returns the directory objects are written to.
func (s *Store) Dir() string {
	return s.baseDir
}

// Upload writes the file under folder and returns its public URL.
func (s *Store) Upload(ctx context.Context, folder string, file object.File) (string, error) {
	if err := object.CheckFile(file); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := object.NewKey(folder, file.Name, s.now())

	err := s.write(key, file.Body)
	metrics.ObserveBlob(backendName, "upload", err)
	if errors.Is(err, object.ErrEmptyFile) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", object.ErrUnavailable, err)
	}
	return object.URLForKey(s.baseURL, key), nil
}

func (s *Store) write(key string, r io.Reader) error {
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if written == 0 {
		_ = os.Remove(fullPath)
		return object.ErrEmptyFile
	}
	return nil
}

// Delete removes the object referenced by rawURL.
func (s *Store) Delete(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := object.KeyFromURL(s.baseURL, rawURL)
	if err != nil {
		return err
	}

	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return object.ErrInvalidReference
	}

	err = os.Remove(filepath.Join(s.baseDir, clean))
	if errors.Is(err, fs.ErrNotExist) {
		metrics.ObserveBlob(backendName, "delete", nil)
		return object.ErrNotFound
	}
	metrics.ObserveBlob(backendName, "delete", err)
	if err != nil {
		return fmt.Errorf("%w: %v", object.ErrUnavailable, err)
	}
	return nil
}

var _ object.BlobStore = (*Store)(nil)

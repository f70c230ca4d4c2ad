package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"collateral-backend/internal/shared/util"
)

var (
	// ErrEmptyFile is returned when an upload carries no content.
	ErrEmptyFile = errors.New("empty file")
	// ErrNotFound indicates the referenced object is already absent.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidReference indicates a URL that does not map to a key in this store.
	ErrInvalidReference = errors.New("invalid object reference")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("object store unavailable")
)

// File is an upload payload. Size may be -1 when unknown.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// BlobStore uploads and deletes binary objects addressed by long-lived URLs.
type BlobStore interface {
	Upload(ctx context.Context, folder string, file File) (string, error)
	Delete(ctx context.Context, rawURL string) error
}

// CheckFile rejects uploads without content.
func CheckFile(file File) error {
	if file.Body == nil || file.Size == 0 {
		return ErrEmptyFile
	}
	return nil
}

// NewKey builds a folder-prefixed, time-ordered key from the upload time and original name.
func NewKey(folder, fileName string, now time.Time) string {
	name := util.SanitizeFileName(fileName)
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	key := fmt.Sprintf("%d-%s", now.UnixMilli(), name)
	if folder == "" {
		return key
	}
	return folder + "/" + key
}

// URLForKey joins a public base URL and a key, escaping each key segment.
func URLForKey(baseURL, key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.Join(segments, "/")
}

// KeyFromURL reverses URLForKey. Query strings (e.g. signatures) are ignored.
func KeyFromURL(baseURL, rawURL string) (string, error) {
	base := strings.TrimRight(baseURL, "/") + "/"
	trimmed := strings.TrimSpace(rawURL)
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if base == "/" || !strings.HasPrefix(trimmed, base) {
		return "", ErrInvalidReference
	}
	key, err := url.PathUnescape(strings.TrimPrefix(trimmed, base))
	if err != nil || key == "" || strings.Contains(key, "..") {
		return "", ErrInvalidReference
	}
	return key, nil
}

package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"collateral-backend/internal/shared/storage/object"
)

var (
	ErrMissingFile     = errors.New("file is required")
	ErrUnsupportedType = errors.New("only jpg, png and pdf files are allowed")
	ErrTooLarge        = errors.New("file exceeds the size limit")
	ErrTooManyFiles    = errors.New("too many files")
)

var allowedTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// Limits bounds what a single request may upload.
type Limits struct {
	MaxBytes int64
	MaxFiles int
}

// FromHeader reads a multipart file into memory and checks its type and size.
// Empty files pass through so the caller can report them.
func FromHeader(fh *multipart.FileHeader, lim Limits) (object.File, error) {
	if fh == nil {
		return object.File{}, ErrMissingFile
	}
	if lim.MaxBytes > 0 && fh.Size > lim.MaxBytes {
		return object.File{}, fmt.Errorf("%w: %s", ErrTooLarge, fh.Filename)
	}

	f, err := fh.Open()
	if err != nil {
		return object.File{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	reader := io.Reader(f)
	if lim.MaxBytes > 0 {
		reader = io.LimitReader(f, lim.MaxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return object.File{}, fmt.Errorf("read upload: %w", err)
	}
	if lim.MaxBytes > 0 && int64(len(data)) > lim.MaxBytes {
		return object.File{}, fmt.Errorf("%w: %s", ErrTooLarge, fh.Filename)
	}

	file := object.File{Name: fh.Filename, Size: int64(len(data)), Body: bytes.NewReader(data)}
	if len(data) == 0 {
		return file, nil
	}
	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedTypes...) {
		return object.File{}, fmt.Errorf("%w: %s is %s", ErrUnsupportedType, fh.Filename, mtype.String())
	}
	file.ContentType = mtype.String()
	return file, nil
}

// Optional returns the file under field, or ok=false when none was sent.
func Optional(c *gin.Context, field string, lim Limits) (object.File, bool, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return object.File{}, false, nil
		}
		return object.File{}, false, fmt.Errorf("parse multipart: %w", err)
	}
	file, err := FromHeader(fh, lim)
	if err != nil {
		return object.File{}, false, err
	}
	return file, true, nil
}

// Required is Optional that reports ErrMissingFile when nothing was sent.
func Required(c *gin.Context, field string, lim Limits) (object.File, error) {
	file, ok, err := Optional(c, field, lim)
	if err != nil {
		return object.File{}, err
	}
	if !ok {
		return object.File{}, ErrMissingFile
	}
	return file, nil
}

// Many returns every file sent under field, in request order.
func Many(c *gin.Context, field string, lim Limits) ([]object.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingFile, err)
	}
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, ErrMissingFile
	}
	if lim.MaxFiles > 0 && len(headers) > lim.MaxFiles {
		return nil, fmt.Errorf("%w: at most %d per request", ErrTooManyFiles, lim.MaxFiles)
	}
	files := make([]object.File, 0, len(headers))
	for _, fh := range headers {
		file, err := FromHeader(fh, lim)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// IsClientError reports whether err came from bad upload input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingFile) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrTooManyFiles)
}

package minio

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"collateral-backend/internal/shared/metrics"
	"collateral-backend/internal/shared/storage/object"
)

const backendName = "minio"

type minioAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Options holds MinIO connection settings.
type Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	PublicBaseURL string
}

// Store implements BlobStore on a MinIO bucket.
type Store struct {
	client  minioAPI
	bucket  string
	baseURL string
	now     func() time.Time
}

// New connects to MinIO and ensures the bucket exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}
	mc, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, xerr := mc.BucketExists(ctx, opts.Bucket)
		if xerr != nil || !exists {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}

	return &Store{
		client:  mc,
		bucket:  opts.Bucket,
		baseURL: publicBaseURL(opts),
		now:     time.Now,
	}, nil
}

func publicBaseURL(opts Options) string {
	if base := strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/"); base != "" {
		return base
	}
	scheme := "http"
	if opts.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, strings.TrimRight(opts.Endpoint, "/"), opts.Bucket)
}

// Upload stores the file under folder and returns its URL.
func (s *Store) Upload(ctx context.Context, folder string, file object.File) (string, error) {
	if err := object.CheckFile(file); err != nil {
		return "", err
	}
	key := object.NewKey(folder, file.Name, s.now())

	_, err := s.client.PutObject(ctx, s.bucket, key, file.Body, file.Size, minio.PutObjectOptions{ContentType: file.ContentType})
	metrics.ObserveBlob(backendName, "upload", err)
	if err != nil {
		return "", fmt.Errorf("%w: minio put bucket=%s key=%s: %v", object.ErrUnavailable, s.bucket, key, err)
	}
	return object.URLForKey(s.baseURL, key), nil
}

// Delete removes the object referenced by rawURL.
func (s *Store) Delete(ctx context.Context, rawURL string) error {
	key, err := object.KeyFromURL(s.baseURL, rawURL)
	if err != nil {
		return err
	}

	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			metrics.ObserveBlob(backendName, "delete", nil)
			return object.ErrNotFound
		}
		metrics.ObserveBlob(backendName, "delete", err)
		return fmt.Errorf("%w: minio stat bucket=%s key=%s: %v", object.ErrUnavailable, s.bucket, key, err)
	}

	err = s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	metrics.ObserveBlob(backendName, "delete", err)
	if err != nil {
		return fmt.Errorf("%w: minio remove bucket=%s key=%s: %v", object.ErrUnavailable, s.bucket, key, err)
	}
	return nil
}

var _ object.BlobStore = (*Store)(nil)

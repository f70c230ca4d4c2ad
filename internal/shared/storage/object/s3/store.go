package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"collateral-backend/internal/shared/metrics"
	"collateral-backend/internal/shared/storage/object"
)

const backendName = "s3"

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Options configures the S3 backend. Endpoint is set for S3-compatible services.
type Options struct {
	Region        string
	Bucket        string
	Endpoint      string
	PublicBaseURL string
}

// Store implements BlobStore using Amazon S3.
type Store struct {
	client  s3API
	bucket  string
	baseURL string
	now     func() time.Time
}

// New creates a new S3-backed object store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: publicBaseURL(opts.PublicBaseURL, endpoint, opts.Bucket, cfg.Region),
		now:     time.Now,
	}, nil
}

func publicBaseURL(explicit, endpoint, bucket, region string) string {
	if explicit = strings.TrimRight(strings.TrimSpace(explicit), "/"); explicit != "" {
		return explicit
	}
	if endpoint != "" {
		return endpoint + "/" + bucket
	}
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

// Upload puts the file under folder and returns its public URL.
func (s *Store) Upload(ctx context.Context, folder string, file object.File) (string, error) {
	if err := object.CheckFile(file); err != nil {
		return "", err
	}
	key := object.NewKey(folder, file.Name, s.now())

	input := &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 file.Body,
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	}
	if file.ContentType != "" {
		input.ContentType = aws.String(file.ContentType)
	}
	if file.Size > 0 {
		input.ContentLength = aws.Int64(file.Size)
	}

	_, err := s.client.PutObject(ctx, input)
	metrics.ObserveBlob(backendName, "upload", err)
	if err != nil {
		return "", fmt.Errorf("%w: s3 put object bucket=%s key=%s: %v", object.ErrUnavailable, s.bucket, key, err)
	}
	return object.URLForKey(s.baseURL, key), nil
}

// Delete removes the object referenced by rawURL.
func (s *Store) Delete(ctx context.Context, rawURL string) error {
	key, err := object.KeyFromURL(s.baseURL, rawURL)
	if err != nil {
		return err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			metrics.ObserveBlob(backendName, "delete", nil)
			return object.ErrNotFound
		}
		metrics.ObserveBlob(backendName, "delete", err)
		return fmt.Errorf("%w: s3 head object bucket=%s key=%s: %v", object.ErrUnavailable, s.bucket, key, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	metrics.ObserveBlob(backendName, "delete", err)
	if err != nil {
		return fmt.Errorf("%w: s3 delete object bucket=%s key=%s: %v", object.ErrUnavailable, s.bucket, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nf *s3types.NotFound
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

var _ object.BlobStore = (*Store)(nil)

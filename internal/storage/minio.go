package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds the configuration for MinIO storage.
type MinIOConfig struct {
	Endpoint  string // host:port, without scheme
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string // Optional: defaults to us-east-1
}

// MinIOStorage wraps LocalStorage and publishes finished files to a MinIO bucket.
type MinIOStorage struct {
	*LocalStorage
	client *minio.Client
	bucket string
	region string
}

// NewMinIOStorage creates a new MinIOStorage instance rooted at root.
// No network call is made until EnsureBucket or Publish.
func NewMinIOStorage(root string, cfg MinIOConfig) (*MinIOStorage, error) {
	local, err := NewLocalStorage(root)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOStorage{
		LocalStorage: local,
		client:       client,
		bucket:       cfg.Bucket,
		region:       region,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *MinIOStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check minio bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create minio bucket: %w", err)
	}
	return nil
}

// Publish uploads data to MinIO and returns the object URL.
func (s *MinIOStorage) Publish(ctx context.Context, key string, data io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, data, readerSize(data), minio.PutObjectOptions{
		ContentType: contentType(key),
	})
	if err != nil {
		return "", fmt.Errorf("upload to minio: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, key), nil
}

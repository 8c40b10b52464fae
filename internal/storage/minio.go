package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/your-org/fdalert/internal/config"
)

// MinIOStore is the evidence store. Objects are addressed by their upload path.
type MinIOStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: PublicBaseURL(cfg),
	}, nil
}

// PublicBaseURL returns the URL prefix under which objects of the bucket are
// reachable, without a trailing slash.
func PublicBaseURL(cfg config.MinIOConfig) string {
	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return base + "/" + cfg.Bucket
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// Upload stores data under path and returns the stored path.
func (s *MinIOStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	info, err := s.client.PutObject(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", path, err)
	}
	return info.Key, nil
}

// PublicURL returns the link under which the object at path is served.
func (s *MinIOStore) PublicURL(path string) string {
	return s.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Ping checks MinIO connectivity.
func (s *MinIOStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

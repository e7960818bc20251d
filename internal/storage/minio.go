package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"carehub/internal/platform/config"
)

// MinioGateway talks to any S3-compatible backend through the MinIO client.
type MinioGateway struct {
	client        *minio.Client
	publicBaseURL string
}

// NewMinio connects to the configured endpoint and makes sure the default
// bucket exists.
func NewMinio(ctx context.Context, cfg config.StorageConfig) (*MinioGateway, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object storage: %w", err)
	}

	gw := &MinioGateway{
		client:        client,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
	if gw.publicBaseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		gw.publicBaseURL = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}

	if err := gw.ensureBucket(ctx, cfg.Bucket); err != nil {
		return nil, err
	}
	return gw, nil
}

func (g *MinioGateway) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := g.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := g.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %q: %w", bucket, err)
	}
	return nil
}

func (g *MinioGateway) Upload(ctx context.Context, bucket, path string, content io.Reader, size int64, contentType string) (Ref, error) {
	_, err := g.client.PutObject(ctx, bucket, path, content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Ref{}, fmt.Errorf("upload %s/%s: %w", bucket, path, err)
	}
	return Ref{Bucket: bucket, Path: path, PublicURL: g.PublicURL(bucket, path)}, nil
}

// Remove deletes every path, collecting the first failure instead of stopping
// at it.
func (g *MinioGateway) Remove(ctx context.Context, bucket string, paths []string) error {
	var firstErr error
	for _, path := range paths {
		err := g.client.RemoveObject(ctx, bucket, path, minio.RemoveObjectOptions{})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove %s/%s: %w", bucket, path, err)
		}
	}
	return firstErr
}

func (g *MinioGateway) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/%s/%s", g.publicBaseURL, bucket, path)
}

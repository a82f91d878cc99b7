package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"VTube/config"
	"VTube/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBackend stores media as objects in a MinIO (or any S3-compatible) bucket.
type MinioBackend struct {
	client    *minio.Client
	bucket    string
	region    string
	folder    string
	publicURL string
}

// NewMinioBackend creates a MinIO client from the configuration. It does not touch the network.
func NewMinioBackend(cfg *config.Config) (*MinioBackend, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	publicURL := cfg.MinioPublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.MinioUseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.MinioEndpoint
	}

	return &MinioBackend{
		client:    client,
		bucket:    cfg.MinioBucket,
		region:    cfg.MinioRegion,
		folder:    cfg.MediaFolder,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Name implements Backend.
func (b *MinioBackend) Name() string {
	return config.MediaDriverMinio
}

// EnsureBucket creates the bucket if needed and makes the media folder publicly readable,
// so that returned URLs are reachable without signing.
func (b *MinioBackend) EnsureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", b.bucket, err)
	}
	if !exists {
		if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{Region: b.region}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", b.bucket, err)
		}
		logger.Info("[Media] created bucket", logger.String("bucket", b.bucket))
	}

	if err := b.client.SetBucketPolicy(ctx, b.bucket, publicReadPolicy(b.bucket, b.folder)); err != nil {
		return fmt.Errorf("failed to set policy on bucket %s: %w", b.bucket, err)
	}
	return nil
}

// Put implements Backend. The object key is <folder>/<uuid><ext>.
func (b *MinioBackend) Put(ctx context.Context, localPath string) (*UploadResult, error) {
	contentType, err := DetectContentType(localPath)
	if err != nil {
		return nil, err
	}

	key := b.objectKey(filepath.Ext(localPath))
	if _, err := b.client.FPutObject(ctx, b.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return nil, fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return &UploadResult{URL: b.ObjectURL(key), DeletionRef: key}, nil
}

// Destroy implements Backend. S3 deletes are idempotent, so the object is stat'ed first
// to report a missing asset as not deleted.
func (b *MinioBackend) Destroy(ctx context.Context, ref string) (bool, error) {
	if _, err := b.client.StatObject(ctx, b.bucket, ref, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %s: %w", ref, err)
	}
	if err := b.client.RemoveObject(ctx, b.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("failed to remove object %s: %w", ref, err)
	}
	return true, nil
}

// ObjectURL returns the public URL for an object key.
func (b *MinioBackend) ObjectURL(key string) string {
	return b.publicURL + "/" + b.bucket + "/" + key
}

func (b *MinioBackend) objectKey(ext string) string {
	return path.Join(b.folder, uuid.NewString()+strings.ToLower(ext))
}

func publicReadPolicy(bucket, folder string) string {
	resource := "arn:aws:s3:::" + bucket + "/*"
	if folder != "" {
		resource = "arn:aws:s3:::" + bucket + "/" + strings.Trim(folder, "/") + "/*"
	}
	return `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["` + resource + `"]}]}`
}

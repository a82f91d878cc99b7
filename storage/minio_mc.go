package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats summarises the objects under a prefix.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// AssetInfo describes one stored media object.
type AssetInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// ListAssets lists every object under prefix (recursively) together with aggregate statistics.
func (b *MinioBackend) ListAssets(ctx context.Context, prefix string) ([]AssetInfo, *BucketStats, error) {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check bucket %s: %w", b.bucket, err)
	}
	if !exists {
		return nil, nil, fmt.Errorf("bucket %s does not exist", b.bucket)
	}

	stats := &BucketStats{}
	var assets []AssetInfo
	for object := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		assets = append(assets, AssetInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}
	return assets, stats, nil
}

// FormatSize renders a byte count with a binary unit suffix.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"VTube/logger"
	"VTube/metrics"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUpload marks every failure returned by Uploader.Upload.
var ErrUpload = errors.New("media upload failed")

// UploadResult is what the media host hands back for one stored file.
type UploadResult struct {
	URL         string `json:"url"`
	DeletionRef string `json:"deletionRef"` // Opaque handle needed to delete the asset later
}

// Backend is a remote media host.
type Backend interface {
	Name() string
	Put(ctx context.Context, localPath string) (*UploadResult, error)
	// Destroy reports whether the host confirmed that the asset was deleted.
	Destroy(ctx context.Context, ref string) (bool, error)
}

// Uploader pushes locally staged files to a Backend and removes the local copy afterwards.
// Each call makes exactly one attempt against the backend.
type Uploader struct {
	backend Backend
}

// NewUploader creates an Uploader for the given backend.
func NewUploader(backend Backend) *Uploader {
	return &Uploader{backend: backend}
}

// Upload sends the file at localPath to the media host. The local file is removed
// whether or not the upload succeeds.
func (u *Uploader) Upload(ctx context.Context, localPath string) (*UploadResult, error) {
	if localPath == "" {
		return nil, fmt.Errorf("%w: no local file provided", ErrUpload)
	}
	defer removeLocal(localPath)

	start := time.Now()
	result, err := u.backend.Put(ctx, localPath)
	metrics.MediaDuration.WithLabelValues(u.backend.Name(), "upload").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MediaOperationsTotal.WithLabelValues(u.backend.Name(), "upload", "failed").Inc()
		logger.Error("[Media] upload failed",
			logger.String("backend", u.backend.Name()),
			logger.String("path", localPath),
			logger.ErrorField(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrUpload, u.backend.Name(), err)
	}
	if result == nil || result.URL == "" {
		metrics.MediaOperationsTotal.WithLabelValues(u.backend.Name(), "upload", "failed").Inc()
		logger.Error("[Media] upload returned no url",
			logger.String("backend", u.backend.Name()),
			logger.String("path", localPath))
		return nil, fmt.Errorf("%w: %s returned no url", ErrUpload, u.backend.Name())
	}

	metrics.MediaOperationsTotal.WithLabelValues(u.backend.Name(), "upload", "ok").Inc()
	logger.Info("[Media] uploaded",
		logger.String("backend", u.backend.Name()),
		logger.String("url", result.URL),
		logger.Duration("took", time.Since(start)))
	return result, nil
}

// Delete asks the media host to remove a previously uploaded asset. It never fails;
// the return value says whether the host confirmed the deletion.
func (u *Uploader) Delete(ctx context.Context, deletionRef string) bool {
	if deletionRef == "" {
		return false
	}
	start := time.Now()
	ok, err := u.backend.Destroy(ctx, deletionRef)
	metrics.MediaDuration.WithLabelValues(u.backend.Name(), "delete").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MediaOperationsTotal.WithLabelValues(u.backend.Name(), "delete", "failed").Inc()
		logger.Error("[Media] delete failed",
			logger.String("backend", u.backend.Name()),
			logger.String("ref", deletionRef),
			logger.ErrorField(err))
		return false
	}
	if !ok {
		metrics.MediaOperationsTotal.WithLabelValues(u.backend.Name(), "delete", "unconfirmed").Inc()
		logger.Warn("[Media] delete not confirmed",
			logger.String("backend", u.backend.Name()),
			logger.String("ref", deletionRef))
		return false
	}
	metrics.MediaOperationsTotal.WithLabelValues(u.backend.Name(), "delete", "ok").Inc()
	logger.Info("[Media] deleted",
		logger.String("backend", u.backend.Name()),
		logger.String("ref", deletionRef))
	return true
}

// removeLocal is best-effort; a failure is logged and otherwise ignored.
func removeLocal(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("[Media] failed to remove local file",
			logger.String("path", path),
			logger.ErrorField(err))
	}
}

// DetectContentType sniffs the MIME type of a local file from its magic bytes.
func DetectContentType(localPath string) (string, error) {
	mime, err := mimetype.DetectFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to detect content type of %s: %w", localPath, err)
	}
	return mime.String(), nil
}

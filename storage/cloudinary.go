package storage

import (
	"context"
	"errors"
	"fmt"

	"VTube/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryBackend stores media on Cloudinary. The deletion reference is the public id.
type CloudinaryBackend struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryBackend creates a Cloudinary client from the configuration.
func NewCloudinaryBackend(cfg *config.Config) (*CloudinaryBackend, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloudinary client: %w", err)
	}
	return &CloudinaryBackend{cld: cld, folder: cfg.MediaFolder}, nil
}

// Name implements Backend.
func (c *CloudinaryBackend) Name() string {
	return config.MediaDriverCloudinary
}

// Put implements Backend; Cloudinary detects the resource type itself.
func (c *CloudinaryBackend) Put(ctx context.Context, localPath string) (*UploadResult, error) {
	resp, err := c.cld.Upload.Upload(ctx, localPath, uploader.UploadParams{
		ResourceType: "auto",
		Folder:       c.folder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", localPath, err)
	}
	if resp.Error.Message != "" {
		return nil, errors.New(resp.Error.Message)
	}
	return &UploadResult{URL: resp.SecureURL, DeletionRef: resp.PublicID}, nil
}

// Destroy implements Backend. Cloudinary answers "not found" for unknown ids.
func (c *CloudinaryBackend) Destroy(ctx context.Context, ref string) (bool, error) {
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: ref})
	if err != nil {
		return false, fmt.Errorf("failed to destroy %s: %w", ref, err)
	}
	if resp.Error.Message != "" {
		return false, errors.New(resp.Error.Message)
	}
	return resp.Result == "ok", nil
}

package storage

import (
	"fmt"

	"VTube/config"
)

// NewBackend builds the media backend selected by cfg.MediaDriver.
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.MediaDriver {
	case config.MediaDriverMinio:
		b, err := NewMinioBackend(cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.MediaDriverCloudinary:
		b, err := NewCloudinaryBackend(cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown media driver %q", cfg.MediaDriver)
	}
}

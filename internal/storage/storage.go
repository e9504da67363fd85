// Package storage persists uploaded post images on local disk or S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"quill/internal/config"

	"github.com/google/uuid"
)

// Backend stores media objects by key.
type Backend interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// NewBackend builds the backend selected by MEDIA_BACKEND.
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.MediaBackend {
	case config.MediaBackendDisk, "":
		return NewDiskBackend(cfg.MediaRoot, cfg.MediaURL), nil
	case config.MediaBackendS3:
		return NewS3Backend(S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			BaseURL:   cfg.S3BaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.MediaBackend)
	}
}

// NewPostImageKey returns a fresh key under posts/ keeping ext.
func NewPostImageKey(ext string) string {
	return "posts/" + uuid.NewString() + strings.ToLower(ext)
}

// validKey rejects keys that could escape the media root.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return fmt.Errorf("invalid media key %q", key)
	}
	return nil
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}

// Package storage keeps uploaded post images on the local disk, S3 or Google Cloud Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/cppla/blogicum/config"
)

// ImagePrefix is the key prefix every post image is stored under.
const ImagePrefix = "posts_images"

// Storage saves and removes objects by key.
type Storage interface {
	// Save stores the content under key and returns its public URL.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New builds the backend selected by cfg.StorageDriver.
func New(ctx context.Context, cfg config.AppConfig) (Storage, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case "local", "":
		return NewLocalStorage(cfg.StorageLocalPath, cfg.StoragePublicURL)
	case "s3":
		return NewS3Client(cfg.S3Region, cfg.S3Bucket)
	case "gcs":
		return NewGCSClient(ctx, cfg.GCSProjectID, cfg.GCSBucketName, cfg.GCSCredentialsFile)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// ImageKey returns a fresh object key for an uploaded image, keeping the file extension.
func ImageKey(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 10 {
		ext = ""
	}
	return ImagePrefix + "/" + uuid.NewString() + ext
}

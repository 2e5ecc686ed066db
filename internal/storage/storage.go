// Package storage puts uploaded files in an object bucket and hands back public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pillow12360/eureka-ssul/internal/config"

	"github.com/google/uuid"
)

// ProfileImagePrefix is the folder every profile avatar is written under.
const ProfileImagePrefix = "profile-images"

// Bucket is a named object store.
type Bucket interface {
	// Upload writes body at objectPath and returns its public URL.
	Upload(ctx context.Context, objectPath string, body io.Reader, contentType string) (string, error)
	PublicURL(objectPath string) string
	Remove(ctx context.Context, objectPath string) error
}

// New builds the bucket selected by cfg.StorageDriver.
func New(cfg *config.Config) (Bucket, error) {
	switch cfg.StorageDriver {
	case "cloudinary":
		return NewCloudinaryBucket(cfg.CloudinaryURL, cfg.StorageBucket)
	case "local", "":
		return NewLocalBucket(cfg.StorageDir, cfg.StorageBucket, cfg.StoragePublicURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// ProfileImagePath returns a fresh object path for an avatar with the given file name's extension.
func ProfileImagePath(fileName string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(fileName)), ".")
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/%s.%s", ProfileImagePrefix, uuid.NewString(), ext)
}

func cleanObjectPath(objectPath string) (string, error) {
	p := path.Clean("/" + objectPath)
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}
	return p, nil
}

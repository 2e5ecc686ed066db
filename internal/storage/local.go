package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalBucket stores objects on disk under dir/name and serves them from baseURL/name.
type LocalBucket struct {
	root    string
	name    string
	baseURL string
}

// NewLocalBucket creates the bucket directory if needed.
func NewLocalBucket(dir, name, baseURL string) (*LocalBucket, error) {
	root := filepath.Join(dir, name)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket dir: %w", err)
	}
	return &LocalBucket{root: root, name: name, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *LocalBucket) Upload(ctx context.Context, objectPath string, body io.Reader, _ string) (string, error) {
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full := filepath.Join(b.root, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp object: %w", err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("publish object: %w", err)
	}
	return b.PublicURL(p), nil
}

func (b *LocalBucket) PublicURL(objectPath string) string {
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return ""
	}
	return b.baseURL + "/" + b.name + "/" + p
}

func (b *LocalBucket) Remove(_ context.Context, objectPath string) error {
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(b.root, filepath.FromSlash(p)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

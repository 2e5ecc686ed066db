// Package testutil provides shared test doubles and fixtures.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"

	"github.com/pillow12360/eureka-ssul/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// NewSQLiteDB returns a migrated in-memory database closed at test cleanup.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewRedis starts a miniredis server and returns a client for it.
func NewRedis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

// MemoryBucket is an in-memory storage.Bucket.
type MemoryBucket struct {
	mu      sync.Mutex
	Objects map[string][]byte
	FailErr error
}

// NewMemoryBucket creates an empty bucket.
func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{Objects: map[string][]byte{}}
}

func (b *MemoryBucket) Upload(_ context.Context, objectPath string, body io.Reader, _ string) (string, error) {
	if b.FailErr != nil {
		return "", b.FailErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.Objects[objectPath] = data
	b.mu.Unlock()
	return b.PublicURL(objectPath), nil
}

func (b *MemoryBucket) PublicURL(objectPath string) string {
	return fmt.Sprintf("https://storage.test/profiles/%s", objectPath)
}

func (b *MemoryBucket) Remove(_ context.Context, objectPath string) error {
	b.mu.Lock()
	delete(b.Objects, objectPath)
	b.mu.Unlock()
	return nil
}

// Len returns the number of stored objects.
func (b *MemoryBucket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Objects)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

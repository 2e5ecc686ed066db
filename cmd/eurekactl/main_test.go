package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pillow12360/eureka-ssul/internal/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "eureka.db"))
	t.Setenv("REDIS_URL", miniredis.RunT(t).Addr())
	t.Setenv("STORAGE_DIR", filepath.Join(dir, "uploads"))
	t.Cleanup(func() {
		_ = cache.Close()
		cache.SetClient(nil)
	})
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedThenRecount(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "seed", "--profiles", "3", "--max-comments", "2")
	require.NoError(t, err, out)
	assert.Contains(t, out, "created 3 profiles")

	out, err = run(t, "recount")
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 profile(s) reported", "counters written through the services never drift")
}

func TestSeedFixtures(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "profiles.yml")
	require.NoError(t, writeFile(path, "profiles:\n  - name: 테스터\n    features: [a, b, c]\n    bio: 0123456789 hello\n    comments:\n      - {author: x, content: hi}\n"))

	out, err := run(t, "seed", "--fixtures", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "created 1 profiles and 1 comments")
}

func TestAdminAddAndRemove(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "admin", "add", "ops@example.com", "--password", "short")
	assert.ErrorContains(t, err, "at least 8")

	out, err := run(t, "admin", "add", "Ops@Example.com", "--password", "long-enough-pass")
	require.NoError(t, err, out)
	assert.Contains(t, out, "added admin ops@example.com")

	_, err = run(t, "admin", "add", "ops@example.com", "--password", "long-enough-pass")
	assert.ErrorContains(t, err, "already an admin")

	out, err = run(t, "admin", "remove", "ops@example.com")
	require.NoError(t, err, out)
	assert.Contains(t, out, "removed admin")
}

func TestMigrateDown_RejectsBadVersion(t *testing.T) {
	_, err := run(t, "migrate", "down", "latest")
	assert.ErrorContains(t, err, "invalid version")
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/observability"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// GetJSON decodes key into dest. It reports false on a miss or when caching is off.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key for ttl. It is a no-op when caching is off.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, raw, ttl).Err()
}

var loads singleflight.Group

// loadTimeout bounds a shared load, which no longer follows any caller's context.
const loadTimeout = 10 * time.Second

// Remember returns the value cached under key, or calls load, caches its
// result for ttl and returns it. Concurrent misses on one key share a single
// load. The shared load runs detached from the caller that started it, so
// that caller going away does not fail the others; each caller still returns
// as soon as its own ctx is done. Redis failures are logged and fall through
// to load. family labels the hit/miss metric.
func Remember[T any](ctx context.Context, family, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	found, err := GetJSON(ctx, key, &cached)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		observability.CacheLookups.WithLabelValues(family, "hit").Inc()
		return cached, nil
	}
	observability.CacheLookups.WithLabelValues(family, "miss").Inc()

	ch := loads.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		fresh, err := load(loadCtx)
		if err != nil {
			return fresh, err
		}
		if err := SetJSON(loadCtx, key, fresh, ttl); err != nil {
			middleware.Logger.WarnContext(loadCtx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return fresh, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Invalidate deletes keys. Failures are logged; reads will expire them by TTL.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidate failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

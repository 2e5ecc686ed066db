// Package cache holds the shared Redis client, the board's key layout and
// cache-aside helpers. Every helper is a no-op when Redis is unavailable.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/observability"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

const pingTimeout = 5 * time.Second

// Open parses a host:port or redis:// address and pings it.
func Open(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	}

	c := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return c, nil
}

// InitRedis connects the shared client. On failure the app runs uncached.
func InitRedis(addr string) {
	c, err := Open(context.Background(), addr)
	if err != nil {
		middleware.Logger.Warn("redis unavailable, running without cache", slog.String("error", err.Error()))
		SetClient(nil)
		return
	}
	middleware.Logger.Info("redis connected", slog.String("addr", c.Options().Addr))
	SetClient(c)
}

// SetClient swaps the shared client. nil turns caching off.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(errorCounter{})
	}
	client = c
}

// GetClient returns the shared client, or nil when caching is off.
func GetClient() *redis.Client {
	return client
}

// Close closes and forgets the shared client.
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// errorCounter feeds eureka_redis_error_rate_total. A miss (redis.Nil) is not an error.
type errorCounter struct{}

func countErr(cmd string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrorRate.WithLabelValues(cmd).Inc()
	}
}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countErr(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countErr("pipeline", err)
		return err
	}
}

package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// kv holds short-lived auth records: OAuth states, sessions and client bindings.
type kv interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	// Take returns and deletes the value in one step.
	Take(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, keys ...string) error
}

func newKV(rdb *redis.Client) kv {
	if rdb == nil {
		return &memoryKV{items: map[string]memoryItem{}, now: time.Now}
	}
	return &redisKV{rdb: rdb}
}

type redisKV struct {
	rdb *redis.Client
}

func (r *redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

func (r *redisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *redisKV) Take(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *redisKV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, keys...).Err()
}

type memoryItem struct {
	value   string
	expires time.Time
}

// memoryKV serves single-process runs without Redis.
type memoryKV struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func (m *memoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := memoryItem{value: value}
	if ttl > 0 {
		item.expires = m.now().Add(ttl)
	}
	m.items[key] = item
	return nil
}

func (m *memoryKV) get(key string) (string, bool) {
	item, ok := m.items[key]
	if !ok {
		return "", false
	}
	if !item.expires.IsZero() && m.now().After(item.expires) {
		delete(m.items, key)
		return "", false
	}
	return item.value, true
}

func (m *memoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.get(key)
	return v, ok, nil
}

func (m *memoryKV) Take(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.get(key)
	delete(m.items, key)
	return v, ok, nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

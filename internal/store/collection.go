// Package store holds the client-state containers that sit between the services and the
// pages: each one owns its data, a loading flag and an error slot, and never returns a
// remote error to its caller.
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pillow12360/eureka-ssul/internal/middleware"
)

// Ops binds a Collection to the service calls of one entity.
// N is the create payload and U the update payload.
type Ops[T, N, U any] struct {
	Name    string
	ID      func(T) string
	List    func(ctx context.Context) ([]T, error)
	Create  func(ctx context.Context, in N) (*T, error)
	Update  func(ctx context.Context, id string, in U) (*T, error)
	Delete  func(ctx context.Context, id string) error
	Prepend bool
}

// Snapshot is a copy of a Collection's state.
type Snapshot[T any] struct {
	Items   []T    `json:"items"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// Collection is a list of entities kept in sync with its service.
type Collection[T, N, U any] struct {
	ops Ops[T, N, U]

	mu      sync.RWMutex
	items   []T
	loading bool
	err     error
}

func NewCollection[T, N, U any](ops Ops[T, N, U]) *Collection[T, N, U] {
	return &Collection[T, N, U]{ops: ops, items: []T{}}
}

func (c *Collection[T, N, U]) begin() {
	c.mu.Lock()
	c.loading = true
	c.err = nil
	c.mu.Unlock()
}

// fail records err in the error slot and ends the loading state.
func (c *Collection[T, N, U]) fail(ctx context.Context, op string, err error) {
	middleware.Logger.WarnContext(ctx, "store operation failed",
		slog.String("store", c.ops.Name),
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	c.mu.Lock()
	c.loading = false
	c.err = err
	c.mu.Unlock()
}

// Fetch replaces the items with the service's list. It reports whether the fetch succeeded.
func (c *Collection[T, N, U]) Fetch(ctx context.Context) bool {
	c.begin()
	items, err := c.ops.List(ctx)
	if err != nil {
		c.fail(ctx, "fetch", err)
		return false
	}
	if items == nil {
		items = []T{}
	}
	c.mu.Lock()
	c.items = items
	c.loading = false
	c.mu.Unlock()
	return true
}

// Create adds the created entity to the front or back of the list.
func (c *Collection[T, N, U]) Create(ctx context.Context, in N) (*T, bool) {
	c.begin()
	created, err := c.ops.Create(ctx, in)
	if err != nil {
		c.fail(ctx, "create", err)
		return nil, false
	}
	c.mu.Lock()
	if c.ops.Prepend {
		c.items = append([]T{*created}, c.items...)
	} else {
		c.items = append(c.items, *created)
	}
	c.loading = false
	c.mu.Unlock()
	return created, true
}

// Update replaces the item with the same id by the service's result.
func (c *Collection[T, N, U]) Update(ctx context.Context, id string, in U) (*T, bool) {
	c.begin()
	updated, err := c.ops.Update(ctx, id, in)
	if err != nil {
		c.fail(ctx, "update", err)
		return nil, false
	}
	c.mu.Lock()
	for i := range c.items {
		if c.ops.ID(c.items[i]) == id {
			c.items[i] = *updated
		}
	}
	c.loading = false
	c.mu.Unlock()
	return updated, true
}

func (c *Collection[T, N, U]) Delete(ctx context.Context, id string) bool {
	c.begin()
	if err := c.ops.Delete(ctx, id); err != nil {
		c.fail(ctx, "delete", err)
		return false
	}
	c.mu.Lock()
	kept := c.items[:0:0]
	for _, it := range c.items {
		if c.ops.ID(it) != id {
			kept = append(kept, it)
		}
	}
	c.items = kept
	c.loading = false
	c.mu.Unlock()
	return true
}

// Items returns a copy of the current list.
func (c *Collection[T, N, U]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T, N, U]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Err returns the error of the last failed operation, cleared when the next one starts.
func (c *Collection[T, N, U]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Collection[T, N, U]) Snapshot() Snapshot[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Snapshot[T]{Items: make([]T, len(c.items)), Loading: c.loading}
	copy(s.Items, c.items)
	if c.err != nil {
		s.Error = c.err.Error()
	}
	return s
}

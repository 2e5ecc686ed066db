package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAuthDisabled is returned by AppContext.Auth when no auth backend is configured.
var ErrAuthDisabled = errors.New("auth is not configured")

// DefaultIdleTTL is how long a client's dialog and auth store outlive its last request.
const DefaultIdleTTL = 30 * time.Minute

// AppContextOption configures an AppContext.
type AppContextOption func(*AppContext)

// WithIdleTTL sets how long an unused client entry is kept. Zero or less keeps the default.
func WithIdleTTL(d time.Duration) AppContextOption {
	return func(a *AppContext) {
		if d > 0 {
			a.idleTTL = d
		}
	}
}

func withClock(now func() time.Time) AppContextOption {
	return func(a *AppContext) { a.now = now }
}

type dialogEntry struct {
	dialog   *AlertDialog
	lastUsed time.Time
}

type storeEntry struct {
	store    *AuthStore
	lastUsed time.Time
}

// AppContext owns the per-client dialogs and auth stores. Entries idle for
// longer than the idle TTL are closed and dropped by a background sweep.
type AppContext struct {
	ctx     context.Context
	auth    AuthAPI
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	dialogs map[string]*dialogEntry
	stores  map[string]*storeEntry
	closed  bool
	done    chan struct{}
}

// NewAppContext starts the idle sweep, which stops on Close or when ctx is done.
func NewAppContext(ctx context.Context, auth AuthAPI, opts ...AppContextOption) *AppContext {
	a := &AppContext{
		ctx:     ctx,
		auth:    auth,
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
		dialogs: make(map[string]*dialogEntry),
		stores:  make(map[string]*storeEntry),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	go a.sweepLoop()
	return a
}

func (a *AppContext) sweepLoop() {
	interval := a.idleTTL / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.done:
			return
		case <-ticker.C:
			a.Sweep()
		}
	}
}

// Dialog returns the client's dialog, creating it on first use.
func (a *AppContext) Dialog(clientID string) (*AlertDialog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, context.Canceled
	}
	e, ok := a.dialogs[clientID]
	if !ok {
		e = &dialogEntry{dialog: NewAlertDialog()}
		a.dialogs[clientID] = e
	}
	e.lastUsed = a.now()
	return e.dialog, nil
}

// Auth returns the client's registered auth store, creating and subscribing it
// on first use. Only call it for clients with a session to follow; pages that
// just read the state use Borrow. auth may be nil, in which case only dialogs
// are available.
func (a *AppContext) Auth(clientID string) (*AuthStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.usable(); err != nil {
		return nil, err
	}
	if e, ok := a.stores[clientID]; ok {
		e.lastUsed = a.now()
		return e.store, nil
	}
	s, err := NewAuthStore(a.ctx, a.auth, clientID)
	if err != nil {
		return nil, err
	}
	a.stores[clientID] = &storeEntry{store: s, lastUsed: a.now()}
	return s, nil
}

// Borrow returns the client's registered auth store if there is one, otherwise
// a store restored from the persisted flag that follows no events. The caller
// must call release when done with it.
func (a *AppContext) Borrow(ctx context.Context, clientID string) (s *AuthStore, release func(), err error) {
	a.mu.Lock()
	if err := a.usable(); err != nil {
		a.mu.Unlock()
		return nil, nil, err
	}
	if e, ok := a.stores[clientID]; ok {
		e.lastUsed = a.now()
		a.mu.Unlock()
		return e.store, func() {}, nil
	}
	a.mu.Unlock()

	s = restoreAuthStore(ctx, a.auth, clientID)
	return s, s.Close, nil
}

func (a *AppContext) usable() error {
	if a.closed {
		return context.Canceled
	}
	if a.auth == nil {
		return ErrAuthDisabled
	}
	return nil
}

// Len reports how many dialogs and auth stores are registered.
func (a *AppContext) Len() (dialogs, stores int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.dialogs), len(a.stores)
}

// Sweep closes and drops every entry unused for longer than the idle TTL.
func (a *AppContext) Sweep() {
	cutoff := a.now().Add(-a.idleTTL)

	var dialogs []*AlertDialog
	var stores []*AuthStore
	a.mu.Lock()
	for id, e := range a.dialogs {
		if e.lastUsed.Before(cutoff) {
			dialogs = append(dialogs, e.dialog)
			delete(a.dialogs, id)
		}
	}
	for id, e := range a.stores {
		if e.lastUsed.Before(cutoff) {
			stores = append(stores, e.store)
			delete(a.stores, id)
		}
	}
	a.mu.Unlock()

	for _, d := range dialogs {
		d.Close()
	}
	for _, s := range stores {
		s.Close()
	}
}

// Close closes every dialog, releases every auth subscription and stops the sweep.
func (a *AppContext) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.done)
	stores := a.stores
	dialogs := a.dialogs
	a.stores = make(map[string]*storeEntry)
	a.dialogs = make(map[string]*dialogEntry)
	a.mu.Unlock()

	for _, e := range dialogs {
		e.dialog.Close()
	}
	for _, e := range stores {
		e.store.Close()
	}
}

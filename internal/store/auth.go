package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/cache"
	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
)

const (
	ProviderKakao = "kakao"

	authStateTTL   = 30 * 24 * time.Hour
	authEventLimit = 10 * time.Second
)

// AuthAPI is the part of service.AuthService the auth store drives.
type AuthAPI interface {
	SignInWithKakao(ctx context.Context, clientID, next string) (string, error)
	SignOut(ctx context.Context, clientID string) error
	GetUser(ctx context.Context, clientID string) (*models.User, error)
	GetSession(ctx context.Context, clientID string) (*models.Session, error)
	OnAuthStateChange(ctx context.Context, clientID string, fn func(models.AuthEvent)) (func(), error)
}

// AuthState is a copy of an AuthStore's state.
type AuthState struct {
	User            *models.User    `json:"user"`
	Session         *models.Session `json:"session"`
	IsLoading       bool            `json:"is_loading"`
	IsAuthenticated bool            `json:"is_authenticated"`
	Error           string          `json:"error,omitempty"`
}

// persistedAuth is the only part of the state that outlives the process.
type persistedAuth struct {
	IsAuthenticated bool `json:"isAuthenticated"`
}

// AuthStore is the session state of one client. It follows the client's auth events
// until Close.
type AuthStore struct {
	api      AuthAPI
	clientID string
	base     context.Context

	mu              sync.RWMutex
	user            *models.User
	session         *models.Session
	isLoading       bool
	isAuthenticated bool
	err             error

	unsubscribe func()
	closeOnce   sync.Once
}

// NewAuthStore restores the persisted flag for clientID and subscribes to its auth events.
// ctx bounds the subscription; Close releases it earlier.
func NewAuthStore(ctx context.Context, api AuthAPI, clientID string) (*AuthStore, error) {
	s := restoreAuthStore(ctx, api, clientID)
	unsubscribe, err := api.OnAuthStateChange(ctx, clientID, s.handleEvent)
	if err != nil {
		return nil, fmt.Errorf("subscribe auth events: %w", err)
	}
	s.unsubscribe = unsubscribe
	return s, nil
}

// restoreAuthStore builds a store holding only the persisted flag. It follows no events.
func restoreAuthStore(ctx context.Context, api AuthAPI, clientID string) *AuthStore {
	s := &AuthStore{api: api, clientID: clientID, base: context.WithoutCancel(ctx)}

	var saved persistedAuth
	if found, err := cache.GetJSON(ctx, cache.AuthStateKey(clientID), &saved); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to restore auth state", slog.String("error", err.Error()))
	} else if found {
		s.isAuthenticated = saved.IsAuthenticated
	}
	return s
}

func (s *AuthStore) handleEvent(ev models.AuthEvent) {
	ctx, cancel := context.WithTimeout(s.base, authEventLimit)
	defer cancel()
	switch ev.Event {
	case models.SignedIn, models.TokenRefreshed:
		s.CheckAuth(ctx)
	case models.SignedOut:
		s.Reset(ctx)
	}
}

func (s *AuthStore) persist(ctx context.Context, authenticated bool) {
	if err := cache.SetJSON(ctx, cache.AuthStateKey(s.clientID), persistedAuth{IsAuthenticated: authenticated}, authStateTTL); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to persist auth state", slog.String("error", err.Error()))
	}
}

func (s *AuthStore) fail(ctx context.Context, op string, err error) {
	middleware.Logger.WarnContext(ctx, "auth store operation failed", slog.String("op", op), slog.String("error", err.Error()))
	s.mu.Lock()
	s.isLoading = false
	s.err = err
	s.mu.Unlock()
}

func (s *AuthStore) begin() {
	s.mu.Lock()
	s.isLoading = true
	s.err = nil
	s.mu.Unlock()
}

// Login returns the URL the client must visit to sign in with provider.
func (s *AuthStore) Login(ctx context.Context, provider, next string) (string, bool) {
	s.begin()
	if provider != ProviderKakao {
		s.fail(ctx, "login", models.NewValidationError(fmt.Sprintf("Unsupported provider %q", provider)))
		return "", false
	}
	url, err := s.api.SignInWithKakao(ctx, s.clientID, next)
	if err != nil {
		s.fail(ctx, "login", err)
		return "", false
	}
	s.mu.Lock()
	s.isLoading = false
	s.mu.Unlock()
	return url, true
}

func (s *AuthStore) Logout(ctx context.Context) bool {
	s.begin()
	if err := s.api.SignOut(ctx, s.clientID); err != nil {
		s.fail(ctx, "logout", err)
		return false
	}
	s.Reset(ctx)
	return true
}

// CheckAuth re-reads the session and user from the auth backend.
func (s *AuthStore) CheckAuth(ctx context.Context) bool {
	s.begin()
	sess, err := s.api.GetSession(ctx, s.clientID)
	if err != nil {
		s.fail(ctx, "check", err)
		return false
	}
	var user *models.User
	if sess != nil {
		if user, err = s.api.GetUser(ctx, s.clientID); err != nil {
			s.fail(ctx, "check", err)
			return false
		}
	}
	authenticated := sess != nil && user != nil

	s.mu.Lock()
	s.session = sess
	s.user = user
	s.isAuthenticated = authenticated
	s.isLoading = false
	s.mu.Unlock()
	s.persist(ctx, authenticated)
	return true
}

func (s *AuthStore) ClearError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

// Reset drops the user and session.
func (s *AuthStore) Reset(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.session = nil
	s.isAuthenticated = false
	s.isLoading = false
	s.err = nil
	s.mu.Unlock()
	s.persist(ctx, false)
}

func (s *AuthStore) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := AuthState{
		User:            s.user,
		Session:         s.session,
		IsLoading:       s.isLoading,
		IsAuthenticated: s.isAuthenticated,
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}

func (s *AuthStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Close stops following auth events.
func (s *AuthStore) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
}

// Package auth signs users in through an OAuth provider, issues JWT sessions bound to a
// client and publishes auth state changes.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/cache"
	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/observability"
	"github.com/pillow12360/eureka-ssul/internal/repository"
	"github.com/pillow12360/eureka-ssul/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// NotAdminMessage is reported when a non-admin attempts the admin sign-in.
const NotAdminMessage = "관리자 권한이 없습니다."

// EventBus carries auth state changes per client.
type EventBus interface {
	PublishAuthEvent(ctx context.Context, ev models.AuthEvent) error
	SubscribeAuth(ctx context.Context, clientID string, fn func(models.AuthEvent)) (func(), error)
}

// SignInResult is the outcome of a completed OAuth callback.
type SignInResult struct {
	Session  *models.Session
	User     *models.User
	ClientID string
	Next     string
}

type sessionRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ClientID     string    `json:"client_id"`
	Email        string    `json:"email,omitempty"`
	Admin        bool      `json:"admin,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	RefreshJTI   string    `json:"refresh_jti"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (r *sessionRecord) session() *models.Session {
	return &models.Session{
		ID:           r.ID,
		UserID:       r.UserID,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    r.ExpiresAt,
		IsAdmin:      r.Admin,
	}
}

type oauthState struct {
	ClientID string `json:"client_id"`
	Next     string `json:"next,omitempty"`
}

// Authenticator is the auth backend of the application.
type Authenticator struct {
	provider Provider
	users    repository.UserRepository
	admins   repository.AdminRepository
	tokens   *TokenIssuer
	store    kv
	events   EventBus
	now      func() time.Time
}

// NewAuthenticator wires the auth backend. provider may be nil when OAuth is not configured;
// rdb may be nil for single-process runs.
func NewAuthenticator(
	provider Provider,
	users repository.UserRepository,
	admins repository.AdminRepository,
	tokens *TokenIssuer,
	rdb *redis.Client,
	events EventBus,
) *Authenticator {
	return &Authenticator{
		provider: provider,
		users:    users,
		admins:   admins,
		tokens:   tokens,
		store:    newKV(rdb),
		events:   events,
		now:      time.Now,
	}
}

// SignInURL starts an OAuth sign-in for clientID and returns the provider redirect URL.
func (a *Authenticator) SignInURL(ctx context.Context, clientID, next string) (string, error) {
	if a.provider == nil {
		return "", models.NewValidationError("OAuth sign-in is not configured")
	}
	if clientID == "" {
		return "", models.NewValidationError("client id is required")
	}
	state := uuid.NewString()
	data, err := json.Marshal(oauthState{ClientID: clientID, Next: next})
	if err != nil {
		return "", err
	}
	if err := a.store.Set(ctx, cache.OAuthStateKey(state), string(data), cache.OAuthStateTTL); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return a.provider.AuthCodeURL(state), nil
}

// Exchange completes the OAuth callback: state check, code exchange, account upsert and session start.
func (a *Authenticator) Exchange(ctx context.Context, state, code string) (*SignInResult, error) {
	if a.provider == nil {
		return nil, models.NewValidationError("OAuth sign-in is not configured")
	}
	if state == "" || code == "" {
		return nil, models.NewUnauthorizedError("missing authorization code")
	}
	raw, ok, err := a.store.Take(ctx, cache.OAuthStateKey(state))
	if err != nil {
		return nil, fmt.Errorf("load oauth state: %w", err)
	}
	if !ok {
		return nil, models.NewUnauthorizedError("sign-in state is invalid or expired")
	}
	var st oauthState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decode oauth state: %w", err)
	}

	pu, err := a.provider.Exchange(ctx, code)
	if err != nil {
		observability.AuthEvents.WithLabelValues("exchange_failed").Inc()
		return nil, &models.AppError{Code: models.CodeUnauthorized, Message: "sign-in failed", Err: err}
	}
	user, err := a.users.UpsertByProvider(ctx, &models.User{
		Provider:   pu.Provider,
		ProviderID: pu.ProviderID,
		Email:      pu.Email,
		Nickname:   pu.Nickname,
		AvatarURL:  pu.AvatarURL,
	})
	if err != nil {
		return nil, err
	}

	rec, err := a.startSession(ctx, st.ClientID, user.ID, user.Email, false)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, models.SignedIn, rec)
	return &SignInResult{Session: rec.session(), User: user, ClientID: st.ClientID, Next: st.Next}, nil
}

func (a *Authenticator) startSession(ctx context.Context, clientID, userID, email string, admin bool) (*sessionRecord, error) {
	if old, ok, err := a.clientRecord(ctx, clientID); err == nil && ok {
		_ = a.store.Del(ctx, cache.SessionKey(old.ID))
	}

	id := uuid.NewString()
	toks, err := a.tokens.issue(userID, id, admin)
	if err != nil {
		return nil, err
	}
	rec := &sessionRecord{
		ID:           id,
		UserID:       userID,
		ClientID:     clientID,
		Email:        email,
		Admin:        admin,
		AccessToken:  toks.access,
		RefreshToken: toks.refresh,
		RefreshJTI:   toks.refreshJTI,
		ExpiresAt:    toks.expiresAt,
	}
	if err := a.save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (a *Authenticator) save(ctx context.Context, rec *sessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := a.tokens.RefreshTTL()
	if err := a.store.Set(ctx, cache.SessionKey(rec.ID), string(data), ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if rec.ClientID != "" {
		if err := a.store.Set(ctx, cache.ClientSessionKey(rec.ClientID), rec.ID, ttl); err != nil {
			return fmt.Errorf("bind session: %w", err)
		}
	}
	return nil
}

func (a *Authenticator) record(ctx context.Context, sessionID string) (*sessionRecord, bool, error) {
	raw, ok, err := a.store.Get(ctx, cache.SessionKey(sessionID))
	if err != nil || !ok {
		return nil, false, err
	}
	var rec sessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false, fmt.Errorf("decode session: %w", err)
	}
	return &rec, true, nil
}

func (a *Authenticator) clientRecord(ctx context.Context, clientID string) (*sessionRecord, bool, error) {
	if clientID == "" {
		return nil, false, nil
	}
	sid, ok, err := a.store.Get(ctx, cache.ClientSessionKey(clientID))
	if err != nil || !ok {
		return nil, false, err
	}
	return a.record(ctx, sid)
}

func (a *Authenticator) drop(ctx context.Context, rec *sessionRecord) error {
	keys := []string{cache.SessionKey(rec.ID)}
	if rec.ClientID != "" {
		keys = append(keys, cache.ClientSessionKey(rec.ClientID))
	}
	return a.store.Del(ctx, keys...)
}

func (a *Authenticator) publish(ctx context.Context, event models.AuthEventType, rec *sessionRecord) {
	observability.AuthEvents.WithLabelValues(string(event)).Inc()
	if a.events == nil || rec.ClientID == "" {
		return
	}
	ev := models.AuthEvent{
		Event:     event,
		ClientID:  rec.ClientID,
		UserID:    rec.UserID,
		SessionID: rec.ID,
		At:        a.now().UTC(),
	}
	if err := a.events.PublishAuthEvent(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish auth event",
			slog.String("event", string(event)),
			slog.String("error", err.Error()),
		)
	}
}

// GetSession returns the client's current session, or nil when signed out.
func (a *Authenticator) GetSession(ctx context.Context, clientID string) (*models.Session, error) {
	rec, ok, err := a.clientRecord(ctx, clientID)
	if err != nil || !ok {
		return nil, err
	}
	return rec.session(), nil
}

// GetUser returns the client's signed-in account, or nil when signed out.
func (a *Authenticator) GetUser(ctx context.Context, clientID string) (*models.User, error) {
	rec, ok, err := a.clientRecord(ctx, clientID)
	if err != nil || !ok {
		return nil, err
	}
	if rec.Admin {
		return &models.User{ID: rec.UserID, Provider: "email", ProviderID: rec.Email, Email: rec.Email}, nil
	}
	return a.users.GetByID(ctx, rec.UserID)
}

// Verify resolves an access token to a live session.
func (a *Authenticator) Verify(ctx context.Context, accessToken string) (*middleware.Identity, error) {
	claims, err := a.tokens.Parse(accessToken, kindAccess)
	if err != nil {
		return nil, err
	}
	rec, ok, err := a.record(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !ok || rec.UserID != claims.Subject {
		return nil, ErrInvalidToken
	}
	return &middleware.Identity{UserID: rec.UserID, SessionID: rec.ID, Admin: rec.Admin}, nil
}

// Refresh rotates the session's tokens. Presenting an already rotated refresh token ends the session.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	claims, err := a.tokens.Parse(refreshToken, kindRefresh)
	if err != nil {
		return nil, models.NewUnauthorizedError(err.Error())
	}
	rec, ok, err := a.record(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewUnauthorizedError("session has ended")
	}

	if _, reused, _ := a.store.Get(ctx, cache.RevokedTokenKey(claims.ID)); reused || claims.ID != rec.RefreshJTI {
		middleware.Logger.WarnContext(ctx, "refresh token reuse detected", slog.String("session_id", rec.ID))
		_ = a.drop(ctx, rec)
		a.publish(ctx, models.SignedOut, rec)
		return nil, models.NewUnauthorizedError("refresh token has been revoked")
	}

	toks, err := a.tokens.issue(rec.UserID, rec.ID, rec.Admin)
	if err != nil {
		return nil, err
	}
	if err := a.store.Set(ctx, cache.RevokedTokenKey(rec.RefreshJTI), "1", a.tokens.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	rec.AccessToken = toks.access
	rec.RefreshToken = toks.refresh
	rec.RefreshJTI = toks.refreshJTI
	rec.ExpiresAt = toks.expiresAt
	if err := a.save(ctx, rec); err != nil {
		return nil, err
	}
	a.publish(ctx, models.TokenRefreshed, rec)
	return rec.session(), nil
}

// SignOut ends the client's session. Signing out without a session still notifies subscribers.
func (a *Authenticator) SignOut(ctx context.Context, clientID string) error {
	rec, ok, err := a.clientRecord(ctx, clientID)
	if err != nil {
		return err
	}
	if !ok {
		rec = &sessionRecord{ClientID: clientID}
	} else if err := a.drop(ctx, rec); err != nil {
		return err
	}
	a.publish(ctx, models.SignedOut, rec)
	return nil
}

// OnAuthStateChange subscribes fn to the client's auth events until the returned function is called.
func (a *Authenticator) OnAuthStateChange(ctx context.Context, clientID string, fn func(models.AuthEvent)) (func(), error) {
	if a.events == nil {
		return func() {}, nil
	}
	return a.events.SubscribeAuth(ctx, clientID, fn)
}

// AdminSignIn signs an allow-listed admin in with email and password.
// An address missing from the allow-list yields false and signs the client out.
func (a *Authenticator) AdminSignIn(ctx context.Context, clientID string, form validation.AdminLoginForm) (*models.Session, bool, error) {
	if err := form.Validate(); err != nil {
		return nil, false, err
	}
	admin, found, err := a.admins.GetByEmail(ctx, form.Email)
	if err != nil {
		return nil, false, err
	}
	if !found {
		if err := a.SignOut(ctx, clientID); err != nil {
			middleware.Logger.WarnContext(ctx, "sign-out after admin check failed", slog.String("error", err.Error()))
		}
		return nil, false, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(form.Password)); err != nil {
		return nil, false, models.NewUnauthorizedError("Invalid credentials")
	}

	rec, err := a.startSession(ctx, clientID, admin.ID, admin.Email, true)
	if err != nil {
		return nil, false, err
	}
	a.publish(ctx, models.SignedIn, rec)
	return rec.session(), true, nil
}

// CheckIsAdmin reports whether the client's session email is on the admin allow-list.
func (a *Authenticator) CheckIsAdmin(ctx context.Context, clientID string) (bool, error) {
	rec, ok, err := a.clientRecord(ctx, clientID)
	if err != nil || !ok || rec.Email == "" {
		return false, err
	}
	_, found, err := a.admins.GetByEmail(ctx, rec.Email)
	if err != nil {
		return false, err
	}
	return found, nil
}

// HashPassword hashes an admin password for storage.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

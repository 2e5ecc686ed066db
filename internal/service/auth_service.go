package service

import (
	"context"

	"github.com/pillow12360/eureka-ssul/internal/auth"
	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/validation"
)

// AuthBackend is the sign-in backend; *auth.Authenticator implements it.
type AuthBackend interface {
	SignInURL(ctx context.Context, clientID, next string) (string, error)
	Exchange(ctx context.Context, state, code string) (*auth.SignInResult, error)
	GetSession(ctx context.Context, clientID string) (*models.Session, error)
	GetUser(ctx context.Context, clientID string) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context, clientID string) error
	OnAuthStateChange(ctx context.Context, clientID string, fn func(models.AuthEvent)) (func(), error)
	AdminSignIn(ctx context.Context, clientID string, form validation.AdminLoginForm) (*models.Session, bool, error)
	CheckIsAdmin(ctx context.Context, clientID string) (bool, error)
	Verify(ctx context.Context, accessToken string) (*middleware.Identity, error)
}

// AdminSignInResult mirrors the admin sign-in outcome shown to the client.
type AdminSignInResult struct {
	Success bool            `json:"success"`
	Session *models.Session `json:"session"`
	Error   string          `json:"error,omitempty"`
}

type AuthService struct {
	backend AuthBackend
}

func NewAuthService(backend AuthBackend) *AuthService {
	return &AuthService{backend: backend}
}

// SignInWithKakao returns the provider URL the client is redirected to.
func (s *AuthService) SignInWithKakao(ctx context.Context, clientID, next string) (string, error) {
	return s.backend.SignInURL(ctx, clientID, next)
}

// HandleCallback completes an OAuth redirect.
func (s *AuthService) HandleCallback(ctx context.Context, state, code string) (*auth.SignInResult, error) {
	return s.backend.Exchange(ctx, state, code)
}

func (s *AuthService) SignOut(ctx context.Context, clientID string) error {
	return s.backend.SignOut(ctx, clientID)
}

func (s *AuthService) GetUser(ctx context.Context, clientID string) (*models.User, error) {
	return s.backend.GetUser(ctx, clientID)
}

func (s *AuthService) GetSession(ctx context.Context, clientID string) (*models.Session, error) {
	return s.backend.GetSession(ctx, clientID)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	return s.backend.Refresh(ctx, refreshToken)
}

// OnAuthStateChange subscribes fn to the client's auth events; call the returned function to stop.
func (s *AuthService) OnAuthStateChange(ctx context.Context, clientID string, fn func(models.AuthEvent)) (func(), error) {
	return s.backend.OnAuthStateChange(ctx, clientID, fn)
}

// AdminSignIn never fails for a non-admin; it reports Success false with a message instead.
func (s *AuthService) AdminSignIn(ctx context.Context, clientID string, form validation.AdminLoginForm) (*AdminSignInResult, error) {
	sess, ok, err := s.backend.AdminSignIn(ctx, clientID, form)
	if err != nil {
		return &AdminSignInResult{Error: err.Error()}, err
	}
	if !ok {
		return &AdminSignInResult{Error: auth.NotAdminMessage}, nil
	}
	return &AdminSignInResult{Success: true, Session: sess}, nil
}

// CheckIsAdmin reports false alongside any lookup error.
func (s *AuthService) CheckIsAdmin(ctx context.Context, clientID string) (bool, error) {
	isAdmin, err := s.backend.CheckIsAdmin(ctx, clientID)
	if err != nil {
		return false, err
	}
	return isAdmin, nil
}

// Verify implements middleware.TokenVerifier.
func (s *AuthService) Verify(ctx context.Context, accessToken string) (*middleware.Identity, error) {
	return s.backend.Verify(ctx, accessToken)
}

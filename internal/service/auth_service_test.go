package service

import (
	"context"
	"errors"
	"testing"

	"github.com/pillow12360/eureka-ssul/internal/auth"
	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authBackendStub embeds the interface so tests only set what they exercise.
type authBackendStub struct {
	AuthBackend
	adminSignInFn  func(context.Context, string, validation.AdminLoginForm) (*models.Session, bool, error)
	checkIsAdminFn func(context.Context, string) (bool, error)
	signInURLFn    func(context.Context, string, string) (string, error)
}

func (s *authBackendStub) AdminSignIn(ctx context.Context, clientID string, form validation.AdminLoginForm) (*models.Session, bool, error) {
	return s.adminSignInFn(ctx, clientID, form)
}

func (s *authBackendStub) CheckIsAdmin(ctx context.Context, clientID string) (bool, error) {
	return s.checkIsAdminFn(ctx, clientID)
}

func (s *authBackendStub) SignInURL(ctx context.Context, clientID, next string) (string, error) {
	return s.signInURLFn(ctx, clientID, next)
}

func TestAuthService_AdminSignIn(t *testing.T) {
	t.Parallel()
	form := validation.AdminLoginForm{Email: "admin@example.com", Password: "secret"}

	tests := []struct {
		name    string
		fn      func(context.Context, string, validation.AdminLoginForm) (*models.Session, bool, error)
		success bool
		message string
		wantErr bool
	}{
		{
			name: "admin",
			fn: func(context.Context, string, validation.AdminLoginForm) (*models.Session, bool, error) {
				return &models.Session{ID: "s1", IsAdmin: true}, true, nil
			},
			success: true,
		},
		{
			name: "not an admin",
			fn: func(context.Context, string, validation.AdminLoginForm) (*models.Session, bool, error) {
				return nil, false, nil
			},
			message: auth.NotAdminMessage,
		},
		{
			name: "bad credentials",
			fn: func(context.Context, string, validation.AdminLoginForm) (*models.Session, bool, error) {
				return nil, false, models.NewUnauthorizedError("Invalid login credentials")
			},
			message: "Invalid login credentials",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewAuthService(&authBackendStub{adminSignInFn: tt.fn})
			res, err := svc.AdminSignIn(context.Background(), "client-1", form)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, res)
			assert.Equal(t, tt.success, res.Success)
			assert.Equal(t, tt.message, res.Error)
			if tt.success {
				assert.Equal(t, "s1", res.Session.ID)
			}
		})
	}
}

func TestAuthService_CheckIsAdminFalseOnError(t *testing.T) {
	t.Parallel()
	svc := NewAuthService(&authBackendStub{checkIsAdminFn: func(context.Context, string) (bool, error) {
		return true, errors.New("lookup failed")
	}})
	isAdmin, err := svc.CheckIsAdmin(context.Background(), "client-1")
	assert.Error(t, err)
	assert.False(t, isAdmin)
}

func TestAuthService_SignInWithKakaoPassesNext(t *testing.T) {
	t.Parallel()
	var gotClient, gotNext string
	svc := NewAuthService(&authBackendStub{signInURLFn: func(_ context.Context, clientID, next string) (string, error) {
		gotClient, gotNext = clientID, next
		return "https://kauth.example/authorize", nil
	}})
	url, err := svc.SignInWithKakao(context.Background(), "client-1", "/profiles")
	require.NoError(t, err)
	assert.Equal(t, "https://kauth.example/authorize", url)
	assert.Equal(t, "client-1", gotClient)
	assert.Equal(t, "/profiles", gotNext)
}

var _ middleware.TokenVerifier = (*AuthService)(nil)

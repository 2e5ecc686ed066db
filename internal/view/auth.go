package view

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pillow12360/eureka-ssul/internal/auth"
	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/store"
)

const (
	AuthCodeErrorPath = "/auth/auth-code-error"
	LoginPath         = "/login"
)

// LoginView is the sign-in page.
type LoginView struct {
	Providers       []string `json:"providers"`
	IsAuthenticated bool     `json:"is_authenticated"`
	Redirect        string   `json:"redirect,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// Login renders the sign-in page. A signed-in client is sent home.
func Login(s *store.AuthStore) LoginView {
	st := s.State()
	v := LoginView{Providers: []string{store.ProviderKakao}, IsAuthenticated: st.IsAuthenticated, Error: st.Error}
	if st.Error != "" {
		s.ClearError()
	}
	if st.IsAuthenticated && !st.IsLoading {
		v.Redirect = "/"
	}
	return v
}

// StartLogin returns where to send the client for provider's sign-in, or the login page on failure.
func StartLogin(ctx context.Context, s *store.AuthStore, provider, next string) (string, LoginView) {
	url, ok := s.Login(ctx, provider, safeNext(next))
	if !ok {
		return "", Login(s)
	}
	return url, LoginView{Providers: []string{store.ProviderKakao}, Redirect: url}
}

// CallbackBackend completes provider redirects.
type CallbackBackend interface {
	HandleCallback(ctx context.Context, state, code string) (*auth.SignInResult, error)
}

// CallbackResult says where the client goes after the provider redirect.
type CallbackResult struct {
	Redirect string          `json:"redirect"`
	ClientID string          `json:"-"`
	Session  *models.Session `json:"-"`
	Error    string          `json:"error,omitempty"`
}

// AuthCallback exchanges the provider code for a session. Any failure, including an
// error reported by the provider, leads to the auth error page.
func AuthCallback(ctx context.Context, backend CallbackBackend, app *store.AppContext, state, code, providerErr string) CallbackResult {
	if providerErr != "" || code == "" || state == "" {
		msg := providerErr
		if msg == "" {
			msg = "missing authorization code"
		}
		middleware.Logger.WarnContext(ctx, "auth callback rejected", slog.String("error", msg))
		return CallbackResult{Redirect: AuthCodeErrorPath, Error: msg}
	}

	res, err := backend.HandleCallback(ctx, state, code)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "auth callback failed", slog.String("error", err.Error()))
		return CallbackResult{Redirect: AuthCodeErrorPath, Error: toastMessage(err)}
	}
	if app != nil {
		if s, err := app.Auth(res.ClientID); err == nil {
			s.CheckAuth(ctx)
		}
	}
	return CallbackResult{Redirect: safeNext(res.Next), ClientID: res.ClientID, Session: res.Session}
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

// ErrorPage is the auth error page.
type ErrorPage struct {
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Reasons []string `json:"reasons"`
	Links   []Link   `json:"links"`
}

type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

func AuthCodeError() ErrorPage {
	return ErrorPage{
		Title:   "인증 오류",
		Message: "로그인 과정에서 오류가 발생했습니다. 다음과 같은 이유로 문제가 발생했을 수 있습니다:",
		Reasons: []string{
			"인증 코드가 유효하지 않거나 만료되었습니다.",
			"인증 요청이 취소되었습니다.",
			"브라우저 쿠키 또는 로컬 스토리지에 문제가 있습니다.",
			"네트워크 연결에 문제가 있습니다.",
		},
		Links: []Link{
			{Label: "로그인 페이지로 돌아가기", Href: LoginPath},
			{Label: "홈으로 이동", Href: "/"},
		},
	}
}

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/pillow12360/eureka-ssul/internal/config"

	"golang.org/x/oauth2"
)

// ProviderUser is the account profile returned by an OAuth provider.
type ProviderUser struct {
	Provider   string
	ProviderID string
	Email      string
	Nickname   string
	AvatarURL  string
}

// Provider is an OAuth2 authorization-code sign-in provider.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*ProviderUser, error)
}

// KakaoProvider signs users in with Kakao accounts.
type KakaoProvider struct {
	conf        *oauth2.Config
	userInfoURL string
}

// NewKakaoProvider builds the provider from the Kakao endpoints in cfg.
func NewKakaoProvider(cfg *config.Config) *KakaoProvider {
	return &KakaoProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.KakaoClientID,
			ClientSecret: cfg.KakaoClientSecret,
			RedirectURL:  cfg.KakaoRedirectURL,
			Scopes:       []string{"profile_nickname", "profile_image", "account_email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.KakaoAuthURL,
				TokenURL:  cfg.KakaoTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: cfg.KakaoUserInfoURL,
	}
}

func (p *KakaoProvider) Name() string { return "kakao" }

func (p *KakaoProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

type kakaoUser struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// Exchange trades the authorization code for a token and fetches the account.
func (p *KakaoProvider) Exchange(ctx context.Context, code string) (*ProviderUser, error) {
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("kakao token exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("kakao user info: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("kakao user info: status %d: %s", resp.StatusCode, body)
	}

	var ku kakaoUser
	if err := json.NewDecoder(resp.Body).Decode(&ku); err != nil {
		return nil, fmt.Errorf("decode kakao user: %w", err)
	}
	if ku.ID == 0 {
		return nil, fmt.Errorf("kakao user info: missing id")
	}
	return &ProviderUser{
		Provider:   p.Name(),
		ProviderID: strconv.FormatInt(ku.ID, 10),
		Email:      ku.KakaoAccount.Email,
		Nickname:   ku.KakaoAccount.Profile.Nickname,
		AvatarURL:  ku.KakaoAccount.Profile.ProfileImageURL,
	}, nil
}

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "eureka-ssul-api"
	tokenAudience = "eureka-ssul-client"

	kindAccess  = "access"
	kindRefresh = "refresh"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the JWT claims of access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Kind      string `json:"typ"`
	Admin     bool   `json:"adm,omitempty"`
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates an issuer. Non-positive TTLs fall back to one hour and fourteen days.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 14 * 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// RefreshTTL is the lifetime of a refresh token and therefore of a session.
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }

func (t *TokenIssuer) sign(subject, sessionID, kind string, admin bool, ttl time.Duration) (string, string, time.Time, error) {
	if len(t.secret) == 0 {
		return "", "", time.Time{}, fmt.Errorf("JWT secret not configured")
	}
	now := t.now()
	exp := now.Add(ttl)
	jti := uuid.NewString()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
		SessionID: sessionID,
		Kind:      kind,
		Admin:     admin,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	return signed, jti, exp, err
}

// issued is a signed access/refresh pair.
type issued struct {
	access     string
	refresh    string
	refreshJTI string
	expiresAt  time.Time
}

func (t *TokenIssuer) issue(subject, sessionID string, admin bool) (*issued, error) {
	access, _, exp, err := t.sign(subject, sessionID, kindAccess, admin, t.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, jti, _, err := t.sign(subject, sessionID, kindRefresh, admin, t.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &issued{access: access, refresh: refresh, refreshJTI: jti, expiresAt: exp}, nil
}

// Parse verifies signature, issuer, audience, expiry and token kind.
func (t *TokenIssuer) Parse(token, kind string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind || claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

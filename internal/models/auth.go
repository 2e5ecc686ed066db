package models

import "time"

// AuthEventType names an auth state change.
type AuthEventType string

// Auth state changes delivered to subscribers.
const (
	SignedIn       AuthEventType = "SIGNED_IN"
	SignedOut      AuthEventType = "SIGNED_OUT"
	TokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is published whenever a client's session changes.
type AuthEvent struct {
	Event     AuthEventType `json:"event"`
	ClientID  string        `json:"client_id"`
	UserID    string        `json:"user_id,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	At        time.Time     `json:"at"`
}

// Session is an issued sign-in session.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsAdmin      bool      `json:"is_admin,omitempty"`
}

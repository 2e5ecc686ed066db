package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProfileListKey      = "profiles:list"
	ProfileKeyPrefix    = "profile:%s"
	CommentTreeKeyFmt   = "profile:%s:comments"
	AuthStateKeyFmt     = "authstate:%s"
	SessionKeyFmt       = "session:%s"
	RevokedTokenKeyFmt  = "revoked:%s"
	OAuthStateKeyFmt    = "oauth_state:%s"
	ClientSessionKeyFmt = "client_session:%s"
)

const (
	ProfileListTTL = 1 * time.Minute
	ProfileTTL     = 5 * time.Minute
	CommentTreeTTL = 2 * time.Minute
	OAuthStateTTL  = 10 * time.Minute
)

func ProfileKey(id string) string {
	return fmt.Sprintf(ProfileKeyPrefix, id)
}

func CommentTreeKey(profileID string) string {
	return fmt.Sprintf(CommentTreeKeyFmt, profileID)
}

func AuthStateKey(clientID string) string {
	return fmt.Sprintf(AuthStateKeyFmt, clientID)
}

func SessionKey(sessionID string) string {
	return fmt.Sprintf(SessionKeyFmt, sessionID)
}

func RevokedTokenKey(jti string) string {
	return fmt.Sprintf(RevokedTokenKeyFmt, jti)
}

func OAuthStateKey(state string) string {
	return fmt.Sprintf(OAuthStateKeyFmt, state)
}

func ClientSessionKey(clientID string) string {
	return fmt.Sprintf(ClientSessionKeyFmt, clientID)
}

// InvalidateProfile drops a profile and the list it appears in.
func InvalidateProfile(ctx context.Context, id string) {
	Invalidate(ctx, ProfileKey(id), ProfileListKey)
}

// InvalidateComments drops a profile's comment tree and the profile (its counter changed).
func InvalidateComments(ctx context.Context, profileID string) {
	Invalidate(ctx, CommentTreeKey(profileID), ProfileKey(profileID), ProfileListKey)
}

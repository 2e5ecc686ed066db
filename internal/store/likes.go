package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/service"
)

// LikeState tracks one profile's like count and whether the current user liked it.
type LikeState struct {
	svc *service.ProfileLikeService

	mu        sync.RWMutex
	likeCount int
	userLiked bool
	loading   bool
	err       error
}

func NewLikeState(svc *service.ProfileLikeService) *LikeState {
	return &LikeState{svc: svc}
}

func (l *LikeState) fail(ctx context.Context, op string, err error) {
	middleware.Logger.WarnContext(ctx, "like state operation failed", slog.String("op", op), slog.String("error", err.Error()))
	l.mu.Lock()
	l.loading = false
	l.err = err
	l.mu.Unlock()
}

// FetchLikeStatus loads the count and, when userID is set, whether that user liked the profile.
func (l *LikeState) FetchLikeStatus(ctx context.Context, profileID, userID string) bool {
	l.mu.Lock()
	l.loading = true
	l.err = nil
	l.mu.Unlock()

	count, err := l.svc.GetLikeCount(ctx, profileID)
	if err != nil {
		l.fail(ctx, "fetch", err)
		return false
	}
	liked := false
	if userID != "" {
		if liked, err = l.svc.CheckUserLiked(ctx, profileID, userID); err != nil {
			l.fail(ctx, "fetch", err)
			return false
		}
	}

	l.mu.Lock()
	l.likeCount = count
	l.userLiked = liked
	l.loading = false
	l.mu.Unlock()
	return true
}

// ToggleLike flips the user's like. Without a user it does nothing.
func (l *LikeState) ToggleLike(ctx context.Context, profileID, userID string) bool {
	if userID == "" {
		return false
	}
	l.mu.Lock()
	liked := l.userLiked
	l.loading = true
	l.err = nil
	l.mu.Unlock()

	var err error
	if liked {
		err = l.svc.UnlikeProfile(ctx, profileID, userID)
	} else {
		_, err = l.svc.LikeProfile(ctx, profileID, userID)
	}
	if err != nil {
		l.fail(ctx, "toggle", err)
		return false
	}

	l.mu.Lock()
	if liked {
		l.likeCount = max(0, l.likeCount-1)
	} else {
		l.likeCount++
	}
	l.userLiked = !liked
	l.loading = false
	l.mu.Unlock()
	return true
}

// Status returns the current state as the API reports it.
func (l *LikeState) Status(profileID string) models.LikeStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return models.LikeStatus{ProfileID: profileID, LikeCount: l.likeCount, UserLiked: l.userLiked}
}

func (l *LikeState) Loading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loading
}

func (l *LikeState) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

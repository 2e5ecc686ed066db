package service

import (
	"context"

	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/notifications"
	"github.com/pillow12360/eureka-ssul/internal/observability"
	"github.com/pillow12360/eureka-ssul/internal/repository"
)

type ProfileLikeService struct {
	repo   repository.ProfileLikeRepository
	events EventPublisher
}

func NewProfileLikeService(repo repository.ProfileLikeRepository, events EventPublisher) *ProfileLikeService {
	return &ProfileLikeService{repo: repo, events: events}
}

func requireUser(userID string) error {
	if userID == "" {
		return models.NewUnauthorizedError("Sign in to like profiles")
	}
	return nil
}

func (s *ProfileLikeService) LikeProfile(ctx context.Context, profileID, userID string) (*models.ProfileLike, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	like, err := s.repo.Create(ctx, models.NewProfileLike{ProfileID: profileID, UserID: userID})
	if err != nil {
		return nil, err
	}
	observability.LikesToggled.WithLabelValues("like").Inc()
	s.announce(ctx, profileID)
	return like, nil
}

func (s *ProfileLikeService) UnlikeProfile(ctx context.Context, profileID, userID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, profileID, userID); err != nil {
		return err
	}
	observability.LikesToggled.WithLabelValues("unlike").Inc()
	s.announce(ctx, profileID)
	return nil
}

func (s *ProfileLikeService) GetProfileLikes(ctx context.Context, profileID string) ([]models.ProfileLike, error) {
	return s.repo.GetByProfileID(ctx, profileID)
}

// CheckUserLiked reports whether userID has liked the profile. Anonymous callers never have.
func (s *ProfileLikeService) CheckUserLiked(ctx context.Context, profileID, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	_, found, err := s.repo.GetByProfileAndUser(ctx, profileID, userID)
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *ProfileLikeService) GetLikeCount(ctx context.Context, profileID string) (int, error) {
	return s.repo.GetLikeCount(ctx, profileID)
}

// Status returns the like count and, for a signed-in caller, whether they liked it.
func (s *ProfileLikeService) Status(ctx context.Context, profileID, userID string) (*models.LikeStatus, error) {
	count, err := s.repo.GetLikeCount(ctx, profileID)
	if err != nil {
		return nil, err
	}
	liked, err := s.CheckUserLiked(ctx, profileID, userID)
	if err != nil {
		return nil, err
	}
	return &models.LikeStatus{ProfileID: profileID, LikeCount: count, UserLiked: liked}, nil
}

// ToggleLike likes the profile when userID has not, and unlikes it otherwise.
func (s *ProfileLikeService) ToggleLike(ctx context.Context, profileID, userID string) (*models.LikeStatus, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	liked, err := s.CheckUserLiked(ctx, profileID, userID)
	if err != nil {
		return nil, err
	}
	if liked {
		err = s.UnlikeProfile(ctx, profileID, userID)
	} else {
		_, err = s.LikeProfile(ctx, profileID, userID)
	}
	if err != nil {
		return nil, err
	}
	return s.Status(ctx, profileID, userID)
}

func (s *ProfileLikeService) announce(ctx context.Context, profileID string) {
	if count, err := s.repo.GetLikeCount(ctx, profileID); err == nil {
		publish(ctx, s.events, notifications.LikeChanged, profileID, map[string]int{"like_count": count})
	}
}

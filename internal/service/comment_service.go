package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pillow12360/eureka-ssul/internal/cache"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/notifications"
	"github.com/pillow12360/eureka-ssul/internal/repository"
)

const maxCommentLen = 1000

type CommentService struct {
	repo   repository.CommentRepository
	events EventPublisher
}

func NewCommentService(repo repository.CommentRepository, events EventPublisher) *CommentService {
	return &CommentService{repo: repo, events: events}
}

// GetCommentsByProfileID returns the flat comment list, oldest first.
func (s *CommentService) GetCommentsByProfileID(ctx context.Context, profileID string) ([]models.Comment, error) {
	return s.repo.GetByProfileID(ctx, profileID)
}

// GetCommentTree returns root comments with their replies attached.
func (s *CommentService) GetCommentTree(ctx context.Context, profileID string) ([]*models.Comment, error) {
	tree, err := cache.Remember(ctx, "comment_tree", cache.CommentTreeKey(profileID), cache.CommentTreeTTL,
		func(ctx context.Context) ([]*models.Comment, error) {
			flat, err := s.repo.GetByProfileID(ctx, profileID)
			if err != nil {
				return nil, err
			}
			return models.GroupComments(flat), nil
		})
	if err != nil {
		return nil, err
	}
	if tree == nil {
		tree = []*models.Comment{}
	}
	return tree, nil
}

func (s *CommentService) CreateComment(ctx context.Context, in models.NewComment) (*models.Comment, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if strings.TrimSpace(in.AuthorName) == "" {
		return nil, models.NewValidationError("Author is required")
	}
	c, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.events, notifications.CommentAdded, c.ProfileID, c)
	return c, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, id, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 1000 characters)")
	}
	c, err := s.repo.Update(ctx, id, content)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.events, notifications.CommentUpdated, c.ProfileID, c)
	return c, nil
}

// DeleteComment removes the comment and its replies.
func (s *CommentService) DeleteComment(ctx context.Context, id, profileID string) error {
	if err := s.repo.Delete(ctx, id, profileID); err != nil {
		return err
	}
	publish(ctx, s.events, notifications.CommentDeleted, profileID, map[string]string{"id": id})
	return nil
}

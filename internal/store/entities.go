package store

import (
	"context"

	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/service"
)

type (
	ProfileStore = Collection[models.Profile, models.NewProfile, models.ProfileUpdate]
	CommentStore = Collection[models.Comment, models.NewComment, string]
)

// NewProfileStore lists profiles newest first; created profiles go to the front.
func NewProfileStore(svc *service.ProfileService) *ProfileStore {
	return NewCollection(Ops[models.Profile, models.NewProfile, models.ProfileUpdate]{
		Name:    "profiles",
		ID:      func(p models.Profile) string { return p.ID },
		List:    svc.GetProfiles,
		Create:  svc.CreateProfile,
		Update:  svc.UpdateProfile,
		Delete:  svc.DeleteProfile,
		Prepend: true,
	})
}

// NewCommentStore holds the flat comments of one profile, oldest first.
func NewCommentStore(svc *service.CommentService, profileID string) *CommentStore {
	return NewCollection(Ops[models.Comment, models.NewComment, string]{
		Name: "comments",
		ID:   func(c models.Comment) string { return c.ID },
		List: func(ctx context.Context) ([]models.Comment, error) {
			return svc.GetCommentsByProfileID(ctx, profileID)
		},
		Create: func(ctx context.Context, in models.NewComment) (*models.Comment, error) {
			in.ProfileID = profileID
			return svc.CreateComment(ctx, in)
		},
		Update: svc.UpdateComment,
		Delete: func(ctx context.Context, id string) error {
			return svc.DeleteComment(ctx, id, profileID)
		},
	})
}

// Tree groups the store's comments into roots with replies.
func Tree(comments *CommentStore) []*models.Comment {
	return models.GroupComments(comments.Items())
}

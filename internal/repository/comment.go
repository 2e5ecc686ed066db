package repository

import (
	"context"

	"github.com/pillow12360/eureka-ssul/internal/cache"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	GetByProfileID(ctx context.Context, profileID string) ([]models.Comment, error)
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	Create(ctx context.Context, in models.NewComment) (*models.Comment, error)
	Update(ctx context.Context, id, content string) (*models.Comment, error)
	Delete(ctx context.Context, id, profileID string) error
}

type commentRepository struct {
	db       *gorm.DB
	comments *Table[models.Comment]
	procs    *Procedures
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB, procs *Procedures) CommentRepository {
	return &commentRepository{
		db:       db,
		comments: NewTable[models.Comment](db, "comments", "Comment"),
		procs:    procs,
	}
}

// GetByProfileID returns the profile's comments oldest first.
func (r *commentRepository) GetByProfileID(ctx context.Context, profileID string) ([]models.Comment, error) {
	return r.comments.Select(ctx, Filter{"profile_id": profileID}, Asc("created_at"), Asc("id"))
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	return r.comments.SelectOne(ctx, Filter{"id": id})
}

// Create inserts the comment and bumps the profile's comment counter in one transaction.
// A reply must point at a comment of the same profile.
func (r *commentRepository) Create(ctx context.Context, in models.NewComment) (*models.Comment, error) {
	c := &models.Comment{
		ProfileID:  in.ProfileID,
		AuthorName: in.AuthorName,
		Content:    in.Content,
		ParentID:   in.ParentID,
	}
	if c.ParentID != nil && *c.ParentID == "" {
		c.ParentID = nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comments := r.comments.WithTx(tx)
		if c.ParentID != nil {
			_, found, err := comments.MaybeOne(ctx, Filter{"id": *c.ParentID, "profile_id": c.ProfileID})
			if err != nil {
				return err
			}
			if !found {
				return models.NewValidationError("parent comment does not belong to this profile")
			}
		}
		if err := comments.Insert(ctx, c); err != nil {
			return err
		}
		return r.procs.Call(ctx, tx, ProcIncrementCommentCount, Args{"row_id": c.ProfileID})
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateComments(ctx, c.ProfileID)
	kind := "root"
	if c.IsReply() {
		kind = "reply"
	}
	observability.CommentsCreated.WithLabelValues(kind).Inc()
	return c, nil
}

func (r *commentRepository) Update(ctx context.Context, id, content string) (*models.Comment, error) {
	c, err := r.comments.Update(ctx, Filter{"id": id}, map[string]any{"content": content})
	if err != nil {
		return nil, err
	}
	cache.Invalidate(ctx, cache.CommentTreeKey(c.ProfileID))
	return c, nil
}

// Delete removes the comment together with its replies and lowers the counter by the number removed.
func (r *commentRepository) Delete(ctx context.Context, id, profileID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comments := r.comments.WithTx(tx)
		all, err := comments.Select(ctx, Filter{"profile_id": profileID})
		if err != nil {
			return err
		}
		ids := subtreeIDs(all, id)
		if len(ids) == 0 {
			return models.NewNotFoundError("Comment", id)
		}
		n, err := comments.Delete(ctx, Filter{"id": ids})
		if err != nil {
			return err
		}
		return r.procs.Call(ctx, tx, ProcDecrementCommentCount, Args{"profile_id": profileID, "amount": int(n)})
	})
	if err != nil {
		return err
	}
	cache.InvalidateComments(ctx, profileID)
	return nil
}

// subtreeIDs returns rootID and every comment below it, or nil when rootID is absent.
func subtreeIDs(all []models.Comment, rootID string) []string {
	children := map[string][]string{}
	found := false
	for _, c := range all {
		if c.ID == rootID {
			found = true
		}
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}
	if !found {
		return nil
	}
	ids := []string{rootID}
	seen := map[string]bool{rootID: true}
	for i := 0; i < len(ids); i++ {
		for _, child := range children[ids[i]] {
			if !seen[child] {
				seen[child] = true
				ids = append(ids, child)
			}
		}
	}
	return ids
}

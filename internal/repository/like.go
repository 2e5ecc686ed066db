package repository

import (
	"context"

	"github.com/pillow12360/eureka-ssul/internal/cache"
	"github.com/pillow12360/eureka-ssul/internal/models"

	"gorm.io/gorm"
)

// ProfileLikeRepository defines interface for like operations
type ProfileLikeRepository interface {
	Create(ctx context.Context, in models.NewProfileLike) (*models.ProfileLike, error)
	Delete(ctx context.Context, profileID, userID string) error
	GetByProfileID(ctx context.Context, profileID string) ([]models.ProfileLike, error)
	GetByProfileAndUser(ctx context.Context, profileID, userID string) (*models.ProfileLike, bool, error)
	GetLikeCount(ctx context.Context, profileID string) (int, error)
}

type profileLikeRepository struct {
	db    *gorm.DB
	likes *Table[models.ProfileLike]
	procs *Procedures
}

// NewProfileLikeRepository creates a new ProfileLikeRepository
func NewProfileLikeRepository(db *gorm.DB, procs *Procedures) ProfileLikeRepository {
	return &profileLikeRepository{
		db:    db,
		likes: NewTable[models.ProfileLike](db, "profile_likes", "ProfileLike"),
		procs: procs,
	}
}

// Create records the like and bumps like_count in one transaction.
// A second like by the same user yields a CONFLICT error and leaves the counter alone.
func (r *profileLikeRepository) Create(ctx context.Context, in models.NewProfileLike) (*models.ProfileLike, error) {
	like := &models.ProfileLike{ProfileID: in.ProfileID, UserID: in.UserID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.likes.WithTx(tx).Insert(ctx, like); err != nil {
			return err
		}
		return r.procs.Call(ctx, tx, ProcIncrementLikeCount, Args{"row_id": in.ProfileID})
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateProfile(ctx, in.ProfileID)
	return like, nil
}

func (r *profileLikeRepository) Delete(ctx context.Context, profileID, userID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := r.likes.WithTx(tx).Delete(ctx, Filter{"profile_id": profileID, "user_id": userID})
		if err != nil {
			return err
		}
		if n == 0 {
			return models.NewNotFoundError("ProfileLike", profileID+"/"+userID)
		}
		return r.procs.Call(ctx, tx, ProcDecrementLikeCount, Args{"row_id": profileID})
	})
	if err != nil {
		return err
	}
	cache.InvalidateProfile(ctx, profileID)
	return nil
}

func (r *profileLikeRepository) GetByProfileID(ctx context.Context, profileID string) ([]models.ProfileLike, error) {
	return r.likes.Select(ctx, Filter{"profile_id": profileID}, Desc("created_at"))
}

func (r *profileLikeRepository) GetByProfileAndUser(ctx context.Context, profileID, userID string) (*models.ProfileLike, bool, error) {
	return r.likes.MaybeOne(ctx, Filter{"profile_id": profileID, "user_id": userID})
}

// GetLikeCount counts like rows rather than reading the denormalized counter.
func (r *profileLikeRepository) GetLikeCount(ctx context.Context, profileID string) (int, error) {
	n, err := r.likes.Count(ctx, Filter{"profile_id": profileID})
	return int(n), err
}

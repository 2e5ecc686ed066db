package repository

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/pillow12360/eureka-ssul/internal/cache"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/observability"
	"github.com/pillow12360/eureka-ssul/internal/storage"

	"gorm.io/gorm"
)

// ImageUpload is an avatar ready for storage.
type ImageUpload struct {
	FileName    string
	ContentType string
	Body        io.Reader
	// WebP, when set, is stored next to the main object with a .webp extension.
	WebP []byte
}

// RecountResult reports the counters of one profile after a recount.
type RecountResult struct {
	ProfileID string `json:"profile_id"`
	Comments  int    `json:"comments"`
	LikeCount int    `json:"like_count"`
	Changed   bool   `json:"changed"`
}

// ProfileRepository defines interface for profile operations
type ProfileRepository interface {
	Create(ctx context.Context, in models.NewProfile) (*models.Profile, error)
	GetAll(ctx context.Context) ([]models.Profile, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Update(ctx context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error)
	Delete(ctx context.Context, id string) error
	UploadImage(ctx context.Context, in ImageUpload) (string, error)
	Recount(ctx context.Context, id string) (*RecountResult, error)
	ListIDs(ctx context.Context) ([]string, error)
}

type profileRepository struct {
	db       *gorm.DB
	profiles *Table[models.Profile]
	comments *Table[models.Comment]
	likes    *Table[models.ProfileLike]
	bucket   storage.Bucket
}

// NewProfileRepository creates a new ProfileRepository backed by db and bucket.
func NewProfileRepository(db *gorm.DB, bucket storage.Bucket) ProfileRepository {
	return &profileRepository{
		db:       db,
		profiles: NewTable[models.Profile](db, "profiles", "Profile"),
		comments: NewTable[models.Comment](db, "comments", "Comment"),
		likes:    NewTable[models.ProfileLike](db, "profile_likes", "ProfileLike"),
		bucket:   bucket,
	}
}

func (r *profileRepository) Create(ctx context.Context, in models.NewProfile) (*models.Profile, error) {
	p := &models.Profile{
		UserID:    in.UserID,
		Name:      in.Name,
		Features:  in.Features,
		Bio:       in.Bio,
		ImageURL:  in.ImageURL,
		Role:      models.RoleUser,
		Comments:  0,
		LikeCount: 0,
	}
	if err := r.profiles.Insert(ctx, p); err != nil {
		return nil, err
	}
	cache.Invalidate(ctx, cache.ProfileListKey)
	observability.ProfilesCreated.Inc()
	return p, nil
}

func (r *profileRepository) GetAll(ctx context.Context) ([]models.Profile, error) {
	out, err := cache.Remember(ctx, "profile_list", cache.ProfileListKey, cache.ProfileListTTL,
		func(ctx context.Context) ([]models.Profile, error) {
			return r.profiles.Select(ctx, nil, Desc("created_at"))
		})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Profile{}
	}
	return out, nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	p, err := cache.Remember(ctx, "profile", cache.ProfileKey(id), cache.ProfileTTL,
		func(ctx context.Context) (*models.Profile, error) {
			return r.profiles.SelectOne(ctx, Filter{"id": id})
		})
	if err != nil {
		return nil, err
	}
	// concurrent misses share one load; hand each caller its own copy
	out := *p
	return &out, nil
}

// GetByUserID returns the newest profile owned by userID.
func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	return r.profiles.SelectOne(ctx, Filter{"user_id": userID}, Desc("created_at"))
}

func (r *profileRepository) Update(ctx context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error) {
	p, err := r.profiles.Update(ctx, Filter{"id": id}, upd.Columns())
	if err != nil {
		return nil, err
	}
	cache.InvalidateProfile(ctx, id)
	return p, nil
}

// Delete removes the profile with its comments and likes. The avatar object stays in storage.
func (r *profileRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.likes.WithTx(tx).Delete(ctx, Filter{"profile_id": id}); err != nil {
			return err
		}
		if _, err := r.comments.WithTx(tx).Delete(ctx, Filter{"profile_id": id}); err != nil {
			return err
		}
		n, err := r.profiles.WithTx(tx).Delete(ctx, Filter{"id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return models.NewNotFoundError("Profile", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateComments(ctx, id)
	return nil
}

// UploadImage stores the avatar at profile-images/<random>.<ext> and returns its public URL.
func (r *profileRepository) UploadImage(ctx context.Context, in ImageUpload) (string, error) {
	objectPath := storage.ProfileImagePath(in.FileName)
	url, err := r.bucket.Upload(ctx, objectPath, in.Body, in.ContentType)
	if err != nil {
		return "", err
	}
	if len(in.WebP) > 0 {
		webpPath := strings.TrimSuffix(objectPath, pathExt(objectPath)) + ".webp"
		if _, err := r.bucket.Upload(ctx, webpPath, bytes.NewReader(in.WebP), "image/webp"); err != nil {
			_ = r.bucket.Remove(ctx, objectPath)
			return "", err
		}
	}
	return url, nil
}

// Recount re-derives both counters of a profile from its comment and like rows.
func (r *profileRepository) Recount(ctx context.Context, id string) (*RecountResult, error) {
	var res *RecountResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := r.profiles.WithTx(tx).SelectOne(ctx, Filter{"id": id})
		if err != nil {
			return err
		}
		comments, err := r.comments.WithTx(tx).Count(ctx, Filter{"profile_id": id})
		if err != nil {
			return err
		}
		likes, err := r.likes.WithTx(tx).Count(ctx, Filter{"profile_id": id})
		if err != nil {
			return err
		}

		res = &RecountResult{ProfileID: id, Comments: int(comments), LikeCount: int(likes)}
		cols := map[string]any{}
		if p.Comments != res.Comments {
			cols["comments"] = res.Comments
			observability.CounterRepairs.WithLabelValues("comments").Inc()
		}
		if p.LikeCount != res.LikeCount {
			cols["like_count"] = res.LikeCount
			observability.CounterRepairs.WithLabelValues("like_count").Inc()
		}
		if len(cols) == 0 {
			return nil
		}
		res.Changed = true
		_, err = r.profiles.WithTx(tx).Update(ctx, Filter{"id": id}, cols)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		cache.InvalidateProfile(ctx, id)
	}
	return res, nil
}

func (r *profileRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Order("created_at ASC").Pluck("id", &ids).Error
	return ids, err
}

func pathExt(p string) string {
	if i := strings.LastIndex(p, "."); i > strings.LastIndex(p, "/") {
		return p[i:]
	}
	return ""
}

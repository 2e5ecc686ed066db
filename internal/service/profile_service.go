// Package service holds the business layer between HTTP handlers and repositories.
package service

import (
	"bytes"
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/pillow12360/eureka-ssul/internal/imaging"
	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/notifications"
	"github.com/pillow12360/eureka-ssul/internal/repository"
)

// EventPublisher broadcasts profile changes to realtime clients.
type EventPublisher interface {
	PublishProfileEvent(ctx context.Context, ev notifications.ProfileEvent) error
}

func publish(ctx context.Context, events EventPublisher, typ notifications.EventType, profileID string, payload any) {
	if events == nil {
		return
	}
	ev := notifications.ProfileEvent{Type: typ, ProfileID: profileID, Payload: payload}
	if err := events.PublishProfileEvent(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish profile event",
			slog.String("type", string(typ)),
			slog.String("profile_id", profileID),
			slog.String("error", err.Error()),
		)
	}
}

type ProfileService struct {
	repo   repository.ProfileRepository
	images *imaging.Processor
	events EventPublisher
}

func NewProfileService(repo repository.ProfileRepository, images *imaging.Processor, events EventPublisher) *ProfileService {
	return &ProfileService{repo: repo, images: images, events: events}
}

func (s *ProfileService) CreateProfile(ctx context.Context, in models.NewProfile) (*models.Profile, error) {
	p, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.events, notifications.ProfileCreated, p.ID, p)
	return p, nil
}

func (s *ProfileService) GetProfiles(ctx context.Context) ([]models.Profile, error) {
	return s.repo.GetAll(ctx)
}

func (s *ProfileService) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ProfileService) GetProfileByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *ProfileService) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error) {
	if upd.Features != nil {
		normalized := models.FeaturesToString(models.FeaturesFromString(*upd.Features))
		upd.Features = &normalized
	}
	p, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.events, notifications.ProfileUpdated, p.ID, p)
	return p, nil
}

func (s *ProfileService) DeleteProfile(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	publish(ctx, s.events, notifications.ProfileDeleted, id, nil)
	return nil
}

// UploadProfileImage normalizes the upload into a square JPEG (plus a WebP sibling)
// and returns the stored image's public URL.
func (s *ProfileService) UploadProfileImage(ctx context.Context, in imaging.Input) (string, error) {
	avatar, err := s.images.Normalize(in)
	if err != nil {
		return "", err
	}
	name := strings.TrimSuffix(in.Filename, path.Ext(in.Filename)) + ".jpg"
	return s.repo.UploadImage(ctx, repository.ImageUpload{
		FileName:    name,
		ContentType: "image/jpeg",
		Body:        bytes.NewReader(avatar.JPEG),
		WebP:        avatar.WebP,
	})
}

// RecountProfile repairs the denormalized counters of one profile.
func (s *ProfileService) RecountProfile(ctx context.Context, id string) (*repository.RecountResult, error) {
	return s.repo.Recount(ctx, id)
}

// RecountAll repairs every profile and returns only those that changed.
func (s *ProfileService) RecountAll(ctx context.Context) ([]repository.RecountResult, error) {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	changed := make([]repository.RecountResult, 0)
	for _, id := range ids {
		res, err := s.repo.Recount(ctx, id)
		if err != nil {
			return changed, err
		}
		if res.Changed {
			changed = append(changed, *res)
		}
	}
	return changed, nil
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/notifications"
	"github.com/pillow12360/eureka-ssul/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// profileRepoStub is a stub for repository.ProfileRepository.
type profileRepoStub struct {
	createFn      func(context.Context, models.NewProfile) (*models.Profile, error)
	getAllFn      func(context.Context) ([]models.Profile, error)
	getByIDFn     func(context.Context, string) (*models.Profile, error)
	getByUserIDFn func(context.Context, string) (*models.Profile, error)
	updateFn      func(context.Context, string, models.ProfileUpdate) (*models.Profile, error)
	deleteFn      func(context.Context, string) error
	uploadImageFn func(context.Context, repository.ImageUpload) (string, error)
	recountFn     func(context.Context, string) (*repository.RecountResult, error)
	listIDsFn     func(context.Context) ([]string, error)
}

func (s *profileRepoStub) Create(ctx context.Context, in models.NewProfile) (*models.Profile, error) {
	return s.createFn(ctx, in)
}
func (s *profileRepoStub) GetAll(ctx context.Context) ([]models.Profile, error) {
	return s.getAllFn(ctx)
}
func (s *profileRepoStub) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return s.getByIDFn(ctx, id)
}
func (s *profileRepoStub) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	return s.getByUserIDFn(ctx, userID)
}
func (s *profileRepoStub) Update(ctx context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error) {
	return s.updateFn(ctx, id, upd)
}
func (s *profileRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}
func (s *profileRepoStub) UploadImage(ctx context.Context, in repository.ImageUpload) (string, error) {
	return s.uploadImageFn(ctx, in)
}
func (s *profileRepoStub) Recount(ctx context.Context, id string) (*repository.RecountResult, error) {
	return s.recountFn(ctx, id)
}
func (s *profileRepoStub) ListIDs(ctx context.Context) ([]string, error) {
	return s.listIDsFn(ctx)
}

func noopProfileRepo() *profileRepoStub {
	return &profileRepoStub{
		createFn: func(_ context.Context, in models.NewProfile) (*models.Profile, error) {
			return &models.Profile{ID: "p1", Name: in.Name, Features: in.Features, Bio: in.Bio, Role: models.RoleUser}, nil
		},
		getAllFn:      func(context.Context) ([]models.Profile, error) { return []models.Profile{}, nil },
		getByIDFn:     func(_ context.Context, id string) (*models.Profile, error) { return &models.Profile{ID: id}, nil },
		getByUserIDFn: func(context.Context, string) (*models.Profile, error) { return nil, models.NewNotFoundError("Profile", "") },
		updateFn: func(_ context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error) {
			p := &models.Profile{ID: id}
			if upd.Features != nil {
				p.Features = *upd.Features
			}
			return p, nil
		},
		deleteFn:      func(context.Context, string) error { return nil },
		uploadImageFn: func(context.Context, repository.ImageUpload) (string, error) { return "https://storage.test/x.jpg", nil },
		recountFn: func(_ context.Context, id string) (*repository.RecountResult, error) {
			return &repository.RecountResult{ProfileID: id}, nil
		},
		listIDsFn: func(context.Context) ([]string, error) { return nil, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	getByProfileIDFn func(context.Context, string) ([]models.Comment, error)
	getByIDFn        func(context.Context, string) (*models.Comment, error)
	createFn         func(context.Context, models.NewComment) (*models.Comment, error)
	updateFn         func(context.Context, string, string) (*models.Comment, error)
	deleteFn         func(context.Context, string, string) error
}

func (s *commentRepoStub) GetByProfileID(ctx context.Context, profileID string) ([]models.Comment, error) {
	return s.getByProfileIDFn(ctx, profileID)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) Create(ctx context.Context, in models.NewComment) (*models.Comment, error) {
	return s.createFn(ctx, in)
}
func (s *commentRepoStub) Update(ctx context.Context, id, content string) (*models.Comment, error) {
	return s.updateFn(ctx, id, content)
}
func (s *commentRepoStub) Delete(ctx context.Context, id, profileID string) error {
	return s.deleteFn(ctx, id, profileID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		getByProfileIDFn: func(context.Context, string) ([]models.Comment, error) { return []models.Comment{}, nil },
		getByIDFn:        func(_ context.Context, id string) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		createFn: func(_ context.Context, in models.NewComment) (*models.Comment, error) {
			return &models.Comment{ID: "c1", ProfileID: in.ProfileID, AuthorName: in.AuthorName, Content: in.Content, ParentID: in.ParentID}, nil
		},
		updateFn: func(_ context.Context, id, content string) (*models.Comment, error) {
			return &models.Comment{ID: id, ProfileID: "p1", Content: content}, nil
		},
		deleteFn: func(context.Context, string, string) error { return nil },
	}
}

// memoryLikeRepo is an in-memory repository.ProfileLikeRepository.
type memoryLikeRepo struct {
	mu    sync.Mutex
	likes map[string]models.ProfileLike
	err   error
}

func newMemoryLikeRepo() *memoryLikeRepo {
	return &memoryLikeRepo{likes: map[string]models.ProfileLike{}}
}

func likeKey(profileID, userID string) string { return profileID + "/" + userID }

func (r *memoryLikeRepo) Create(_ context.Context, in models.NewProfileLike) (*models.ProfileLike, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	k := likeKey(in.ProfileID, in.UserID)
	if _, ok := r.likes[k]; ok {
		return nil, models.NewConflictError("ProfileLike already exists", nil)
	}
	l := models.ProfileLike{ID: k, ProfileID: in.ProfileID, UserID: in.UserID}
	r.likes[k] = l
	return &l, nil
}

func (r *memoryLikeRepo) Delete(_ context.Context, profileID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	k := likeKey(profileID, userID)
	if _, ok := r.likes[k]; !ok {
		return models.NewNotFoundError("ProfileLike", k)
	}
	delete(r.likes, k)
	return nil
}

func (r *memoryLikeRepo) GetByProfileID(_ context.Context, profileID string) ([]models.ProfileLike, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.ProfileLike{}
	for _, l := range r.likes {
		if l.ProfileID == profileID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memoryLikeRepo) GetByProfileAndUser(_ context.Context, profileID, userID string) (*models.ProfileLike, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.likes[likeKey(profileID, userID)]
	if !ok {
		return nil, false, nil
	}
	return &l, true, nil
}

func (r *memoryLikeRepo) GetLikeCount(ctx context.Context, profileID string) (int, error) {
	likes, err := r.GetByProfileID(ctx, profileID)
	return len(likes), err
}

// eventRecorder captures published profile events.
type eventRecorder struct {
	mu     sync.Mutex
	events []notifications.ProfileEvent
	err    error
}

func (r *eventRecorder) PublishProfileEvent(_ context.Context, ev notifications.ProfileEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *eventRecorder) types() []notifications.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notifications.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

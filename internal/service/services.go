package service

import (
	"github.com/pillow12360/eureka-ssul/internal/imaging"
	"github.com/pillow12360/eureka-ssul/internal/repository"
)

// Deps are the collaborators the services are built from.
type Deps struct {
	Profiles repository.ProfileRepository
	Comments repository.CommentRepository
	Likes    repository.ProfileLikeRepository
	Auth     AuthBackend
	Images   *imaging.Processor
	Events   EventPublisher
}

// Services is the set of services built once at application start.
type Services struct {
	Profiles *ProfileService
	Comments *CommentService
	Likes    *ProfileLikeService
	Auth     *AuthService
}

// New builds every service from deps. Auth stays nil without an auth backend.
func New(deps Deps) *Services {
	images := deps.Images
	if images == nil {
		images = imaging.NewProcessor(0)
	}
	s := &Services{
		Profiles: NewProfileService(deps.Profiles, images, deps.Events),
		Comments: NewCommentService(deps.Comments, deps.Events),
		Likes:    NewProfileLikeService(deps.Likes, deps.Events),
	}
	if deps.Auth != nil {
		s.Auth = NewAuthService(deps.Auth)
	}
	return s
}

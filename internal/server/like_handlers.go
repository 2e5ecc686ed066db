package server

import (
	"github.com/pillow12360/eureka-ssul/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetLikes returns the like count, whether the caller liked the profile, and the likes.
func (s *Server) GetLikes(c *fiber.Ctx) error {
	ctx := c.UserContext()
	profileID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	status, err := s.services.Likes.Status(ctx, profileID, middleware.UserIDFrom(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	likes, err := s.services.Likes.GetProfileLikes(ctx, profileID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"profile_id": status.ProfileID,
		"like_count": status.LikeCount,
		"user_liked": status.UserLiked,
		"likes":      likes,
	})
}

// LikeProfile likes a profile; liking twice is a conflict.
func (s *Server) LikeProfile(c *fiber.Ctx) error {
	profileID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	like, err := s.services.Likes.LikeProfile(c.UserContext(), profileID, middleware.UserIDFrom(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(like)
}

// UnlikeProfile removes the caller's like
func (s *Server) UnlikeProfile(c *fiber.Ctx) error {
	profileID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.services.Likes.UnlikeProfile(c.UserContext(), profileID, middleware.UserIDFrom(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleLike flips the caller's like and returns the new status.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	profileID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	status, err := s.services.Likes.ToggleLike(c.UserContext(), profileID, middleware.UserIDFrom(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(status)
}

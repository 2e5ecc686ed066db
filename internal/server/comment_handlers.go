package server

import (
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetComments returns a profile's comments; ?tree=true groups replies under their parents.
func (s *Server) GetComments(c *fiber.Ctx) error {
	ctx := c.UserContext()
	profileID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if c.QueryBool("tree", false) {
		tree, err := s.services.Comments.GetCommentTree(ctx, profileID)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(tree)
	}

	comments, err := s.services.Comments.GetCommentsByProfileID(ctx, profileID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment posts a comment, or a reply when parent_id is set.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	profileID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var form validation.CommentForm
	if err := c.BodyParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}
	if err := form.Validate(); err != nil {
		return respondServiceError(c, err)
	}

	created, err := s.services.Comments.CreateComment(c.UserContext(), models.NewComment{
		ProfileID:  profileID,
		AuthorName: form.AuthorName,
		Content:    form.Content,
		ParentID:   form.ParentID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateComment edits a comment's content.
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	updated, err := s.services.Comments.UpdateComment(c.UserContext(), commentID, req.Content)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(updated)
}

// DeleteComment removes a comment and its replies (admin).
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	profileID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	if err := s.services.Comments.DeleteComment(c.UserContext(), commentID, profileID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

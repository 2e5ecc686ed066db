package server

import (
	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// CreateProfileRequest is the JSON body of POST /api/profiles.
type CreateProfileRequest struct {
	validation.ProfileForm
	ImageURL *string `json:"image_url"`
}

// GetProfiles returns every profile, newest first
func (s *Server) GetProfiles(c *fiber.Ctx) error {
	profiles, err := s.services.Profiles.GetProfiles(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profiles)
}

// GetProfile returns a single profile
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.services.Profiles.GetProfileByID(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(p)
}

// CreateProfile validates the form and creates a profile owned by the caller, if signed in.
func (s *Server) CreateProfile(c *fiber.Ctx) error {
	var req CreateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}
	if err := req.Validate(); err != nil {
		return respondServiceError(c, err)
	}

	in := models.NewProfile{
		Name:     req.Name,
		Features: models.FeaturesToString(models.FeaturesFromString(req.Features)),
		Bio:      req.Bio,
		ImageURL: req.ImageURL,
	}
	if userID := middleware.UserIDFrom(c); userID != "" {
		in.UserID = &userID
	}
	p, err := s.services.Profiles.CreateProfile(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// UpdateProfile applies a partial update (owner or admin)
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var upd models.ProfileUpdate
	if err := c.BodyParser(&upd); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	existing, err := s.services.Profiles.GetProfileByID(ctx, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	if !canModifyProfile(c, existing) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("You can only edit your own profile"))
	}

	// Changed fields must still satisfy the creation rules.
	form := validation.ProfileForm{Name: existing.Name, Features: existing.Features, Bio: existing.Bio}
	if upd.Name != nil {
		form.Name = *upd.Name
	}
	if upd.Features != nil {
		form.Features = *upd.Features
	}
	if upd.Bio != nil {
		form.Bio = *upd.Bio
	}
	if err := form.Validate(); err != nil {
		return respondServiceError(c, err)
	}

	p, err := s.services.Profiles.UpdateProfile(ctx, id, upd)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(p)
}

// DeleteProfile removes a profile with its comments and likes (owner or admin)
func (s *Server) DeleteProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	existing, err := s.services.Profiles.GetProfileByID(ctx, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	if !canModifyProfile(c, existing) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("You can only delete your own profile"))
	}
	if err := s.services.Profiles.DeleteProfile(ctx, id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RecountCounters repairs drifted comment and like counters (admin).
func (s *Server) RecountCounters(c *fiber.Ctx) error {
	changed, err := s.services.Profiles.RecountAll(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"repaired": changed})
}

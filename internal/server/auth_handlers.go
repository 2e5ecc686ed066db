package server

import (
	"time"

	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// RefreshRequest is the body of POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) setSessionCookie(c *fiber.Ctx, sess *models.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessCookie,
		Value:    sess.AccessToken,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) authConfigured(c *fiber.Ctx) bool {
	if s.services.Auth != nil {
		return true
	}
	_ = models.RespondWithError(c, fiber.StatusServiceUnavailable,
		models.NewValidationError("Sign-in is not configured"))
	return false
}

// GetSession returns the calling client's session and user, both null when signed out.
func (s *Server) GetSession(c *fiber.Ctx) error {
	if !s.authConfigured(c) {
		return nil
	}
	ctx := c.UserContext()
	clientID := middleware.ClientIDFrom(c)
	sess, err := s.services.Auth.GetSession(ctx, clientID)
	if err != nil {
		return respondServiceError(c, err)
	}
	user, err := s.services.Auth.GetUser(ctx, clientID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"session": sess,
		"user":    user,
	})
}

// Refresh rotates a refresh token into a new session.
func (s *Server) Refresh(c *fiber.Ctx) error {
	if !s.authConfigured(c) {
		return nil
	}
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("refresh_token is required"))
	}
	sess, err := s.services.Auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return respondServiceError(c, err)
	}
	s.setSessionCookie(c, sess)
	return c.JSON(sess)
}

// Logout ends the calling client's session.
func (s *Server) Logout(c *fiber.Ctx) error {
	if !s.authConfigured(c) {
		return nil
	}
	if err := s.services.Auth.SignOut(c.UserContext(), middleware.ClientIDFrom(c)); err != nil {
		return respondServiceError(c, err)
	}
	clearSessionCookie(c)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// AdminLogin signs an admin in with email and password. A valid non-admin account
// gets success false with a message rather than an error status.
func (s *Server) AdminLogin(c *fiber.Ctx) error {
	if !s.authConfigured(c) {
		return nil
	}
	var form validation.AdminLoginForm
	if err := c.BodyParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}
	if err := form.Validate(); err != nil {
		return respondServiceError(c, err)
	}

	res, err := s.services.Auth.AdminSignIn(c.UserContext(), middleware.ClientIDFrom(c), form)
	if err != nil {
		return respondServiceError(c, err)
	}
	if res.Success && res.Session != nil {
		s.setSessionCookie(c, res.Session)
	} else {
		clearSessionCookie(c)
	}
	return c.JSON(res)
}

// AdminCheck reports whether the calling client holds an admin session.
func (s *Server) AdminCheck(c *fiber.Ctx) error {
	if !s.authConfigured(c) {
		return nil
	}
	isAdmin, err := s.services.Auth.CheckIsAdmin(c.UserContext(), middleware.ClientIDFrom(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"is_admin": isAdmin})
}

package server

import (
	"errors"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/store"
	"github.com/pillow12360/eureka-ssul/internal/validation"
	"github.com/pillow12360/eureka-ssul/internal/view"

	"github.com/gofiber/fiber/v2"
)

// HomePage renders every profile as a collapsed card
func (s *Server) HomePage(c *fiber.Ctx) error {
	return c.JSON(s.profileList.Load(c.UserContext(), middleware.UserIDFrom(c)))
}

// ProfileCardPage renders one card; ?expanded=true loads its comments and like state.
func (s *Server) ProfileCardPage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	card, found := s.profileList.Card(c.UserContext(), id, middleware.UserIDFrom(c), c.QueryBool("expanded", false))
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": view.NotFoundMessage})
	}
	return c.JSON(card)
}

// CardCommentPage posts a comment from a profile card's form and re-renders the card.
func (s *Server) CardCommentPage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var form validation.CommentForm
	if err := c.BodyParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid form"))
	}
	res, found := s.profileList.CommentOnCard(c.UserContext(), id, middleware.UserIDFrom(c), form)
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": view.NotFoundMessage})
	}
	return respondCard(c, res, fiber.StatusCreated)
}

// CardLikePage toggles the caller's like from a profile card and re-renders it.
func (s *Server) CardLikePage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, found := s.profileList.LikeOnCard(c.UserContext(), id, middleware.UserIDFrom(c))
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": view.NotFoundMessage})
	}
	return respondCard(c, res, fiber.StatusOK)
}

func respondCard(c *fiber.Ctx, res view.CardResult, okStatus int) error {
	switch {
	case res.OK:
		return c.Status(okStatus).JSON(res)
	case len(res.FieldErrors) > 0:
		return c.Status(fiber.StatusBadRequest).JSON(res)
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(res)
	}
}

// CreateProfilePage renders the empty profile form
func (s *Server) CreateProfilePage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"form":          validation.ProfileForm{},
		"max_features":  models.MaxFeatures,
		"max_upload_mb": s.config.ImageMaxUploadMB,
	})
}

// SubmitProfilePage handles the multipart profile form. The image is uploaded only
// after the fields validate.
func (s *Server) SubmitProfilePage(c *fiber.Ctx) error {
	var form validation.ProfileForm
	if err := c.BodyParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid form"))
	}
	img, _, err := readImage(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(view.FormResult{
			Error:       validation.SummaryMessage,
			FieldErrors: map[string]string{"image": err.Error()},
		})
	}

	res := s.profileForm.Submit(c.UserContext(), form, img, middleware.UserIDFrom(c))
	switch {
	case res.Profile != nil:
		return c.Status(fiber.StatusCreated).JSON(res)
	case len(res.FieldErrors) > 0:
		return c.Status(fiber.StatusBadRequest).JSON(res)
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(res)
	}
}

// ProfilePage renders a profile with its comment tree and like status
func (s *Server) ProfilePage(c *fiber.Ctx) error {
	v := s.profileDetail.Load(c.UserContext(), c.Params("id"), middleware.UserIDFrom(c))
	if !v.Found {
		return c.Status(fiber.StatusNotFound).JSON(v)
	}
	return c.JSON(v)
}

// LoginPage renders the sign-in page; with ?provider= it redirects to the provider.
func (s *Server) LoginPage(c *fiber.Ctx) error {
	st, release, err := s.borrowAuthStore(c)
	if err != nil {
		if errors.Is(err, store.ErrAuthDisabled) {
			return models.RespondWithError(c, fiber.StatusServiceUnavailable,
				models.NewValidationError("Sign-in is not configured"))
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	defer release()

	if provider := c.Query("provider"); provider != "" {
		url, v := view.StartLogin(c.UserContext(), st, provider, c.Query("next"))
		if url == "" {
			return c.Status(fiber.StatusBadRequest).JSON(v)
		}
		return c.Redirect(url, fiber.StatusFound)
	}
	return c.JSON(view.Login(st))
}

// AuthCallbackPage completes the provider redirect and sends the client on.
func (s *Server) AuthCallbackPage(c *fiber.Ctx) error {
	if s.services.Auth == nil {
		return c.Redirect(view.AuthCodeErrorPath, fiber.StatusFound)
	}
	providerErr := c.Query("error_description", c.Query("error"))
	res := view.AuthCallback(c.UserContext(), s.services.Auth, s.appCtx,
		c.Query("state"), c.Query("code"), providerErr)

	if res.Session != nil {
		s.setSessionCookie(c, res.Session)
		// The session is bound to the client that started the sign-in.
		c.Cookie(&fiber.Cookie{
			Name:     middleware.ClientCookie,
			Value:    res.ClientID,
			Path:     "/",
			Expires:  time.Now().Add(365 * 24 * time.Hour),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return c.Redirect(res.Redirect, fiber.StatusFound)
}

// AuthCodeErrorPage explains a failed sign-in
func (s *Server) AuthCodeErrorPage(c *fiber.Ctx) error {
	return c.JSON(view.AuthCodeError())
}

// TestAPIPage lists the smoke suites, or runs ?suite= and returns its report.
func (s *Server) TestAPIPage(c *fiber.Ctx) error {
	suite := c.Query("suite")
	if suite == "" {
		return c.JSON(fiber.Map{"suites": s.testAPI.Suites()})
	}
	return c.JSON(s.testAPI.Run(c.UserContext(), suite, middleware.ClientIDFrom(c)))
}

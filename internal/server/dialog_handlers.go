package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/store"

	"github.com/gofiber/fiber/v2"
)

// Actions a dialog can run on confirm.
const (
	DialogActionNone          = ""
	DialogActionDeleteProfile = "delete_profile"
)

const dialogActionTimeout = 10 * time.Second

// OpenDialogRequest is the body of POST /api/dialogs.
type OpenDialogRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CancelText  string `json:"cancel_text"`
	ConfirmText string `json:"confirm_text"`
	Action      string `json:"action"`
	ProfileID   string `json:"profile_id"`
}

// GetDialog returns the calling client's dialog
func (s *Server) GetDialog(c *fiber.Ctx) error {
	d, err := s.dialog(c)
	if err != nil {
		return nil
	}
	return c.JSON(d.State())
}

// dialog returns the calling client's dialog. Once the app context is closed
// it writes a 503 and returns errResponseWritten.
func (s *Server) dialog(c *fiber.Ctx) (*store.AlertDialog, error) {
	d, err := s.appCtx.Dialog(middleware.ClientIDFrom(c))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewInternalError(err))
		return nil, errResponseWritten
	}
	return d, nil
}

// OpenDialog shows a confirmation dialog, replacing any pending one. With action
// delete_profile the profile is deleted once the dialog is confirmed.
func (s *Server) OpenDialog(c *fiber.Ctx) error {
	var req OpenDialogRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	opts := store.DialogOptions{
		Title:       req.Title,
		Description: req.Description,
		CancelText:  req.CancelText,
		ConfirmText: req.ConfirmText,
	}

	switch req.Action {
	case DialogActionNone:
		if opts.Title == "" {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("title is required"))
		}
	case DialogActionDeleteProfile:
		if err := s.prepareDeleteProfile(c, req.ProfileID, &opts); err != nil {
			return respondServiceError(c, err)
		}
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unknown dialog action"))
	}

	d, err := s.dialog(c)
	if err != nil {
		return nil
	}
	d.Open(opts)
	return c.JSON(d.State())
}

func (s *Server) prepareDeleteProfile(c *fiber.Ctx, profileID string, opts *store.DialogOptions) error {
	if middleware.IdentityFrom(c) == nil {
		return models.NewUnauthorizedError("Authorization required")
	}
	p, err := s.services.Profiles.GetProfileByID(c.UserContext(), profileID)
	if err != nil {
		return err
	}
	if !canModifyProfile(c, p) {
		return models.NewForbiddenError("You can only delete your own profile")
	}

	if opts.Title == "" {
		opts.Title = "프로필 삭제"
	}
	if opts.Description == "" {
		opts.Description = p.Name + " 님의 프로필을 삭제하시겠습니까? 이 작업은 되돌릴 수 없습니다."
	}
	if opts.ConfirmText == "" {
		opts.ConfirmText = "삭제"
	}
	opts.OnConfirm = func() {
		ctx, cancel := context.WithTimeout(s.shutdownCtx, dialogActionTimeout)
		defer cancel()
		if err := s.services.Profiles.DeleteProfile(ctx, p.ID); err != nil {
			middleware.Logger.ErrorContext(ctx, "confirmed profile delete failed",
				slog.String("profile_id", p.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// ConfirmDialog confirms the open dialog, running its action.
func (s *Server) ConfirmDialog(c *fiber.Ctx) error {
	d, err := s.dialog(c)
	if err != nil {
		return nil
	}
	if !d.Confirm() {
		return models.RespondWithError(c, fiber.StatusConflict, models.NewConflictError("No dialog is open", nil))
	}
	return c.JSON(fiber.Map{"confirmed": true, "dialog": d.State()})
}

// CancelDialog dismisses the open dialog without running its action.
func (s *Server) CancelDialog(c *fiber.Ctx) error {
	d, err := s.dialog(c)
	if err != nil {
		return nil
	}
	if !d.Cancel() {
		return models.RespondWithError(c, fiber.StatusConflict, models.NewConflictError("No dialog is open", nil))
	}
	return c.JSON(fiber.Map{"confirmed": false, "dialog": d.State()})
}

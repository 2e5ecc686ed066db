package server

import (
	"errors"
	"strings"
	"unicode"

	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// mapServiceError maps an AppError code to its HTTP status.
func mapServiceError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondServiceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, mapServiceError(err), err)
}

// parseID extracts a route parameter by name as a UUID string.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (string, error) {
	raw := strings.TrimSpace(c.Params(param))
	if _, err := uuid.Parse(raw); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return "", errResponseWritten
	}
	return raw, nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// canModifyProfile reports whether the caller owns the profile or is an admin.
// Profiles created anonymously can only be changed by an admin.
func canModifyProfile(c *fiber.Ctx, p *models.Profile) bool {
	id := middleware.IdentityFrom(c)
	if id == nil {
		return false
	}
	if id.Admin {
		return true
	}
	return p.UserID != nil && *p.UserID == id.UserID
}

// borrowAuthStore returns the calling client's auth store without registering
// one for clients that have none. Call release when the request is done.
func (s *Server) borrowAuthStore(c *fiber.Ctx) (*store.AuthStore, func(), error) {
	return s.appCtx.Borrow(c.UserContext(), middleware.ClientIDFrom(c))
}

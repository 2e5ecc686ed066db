package server

import (
	"github.com/pillow12360/eureka-ssul/internal/featureflags"
	"github.com/pillow12360/eureka-ssul/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags lists the known flags, the configured values and what the caller sees.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	raw := map[string]string{}
	if s.featureFlags != nil {
		raw = s.featureFlags.Raw()
	}
	return c.JSON(fiber.Map{
		"known":     featureflags.Known,
		"raw":       raw,
		"evaluated": s.featureFlags.Snapshot(middleware.UserIDFrom(c)),
	})
}

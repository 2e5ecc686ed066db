package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Cookies carried by page clients.
const (
	AccessCookie = "eureka_access"
	ClientCookie = "eureka_client"
)

// Identity is the verified caller of a request.
type Identity struct {
	UserID    string
	SessionID string
	Admin     bool
}

// TokenVerifier resolves an access token to its session identity.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (*Identity, error)
}

// requestToken looks in the Authorization header, then the access cookie, then ?token= for websocket upgrades.
func requestToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if v := c.Cookies(AccessCookie); v != "" {
		return v
	}
	if strings.HasPrefix(c.Path(), "/api/ws") {
		return c.Query("token")
	}
	return ""
}

func setIdentity(c *fiber.Ctx, id *Identity) {
	c.Locals("userID", id.UserID)
	c.Locals("identity", id)
	c.SetUserContext(WithUserID(c.UserContext(), id.UserID))
}

// AuthRequired rejects requests without a valid access token.
func AuthRequired(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := requestToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
				"code":  "UNAUTHORIZED",
			})
		}
		id, err := v.Verify(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
				"code":  "UNAUTHORIZED",
			})
		}
		setIdentity(c, id)
		return c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and continues either way.
func OptionalAuth(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := requestToken(c); token != "" {
			if id, err := v.Verify(c.UserContext(), token); err == nil {
				setIdentity(c, id)
			}
		}
		return c.Next()
	}
}

// ClientID assigns every browser a stable client id cookie.
func ClientID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(ClientCookie)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     ClientCookie,
				Value:    id,
				Path:     "/",
				Expires:  time.Now().Add(365 * 24 * time.Hour),
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals("clientID", id)
		setClientID(c.UserContext(), id)
		return c.Next()
	}
}

// UserIDFrom returns the signed-in user id, or "".
func UserIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

// IdentityFrom returns the verified identity, or nil.
func IdentityFrom(c *fiber.Ctx) *Identity {
	id, _ := c.Locals("identity").(*Identity)
	return id
}

// ClientIDFrom returns the client id assigned by ClientID, or "".
func ClientIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals("clientID").(string)
	return id
}

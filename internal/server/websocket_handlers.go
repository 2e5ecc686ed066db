package server

import (
	"log/slog"

	"github.com/pillow12360/eureka-ssul/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade lets only upgrade requests through to the WebSocket handler.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebSocketHandler streams profile events to viewers. Anonymous viewers are welcome;
// a signed-in viewer is counted against their per-user connection cap.
func (s *Server) WebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		client.Serve()
	})
}

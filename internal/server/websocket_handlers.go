package server

import (
	"quill/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// LiveFeedHandler streams post_created and new_follower events to the
// signed-in user over a websocket.
// @Summary Live feed websocket
// @Tags feed
// @Param token query string false "JWT when no header or cookie is available"
// @Success 101 "Switching protocols"
// @Failure 401 {object} object{error=string}
// @Router /ws [get]
func (s *Server) LiveFeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("live feed: register failed", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		middleware.Logger.Debug("live feed: connected", "user_id", userID)

		client.Serve()
	})
}

// NotFound renders the 404 page for unmatched routes.
func (s *Server) NotFound(c *fiber.Ctx) error {
	return s.renderNotFound(c)
}

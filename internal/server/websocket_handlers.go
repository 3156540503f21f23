package server

import (
	"encoding/json"
	"log/slog"

	"socialnet/internal/featureflags"
	"socialnet/internal/middleware"
	"socialnet/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketChatHandler handles GET /api/ws/chat. The socket is push-only:
// every message sent in one of the user's conversations is delivered as a
// {"type":"message","conversation_id":...,"payload":Message} event.
func (s *Server) WebSocketChatHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)
		if userID == "" {
			writeSocketError(conn, models.CodeUnauthenticated, "unauthorized")
			_ = conn.Close()
			return
		}

		client, err := s.chatHub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("chat websocket rejected",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			writeSocketError(conn, models.CodeForbidden, err.Error())
			_ = conn.Close()
			return
		}

		middleware.Logger.Debug("chat websocket connected", slog.String("user_id", userID))
		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !s.featureFlags.Enabled(featureflags.RealtimeChat, currentUserID(c)) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Feature", featureflags.RealtimeChat))
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}

// writeSocketError sends one error frame shaped like the HTTP error body.
func writeSocketError(conn *websocket.Conn, code, message string) {
	b, err := json.Marshal(models.ErrorResponse{Error: message, Code: code})
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

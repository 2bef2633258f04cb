package handler

import (
	"sam-chat-be/internal/pkg/logger"
	"sam-chat-be/internal/service"
	internalWS "sam-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// StreamHandler pushes state snapshots to websocket observers.
type StreamHandler struct {
	chat       service.IChatService
	hub        *internalWS.Hub
	sendBuffer int
	logger     logger.ILogger
}

func NewStreamHandler(chat service.IChatService, hub *internalWS.Hub, sendBuffer int, log logger.ILogger) *StreamHandler {
	return &StreamHandler{
		chat:       chat,
		hub:        hub,
		sendBuffer: sendBuffer,
		logger:     log,
	}
}

// ServeWs upgrades the request; the first frame is the current snapshot.
func (h *StreamHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		initial, err := service.SnapshotFrame(h.chat)
		if err != nil {
			h.logger.Error("StreamHandler", "Failed to encode initial snapshot", map[string]interface{}{"error": err.Error()})
			return
		}
		h.logger.Info("StreamHandler", "Starting WebSocket session", map[string]interface{}{"remote": conn.RemoteAddr().String()})
		internalWS.ServeWs(h.hub, conn, initial, h.sendBuffer)
		h.logger.Info("StreamHandler", "WebSocket session ended", nil)
	})(c)
}

// RegisterRoutes registers the websocket route.
func (h *StreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}

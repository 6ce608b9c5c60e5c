package websocket

import (
	"net/http"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zep-us/zep-pixel-agents/internal/common/logger"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local display clients only; the gateway binds to loopback.
		return true
	},
}

// Handler handles WebSocket connections.
type Handler struct {
	hub    *Hub
	focus  FocusSetter
	logger *logger.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *Hub, focus FocusSetter, log *logger.Logger) *Handler {
	return &Handler{
		hub:    hub,
		focus:  focus,
		logger: log.WithComponent("ws_handler"),
	}
}

// ServeHTTP upgrades the connection and runs the client pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	clientID := uuid.New().String()
	h.logger.Debug("WebSocket connection established",
		zap.String("client_id", clientID),
		zap.String("remote_addr", r.RemoteAddr),
	)

	client := NewClient(clientID, conn, h.hub, h.focus, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump()
}

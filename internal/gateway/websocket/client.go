package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zep-us/zep-pixel-agents/internal/common/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024
)

// Client actions understood by the gateway.
const (
	ActionAgentSubscribe   = "agent.subscribe"
	ActionAgentUnsubscribe = "agent.unsubscribe"
	ActionAgentFocus       = "agent.focus"
)

// FocusSetter receives focus changes requested over the wire.
type FocusSetter interface {
	SetFocused(id int)
}

// request is an incoming client message.
type request struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// agentRequest is the payload for all agent-scoped actions.
type agentRequest struct {
	AgentID int `json:"agent_id"`
}

// Client represents a single WebSocket connection.
type Client struct {
	ID            string
	conn          *websocket.Conn
	hub           *Hub
	focus         FocusSetter
	send          chan []byte
	subscriptions map[int]bool // Agent ids this client filters on
	logger        *logger.Logger
}

// NewClient creates a new WebSocket client.
func NewClient(id string, conn *websocket.Conn, hub *Hub, focus FocusSetter, log *logger.Logger) *Client {
	return &Client{
		ID:            id,
		conn:          conn,
		hub:           hub,
		focus:         focus,
		send:          make(chan []byte, 256),
		subscriptions: make(map[int]bool),
		logger:        log.WithFields(zap.String("client_id", id)),
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", zap.Error(err))
			}
			break
		}

		var req request
		if err := json.Unmarshal(message, &req); err != nil {
			c.logger.Error("Failed to parse message", zap.Error(err))
			continue
		}
		c.handleRequest(&req)
	}
}

// handleRequest processes an incoming message.
func (c *Client) handleRequest(req *request) {
	c.logger.Debug("Received message", zap.String("action", req.Action))

	var payload agentRequest
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			c.logger.Error("Invalid payload", zap.String("action", req.Action), zap.Error(err))
			return
		}
	}

	switch req.Action {
	case ActionAgentSubscribe:
		c.hub.SubscribeToAgent(c, payload.AgentID)
	case ActionAgentUnsubscribe:
		c.hub.UnsubscribeFromAgent(c, payload.AgentID)
	case ActionAgentFocus:
		if c.focus != nil {
			c.focus.SetFocused(payload.AgentID)
		}
	default:
		c.logger.Warn("Unknown action", zap.String("action", req.Action))
	}
}

// WritePump pumps messages from the hub to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Batch additional queued messages
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

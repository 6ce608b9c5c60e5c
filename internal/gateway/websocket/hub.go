// Package websocket fans agent status events out to connected UI clients.
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/zep-us/zep-pixel-agents/internal/common/logger"
)

// Frame is the wire format sent to clients: the bus subject as the action
// plus the event payload.
type Frame struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// Hub manages all WebSocket client connections.
type Hub struct {
	// All registered clients
	clients map[*Client]bool

	// Clients filtering on specific agent ids
	agentSubscribers map[int]map[*Client]bool

	// Channels for client management
	register   chan *Client
	unregister chan *Client

	// Channel for broadcasting status frames
	broadcast chan *Frame

	mu     sync.RWMutex
	logger *logger.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:          make(map[*Client]bool),
		agentSubscribers: make(map[int]map[*Client]bool),
		register:         make(chan *Client),
		unregister:       make(chan *Client),
		broadcast:        make(chan *Frame, 256),
		logger:           log.WithComponent("ws_hub"),
	}
}

// Run starts the hub's main processing loop.
func (h *Hub) Run(ctx context.Context) error {
	h.logger.Info("WebSocket hub started")
	defer h.logger.Info("WebSocket hub stopped")

	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return ctx.Err()

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("Client registered", zap.String("client_id", client.ID))

		case client := <-h.unregister:
			h.removeClient(client)

		case frame := <-h.broadcast:
			h.broadcastFrame(frame)
		}
	}
}

// closeAllClients closes all client connections.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.agentSubscribers = make(map[int]map[*Client]bool)
}

// removeClient removes a client from the hub.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)

		for agentID := range client.subscriptions {
			if clients, ok := h.agentSubscribers[agentID]; ok {
				delete(clients, client)
				if len(clients) == 0 {
					delete(h.agentSubscribers, agentID)
				}
			}
		}
	}
	h.logger.Debug("Client unregistered", zap.String("client_id", client.ID))
}

// broadcastFrame sends a frame to every client whose filter matches. A
// client with no agent filter receives everything.
func (h *Hub) broadcastFrame(frame *Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast frame", zap.Error(err))
		return
	}
	agentID, hasAgent := frameAgentID(frame)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if len(client.subscriptions) > 0 && hasAgent && !client.subscriptions[agentID] {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client buffer full, will be cleaned up by write pump
		}
	}
}

// frameAgentID extracts the agent id from a frame payload. Payloads that
// travelled through NATS arrive with JSON numbers, so both int and float64
// are accepted.
func frameAgentID(frame *Frame) (int, bool) {
	payload, ok := frame.Payload.(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch v := payload["agent_id"].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast queues a status frame for all connected clients.
func (h *Hub) Broadcast(frame *Frame) {
	h.broadcast <- frame
}

// SubscribeToAgent narrows a client's stream to specific agent ids.
func (h *Hub) SubscribeToAgent(client *Client, agentID int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.agentSubscribers[agentID]; !ok {
		h.agentSubscribers[agentID] = make(map[*Client]bool)
	}
	h.agentSubscribers[agentID][client] = true
	client.subscriptions[agentID] = true

	h.logger.Debug("Client subscribed to agent",
		zap.String("client_id", client.ID),
		zap.Int("agent_id", agentID))
}

// UnsubscribeFromAgent removes one agent id from a client's filter.
func (h *Hub) UnsubscribeFromAgent(client *Client, agentID int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(client.subscriptions, agentID)
	if clients, ok := h.agentSubscribers[agentID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.agentSubscribers, agentID)
		}
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

package websocket

import (
	"fmt"
	"sync"

	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
)

// Hub tracks the connected readers.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	log.WithCtx(client.ctx).Info("🔌 Reader connected", zap.Int("clients", count))
}

// Unregister removes a client from the hub and closes it
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if ok {
		client.Close()
		log.WithCtx(client.ctx).Info("🔌 Reader disconnected")
	}
}

// Broadcast sends a message to all connected clients and reports how many
// accepted it.
func (h *Hub) Broadcast(message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.clients {
		if client.IsClosed() {
			continue
		}
		if err := client.SendMessage(message); err == nil {
			sent++
		}
	}
	return sent
}

// SendToClient sends a message to one client by id
func (h *Hub) SendToClient(clientID string, message []byte) error {
	if client := h.GetClient(clientID); client != nil {
		return client.SendMessage(message)
	}
	return fmt.Errorf("client %s not found", clientID)
}

// GetClient returns a connected client by id
func (h *Hub) GetClient(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.id == clientID && !client.IsClosed() {
			return client
		}
	}
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

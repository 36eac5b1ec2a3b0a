package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"entrepreneur-connect-backend/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

// Client is one WebSocket connection of a user
type Client struct {
	UserID string
	conn   *websocket.Conn
	mu     sync.Mutex
}

// write serialises writes; gorilla connections allow one writer at a time
func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Send writes an event to this connection only
func (c *Client) Send(event Event) error {
	data, err := encode(event)
	if err != nil {
		return err
	}
	return c.write(data)
}

// Hub manages WebSocket connections, several per user
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Client]struct{}
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{connections: make(map[string]map[*Client]struct{})}
}

// Register adds a connection for a user
func (h *Hub) Register(userID string, conn *websocket.Conn) *Client {
	client := &Client{UserID: userID, conn: conn}

	h.mu.Lock()
	clients, exists := h.connections[userID]
	if !exists {
		clients = make(map[*Client]struct{})
		h.connections[userID] = clients
		metrics.WebSocketUsers.Inc()
	}
	clients[client] = struct{}{}
	h.mu.Unlock()

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
	return client
}

// Unregister removes and closes a connection
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	clients, exists := h.connections[client.UserID]
	if exists {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			client.conn.Close()
			log.Info().Str("user_id", client.UserID).Msg("WebSocket connection unregistered")
		}
		if len(clients) == 0 {
			delete(h.connections, client.UserID)
			metrics.WebSocketUsers.Dec()
		}
	}
	h.mu.Unlock()
}

// IsOnline checks if a user has at least one open connection
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID]) > 0
}

// OnlineCount returns the number of connected users
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SendToUser writes an event to every connection of a user
func (h *Hub) SendToUser(userID string, event Event) error {
	data, err := encode(event)
	if err != nil {
		return err
	}

	clients := h.clientsOf(userID)
	if len(clients) == 0 {
		return fmt.Errorf("user %s is not connected", userID)
	}
	h.writeAll(clients, data)
	return nil
}

// Broadcast writes an event to every connection
func (h *Hub) Broadcast(event Event) error {
	data, err := encode(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var clients []*Client
	for _, set := range h.connections {
		for c := range set {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	h.writeAll(clients, data)
	return nil
}

// Deliver routes an event to its audience
func (h *Hub) Deliver(event Event) {
	if event.IsBroadcast() {
		if err := h.Broadcast(event); err != nil {
			log.Error().Err(err).Str("type", event.Type).Msg("Failed to broadcast event")
		}
		return
	}
	for _, userID := range event.UserIDs {
		if !h.IsOnline(userID) {
			continue
		}
		if err := h.SendToUser(userID, event); err != nil {
			log.Error().Err(err).Str("user_id", userID).Str("type", event.Type).Msg("Failed to deliver event")
		}
	}
}

// Run consumes the broker until ctx is done
func (h *Hub) Run(ctx context.Context, broker Broker) error {
	events, err := broker.Subscribe(ctx)
	if err != nil {
		return err
	}
	for event := range events {
		h.Deliver(event)
	}
	return nil
}

// Close closes every connection
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.connections {
		for c := range clients {
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			c.conn.Close()
		}
		delete(h.connections, userID)
		metrics.WebSocketUsers.Dec()
	}
}

func (h *Hub) clientsOf(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.connections[userID]))
	for c := range h.connections[userID] {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) writeAll(clients []*Client, data []byte) {
	for _, c := range clients {
		if err := c.write(data); err != nil {
			log.Warn().Err(err).Str("user_id", c.UserID).Msg("Failed to write to WebSocket, dropping connection")
			h.Unregister(c)
		}
	}
}

// encode strips the audience before the event goes on the wire
func encode(event Event) ([]byte, error) {
	event.UserIDs = nil
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

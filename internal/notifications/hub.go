package notifications

import (
	"context"
	"errors"
	"sync"

	"github.com/pillow12360/eureka-ssul/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerUser = 8
	maxTotalConns   = 5000
)

// Errors returned by Register.
var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrUserFull   = errors.New("user connection limit reached")
	ErrHubClosed  = errors.New("hub is shut down")
)

// shutdownFrame is the close message viewers get when the server stops.
var shutdownFrame = websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")

// Hub fans profile events out to every connected viewer.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	perUser map[string]int
	closed  bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		perUser: make(map[string]int),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "profile hub" }

// Register adds a connection. Signed-in users are capped per user; anonymous viewers only by the total.
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= maxTotalConns {
		return nil, ErrServerFull
	}
	if userID != "" && h.perUser[userID] >= maxConnsPerUser {
		return nil, ErrUserFull
	}

	client := NewClient(h, conn, userID)
	h.clients[client] = struct{}{}
	if userID != "" {
		h.perUser[userID]++
	}
	observability.WebSocketConnectionsTotal.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send queue. Repeated calls are no-ops.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if client.UserID != "" {
		h.perUser[client.UserID]--
		if h.perUser[client.UserID] <= 0 {
			delete(h.perUser, client.UserID)
		}
	}
	client.closeSend(nil)
	observability.WebSocketConnectionsTotal.Dec()
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every connected client.
func (h *Hub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.clients {
		c.TrySend(data)
	}
}

// StartWiring forwards every published ProfileEvent to the connected clients until ctx is done.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartProfileSubscriber(ctx, h.BroadcastAll)
}

// Shutdown closes every client queue. Each client writer then sends a
// going-away frame, so nothing else writes to the connections.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for client := range h.clients {
		client.closeSend(shutdownFrame)
		observability.WebSocketConnectionsTotal.Dec()
	}
	h.clients = make(map[*Client]struct{})
	h.perUser = make(map[string]int)
	return nil
}

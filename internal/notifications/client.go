package notifications

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Viewers may send "ping" as a text keepalive. Anything else is ignored.
var (
	viewerPing = []byte("ping")
	viewerPong = []byte(`{"type":"pong"}`)
)

// resyncNotice tells a viewer it missed events and should re-fetch the board.
var resyncNotice, _ = json.Marshal(ProfileEvent{Type: Resync, Payload: map[string]string{"reason": "buffer_full"}})

// WSHub is implemented by hubs owning Clients.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one board viewer's websocket. UserID is empty for anonymous viewers.
type Client struct {
	Hub    WSHub
	Conn   *websocket.Conn
	UserID string
	// Send is closed by the hub when the client is unregistered.
	Send chan []byte

	mu         sync.Mutex
	closed     bool
	closeFrame []byte
}

func NewClient(hub WSHub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
	}
}

// Serve runs the connection until the viewer leaves, then unregisters it.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

// closeSend closes Send once. writeLoop then sends frame as the close message,
// or an empty one when frame is nil. The hub calls it while holding its own lock.
func (c *Client) closeSend(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.closeFrame = frame
		close(c.Send)
	}
}

// TrySend queues message without blocking. When the queue is full the
// message is dropped and the oldest queued message is replaced by a
// resync notice, so the viewer learns it must re-fetch.
func (c *Client) TrySend(message []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		return
	}
	select {
	case c.Send <- message:
		return
	default:
	}
	observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
	select {
	case <-c.Send:
	default:
	}
	select {
	case c.Send <- resyncNotice:
	default:
	}
}

func (c *Client) readLoop() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				middleware.Logger.Warn("viewer connection dropped",
					slog.String("hub", c.Hub.Name()),
					slog.String("user_id", c.UserID),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		if kind == websocket.TextMessage && bytes.Equal(bytes.TrimSpace(msg), viewerPing) {
			_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
			c.TrySend(viewerPong)
		}
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.mu.Lock()
				frame := c.closeFrame
				c.mu.Unlock()
				if frame == nil {
					frame = []byte{}
				}
				_ = c.Conn.WriteMessage(websocket.CloseMessage, frame)
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

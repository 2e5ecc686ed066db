// Package notifications provides real-time profile events and auth state fan-out.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	// ProfileEventsChannel carries every ProfileEvent.
	ProfileEventsChannel = "events:profiles"
	authChannelPrefix    = "auth:events:"
)

// EventType names a profile change.
type EventType string

const (
	ProfileCreated EventType = "profile_created"
	ProfileUpdated EventType = "profile_updated"
	ProfileDeleted EventType = "profile_deleted"
	CommentAdded   EventType = "comment_added"
	CommentUpdated EventType = "comment_updated"
	CommentDeleted EventType = "comment_deleted"
	LikeChanged    EventType = "like_changed"
	// Resync is sent to a single viewer whose queue overflowed.
	Resync         EventType = "resync"
)

// ProfileEvent is broadcast to every realtime client.
type ProfileEvent struct {
	Type      EventType `json:"type"`
	ProfileID string    `json:"profile_id"`
	Payload   any       `json:"payload,omitempty"`
}

// AuthChannel derives the channel carrying auth events for one client.
func AuthChannel(clientID string) string {
	return authChannelPrefix + clientID
}

// Notifier publishes events into Redis channels. Without Redis it delivers in-process.
type Notifier struct {
	rdb *redis.Client

	mu     sync.RWMutex
	nextID int
	local  map[string]map[int]func(string)
}

// NewNotifier creates a new Notifier instance using the provided Redis client, which may be nil.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, local: map[string]map[int]func(string){}}
}

// PublishProfileEvent sends ev to the profile events channel.
func (n *Notifier) PublishProfileEvent(ctx context.Context, ev ProfileEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal profile event: %w", err)
	}
	return n.publish(ctx, ProfileEventsChannel, string(data))
}

// PublishAuthEvent sends ev to the channel of ev.ClientID.
func (n *Notifier) PublishAuthEvent(ctx context.Context, ev models.AuthEvent) error {
	if ev.ClientID == "" {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal auth event: %w", err)
	}
	return n.publish(ctx, AuthChannel(ev.ClientID), string(data))
}

func (n *Notifier) publish(ctx context.Context, channel, payload string) error {
	if n.rdb != nil {
		return n.rdb.Publish(ctx, channel, payload).Err()
	}
	n.mu.RLock()
	handlers := make([]func(string), 0, len(n.local[channel]))
	for _, fn := range n.local[channel] {
		handlers = append(handlers, fn)
	}
	n.mu.RUnlock()
	for _, fn := range handlers {
		deliver(channel, fn, payload)
	}
	return nil
}

// Subscribe calls onMessage for every payload on channel until the returned function is called.
func (n *Notifier) Subscribe(ctx context.Context, channel string, onMessage func(payload string)) (func(), error) {
	if n.rdb == nil {
		n.mu.Lock()
		n.nextID++
		id := n.nextID
		if n.local[channel] == nil {
			n.local[channel] = map[int]func(string){}
		}
		n.local[channel][id] = onMessage
		n.mu.Unlock()
		return func() {
			n.mu.Lock()
			delete(n.local[channel], id)
			if len(n.local[channel]) == 0 {
				delete(n.local, channel)
			}
			n.mu.Unlock()
		}, nil
	}

	sub := n.rdb.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ch := sub.Channel()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				deliver(msg.Channel, onMessage, msg.Payload)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

// SubscribeAuth delivers decoded auth events for clientID until the returned function is called.
func (n *Notifier) SubscribeAuth(ctx context.Context, clientID string, fn func(models.AuthEvent)) (func(), error) {
	return n.Subscribe(ctx, AuthChannel(clientID), func(payload string) {
		var ev models.AuthEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			middleware.Logger.Warn("invalid auth event", slog.String("client_id", clientID), slog.String("error", err.Error()))
			return
		}
		fn(ev)
	})
}

// StartProfileSubscriber forwards profile event payloads to onMessage until ctx is done.
func (n *Notifier) StartProfileSubscriber(ctx context.Context, onMessage func(payload string)) error {
	unsubscribe, err := n.Subscribe(ctx, ProfileEventsChannel, onMessage)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return nil
}

func deliver(channel string, fn func(string), payload string) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.Error("panic in subscriber",
				slog.String("channel", channel),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn(payload)
}

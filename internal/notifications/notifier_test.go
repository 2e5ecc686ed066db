package notifications

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestAuthChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "auth:events:abc", AuthChannel("abc"))
}

func TestNotifier_LocalAuthEvents(t *testing.T) {
	n := NewNotifier(nil)
	ctx := context.Background()

	var got []models.AuthEventType
	unsubscribe, err := n.SubscribeAuth(ctx, "client-1", func(ev models.AuthEvent) {
		got = append(got, ev.Event)
	})
	require.NoError(t, err)

	require.NoError(t, n.PublishAuthEvent(ctx, models.AuthEvent{Event: models.SignedIn, ClientID: "client-1"}))
	require.NoError(t, n.PublishAuthEvent(ctx, models.AuthEvent{Event: models.SignedIn, ClientID: "client-2"}))
	unsubscribe()
	require.NoError(t, n.PublishAuthEvent(ctx, models.AuthEvent{Event: models.SignedOut, ClientID: "client-1"}))

	assert.Equal(t, []models.AuthEventType{models.SignedIn}, got)
}

func TestNotifier_PublishWithoutClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishAuthEvent(context.Background(), models.AuthEvent{Event: models.SignedIn}))
}

func TestNotifier_PanickingSubscriberIsContained(t *testing.T) {
	n := NewNotifier(nil)
	ctx := context.Background()
	_, err := n.Subscribe(ctx, "c", func(string) { panic("boom") })
	require.NoError(t, err)
	assert.NotPanics(t, func() { _ = n.publish(ctx, "c", "x") })
}

func TestNotifier_RedisProfileEvents(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 4)
	require.NoError(t, n.StartProfileSubscriber(ctx, func(payload string) { payloads <- payload }))

	require.NoError(t, n.PublishProfileEvent(context.Background(), ProfileEvent{Type: CommentAdded, ProfileID: "p1"}))

	select {
	case payload := <-payloads:
		var ev ProfileEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &ev))
		assert.Equal(t, CommentAdded, ev.Type)
		assert.Equal(t, "p1", ev.ProfileID)
	case <-time.After(testEventuallyTimeout):
		t.Fatal("profile event not delivered")
	}
}

func TestNotifier_RedisUnsubscribeStopsDelivery(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx := context.Background()

	var received int32
	unsubscribe, err := n.SubscribeAuth(ctx, "client-1", func(models.AuthEvent) {
		atomic.AddInt32(&received, 1)
	})
	require.NoError(t, err)

	require.NoError(t, n.PublishAuthEvent(ctx, models.AuthEvent{Event: models.TokenRefreshed, ClientID: "client-1"}))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) == 1
	}, testEventuallyTimeout, testPollInterval)

	unsubscribe()
	unsubscribe()

	require.NoError(t, n.PublishAuthEvent(ctx, models.AuthEvent{Event: models.SignedOut, ClientID: "client-1"}))
	assert.Never(t, func() bool {
		return atomic.LoadInt32(&received) > 1
	}, 20*testPollInterval, testPollInterval)
}

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eureka_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eureka_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheLookups counts cache-aside lookups by key family and result (hit|miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eureka_cache_lookups_total",
		Help: "Cache lookups by key family and result",
	}, []string{"family", "result"})

	// ProfilesCreated counts successfully created profiles.
	ProfilesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eureka_profiles_created_total",
		Help: "Total number of profiles created",
	})

	// CommentsCreated counts comments by kind (root|reply).
	CommentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eureka_comments_created_total",
		Help: "Total number of comments created",
	}, []string{"kind"})

	// LikesToggled counts like mutations by action (like|unlike).
	LikesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eureka_likes_toggled_total",
		Help: "Total number of like and unlike actions",
	}, []string{"action"})

	// CounterRepairs counts denormalized counters corrected by a recount.
	CounterRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eureka_counter_repairs_total",
		Help: "Denormalized counters corrected by recount",
	}, []string{"counter"})

	// AuthEvents counts auth state events by type.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eureka_auth_events_total",
		Help: "Auth state change events by type",
	}, []string{"event"})

	// WebSocketConnectionsTotal is the gauge of active realtime connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eureka_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped for slow clients.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eureka_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

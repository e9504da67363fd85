// Package observability holds prometheus metrics and OpenTelemetry tracing setup.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostsCreated counts posts published.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_posts_created_total",
		Help: "Total number of posts created",
	})

	// PostsDeleted counts posts removed by their authors.
	PostsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_posts_deleted_total",
		Help: "Total number of posts deleted",
	})

	// CommentsCreated counts accepted comments.
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_comments_created_total",
		Help: "Total number of comments created",
	})

	// CommentsRejected counts comment submissions dropped by validation.
	CommentsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_comments_rejected_total",
		Help: "Total number of invalid comment submissions",
	})

	// Follows counts follow edges created.
	Follows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_follows_total",
		Help: "Total number of follow edges created",
	})

	// Unfollows counts follow edges removed.
	Unfollows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_unfollows_total",
		Help: "Total number of follow edges removed",
	})

	// PageCacheRequests counts page cache lookups by route and result (hit/miss).
	PageCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_page_cache_requests_total",
		Help: "Page cache lookups by route and result",
	}, []string{"route", "result"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// ActiveWebSockets is the gauge of open live feed connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quill_websocket_connections",
		Help: "Number of active live feed WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

// Package metrics registers the Prometheus collectors exposed on
// /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pamfree_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pamfree_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// Viewer cache
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pamfree_cache_hits_total",
		Help: "Public viewer responses served from Redis",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pamfree_cache_misses_total",
		Help: "Public viewer responses rendered from the database",
	})
	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pamfree_cache_invalidations_total",
		Help: "Cache keys removed after a mutation",
	})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pamfree_rate_limited_total",
		Help: "Requests rejected by the token bucket",
	})

	// Access control
	AuthzDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pamfree_authz_denied_total",
			Help: "Ownership checks that denied the actor",
		},
		[]string{"kind", "action"},
	)

	EditorRegistrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pamfree_public_editor_registrations_total",
		Help: "Anonymous editors registered on public maps",
	})

	EditorVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pamfree_public_editor_verifications_total",
			Help: "Editor token verifications by outcome",
		},
		[]string{"outcome"},
	)

	// Activity pipeline
	ActivityPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pamfree_activity_events_total",
			Help: "Activity events handed to the publisher by outcome",
		},
		[]string{"type", "outcome"},
	)

	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pamfree_storage_operations_total",
			Help: "Object storage calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
)

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, route string, status int, d time.Duration) {
	s := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, route, s).Observe(d.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, route, s).Inc()
}

// Outcome turns an error into an "ok"/"error" label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

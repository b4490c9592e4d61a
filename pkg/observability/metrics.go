package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the client
type Metrics struct {
	// Outbound HTTP metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	TokenRefreshTotal  *prometheus.CounterVec

	// Permission cache metrics
	PermissionCacheHitsTotal        prometheus.Counter
	PermissionCacheMissesTotal      prometheus.Counter
	PermissionLoadsTotal            *prometheus.CounterVec
	PermissionInvalidationsTotal    *prometheus.CounterVec
	PermissionLoadWaitTimeoutsTotal prometheus.Counter

	// Navigation guard metrics
	GuardDecisionsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics. A nil registry
// gets a private one, useful for tests.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterly_api_requests_total",
				Help: "Total number of outbound API requests",
			},
			[]string{"method", "status"},
		),
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rosterly_api_request_duration_seconds",
				Help:    "Outbound API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		TokenRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterly_token_refresh_total",
				Help: "Total number of silent token refresh attempts",
			},
			[]string{"outcome"},
		),
		PermissionCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rosterly_permission_cache_hits_total",
				Help: "Permission cache hits (fresh entry reused)",
			},
		),
		PermissionCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rosterly_permission_cache_misses_total",
				Help: "Permission cache misses (absent or stale entry)",
			},
		),
		PermissionLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterly_permission_loads_total",
				Help: "Permission load attempts by outcome",
			},
			[]string{"outcome"},
		),
		PermissionInvalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterly_permission_invalidations_total",
				Help: "Permission cache invalidations by source",
			},
			[]string{"source"},
		),
		PermissionLoadWaitTimeoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rosterly_permission_load_wait_timeouts_total",
				Help: "Callers that timed out waiting on a peer permission load",
			},
		),
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterly_guard_decisions_total",
				Help: "Route guard decisions by outcome and reason",
			},
			[]string{"outcome", "reason"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.APIRequestsTotal,
		m.APIRequestDuration,
		m.TokenRefreshTotal,
		m.PermissionCacheHitsTotal,
		m.PermissionCacheMissesTotal,
		m.PermissionLoadsTotal,
		m.PermissionInvalidationsTotal,
		m.PermissionLoadWaitTimeoutsTotal,
		m.GuardDecisionsTotal,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vtube",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vtube",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	// Registration outcomes: created, validation, conflict, upload, persistence
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vtube",
			Subsystem: "users",
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vtube",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
	)

	// Media host operations: operation is upload or delete, status is ok, failed or unconfirmed
	MediaOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vtube",
			Subsystem: "media",
			Name:      "operations_total",
			Help:      "Media host operations",
		},
		[]string{"backend", "operation", "status"},
	)

	MediaDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vtube",
			Subsystem: "media",
			Name:      "operation_duration_seconds",
			Help:      "Media host operation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"backend", "operation"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

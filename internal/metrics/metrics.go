package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unitbook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unitbook",
			Name:      "booking_operations_total",
			Help:      "Booking operations by kind: created, updated, cancelled, expired, paid.",
		},
		[]string{"operation"},
	)

	conflictRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "unitbook",
			Name:      "booking_conflict_retries_total",
			Help:      "Retries caused by concurrent modification conflicts.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingOps, conflictRetries)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBookingOp increments the counter for a booking operation kind.
func IncBookingOp(operation string) {
	bookingOps.WithLabelValues(operation).Inc()
}

// IncConflictRetry counts one conflict-driven retry.
func IncConflictRetry() {
	conflictRetries.Inc()
}

// Prometheus metrics for the dispatch core and the HTTP layer.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cabwise",
		Name:      "bookings_created_total",
		Help:      "Bookings created, by assignment method.",
	}, []string{"assignment_method"})

	DispatchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cabwise",
		Name:      "dispatch_attempts_total",
		Help:      "Automatic dispatch attempts, by outcome.",
	}, []string{"outcome"})

	OfferResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cabwise",
		Name:      "offer_responses_total",
		Help:      "Ride offer resolutions, by outcome.",
	}, []string{"outcome"})

	SweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cabwise",
		Name:      "timeout_sweep_runs_total",
		Help:      "Completed timeout sweep passes.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cabwise",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

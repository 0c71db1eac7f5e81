// Package metrics registers the Prometheus collectors for payment and
// settlement activity.  Collectors live on the default registry and are
// served by promhttp on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Settlement attempts by outcome",
		},
		[]string{"outcome"},
	)

	settlementDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "settlement_duration_seconds",
			Help:    "End-to-end latency of a settlement attempt",
			Buckets: prometheus.DefBuckets,
		},
	)

	providerCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_provider_calls_total",
			Help: "Calls to the payment provider",
		},
		[]string{"operation", "status"},
	)

	providerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_provider_call_duration_seconds",
			Help:    "Latency of payment provider calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"operation"},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_events_published_total",
			Help: "booking.paid events handed to the broker",
		},
		[]string{"status"},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests refused by the token bucket, by bucket prefix",
		},
		[]string{"bucket"},
	)
)

// ObserveSettlement records one settlement attempt.
func ObserveSettlement(outcome string, started time.Time) {
	settlements.WithLabelValues(outcome).Inc()
	settlementDuration.Observe(time.Since(started).Seconds())
}

// ObserveProviderCall records one provider round-trip.
func ObserveProviderCall(operation string, err error, started time.Time) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	providerCalls.WithLabelValues(operation, status).Inc()
	providerLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObservePublish records the result of handing an event to the broker.
func ObservePublish(err error) {
	if err != nil {
		eventsPublished.WithLabelValues("error").Inc()
		return
	}
	eventsPublished.WithLabelValues("ok").Inc()
}

// ObserveRateLimited counts one request refused with 429.
func ObserveRateLimited(bucket string) {
	rateLimited.WithLabelValues(bucket).Inc()
}

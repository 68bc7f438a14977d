package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seq_registry",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "",
	}, []string{"route", "code"})

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "seq_registry",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "",
		Buckets:   SecondsBuckets,
	}, []string{"route"})

	HTTPPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "seq_registry",
		Subsystem: "http",
		Name:      "panics_total",
		Help:      "",
	})

	MetricsPostsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seq_registry",
		Subsystem: "mixmetrics",
		Name:      "posts_total",
		Help:      "Mix metric reports sent to the directory server",
	}, []string{"status"})

	CircuitBreakerSuccess = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seq_registry",
		Subsystem: "circuit_breaker",
		Name:      "success",
		Help:      "Count of each time `Execute` does not return an error",
	}, []string{"name"})
	CircuitBreakerErr = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seq_registry",
		Subsystem: "circuit_breaker",
		Name:      "err",
		Help:      "The number of errors that have occurred in the circuit breaker",
	}, []string{"name", "kind"})
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "seq_registry",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "The state of the circuit breaker",
	}, []string{"name"})
)

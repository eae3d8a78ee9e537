package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics of the Auth Backend
type Metrics struct {
	NoncesIssued    *prometheus.CounterVec
	Verifications   *prometheus.CounterVec
	Logouts         prometheus.Counter
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the metrics with a fresh registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.NewRegistry())
}

// NewMetricsWithRegistry registers the metrics with registry, which also
// backs the /metrics endpoint.
func NewMetricsWithRegistry(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		NoncesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "walletauth_nonces_issued_total",
			Help: "The total number of sign-in challenges issued",
		}, []string{"chain_kind"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "walletauth_verifications_total",
			Help: "The total number of signature verifications by outcome",
		}, []string{"chain_kind", "result"}),
		Logouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "walletauth_logouts_total",
			Help: "The total number of logout requests",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "walletauth_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "code"}),
		gatherer: registry,
	}
}

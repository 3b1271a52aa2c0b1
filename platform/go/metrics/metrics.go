// Package metrics defines the Prometheus collectors shared by the Toke API
// processes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConnectionMetrics tracks the tenant connection registry.
type ConnectionMetrics struct {
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
	DialFailures prometheus.Counter
	OpenPools    prometheus.Gauge
}

// NewConnectionMetrics initializes and registers the registry collectors
// against the given registerer (prometheus.DefaultRegisterer in the
// binaries, a throwaway registry in tests).
func NewConnectionMetrics(reg prometheus.Registerer) *ConnectionMetrics {
	factory := promauto.With(reg)
	return &ConnectionMetrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "toke",
			Subsystem: "tenantconn",
			Name:      "cache_hits_total",
			Help:      "Total number of tenant connection cache hits.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "toke",
			Subsystem: "tenantconn",
			Name:      "cache_misses_total",
			Help:      "Total number of tenant connection cache misses.",
		}),
		DialFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "toke",
			Subsystem: "tenantconn",
			Name:      "dial_failures_total",
			Help:      "Total number of failed tenant connection attempts.",
		}),
		OpenPools: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "toke",
			Subsystem: "tenantconn",
			Name:      "open_pools",
			Help:      "Number of live cached tenant connection pools.",
		}),
	}
}

// SigningMetrics tracks inbound signed-request verification.
type SigningMetrics struct {
	Verifications *prometheus.CounterVec
}

// NewSigningMetrics initializes and registers the signing collectors.
func NewSigningMetrics(reg prometheus.Registerer) *SigningMetrics {
	factory := promauto.With(reg)
	return &SigningMetrics{
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toke",
			Subsystem: "signing",
			Name:      "verifications_total",
			Help:      "Total number of signed-request verifications by outcome.",
		}, []string{"outcome"}), // outcome: ok, rejected, missing_headers, unknown_key
	}
}

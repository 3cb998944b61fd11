/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import "github.com/prometheus/client_golang/prometheus"

// RemovalReason tells why the cache dropped entries on its own.
type RemovalReason string

// Removal reasons. Explicit Remove and Purge calls are not reported.
const (
	RemovalCapacity RemovalReason = "capacity"
	RemovalExpired  RemovalReason = "expired"
)

// MetricsCollector receives cache usage events.
type MetricsCollector interface {
	SetEntries(n int)
	ObserveLookup(hit bool)
	ObserveRemoved(reason RemovalReason, n int)
}

// PrometheusMetrics is a MetricsCollector backed by Prometheus.
type PrometheusMetrics struct {
	Entries prometheus.Gauge
	Lookups *prometheus.CounterVec
	Removed *prometheus.CounterVec
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates metrics named <namespace>_<subsystem>_cache_*.
// The subsystem tells caches of different purposes apart, e.g. "error_reply_cooldown".
func NewPrometheusMetrics(namespace, subsystem string) *PrometheusMetrics {
	return &PrometheusMetrics{
		Entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_entries",
			Help:      "Number of entries in the cache, expired ones not removed yet included.",
		}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_lookups_total",
			Help:      "Number of cache lookups by result.",
		}, []string{"result"}),
		Removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_removed_total",
			Help:      "Number of entries dropped by the cache by reason.",
		}, []string{"reason"}),
	}
}

// MustRegisterMetrics implements service.MetricsRegisterer.
func (pm *PrometheusMetrics) MustRegisterMetrics() {
	prometheus.MustRegister(pm.Entries, pm.Lookups, pm.Removed)
}

// UnregisterMetrics implements service.MetricsRegisterer.
func (pm *PrometheusMetrics) UnregisterMetrics() {
	for _, c := range []prometheus.Collector{pm.Entries, pm.Lookups, pm.Removed} {
		prometheus.Unregister(c)
	}
}

// SetEntries implements MetricsCollector.
func (pm *PrometheusMetrics) SetEntries(n int) {
	pm.Entries.Set(float64(n))
}

// ObserveLookup implements MetricsCollector.
func (pm *PrometheusMetrics) ObserveLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	pm.Lookups.WithLabelValues(result).Inc()
}

// ObserveRemoved implements MetricsCollector.
func (pm *PrometheusMetrics) ObserveRemoved(reason RemovalReason, n int) {
	pm.Removed.WithLabelValues(string(reason)).Add(float64(n))
}

type disabledMetrics struct{}

func (disabledMetrics) SetEntries(int)                   {}
func (disabledMetrics) ObserveLookup(bool)               {}
func (disabledMetrics) ObserveRemoved(RemovalReason, int) {}

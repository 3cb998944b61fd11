/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wildcardbot/gatekeeper/internal/libinfo"
)

// Values of the "result" label.
const (
	RequestResultSuccess = "success"
	RequestResultError   = "error"
	RequestResultTimeout = "timeout"
	RequestResultDropped = "dropped"
)

const requestsMetricsLabelResult = "result"

// DefaultResponseTimeBuckets is default buckets into which observations of handling updates are counted.
var DefaultResponseTimeBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// MetricsCollector receives admission events.
type MetricsCollector interface {
	IncRequests(result string)
	ObserveResponseTime(elapsed time.Duration)
	SetInFlight(n int)
	SetUsers(n int)
	SetQueues(n int)
}

type disabledMetrics struct{}

func (disabledMetrics) IncRequests(string)                {}
func (disabledMetrics) ObserveResponseTime(time.Duration) {}
func (disabledMetrics) SetInFlight(int)                   {}
func (disabledMetrics) SetUsers(int)                      {}
func (disabledMetrics) SetQueues(int)                     {}

// PrometheusMetricsOpts represents an options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ResponseTimeBuckets is a list of buckets into which observations of handling updates are counted.
	ResponseTimeBuckets []float64

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics is a MetricsCollector that exposes admission events as Prometheus metrics.
type PrometheusMetrics struct {
	Requests     *prometheus.CounterVec
	ResponseTime prometheus.Histogram
	InFlight     prometheus.Gauge
	Users        prometheus.Gauge
	Queues       prometheus.Gauge
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts is a more configurable version of creating PrometheusMetrics.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.ResponseTimeBuckets
	if buckets == nil {
		buckets = DefaultResponseTimeBuckets
	}
	opts.ConstLabels = libinfo.AddPrometheusVersionLabel(opts.ConstLabels)
	return &PrometheusMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "dispatch_requests_total",
			Help:        "Number of updates passed through the admission middleware, by result.",
			ConstLabels: opts.ConstLabels,
		}, []string{requestsMetricsLabelResult}),
		ResponseTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "dispatch_response_time_seconds",
			Help:        "A histogram of durations from admission to successful settlement.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "dispatch_requests_in_flight",
			Help:        "Current number of admitted and not yet settled updates.",
			ConstLabels: opts.ConstLabels,
		}),
		Users: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "dispatch_users",
			Help:        "Number of distinct users seen since start.",
			ConstLabels: opts.ConstLabels,
		}),
		Queues: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "dispatch_user_queues",
			Help:        "Current number of per-user queues.",
			ConstLabels: opts.ConstLabels,
		}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Requests, pm.ResponseTime, pm.InFlight, pm.Users, pm.Queues)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.Requests)
	prometheus.Unregister(pm.ResponseTime)
	prometheus.Unregister(pm.InFlight)
	prometheus.Unregister(pm.Users)
	prometheus.Unregister(pm.Queues)
}

// MustRegisterMetrics implements service.MetricsRegisterer.
func (pm *PrometheusMetrics) MustRegisterMetrics() {
	pm.MustRegister()
}

// UnregisterMetrics implements service.MetricsRegisterer.
func (pm *PrometheusMetrics) UnregisterMetrics() {
	pm.Unregister()
}

// IncRequests increments the requests counter.
func (pm *PrometheusMetrics) IncRequests(result string) {
	pm.Requests.WithLabelValues(result).Inc()
}

// ObserveResponseTime observes the response time of a successful update.
func (pm *PrometheusMetrics) ObserveResponseTime(elapsed time.Duration) {
	pm.ResponseTime.Observe(elapsed.Seconds())
}

// SetInFlight sets the in-flight gauge.
func (pm *PrometheusMetrics) SetInFlight(n int) {
	pm.InFlight.Set(float64(n))
}

// SetUsers sets the users gauge.
func (pm *PrometheusMetrics) SetUsers(n int) {
	pm.Users.Set(float64(n))
}

// SetQueues sets the queues gauge.
func (pm *PrometheusMetrics) SetQueues(n int) {
	pm.Queues.Set(float64(n))
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultRequestType labels requests whose context carries no request type.
const DefaultRequestType = "unknown"

// MetricsCollector receives the outcome of every outgoing request. Status is 0 when there was no response.
type MetricsCollector interface {
	ObserveRequest(requestType string, status int, elapsed time.Duration)
}

// PrometheusMetricsCollector is a MetricsCollector backed by Prometheus.
type PrometheusMetricsCollector struct {
	Durations *prometheus.HistogramVec
	Throttled *prometheus.CounterVec
}

var _ MetricsCollector = (*PrometheusMetricsCollector)(nil)

// NewPrometheusMetricsCollector creates a new PrometheusMetricsCollector.
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	return &PrometheusMetricsCollector{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_client_request_duration_seconds",
			Help:      "Duration of Bot API requests.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"type", "status"}),
		Throttled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_client_throttled_total",
			Help:      "Number of Bot API requests answered with 429 Too Many Requests.",
		}, []string{"type"}),
	}
}

// MustRegisterMetrics implements service.MetricsRegisterer.
func (c *PrometheusMetricsCollector) MustRegisterMetrics() {
	prometheus.MustRegister(c.Durations, c.Throttled)
}

// UnregisterMetrics implements service.MetricsRegisterer.
func (c *PrometheusMetricsCollector) UnregisterMetrics() {
	prometheus.Unregister(c.Durations)
	prometheus.Unregister(c.Throttled)
}

// ObserveRequest implements MetricsCollector. Requests without a response get the "error" status label.
func (c *PrometheusMetricsCollector) ObserveRequest(requestType string, status int, elapsed time.Duration) {
	statusLabel := "error"
	if status != 0 {
		statusLabel = strconv.Itoa(status)
	}
	c.Durations.WithLabelValues(requestType, statusLabel).Observe(elapsed.Seconds())
	if status == http.StatusTooManyRequests {
		c.Throttled.WithLabelValues(requestType).Inc()
	}
}

// MetricsRoundTripper reports every outgoing request to a MetricsCollector.
type MetricsRoundTripper struct {
	next      http.RoundTripper
	collector MetricsCollector
}

// NewMetricsRoundTripper creates a new MetricsRoundTripper.
func NewMetricsRoundTripper(next http.RoundTripper, collector MetricsCollector) *MetricsRoundTripper {
	return &MetricsRoundTripper{next: next, collector: collector}
}

// RoundTrip implements http.RoundTripper.
func (rt *MetricsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	started := time.Now()
	resp, err := rt.next.RoundTrip(req)
	status := 0
	if err == nil {
		status = resp.StatusCode
	}
	rt.collector.ObserveRequest(requestTypeOrDefault(req), status, time.Since(started))
	return resp, err
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/wildcardbot/gatekeeper/testutil"
)

func TestMetricsRoundTripper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	collector := NewPrometheusMetricsCollector("test")
	rt := NewMetricsRoundTripper(http.DefaultTransport, collector)

	for _, requestType := range []string{"sendMessage", "sendMessage", ""} {
		ctx := context.Background()
		if requestType != "" {
			ctx = NewContextWithRequestType(ctx, requestType)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL, nil)
		require.NoError(t, err)
		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	testutil.RequireSamplesCountInHistogram(t,
		collector.Durations.WithLabelValues("sendMessage", "429").(prometheus.Histogram), 2)
	testutil.RequireSamplesCountInHistogram(t,
		collector.Durations.WithLabelValues(DefaultRequestType, "429").(prometheus.Histogram), 1)
	require.Equal(t, 2.0, promtestutil.ToFloat64(collector.Throttled.WithLabelValues("sendMessage")))
}

func TestMetricsRoundTripper_TransportError(t *testing.T) {
	collector := NewPrometheusMetricsCollector("test")
	failing := roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, errors.New("connection refused") })
	req, err := http.NewRequestWithContext(NewContextWithRequestType(context.Background(), "getUpdates"),
		http.MethodPost, "http://api.telegram.test", nil)
	require.NoError(t, err)
	_, err = NewMetricsRoundTripper(failing, collector).RoundTrip(req) //nolint:bodyclose
	require.Error(t, err)
	testutil.RequireSamplesCountInHistogram(t,
		collector.Durations.WithLabelValues("getUpdates", "error").(prometheus.Histogram), 1)
	require.Zero(t, promtestutil.ToFloat64(collector.Throttled.WithLabelValues("getUpdates")))
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains helpers for tests: assertions on Prometheus metrics, errors and listening servers.
package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

type tHelper interface {
	Helper()
}

// RequireSamplesCountInHistogram requires hist to have observed want samples.
func RequireSamplesCountInHistogram(t require.TestingT, hist prometheus.Histogram, want int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireMetric(t, hist, float64(want), func(m *dto.Metric) float64 {
		return float64(m.GetHistogram().GetSampleCount())
	})
}

// RequireSamplesCountInCounter requires counter to equal want.
func RequireSamplesCountInCounter(t require.TestingT, counter prometheus.Counter, want int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireMetric(t, counter, float64(want), func(m *dto.Metric) float64 {
		return m.GetCounter().GetValue()
	})
}

// RequireGaugeValue requires gauge to equal want.
func RequireGaugeValue(t require.TestingT, gauge prometheus.Gauge, want float64) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireMetric(t, gauge, want, func(m *dto.Metric) float64 {
		return m.GetGauge().GetValue()
	})
}

// requireMetric collects exactly one metric from c, works for children of vectors too, and compares value(m) with want.
func requireMetric(t require.TestingT, c prometheus.Collector, want float64, value func(*dto.Metric) float64) {
	collected := make(chan prometheus.Metric, 16)
	c.Collect(collected)
	close(collected)
	var written []*dto.Metric
	for m := range collected {
		var pb dto.Metric
		require.NoError(t, m.Write(&pb))
		written = append(written, &pb)
	}
	if len(written) != 1 {
		require.Fail(t, "collector must yield one metric", "got %d", len(written))
		return
	}
	require.Equal(t, want, value(written[0]))
}

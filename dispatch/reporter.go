/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package dispatch

import (
	"context"
	"time"

	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/service"
)

// SnapshotProvider returns the current stats. It is implemented by Stats and Middleware.
type SnapshotProvider interface {
	Snapshot() StatsSnapshot
}

// StatsReporter is a service.Worker that logs a stats snapshot.
// Nothing is logged until the first request is counted.
type StatsReporter struct {
	provider SnapshotProvider
	logger   log.FieldLogger
}

var _ service.Worker = (*StatsReporter)(nil)

// NewStatsReporter creates a new StatsReporter.
func NewStatsReporter(provider SnapshotProvider, logger log.FieldLogger) *StatsReporter {
	return &StatsReporter{provider: provider, logger: logger}
}

// NewPeriodicStatsReporter returns a worker that logs stats every interval.
func NewPeriodicStatsReporter(provider SnapshotProvider, interval time.Duration, logger log.FieldLogger) *service.PeriodicWorker {
	return service.NewPeriodicWorker(NewStatsReporter(provider, logger), interval, logger,
		service.PeriodicWorkerOpts{Name: "stats_reporter"})
}

// Run logs the snapshot once.
func (r *StatsReporter) Run(_ context.Context) error {
	snap := r.provider.Snapshot()
	if snap.TotalRequests == 0 {
		return nil
	}
	r.logger.Info("dispatch stats",
		log.Int64("total_requests", snap.TotalRequests),
		log.Int64("successful_requests", snap.SuccessfulRequests),
		log.Int64("error_requests", snap.ErrorRequests),
		log.Int64("dropped_requests", snap.DroppedRequests),
		log.Int64("timed_out_requests", snap.TimedOutRequests),
		log.Int("users", snap.Users),
		log.Int("in_flight", snap.InFlight),
		log.Int("peak_in_flight", snap.PeakInFlight),
		log.Int("queues", snap.Queues),
		log.Int64("average_response_ms", snap.AverageResponseMs),
		log.Int64("uptime_seconds", snap.UptimeSeconds),
	)
	return nil
}

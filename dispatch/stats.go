/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package dispatch

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/wildcardbot/gatekeeper/internal/timeout"
)

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	TotalRequests      int64         `json:"total_requests"`
	SuccessfulRequests int64         `json:"successful_requests"`
	ErrorRequests      int64         `json:"error_requests"`
	DroppedRequests    int64         `json:"dropped_requests"`
	TimedOutRequests   int64         `json:"timed_out_requests"`
	Users              int           `json:"users"`
	InFlight           int           `json:"in_flight"`
	PeakInFlight       int           `json:"peak_in_flight"`
	Queues             int           `json:"queues"`
	AverageResponse    time.Duration `json:"-"`
	AverageResponseMs  int64         `json:"average_response_ms"`
	Uptime             time.Duration `json:"-"`
	UptimeSeconds      int64         `json:"uptime_seconds"`
}

// Stats collects process-wide request counters. Its methods are safe for concurrent use.
// In-flight, peak and queue counts are read from the middleware the stats are bound to.
type Stats struct {
	startedAt time.Time

	total        atomic.Int64
	success      atomic.Int64
	errors       atomic.Int64
	dropped      atomic.Int64
	timeouts     atomic.Int64
	responseTime atomic.Int64

	usersMu sync.RWMutex
	users   map[int64]struct{}

	sourceMu sync.RWMutex
	source   gaugeSource

	metrics MetricsCollector
}

type gaugeSource interface {
	InFlight() int
	PeakInFlight() int
	Queues() int
}

// StatsOpts contains optional parameters for constructing Stats.
type StatsOpts struct {
	// Metrics receives every recorded event in addition to the in-memory counters.
	Metrics MetricsCollector
}

// NewStats creates a new Stats with zero counters.
func NewStats() *Stats {
	return NewStatsWithOpts(StatsOpts{})
}

// NewStatsWithOpts is a more configurable version of NewStats.
func NewStatsWithOpts(opts StatsOpts) *Stats {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = disabledMetrics{}
	}
	return &Stats{startedAt: time.Now(), users: make(map[int64]struct{}), metrics: metrics}
}

func (s *Stats) bind(src gaugeSource) {
	s.sourceMu.Lock()
	s.source = src
	s.sourceMu.Unlock()
}

// RecordRequest counts an update from the given user.
func (s *Stats) RecordRequest(userID int64) {
	s.total.Inc()

	s.usersMu.RLock()
	_, seen := s.users[userID]
	s.usersMu.RUnlock()
	if seen {
		return
	}

	s.usersMu.Lock()
	s.users[userID] = struct{}{}
	usersNum := len(s.users)
	s.usersMu.Unlock()
	s.metrics.SetUsers(usersNum)
}

// RecordDropped counts an update rejected before admission. It is counted as an error.
func (s *Stats) RecordDropped() {
	s.errors.Inc()
	s.dropped.Inc()
	s.metrics.IncRequests(RequestResultDropped)
}

// RecordSuccess counts a successfully handled update.
func (s *Stats) RecordSuccess(elapsed time.Duration) {
	s.success.Inc()
	s.responseTime.Add(int64(elapsed))
	s.metrics.IncRequests(RequestResultSuccess)
	s.metrics.ObserveResponseTime(elapsed)
}

// RecordFailure counts an update whose handling failed or timed out.
func (s *Stats) RecordFailure(err error) {
	s.errors.Inc()
	if errors.Is(err, timeout.ErrTimeout) {
		s.timeouts.Inc()
		s.metrics.IncRequests(RequestResultTimeout)
		return
	}
	s.metrics.IncRequests(RequestResultError)
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		TotalRequests:      s.total.Load(),
		SuccessfulRequests: s.success.Load(),
		ErrorRequests:      s.errors.Load(),
		DroppedRequests:    s.dropped.Load(),
		TimedOutRequests:   s.timeouts.Load(),
		Uptime:             time.Since(s.startedAt),
	}
	snap.UptimeSeconds = int64(snap.Uptime / time.Second)

	if snap.SuccessfulRequests > 0 {
		snap.AverageResponse = time.Duration(s.responseTime.Load() / snap.SuccessfulRequests)
		snap.AverageResponseMs = snap.AverageResponse.Milliseconds()
	}

	s.usersMu.RLock()
	snap.Users = len(s.users)
	s.usersMu.RUnlock()

	s.sourceMu.RLock()
	src := s.source
	s.sourceMu.RUnlock()
	if src != nil {
		snap.InFlight = src.InFlight()
		snap.PeakInFlight = src.PeakInFlight()
		snap.Queues = src.Queues()
	}
	return snap
}

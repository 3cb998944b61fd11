/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package userqueue

import (
	"time"

	"github.com/wildcardbot/gatekeeper/internal/timeout"
)

// Default values for Params.
const (
	DefaultRateLimit             = 5
	DefaultRateWindow            = time.Second
	DefaultRateLimitedPause      = 100 * time.Millisecond
	DefaultBacklogPauseThreshold = 10
	DefaultBacklogPause          = 50 * time.Millisecond
	DefaultTimeout               = timeout.DefaultTimeout
	DefaultIdleThreshold         = 5 * time.Minute
)

// Params contains tuning parameters for per-user queues.
// Zero values are replaced with the corresponding defaults.
type Params struct {
	// RateLimit is a maximum number of operations that may begin within one rate window.
	RateLimit int
	// RateWindow is a duration of the rate window.
	RateWindow time.Duration
	// RateLimitedPause is how long the drain loop waits before re-checking the limit.
	RateLimitedPause time.Duration
	// BacklogPauseThreshold is a queue depth above which the drain loop pauses between operations.
	BacklogPauseThreshold int
	// BacklogPause is a pause inserted when the queue depth exceeds BacklogPauseThreshold.
	BacklogPause time.Duration
	// Timeout bounds the time between enqueueing an operation and its settlement.
	Timeout time.Duration
	// IdleThreshold is how long an empty queue must be inactive before Sweep removes it.
	IdleThreshold time.Duration
}

func (p Params) withDefaults() Params {
	if p.RateLimit <= 0 {
		p.RateLimit = DefaultRateLimit
	}
	if p.RateWindow <= 0 {
		p.RateWindow = DefaultRateWindow
	}
	if p.RateLimitedPause <= 0 {
		p.RateLimitedPause = DefaultRateLimitedPause
	}
	if p.BacklogPauseThreshold <= 0 {
		p.BacklogPauseThreshold = DefaultBacklogPauseThreshold
	}
	if p.BacklogPause <= 0 {
		p.BacklogPause = DefaultBacklogPause
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.IdleThreshold <= 0 {
		p.IdleThreshold = DefaultIdleThreshold
	}
	return p
}

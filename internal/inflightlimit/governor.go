/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package inflightlimit

import (
	"fmt"

	"go.uber.org/atomic"
)

// DefaultLimit is a default maximum number of requests in flight.
const DefaultLimit = 100

// Governor limits the total number of requests in flight.
type Governor struct {
	slots chan struct{}
	peak  atomic.Int64
}

// NewGovernor creates a new Governor with the given ceiling.
func NewGovernor(limit int) (*Governor, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit should be positive, got %d", limit)
	}
	return &Governor{slots: make(chan struct{}, limit)}, nil
}

// MustNewGovernor is a version of NewGovernor that panics on error.
func MustNewGovernor(limit int) *Governor {
	g, err := NewGovernor(limit)
	if err != nil {
		panic(err)
	}
	return g
}

// TryAcquire takes a slot if one is free. It never blocks.
// Before the ceiling is checked, the number of requests already in flight is recorded as a peak candidate.
func (g *Governor) TryAcquire() bool {
	select {
	case g.slots <- struct{}{}:
		g.updatePeak(int64(len(g.slots)) - 1)
		return true
	default:
		g.updatePeak(int64(cap(g.slots)))
		return false
	}
}

// Release frees a slot taken by TryAcquire.
func (g *Governor) Release() {
	select {
	case <-g.slots:
	default:
	}
}

// InFlight returns the number of occupied slots.
func (g *Governor) InFlight() int {
	return len(g.slots)
}

// Peak returns the maximum number of requests in flight seen by an admission attempt.
// A lone request is not counted, it observes zero requests ahead of it.
func (g *Governor) Peak() int {
	return int(g.peak.Load())
}

// Limit returns the ceiling.
func (g *Governor) Limit() int {
	return cap(g.slots)
}

func (g *Governor) updatePeak(cur int64) {
	for {
		prev := g.peak.Load()
		if cur <= prev || g.peak.CompareAndSwap(prev, cur) {
			return
		}
	}
}

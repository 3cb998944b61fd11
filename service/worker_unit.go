/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/atomic"
)

// ErrStopTimeout is returned by WorkerUnit.Stop when the worker outlives StopTimeout.
var ErrStopTimeout = errors.New("worker did not stop in time")

// WorkerUnitOpts holds optional settings of a WorkerUnit.
type WorkerUnitOpts struct {
	// StopTimeout bounds the graceful stop. Zero waits as long as the worker runs.
	StopTimeout time.Duration
	// Metrics are registered together with the unit.
	Metrics MetricsRegisterer
}

// WorkerUnit runs a Worker as a Unit. Stop cancels the context of the worker.
type WorkerUnit struct {
	worker   Worker
	opts     WorkerUnitOpts
	ctx      context.Context
	cancel   context.CancelFunc
	started  atomic.Bool
	finished chan struct{}
}

var _ MetricsRegisterer = (*WorkerUnit)(nil)

// NewWorkerUnit creates a WorkerUnit.
func NewWorkerUnit(worker Worker, opts WorkerUnitOpts) *WorkerUnit {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerUnit{worker: worker, opts: opts, ctx: ctx, cancel: cancel, finished: make(chan struct{})}
}

// Start blocks while the worker runs. The error of the worker is fatal.
func (u *WorkerUnit) Start(fatalErr chan<- error) {
	u.started.Store(true)
	defer close(u.finished)
	if err := u.worker.Run(u.ctx); err != nil {
		fatalErr <- err
	}
}

// Stop cancels the worker. A graceful stop also waits until Start returns.
func (u *WorkerUnit) Stop(gracefully bool) error {
	u.cancel()
	if !gracefully || !u.started.Load() {
		return nil
	}
	if u.opts.StopTimeout <= 0 {
		<-u.finished
		return nil
	}
	deadline := time.NewTimer(u.opts.StopTimeout)
	defer deadline.Stop()
	select {
	case <-u.finished:
		return nil
	case <-deadline.C:
		return ErrStopTimeout
	}
}

// MustRegisterMetrics implements MetricsRegisterer.
func (u *WorkerUnit) MustRegisterMetrics() {
	if u.opts.Metrics != nil {
		u.opts.Metrics.MustRegisterMetrics()
	}
}

// UnregisterMetrics implements MetricsRegisterer.
func (u *WorkerUnit) UnregisterMetrics() {
	if u.opts.Metrics != nil {
		u.opts.Metrics.UnregisterMetrics()
	}
}

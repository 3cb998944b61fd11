/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/wildcardbot/gatekeeper/log"
)

// ErrStopRepeating ends the loop of a PeriodicWorker without an error when a run returns it.
var ErrStopRepeating = errors.New("stop repeating")

// Worker does its job until ctx is done.
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerFunc lets a plain function be a Worker.
type WorkerFunc func(ctx context.Context) error

// Run calls f.
func (f WorkerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// PeriodicWorkerOpts holds optional settings of a PeriodicWorker.
type PeriodicWorkerOpts struct {
	// Name is added to every entry the loop logs.
	Name string
	// FirstRunDelay is the pause before the first run. Zero means one interval.
	FirstRunDelay time.Duration
	// NextDelay picks the pause after a run from its result. The interval is used when it is nil.
	NextDelay func(runErr error) time.Duration
}

// PeriodicWorker repeats a job. A failed run is logged and the loop goes on.
type PeriodicWorker struct {
	job      Worker
	interval time.Duration
	opts     PeriodicWorkerOpts
	logger   log.FieldLogger
}

// NewPeriodicWorker repeats job every interval.
func NewPeriodicWorker(job Worker, interval time.Duration, logger log.FieldLogger, opts PeriodicWorkerOpts) *PeriodicWorker {
	if opts.FirstRunDelay <= 0 {
		opts.FirstRunDelay = interval
	}
	if opts.Name != "" {
		logger = logger.With(log.String("worker", opts.Name))
	}
	return &PeriodicWorker{job: job, interval: interval, opts: opts, logger: logger}
}

// Run repeats the job until ctx is done or the job returns ErrStopRepeating.
// A panic of the job is logged with its stack and goes on.
func (pw *PeriodicWorker) Run(ctx context.Context) (err error) {
	pw.logger.Info("periodic worker started",
		log.String("first_run_delay", pw.opts.FirstRunDelay.String()), log.String("interval", pw.interval.String()))
	defer func() {
		if p := recover(); p != nil {
			pw.logger.Error(fmt.Sprintf("periodic worker panicked: %v", p), log.Bytes("stack", debug.Stack()))
			panic(p)
		}
		if err != nil {
			pw.logger.Error("periodic worker stopped", log.Error(err))
		} else {
			pw.logger.Info("periodic worker stopped")
		}
	}()

	wait := time.NewTimer(pw.opts.FirstRunDelay)
	defer wait.Stop()
	for {
		select {
		case <-wait.C:
		case <-ctx.Done():
			return nil
		}
		runErr := pw.job.Run(ctx)
		switch {
		case errors.Is(runErr, ErrStopRepeating):
			return nil
		case runErr != nil:
			pw.logger.Error("periodic worker run failed", log.Error(runErr))
		}
		wait.Reset(pw.delayAfter(runErr))
	}
}

func (pw *PeriodicWorker) delayAfter(runErr error) time.Duration {
	if pw.opts.NextDelay == nil {
		return pw.interval
	}
	return pw.opts.NextDelay(runErr)
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/log/logtest"
)

func TestPeriodicWorker_Run(t *testing.T) {
	t.Run("stops when context is done", func(t *testing.T) {
		var runs atomic.Int32
		pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			runs.Inc()
			return nil
		}), 50*time.Millisecond, log.NewDisabledLogger(), PeriodicWorkerOpts{})

		ctx, cancel := context.WithTimeout(context.Background(), 275*time.Millisecond)
		defer cancel()
		require.NoError(t, pw.Run(ctx))
		require.GreaterOrEqual(t, runs.Load(), int32(4))
		require.LessOrEqual(t, runs.Load(), int32(6))
	})

	t.Run("stops on ErrStopRepeating", func(t *testing.T) {
		var runs atomic.Int32
		pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			if runs.Inc() == 3 {
				return fmt.Errorf("nothing left: %w", ErrStopRepeating)
			}
			return nil
		}), 10*time.Millisecond, log.NewDisabledLogger(), PeriodicWorkerOpts{})
		require.NoError(t, pw.Run(context.Background()))
		require.EqualValues(t, 3, runs.Load())
	})

	t.Run("failed run is logged with worker name and loop continues", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		var runs atomic.Int32
		pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			if runs.Inc() == 1 {
				return errors.New("report failed")
			}
			return ErrStopRepeating
		}), 10*time.Millisecond, logRecorder, PeriodicWorkerOpts{Name: "sweeper"})
		require.NoError(t, pw.Run(context.Background()))
		require.EqualValues(t, 2, runs.Load())
		entry, found := logRecorder.FindEntry("periodic worker run failed")
		require.True(t, found)
		name, _ := entry.StringField("worker")
		require.Equal(t, "sweeper", name)
		_, found = logRecorder.FindEntry("periodic worker stopped")
		require.True(t, found)
	})

	t.Run("first run waits for the interval by default", func(t *testing.T) {
		ran := make(chan time.Time, 1)
		pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			ran <- time.Now()
			return ErrStopRepeating
		}), 100*time.Millisecond, log.NewDisabledLogger(), PeriodicWorkerOpts{})
		start := time.Now()
		require.NoError(t, pw.Run(context.Background()))
		require.GreaterOrEqual(t, (<-ran).Sub(start), 100*time.Millisecond)
	})

	t.Run("first run delay", func(t *testing.T) {
		ran := make(chan time.Time, 1)
		pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			ran <- time.Now()
			return ErrStopRepeating
		}), time.Hour, log.NewDisabledLogger(), PeriodicWorkerOpts{FirstRunDelay: time.Millisecond})
		start := time.Now()
		require.NoError(t, pw.Run(context.Background()))
		require.Less(t, (<-ran).Sub(start), time.Minute)
	})

	t.Run("next delay depends on the run result", func(t *testing.T) {
		var runErrs []error
		var runs atomic.Int32
		pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			switch runs.Inc() {
			case 1:
				return errors.New("busy")
			case 3:
				return ErrStopRepeating
			}
			return nil
		}), time.Hour, log.NewDisabledLogger(), PeriodicWorkerOpts{
			FirstRunDelay: time.Millisecond,
			NextDelay: func(err error) time.Duration {
				runErrs = append(runErrs, err)
				return time.Millisecond
			},
		})
		require.NoError(t, pw.Run(context.Background()))
		require.Len(t, runErrs, 2)
		require.EqualError(t, runErrs[0], "busy")
		require.NoError(t, runErrs[1])
	})

	t.Run("panic is logged and rethrown", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			panic("boom")
		}), time.Millisecond, logRecorder, PeriodicWorkerOpts{})
		require.PanicsWithValue(t, "boom", func() { _ = pw.Run(context.Background()) })
		entry, found := logRecorder.FindEntry("periodic worker panicked: boom")
		require.True(t, found)
		_, hasStack := entry.FindField("stack")
		require.True(t, hasStack)
	})
}

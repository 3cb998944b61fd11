/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

// Package dispatch admits incoming updates. Every update with a sender passes
// a global in-flight ceiling and then waits in the sender's FIFO queue,
// which limits how often the handler runs for one user.
// Outcomes are collected into Stats and optionally exported as Prometheus metrics.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/xid"

	"github.com/wildcardbot/gatekeeper/internal/inflightlimit"
	"github.com/wildcardbot/gatekeeper/internal/userqueue"
	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/telegram"
)

// Outcome is a result of admitting a single request.
type Outcome int

// Admission outcomes.
const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeDropped:
		return "dropped"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// MiddlewareOpts contains optional parameters for constructing Middleware.
type MiddlewareOpts struct {
	// Rand returns a pseudo-random number in [0.0, 1.0). It decides when idle queues are swept.
	Rand func() float64

	// GenerateRequestID returns an id assigned to every admitted request. xid is used by default.
	GenerateRequestID func() string
}

// Middleware owns the admission state: the in-flight governor, the queue registry and the stats.
type Middleware struct {
	governor         *inflightlimit.Governor
	registry         *userqueue.Registry
	stats            *Stats
	logger           log.FieldLogger
	sweepProbability float64
	rand             func() float64
	genRequestID     func() string
}

// NewMiddleware creates a new Middleware and binds stats to it.
func NewMiddleware(cfg *Config, stats *Stats, logger log.FieldLogger) (*Middleware, error) {
	return NewMiddlewareWithOpts(cfg, stats, logger, MiddlewareOpts{})
}

// NewMiddlewareWithOpts is a more configurable version of NewMiddleware.
func NewMiddlewareWithOpts(cfg *Config, stats *Stats, logger log.FieldLogger, opts MiddlewareOpts) (*Middleware, error) {
	governor, err := inflightlimit.NewGovernor(cfg.MaxInFlight)
	if err != nil {
		return nil, fmt.Errorf("create in-flight governor: %w", err)
	}
	if stats == nil {
		stats = NewStats()
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	if opts.GenerateRequestID == nil {
		opts.GenerateRequestID = func() string { return xid.New().String() }
	}
	m := &Middleware{
		governor:         governor,
		registry:         userqueue.NewRegistry(cfg.QueueParams()),
		stats:            stats,
		logger:           logger,
		sweepProbability: cfg.SweepProbability,
		rand:             opts.Rand,
		genRequestID:     opts.GenerateRequestID,
	}
	stats.bind(m)
	return m, nil
}

// Wrap returns a Handler that passes updates to next through admission.
// Updates without a sender go to next directly. Failures of next are logged and counted but not returned.
// The returned handler also implements telegram.UpdateSubmitter, so the poller admits updates in delivery order.
func (m *Middleware) Wrap(next Handler) Handler {
	return &admissionHandler{m: m, next: next}
}

type admissionHandler struct {
	m    *Middleware
	next Handler
}

var _ telegram.UpdateSubmitter = (*admissionHandler)(nil)

func (h *admissionHandler) HandleUpdate(ctx context.Context, update *telegram.Update) error {
	return h.SubmitUpdate(ctx, update)()
}

// SubmitUpdate admits the update and pushes it into the sender's queue without waiting for it.
func (h *admissionHandler) SubmitUpdate(ctx context.Context, update *telegram.Update) (wait func() error) {
	userID, ok := update.UserID()
	if !ok {
		return func() error { return h.next.HandleUpdate(ctx, update) }
	}
	logger := h.m.logger.With(log.UpdateID(update.UpdateID))
	waitOutcome := h.m.submit(ctx, userID, logger, func(ctx context.Context) error {
		return h.next.HandleUpdate(ctx, update)
	})
	return func() error {
		waitOutcome()
		return nil
	}
}

// Admit runs fn in the user's queue if the in-flight ceiling allows it, and blocks until fn settles.
// When the ceiling is reached, fn is not called and OutcomeDropped is returned.
func (m *Middleware) Admit(ctx context.Context, userID int64, fn func(ctx context.Context) error) Outcome {
	return m.Submit(ctx, userID, fn)()
}

// Submit does the admission part of Admit without blocking: it takes an in-flight slot
// and pushes fn into the user's queue, so calls made one after another keep their order.
// The returned function waits for fn to settle, records the outcome and must be called exactly once.
// The slot stays taken until fn settles even if ctx is done earlier.
func (m *Middleware) Submit(ctx context.Context, userID int64, fn func(ctx context.Context) error) (wait func() Outcome) {
	return m.submit(ctx, userID, m.logger, fn)
}

func (m *Middleware) submit(
	ctx context.Context, userID int64, logger log.FieldLogger, fn func(ctx context.Context) error,
) func() Outcome {
	startTime := time.Now()
	m.stats.RecordRequest(userID)

	if !m.governor.TryAcquire() {
		m.stats.RecordDropped()
		logger.Debug("request dropped, in-flight limit reached",
			log.UserID(userID), log.Int("in_flight_limit", m.governor.Limit()))
		return func() Outcome { return OutcomeDropped }
	}
	m.stats.metrics.SetInFlight(m.governor.InFlight())

	requestID := m.genRequestID()
	promise := m.registry.Submit(NewContextWithRequestID(ctx, requestID), userID, fn)

	return func() Outcome {
		var err error
		select {
		case <-promise.Done():
			err = promise.Err()
			m.release()
		case <-ctx.Done():
			err = ctx.Err()
			go func() {
				<-promise.Done()
				m.release()
			}()
		}
		return m.settle(userID, requestID, startTime, err, logger)
	}
}

func (m *Middleware) release() {
	m.governor.Release()
	m.stats.metrics.SetInFlight(m.governor.InFlight())
}

func (m *Middleware) settle(userID int64, requestID string, startTime time.Time, err error, logger log.FieldLogger) Outcome {
	elapsed := time.Since(startTime)

	outcome := OutcomeSucceeded
	if err != nil {
		outcome = OutcomeFailed
		m.stats.RecordFailure(err)
		fields := []log.Field{
			log.UserID(userID), log.RequestID(requestID), log.DurationIn(elapsed, time.Millisecond), log.Error(err),
		}
		var panicErr *userqueue.PanicError
		if errors.As(err, &panicErr) {
			fields = append(fields, log.Bytes("stack", panicErr.Stack))
		}
		logger.Error("request failed", fields...)
	} else {
		m.stats.RecordSuccess(elapsed)
	}

	if m.sweepProbability > 0 && m.rand() < m.sweepProbability {
		if removed := m.registry.Sweep(time.Now()); removed > 0 {
			logger.Debug("idle user queues removed", log.Int("removed", removed))
		}
	}
	m.stats.metrics.SetQueues(m.registry.Len())

	return outcome
}

// Stats returns the stats the middleware records to.
func (m *Middleware) Stats() *Stats {
	return m.stats
}

// Snapshot returns a copy of the current stats.
func (m *Middleware) Snapshot() StatsSnapshot {
	return m.stats.Snapshot()
}

// InFlight returns the number of admitted and not yet settled requests.
func (m *Middleware) InFlight() int {
	return m.governor.InFlight()
}

// PeakInFlight returns the maximum number of simultaneously admitted requests.
func (m *Middleware) PeakInFlight() int {
	return m.governor.Peak()
}

// Queues returns the number of per-user queues.
func (m *Middleware) Queues() int {
	return m.registry.Len()
}

// Sweep removes idle per-user queues and returns their number.
func (m *Middleware) Sweep(now time.Time) int {
	removed := m.registry.Sweep(now)
	m.stats.metrics.SetQueues(m.registry.Len())
	return removed
}

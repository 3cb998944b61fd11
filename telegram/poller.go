/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/retry"
	"github.com/wildcardbot/gatekeeper/service"
)

// Default values for PollerOpts.
const (
	DefaultPollRetryInitialInterval = time.Second
	DefaultPollRetryMaxInterval     = time.Minute
	DefaultDrainTimeout             = 10 * time.Second
)

// UpdateHandler handles a single update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *Update) error
}

// UpdateHandlerFunc is an adapter to allow the use of ordinary functions as UpdateHandler.
type UpdateHandlerFunc func(ctx context.Context, update *Update) error

// HandleUpdate calls f(ctx, update).
func (f UpdateHandlerFunc) HandleUpdate(ctx context.Context, update *Update) error {
	return f(ctx, update)
}

// UpdateSubmitter is implemented by handlers that must receive updates in delivery order.
// The poller calls SubmitUpdate from its loop one update after another, so it must not block.
// The returned wait function finishes handling and is called in a separate goroutine.
type UpdateSubmitter interface {
	SubmitUpdate(ctx context.Context, update *Update) (wait func() error)
}

// UpdatesGetter fetches updates from the Bot API. It is implemented by Client.
type UpdatesGetter interface {
	GetUpdates(ctx context.Context, offset int64, limit int, timeout time.Duration) ([]Update, error)
}

// PollerOpts contains optional parameters for constructing Poller.
type PollerOpts struct {
	Logger log.FieldLogger

	// PollTimeout is a long polling timeout passed to getUpdates.
	PollTimeout time.Duration
	PollLimit   int

	// RetryPolicy is used for failed getUpdates calls. Exponential backoff without attempts limit is used by default.
	RetryPolicy retry.Policy

	// DrainTimeout bounds waiting for dispatched updates after the poller is stopped.
	// Their context is canceled when it expires.
	DrainTimeout time.Duration
}

// Poller is a service.Worker that long-polls updates and passes each of them
// to the handler in a separate goroutine. If the handler implements UpdateSubmitter,
// updates are submitted in delivery order before their goroutines start.
type Poller struct {
	getter       UpdatesGetter
	handler      UpdateHandler
	logger       log.FieldLogger
	pollTimeout  time.Duration
	pollLimit    int
	retryPolicy  retry.Policy
	drainTimeout time.Duration

	offset       atomic.Int64
	lastPolledAt atomic.Time
	wg           sync.WaitGroup
}

var _ service.Worker = (*Poller)(nil)

// NewPoller creates a new Poller.
func NewPoller(getter UpdatesGetter, handler UpdateHandler, opts PollerOpts) *Poller {
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.PollLimit == 0 {
		opts.PollLimit = DefaultPollLimit
	}
	if opts.RetryPolicy == nil {
		opts.RetryPolicy = retry.NewExponentialBackoffPolicy(DefaultPollRetryInitialInterval, 0).
			WithMaxInterval(DefaultPollRetryMaxInterval)
	}
	if opts.DrainTimeout == 0 {
		opts.DrainTimeout = DefaultDrainTimeout
	}
	return &Poller{
		getter:       getter,
		handler:      handler,
		logger:       opts.Logger,
		pollTimeout:  opts.PollTimeout,
		pollLimit:    opts.PollLimit,
		retryPolicy:  opts.RetryPolicy,
		drainTimeout: opts.DrainTimeout,
	}
}

// Offset returns the identifier of the next expected update.
func (p *Poller) Offset() int64 {
	return p.offset.Load()
}

// LastPolledAt returns the time of the last successful getUpdates call.
func (p *Poller) LastPolledAt() time.Time {
	return p.lastPolledAt.Load()
}

// Run polls updates until ctx is done. It returns an error only when polling cannot continue
// (e.g. the token is rejected). Before returning it waits for dispatched updates.
func (p *Poller) Run(ctx context.Context) error {
	dispatchCtx, cancelDispatch := context.WithCancel(context.Background())
	defer cancelDispatch()
	defer p.drain(cancelDispatch)

	p.logger.Info("updates polling started", log.Duration("poll_timeout", p.pollTimeout))
	for {
		updates, err := p.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("updates polling stopped")
				return nil
			}
			p.logger.Error("updates polling failed", log.Error(err))
			return fmt.Errorf("poll updates: %w", err)
		}
		for i := range updates {
			update := updates[i]
			if update.UpdateID >= p.offset.Load() {
				p.offset.Store(update.UpdateID + 1)
			}
			p.wg.Add(1)
			go p.await(update.UpdateID, p.submit(dispatchCtx, &update))
		}
	}
}

func (p *Poller) poll(ctx context.Context) ([]Update, error) {
	var updates []Update
	notify := func(err error, delay time.Duration) {
		p.logger.Warn("getting updates failed, retrying", log.Error(err), log.Duration("delay", delay))
	}
	err := retry.DoWithRetry(ctx, p.retryPolicy, isRetryablePollError, notify, func(ctx context.Context) error {
		var getErr error
		updates, getErr = p.getter.GetUpdates(ctx, p.offset.Load(), p.pollLimit, p.pollTimeout)
		return getErr
	})
	if err == nil {
		p.lastPolledAt.Store(time.Now())
	}
	return updates, err
}

func isRetryablePollError(err error) bool {
	return !errors.Is(err, ErrUnauthorized) && !errors.Is(err, context.Canceled)
}

func (p *Poller) submit(ctx context.Context, update *Update) (wait func() error) {
	if submitter, ok := p.handler.(UpdateSubmitter); ok {
		return submitter.SubmitUpdate(ctx, update)
	}
	return func() error { return p.handler.HandleUpdate(ctx, update) }
}

func (p *Poller) await(updateID int64, wait func() error) {
	defer p.wg.Done()
	if err := wait(); err != nil {
		p.logger.Error("update handling failed", log.UpdateID(updateID), log.Error(err))
	}
}

func (p *Poller) drain(cancelDispatch context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(p.drainTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return
	case <-timer.C:
		p.logger.Warn("dispatched updates are not finished in time, canceling them",
			log.Duration("drain_timeout", p.drainTimeout))
	}
	cancelDispatch()
	<-done
}

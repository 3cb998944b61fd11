/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package timeout

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultTimeout is a default deadline for a single unit of work.
const DefaultTimeout = 30 * time.Second

// ErrTimeout is the error with which a Promise settles when its deadline elapses first.
var ErrTimeout = errors.New("request timeout")

// Promise is a one-shot settlement handle with a deadline.
type Promise struct {
	mu      sync.Mutex
	settled bool
	err     error
	done    chan struct{}
	timer   *time.Timer
}

// New creates a new Promise that settles with ErrTimeout after d unless it is settled earlier.
// Non-positive d means DefaultTimeout.
func New(d time.Duration) *Promise {
	if d <= 0 {
		d = DefaultTimeout
	}
	p := &Promise{done: make(chan struct{})}
	p.mu.Lock()
	p.timer = time.AfterFunc(d, func() { p.settle(ErrTimeout) })
	p.mu.Unlock()
	return p
}

// Resolve settles the promise successfully.
// It returns false if the promise has been settled before (by completion or by timeout).
func (p *Promise) Resolve() bool {
	return p.settle(nil)
}

// Reject settles the promise with the given error.
// It returns false if the promise has been settled before (by completion or by timeout).
func (p *Promise) Reject(err error) bool {
	if err == nil {
		err = errors.New("promise rejected with nil error")
	}
	return p.settle(err)
}

func (p *Promise) settle(err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return false
	}
	p.settled = true
	p.err = err
	if p.timer != nil {
		p.timer.Stop()
	}
	close(p.done)
	return true
}

// Done returns a channel that is closed when the promise is settled.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Err returns the settlement error. It is nil while the promise is pending or when it has been resolved.
func (p *Promise) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Wait blocks until the promise is settled and returns its error.
// If ctx is done first, ctx.Err() is returned and the promise stays pending.
func (p *Promise) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

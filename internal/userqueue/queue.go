/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package userqueue

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/wildcardbot/gatekeeper/internal/timeout"
)

// Operation is a unit of work executed by the queue.
type Operation func(ctx context.Context) error

// PanicError is returned to the enqueuer when its operation panics.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("operation panicked: %v", e.Value)
}

type workItem struct {
	ctx     context.Context
	op      Operation
	promise *timeout.Promise
}

// Queue is a FIFO of operations that belong to a single user.
type Queue struct {
	params Params

	mu           sync.Mutex
	items        []*workItem
	draining     bool
	windowCount  int
	windowStart  time.Time
	lastActivity time.Time
}

// NewQueue creates a new empty Queue.
func NewQueue(params Params) *Queue {
	now := time.Now()
	return &Queue{params: params.withDefaults(), windowStart: now, lastActivity: now}
}

// Push appends op to the tail of the queue, starts draining if needed and returns without waiting.
// The promise settles with the operation's own error, or with timeout.ErrTimeout if the operation
// has not finished within Params.Timeout since Push. The deadline does not cancel the operation.
func (q *Queue) Push(ctx context.Context, op Operation) *timeout.Promise {
	item := &workItem{ctx: ctx, op: op, promise: timeout.New(q.params.Timeout)}

	q.mu.Lock()
	q.items = append(q.items, item)
	q.lastActivity = time.Now()
	startDrain := !q.draining
	q.draining = true
	q.mu.Unlock()

	if startDrain {
		go q.drain()
	}
	return item.promise
}

// Len returns the number of pending (not yet dequeued) operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Draining reports whether the drain loop is running.
func (q *Queue) Draining() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}

// LastActivity returns the time of the last enqueue or settlement.
func (q *Queue) LastActivity() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastActivity
}

// Idle reports whether the queue is empty, not draining and inactive for longer than threshold.
func (q *Queue) Idle(now time.Time, threshold time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0 && !q.draining && now.Sub(q.lastActivity) > threshold
}

func (q *Queue) drain() {
	for {
		item, ok := q.dequeue()
		if !ok {
			return
		}
		if item == nil {
			time.Sleep(q.params.RateLimitedPause)
			continue
		}

		q.execute(item)

		if q.Len() > q.params.BacklogPauseThreshold {
			time.Sleep(q.params.BacklogPause)
		}
	}
}

// dequeue takes the head item if the rate limit allows it.
// It returns (nil, true) when the limit is reached and (nil, false) when the queue is empty,
// in which case the draining flag is cleared.
func (q *Queue) dequeue() (*workItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		q.draining = false
		return nil, false
	}

	now := time.Now()
	if now.Sub(q.windowStart) > q.params.RateWindow {
		q.windowCount = 0
		q.windowStart = now
	}
	if q.windowCount >= q.params.RateLimit {
		return nil, true
	}

	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	q.windowCount++
	return item, true
}

func (q *Queue) execute(item *workItem) {
	if err := runOperation(item); err != nil {
		item.promise.Reject(err)
	} else {
		item.promise.Resolve()
	}

	q.mu.Lock()
	q.lastActivity = time.Now()
	q.mu.Unlock()
}

func runOperation(item *workItem) (err error) {
	defer func() {
		if p := recover(); p != nil {
			const stackSize = 8192
			stack := make([]byte, stackSize)
			stack = stack[:runtime.Stack(stack, false)]
			err = &PanicError{Value: p, Stack: stack}
		}
	}()
	return item.op(item.ctx)
}

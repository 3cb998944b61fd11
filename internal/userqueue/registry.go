/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package userqueue

import (
	"context"
	"sync"
	"time"

	"github.com/wildcardbot/gatekeeper/internal/timeout"
)

// Registry maps user identities to their queues.
type Registry struct {
	params Params

	mu     sync.Mutex
	queues map[int64]*Queue
}

// NewRegistry creates a new empty Registry. Every queue it creates uses params.
func NewRegistry(params Params) *Registry {
	return &Registry{params: params.withDefaults(), queues: make(map[int64]*Queue)}
}

// GetOrCreate returns the queue of the given user, creating it on first access.
func (r *Registry) GetOrCreate(userID int64) *Queue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(userID)
}

func (r *Registry) getOrCreateLocked(userID int64) *Queue {
	q, ok := r.queues[userID]
	if !ok {
		q = NewQueue(r.params)
		r.queues[userID] = q
	}
	return q
}

// Submit puts op into the user's queue without waiting and returns the promise op settles.
// Operations submitted one after another for the same user run in submission order.
// Lookup and push happen under the registry lock, so Sweep cannot remove the queue in between.
func (r *Registry) Submit(ctx context.Context, userID int64, op Operation) *timeout.Promise {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(userID).Push(ctx, op)
}

// Sweep removes queues that are empty, not draining and inactive for longer than the idle threshold.
// It returns the number of removed queues.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for userID, q := range r.queues {
		if q.Idle(now, r.params.IdleThreshold) {
			delete(r.queues, userID)
			removed++
		}
	}
	return removed
}

// Len returns the number of registered queues.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}

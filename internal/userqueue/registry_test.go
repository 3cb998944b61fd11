/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package userqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/wildcardbot/gatekeeper/internal/timeout"
)

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistry(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (s *RegistryTestSuite) TestGetOrCreate() {
	r := NewRegistry(Params{})
	q1 := r.GetOrCreate(1)
	s.Same(q1, r.GetOrCreate(1))
	s.NotSame(q1, r.GetOrCreate(2))
	s.Equal(2, r.Len())
}

func (s *RegistryTestSuite) TestSubmit_UsersAreIndependent() {
	r := NewRegistry(Params{RateLimit: 5, RateWindow: time.Second})

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = submitAndWait(context.Background(), r, 1, func(ctx context.Context) error { return nil })
		}()
	}

	var userBElapsed time.Duration
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.NoError(submitAndWait(context.Background(), r, 2, func(ctx context.Context) error { return nil }))
		userBElapsed = time.Since(start)
	}()

	wg.Wait()
	s.Less(userBElapsed, 300*time.Millisecond, "user B must not be affected by user A's limiter")
	s.GreaterOrEqual(time.Since(start), 900*time.Millisecond, "user A's 6th operation must wait for the window reset")
}

func (s *RegistryTestSuite) TestSweep_RemovesIdleQueues() {
	r := NewRegistry(Params{RateLimit: 1, RateWindow: time.Hour, IdleThreshold: 50 * time.Millisecond})

	s.NoError(submitAndWait(context.Background(), r, 1, func(ctx context.Context) error { return nil }))
	oldQueue := r.GetOrCreate(1)
	s.Eventually(func() bool { return !oldQueue.Draining() }, time.Second, 10*time.Millisecond)

	s.Equal(0, r.Sweep(time.Now()), "recently active queue must be kept")
	time.Sleep(100 * time.Millisecond)
	s.Equal(1, r.Sweep(time.Now()))
	s.Equal(0, r.Len())

	// The same user gets a fresh queue without the previous rate window.
	// With RateLimit=1 and a one-hour window the old queue would have blocked this call.
	newQueue := r.GetOrCreate(1)
	s.NotSame(oldQueue, newQueue)
	s.NoError(submitAndWait(context.Background(), r, 1, func(ctx context.Context) error { return nil }))
}

func (s *RegistryTestSuite) TestSweep_KeepsBusyQueues() {
	r := NewRegistry(Params{RateLimit: 100, IdleThreshold: time.Millisecond})
	q := r.GetOrCreate(1)

	release := make(chan struct{})
	blocked := q.Push(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})
	pending := q.Push(context.Background(), func(ctx context.Context) error { return nil })

	s.Eventually(func() bool { return q.Len() == 1 }, time.Second, 5*time.Millisecond)
	s.Equal(0, r.Sweep(time.Now().Add(time.Hour)), "queue with pending items must not be swept")
	s.Equal(1, r.Len())

	close(release)
	s.NoError(blocked.Wait(context.Background()))
	s.NoError(pending.Wait(context.Background()))
}

func (s *RegistryTestSuite) TestSubmit_KeepsSubmissionOrder() {
	r := NewRegistry(Params{RateLimit: 1000})

	var mu sync.Mutex
	var order []int
	promises := make([]*timeout.Promise, 0, 50)
	for i := 0; i < 50; i++ {
		n := i
		promises = append(promises, r.Submit(context.Background(), 7, func(ctx context.Context) error {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			return nil
		}))
	}
	for _, p := range promises {
		s.NoError(p.Wait(context.Background()))
	}

	want := make([]int, 50)
	for i := range want {
		want[i] = i
	}
	s.Equal(want, order)
	s.Equal(1, r.Len())
}

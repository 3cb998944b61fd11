/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package inflightlimit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type GovernorTestSuite struct {
	suite.Suite
}

func TestGovernor(t *testing.T) {
	suite.Run(t, new(GovernorTestSuite))
}

func (s *GovernorTestSuite) TestNewGovernor() {
	tests := []struct {
		name    string
		limit   int
		wantErr string
	}{
		{name: "positive limit", limit: 100},
		{name: "zero limit", limit: 0, wantErr: "limit should be positive"},
		{name: "negative limit", limit: -1, wantErr: "limit should be positive"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			g, err := NewGovernor(tt.limit)
			if tt.wantErr != "" {
				s.ErrorContains(err, tt.wantErr)
				s.Nil(g)
				return
			}
			s.NoError(err)
			s.Equal(tt.limit, g.Limit())
			s.Equal(0, g.InFlight())
			s.Equal(0, g.Peak())
		})
	}
}

func (s *GovernorTestSuite) TestMustNewGovernor_Panics() {
	s.Panics(func() { MustNewGovernor(0) })
}

func (s *GovernorTestSuite) TestTryAcquire_Ceiling() {
	g := MustNewGovernor(2)
	s.True(g.TryAcquire())
	s.True(g.TryAcquire())
	s.False(g.TryAcquire())
	s.Equal(2, g.InFlight())

	g.Release()
	s.Equal(1, g.InFlight())
	s.True(g.TryAcquire())
	s.Equal(2, g.Peak())
}

func (s *GovernorTestSuite) TestPeak_ObservedBeforeAdmission() {
	g := MustNewGovernor(3)
	s.True(g.TryAcquire())
	s.Equal(0, g.Peak(), "a lone request sees nothing in flight")

	s.True(g.TryAcquire())
	s.Equal(1, g.Peak())

	g.Release()
	g.Release()
	s.True(g.TryAcquire())
	s.Equal(1, g.Peak(), "peak is never lowered")
}

func (s *GovernorTestSuite) TestRelease_WithoutAcquire() {
	g := MustNewGovernor(1)
	g.Release()
	s.Equal(0, g.InFlight())
	s.True(g.TryAcquire())
}

func (s *GovernorTestSuite) TestTryAcquire_Concurrent() {
	const limit = 100
	g := MustNewGovernor(limit)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted, rejected := 0, 0
	start := make(chan struct{})
	for i := 0; i < limit+1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok := g.TryAcquire()
			mu.Lock()
			defer mu.Unlock()
			if ok {
				admitted++
			} else {
				rejected++
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(limit, admitted)
	s.Equal(1, rejected)
	s.Equal(limit, g.Peak())
}

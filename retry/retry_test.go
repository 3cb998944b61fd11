/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

var errTemporary = errors.New("temporary")

func TestDoWithRetry(t *testing.T) {
	t.Run("succeeds after retries", func(t *testing.T) {
		calls := 0
		var notified []time.Duration
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5), nil,
			func(err error, d time.Duration) { notified = append(notified, d) },
			func(ctx context.Context) error {
				calls++
				if calls < 3 {
					return errTemporary
				}
				return nil
			})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
		require.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, notified)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 2), nil, nil,
			func(ctx context.Context) error {
				calls++
				return errTemporary
			})
		require.ErrorIs(t, err, errTemporary)
		require.Equal(t, 3, calls)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		errUnauthorized := errors.New("unauthorized")
		calls := 0
		err := DoWithRetry(context.Background(), NewExponentialBackoffPolicy(time.Millisecond, 0),
			func(err error) bool { return !errors.Is(err, errUnauthorized) }, nil,
			func(ctx context.Context) error {
				calls++
				return errUnauthorized
			})
		require.ErrorIs(t, err, errUnauthorized)
		require.Equal(t, 1, calls)
	})

	t.Run("context cancellation stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := DoWithRetry(ctx, NewExponentialBackoffPolicy(10*time.Millisecond, 0), nil, nil,
			func(ctx context.Context) error { return errTemporary })
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestExponentialBackoffPolicy(t *testing.T) {
	b := NewExponentialBackoffPolicy(100*time.Millisecond, 0).WithMaxInterval(200 * time.Millisecond).NewBackOff()
	for i := 0; i < 10; i++ {
		d := b.NextBackOff()
		require.NotEqual(t, backoff.Stop, d)
		require.LessOrEqual(t, d, 300*time.Millisecond) // max interval plus randomization
	}
}

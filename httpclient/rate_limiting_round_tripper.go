/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Defaults of the client side rate limiting.
const (
	DefaultRateLimitBurst       = 1
	DefaultRateLimitWaitTimeout = 15 * time.Second
)

// ErrRateLimitWait is returned when the next free slot of the limiter is further than the wait timeout.
var ErrRateLimitWait = errors.New("client side rate limit exceeded")

// RateLimitOpts represents options for RateLimitingRoundTripper. Zero values mean defaults.
type RateLimitOpts struct {
	Burst       int
	WaitTimeout time.Duration
}

// RateLimitingRoundTripper keeps outgoing requests under perSecond.
// The Bot API answers with 429 above roughly 30 messages per second per bot.
type RateLimitingRoundTripper struct {
	next        http.RoundTripper
	limiter     *rate.Limiter
	waitTimeout time.Duration
}

// NewRateLimitingRoundTripper creates a RateLimitingRoundTripper.
func NewRateLimitingRoundTripper(
	next http.RoundTripper, perSecond int, opts RateLimitOpts,
) (*RateLimitingRoundTripper, error) {
	if perSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be positive, got %d", perSecond)
	}
	switch {
	case opts.Burst < 0:
		return nil, fmt.Errorf("burst must not be negative, got %d", opts.Burst)
	case opts.Burst == 0:
		opts.Burst = DefaultRateLimitBurst
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = DefaultRateLimitWaitTimeout
	}
	return &RateLimitingRoundTripper{
		next:        next,
		limiter:     rate.NewLimiter(rate.Limit(perSecond), opts.Burst),
		waitTimeout: opts.WaitTimeout,
	}, nil
}

// RoundTrip reserves a slot and waits for it. A slot further than the wait timeout is not waited for at all.
func (rt *RateLimitingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	fail := func(err error) (*http.Response, error) {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	reservation := rt.limiter.Reserve()
	delay := reservation.Delay()
	if delay > rt.waitTimeout {
		reservation.Cancel()
		return fail(fmt.Errorf("%w: next slot in %s, wait timeout is %s", ErrRateLimitWait, delay, rt.waitTimeout))
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			reservation.Cancel()
			return fail(ctx.Err())
		}
	}
	return rt.next.RoundTrip(req)
}

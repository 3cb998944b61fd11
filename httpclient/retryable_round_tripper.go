/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/retry"
)

// Defaults of RetryableRoundTripper.
const (
	DefaultMaxRetries         = 3
	DefaultRetryInitialDelay  = time.Second
	DefaultRetryMaxDelay      = 30 * time.Second
	DefaultMaxRetryAfter      = 30 * time.Second
	maxRetryAfterBodyPeekSize = 4096
)

// RetryAttemptHeader carries the number of the repeated attempt, starting from 1.
const RetryAttemptHeader = "X-Retry-Attempt"

// RetryOpts represents options for RetryableRoundTripper. Zero values mean defaults.
type RetryOpts struct {
	Logger log.FieldLogger

	// MaxRetries is the number of requests sent after the first one.
	MaxRetries int

	// Policy gives delays when the Bot API has not asked for one.
	Policy retry.Policy

	// MaxRetryAfter caps the delay asked for by the Bot API. A 429 with a longer one is returned as is.
	MaxRetryAfter time.Duration
}

// RetryableRoundTripper repeats Bot API requests after temporary network errors and 429 answers.
// 5xx answers are repeated only for idempotent requests: a sendMessage that reached the server may have been delivered.
type RetryableRoundTripper struct {
	next http.RoundTripper
	opts RetryOpts
}

// NewRetryableRoundTripper creates a RetryableRoundTripper.
func NewRetryableRoundTripper(next http.RoundTripper, opts RetryOpts) (*RetryableRoundTripper, error) {
	if opts.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must not be negative, got %d", opts.MaxRetries)
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.Policy == nil {
		opts.Policy = retry.NewExponentialBackoffPolicy(DefaultRetryInitialDelay, 0).WithMaxInterval(DefaultRetryMaxDelay)
	}
	if opts.MaxRetryAfter <= 0 {
		opts.MaxRetryAfter = DefaultMaxRetryAfter
	}
	return &RetryableRoundTripper{next: next, opts: opts}, nil
}

// RoundTrip sends req and repeats it while the outcome is retryable and attempts are left.
// Waiting between attempts stops with the request context, the last response is returned then.
func (rt *RetryableRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	newBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	bf := backoff.WithContext(rt.opts.Policy.NewBackOff(), ctx)
	logger := rt.opts.Logger.With(log.String("request_type", GetRequestTypeFromContext(ctx)))

	attemptReq := req
	for attempt := 1; ; attempt++ {
		resp, rtErr := rt.next.RoundTrip(attemptReq)
		if attempt > rt.opts.MaxRetries {
			return resp, rtErr
		}
		delay, ok := rt.retryDelay(attemptReq, resp, rtErr, bf, logger)
		if !ok {
			return resp, rtErr
		}
		logger.Warn("repeating bot api request", append(outcomeFields(resp, rtErr),
			log.Int("attempt", attempt), log.DurationIn(delay, time.Millisecond))...)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return resp, rtErr
		case <-timer.C:
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		attemptReq = req.Clone(ctx)
		if attemptReq.Body, err = newBody(); err != nil {
			return nil, err
		}
		attemptReq.Header.Set(RetryAttemptHeader, strconv.Itoa(attempt))
	}
}

// retryDelay decides whether the outcome of an attempt is worth repeating and how long to wait before.
func (rt *RetryableRoundTripper) retryDelay(
	req *http.Request, resp *http.Response, rtErr error, bf backoff.BackOff, logger log.FieldLogger,
) (time.Duration, bool) {
	switch {
	case rtErr != nil:
		if req.Context().Err() != nil || !IsTemporaryError(rtErr) {
			return 0, false
		}
	case resp.StatusCode == http.StatusTooManyRequests:
	case resp.StatusCode >= http.StatusInternalServerError:
		if !isIdempotent(req) {
			return 0, false
		}
	default:
		return 0, false
	}

	if resp != nil {
		if asked, ok := retryAfter(resp); ok {
			if asked > rt.opts.MaxRetryAfter {
				logger.Warn("bot api asked to wait too long, giving up",
					log.Duration("retry_after", asked), log.Duration("max_retry_after", rt.opts.MaxRetryAfter))
				return 0, false
			}
			return asked, true
		}
	}
	delay := bf.NextBackOff()
	return delay, delay != backoff.Stop
}

func outcomeFields(resp *http.Response, rtErr error) []log.Field {
	if rtErr != nil {
		return []log.Field{log.Error(rtErr)}
	}
	return []log.Field{log.Int("status", resp.StatusCode)}
}

func isIdempotent(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return GetIdempotentHintFromContext(req.Context())
}

// IsTemporaryError reports whether a transport error may go away on the next attempt.
func IsTemporaryError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// replayableBody returns a constructor of fresh copies of the request body.
// A body without GetBody is read into memory once.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	switch {
	case req.Body == nil || req.Body == http.NoBody:
		return func() (io.ReadCloser, error) { return req.Body, nil }, nil
	case req.GetBody != nil:
		return req.GetBody, nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body for retries: %w", err)
	}
	newBody := func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil }
	req.Body, _ = newBody()
	return newBody, nil
}

// retryAfter reads the delay from the Retry-After header or, for 429, from "parameters.retry_after"
// of the Bot API answer. The body is left readable from the start.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	if val := resp.Header.Get("Retry-After"); val != "" {
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second, secs >= 0
		}
		if at, err := http.ParseTime(val); err == nil {
			return time.Until(at), true
		}
		return 0, false
	}
	if resp.StatusCode != http.StatusTooManyRequests || resp.Body == nil {
		return 0, false
	}

	peeked, err := io.ReadAll(io.LimitReader(resp.Body, maxRetryAfterBodyPeekSize))
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(peeked), resp.Body), resp.Body}
	if err != nil {
		return 0, false
	}
	var answer struct {
		Parameters struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	if json.Unmarshal(peeked, &answer) != nil || answer.Parameters.RetryAfter <= 0 {
		return 0, false
	}
	return time.Duration(answer.Parameters.RetryAfter) * time.Second, true
}

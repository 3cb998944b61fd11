/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds the HTTP client used for outgoing Bot API requests
// from a chain of round trippers: retries, user agent, client side rate limiting, metrics and logging.
package httpclient

import (
	"fmt"
	"net/http"

	"github.com/wildcardbot/gatekeeper/log"
)

// Opts provides options for New and Must.
type Opts struct {
	UserAgent string

	// Delegate is the innermost RoundTripper. A clone of http.DefaultTransport is used when nil.
	Delegate http.RoundTripper

	Logger log.FieldLogger

	// Collector receives request durations when metrics are enabled in the config.
	Collector MetricsCollector
}

// New creates an HTTP client. The request passes the round trippers in this order:
// retryable, user agent, rate limiting, metrics, logging, delegate.
// So every retry attempt waits for the rate limiter and is measured and logged separately.
func New(cfg *Config, opts Opts) (*http.Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}

	if cfg.Log.Enabled {
		delegate = NewLoggingRoundTripper(delegate, logger, LoggingRoundTripperOpts{
			Mode:                 cfg.Log.Mode,
			SlowRequestThreshold: cfg.Log.SlowRequestThreshold,
		})
	}

	if cfg.Metrics.Enabled && opts.Collector != nil {
		delegate = NewMetricsRoundTripper(delegate, opts.Collector)
	}

	if cfg.RateLimits.Enabled {
		var err error
		delegate, err = NewRateLimitingRoundTripper(delegate, cfg.RateLimits.PerSecond, RateLimitOpts{
			Burst:       cfg.RateLimits.Burst,
			WaitTimeout: cfg.RateLimits.WaitTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create rate limiting round tripper: %w", err)
		}
	}

	if opts.UserAgent != "" {
		delegate = NewUserAgentRoundTripper(delegate, opts.UserAgent)
	}

	if cfg.Retries.Enabled {
		var err error
		delegate, err = NewRetryableRoundTripper(delegate, RetryOpts{
			Logger:        logger,
			MaxRetries:    cfg.Retries.MaxRetries,
			Policy:        cfg.Retries.Policy(),
			MaxRetryAfter: cfg.Retries.MaxRetryAfter,
		})
		if err != nil {
			return nil, fmt.Errorf("create retryable round tripper: %w", err)
		}
	}

	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}, nil
}

// Must is like New but panics on error.
func Must(cfg *Config, opts Opts) *http.Client {
	client, err := New(cfg, opts)
	if err != nil {
		panic(err)
	}
	return client
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
	"time"

	"github.com/wildcardbot/gatekeeper/log"
)

// LoggingMode selects which outgoing requests are logged.
type LoggingMode string

// Logging modes.
const (
	LoggingModeNone   LoggingMode = "none"
	LoggingModeAll    LoggingMode = "all"
	LoggingModeFailed LoggingMode = "failed"
)

// LoggingRoundTripperOpts represents options for LoggingRoundTripper.
type LoggingRoundTripperOpts struct {
	// Mode defaults to LoggingModeAll.
	Mode LoggingMode

	// SlowRequestThreshold hides successful requests faster than it in LoggingModeAll.
	SlowRequestThreshold time.Duration
}

// LoggingRoundTripper logs outgoing Bot API requests. The URL is not logged since its path holds the bot token,
// the request type and host identify the call instead.
type LoggingRoundTripper struct {
	next   http.RoundTripper
	logger log.FieldLogger
	opts   LoggingRoundTripperOpts
}

// NewLoggingRoundTripper creates a LoggingRoundTripper.
func NewLoggingRoundTripper(next http.RoundTripper, logger log.FieldLogger, opts LoggingRoundTripperOpts) *LoggingRoundTripper {
	if opts.Mode == "" {
		opts.Mode = LoggingModeAll
	}
	return &LoggingRoundTripper{next: next, logger: logger, opts: opts}
}

// RoundTrip passes the request on and logs the outcome according to the mode.
func (rt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.opts.Mode == LoggingModeNone {
		return rt.next.RoundTrip(req)
	}

	started := time.Now()
	resp, err := rt.next.RoundTrip(req)
	elapsed := time.Since(started)

	var level func(string, ...log.Field)
	msg := "bot api request completed"
	fields := []log.Field{
		log.String("request_type", requestTypeOrDefault(req)),
		log.String("host", req.URL.Host),
		log.DurationIn(elapsed, time.Millisecond),
	}
	switch {
	case err != nil:
		level, msg = rt.logger.Error, "bot api request failed"
		fields = append(fields, log.Error(err))
	case resp.StatusCode >= http.StatusBadRequest:
		level = rt.logger.Warn
		fields = append(fields, log.Int("status", resp.StatusCode))
	case rt.opts.Mode == LoggingModeAll && elapsed >= rt.opts.SlowRequestThreshold:
		level = rt.logger.Info
		fields = append(fields, log.Int("status", resp.StatusCode))
	default:
		return resp, err
	}
	level(msg, fields...)
	return resp, err
}

func requestTypeOrDefault(req *http.Request) string {
	if requestType := GetRequestTypeFromContext(req.Context()); requestType != "" {
		return requestType
	}
	return DefaultRequestType
}

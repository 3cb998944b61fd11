/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package middleware contains the HTTP middlewares of the operational endpoint.
package middleware

import (
	"context"
	"time"

	"github.com/wildcardbot/gatekeeper/log"
)

// RequestInfo is attached to the context of every request by RequestInfoHandler.
// Logging replaces Logger with one carrying the request fields.
type RequestInfo struct {
	ID        string
	StartTime time.Time
	Logger    log.FieldLogger
}

type requestInfoKey struct{}

// NewContextWithRequestInfo returns a context carrying a copy of info.
func NewContextWithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext returns the info attached to ctx and whether there was any.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

// LoggerFromContext returns the request logger or a disabled one, so handlers never check for nil.
func LoggerFromContext(ctx context.Context) log.FieldLogger {
	if info, ok := RequestInfoFromContext(ctx); ok && info.Logger != nil {
		return info.Logger
	}
	return log.NewDisabledLogger()
}

/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package dispatch

import (
	"context"

	"github.com/wildcardbot/gatekeeper/telegram"
)

// Handler handles a single update. It is called at most once per update.
type Handler interface {
	HandleUpdate(ctx context.Context, update *telegram.Update) error
}

// HandlerFunc is an adapter to allow the use of ordinary functions as Handler.
type HandlerFunc func(ctx context.Context, update *telegram.Update) error

// HandleUpdate calls f(ctx, update).
func (f HandlerFunc) HandleUpdate(ctx context.Context, update *telegram.Update) error {
	return f(ctx, update)
}

type ctxKey int

const ctxKeyRequestID ctxKey = iota

// NewContextWithRequestID creates a new context with the request id assigned to an admitted update.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// GetRequestIDFromContext extracts the request id from the context.
func GetRequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(ctxKeyRequestID).(string)
	return requestID
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/restapi"
)

// DefaultPanicStackSize is the number of stack bytes logged with a panic.
const DefaultPanicStackSize = 8192

// RecoveryOpts represents options for Recovery middleware.
type RecoveryOpts struct {
	// StackSize of 0 means DefaultPanicStackSize, a negative one disables stack logging.
	StackSize int
}

// Recovery returns a middleware that turns a panic of a handler into an internal error response.
// http.ErrAbortHandler is logged and re-panicked so net/http aborts the connection.
func Recovery(opts RecoveryOpts) func(next http.Handler) http.Handler {
	if opts.StackSize == 0 {
		opts.StackSize = DefaultPanicStackSize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				logger := LoggerFromContext(r.Context())
				if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					logger.Warn("request aborted")
					panic(p)
				}
				fields := []log.Field{log.String("panic", fmt.Sprint(p))}
				if opts.StackSize > 0 {
					stack := make([]byte, opts.StackSize)
					fields = append(fields, log.Bytes("stack", stack[:runtime.Stack(stack, false)]))
				}
				logger.Error("handler panicked", fields...)
				restapi.RespondError(rw, restapi.NewInternalError(), logger)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

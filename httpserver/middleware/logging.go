/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/wildcardbot/gatekeeper/log"
)

// LoggingOpts represents options for Logging middleware.
type LoggingOpts struct {
	RequestStart bool
	// Successful responses of these paths are not logged. Prometheus and the orchestrator hit them every few seconds.
	ExcludedEndpoints []string
}

// Logging returns a middleware that logs every completed request and puts the request logger into RequestInfo.
func Logging(logger log.FieldLogger, opts LoggingOpts) func(next http.Handler) http.Handler {
	excluded := make(map[string]struct{}, len(opts.ExcludedEndpoints))
	for _, path := range opts.ExcludedEndpoints {
		excluded[path] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			info, ok := RequestInfoFromContext(r.Context())
			if !ok {
				info.StartTime = time.Now()
			}
			info.Logger = logger.With(
				log.RequestID(info.ID),
				log.String("method", r.Method),
				log.String("path", r.URL.Path),
				log.String("remote_addr", r.RemoteAddr),
			)
			_, quiet := excluded[r.URL.Path]
			if opts.RequestStart && !quiet {
				info.Logger.Info("request started", log.String("user_agent", r.UserAgent()))
			}

			wrw := chimiddleware.NewWrapResponseWriter(rw, r.ProtoMajor)
			next.ServeHTTP(wrw, r.WithContext(NewContextWithRequestInfo(r.Context(), info)))

			status := wrw.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if quiet && status < http.StatusBadRequest {
				return
			}
			info.Logger.Info("request completed",
				log.Int("status", status),
				log.Int("bytes_sent", wrw.BytesWritten()),
				log.DurationIn(time.Since(info.StartTime), time.Millisecond),
			)
		})
	}
}

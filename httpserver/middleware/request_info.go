/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"time"

	"github.com/rs/xid"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// MaxRequestIDLength limits ids taken from the request header. Longer or non-printable ids are replaced.
const MaxRequestIDLength = 64

// RequestInfoOpts represents options for RequestInfoHandler.
type RequestInfoOpts struct {
	// GenerateID defaults to an xid.
	GenerateID func() string
	// Now defaults to time.Now.
	Now func() time.Time
}

// RequestInfoHandler returns a middleware that attaches RequestInfo with the start time and id of the request.
// The id comes from the X-Request-ID header when it is usable and is echoed in the response.
func RequestInfoHandler(opts RequestInfoOpts) func(next http.Handler) http.Handler {
	if opts.GenerateID == nil {
		opts.GenerateID = func() string { return xid.New().String() }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			info := RequestInfo{StartTime: opts.Now(), ID: r.Header.Get(HeaderRequestID)}
			if !isUsableRequestID(info.ID) {
				info.ID = opts.GenerateID()
			}
			rw.Header().Set(HeaderRequestID, info.ID)
			next.ServeHTTP(rw, r.WithContext(NewContextWithRequestInfo(r.Context(), info)))
		})
	}
}

func isUsableRequestID(id string) bool {
	if id == "" || len(id) > MaxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

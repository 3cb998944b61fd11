/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnauthorized is returned when the Bot API rejects the token.
var ErrUnauthorized = errors.New("telegram: unauthorized")

// APIError is returned when the Bot API answers with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("telegram: %s failed with code %d: %s", e.Method, e.Code, e.Description)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	return msg
}

// Is makes errors.Is(err, ErrUnauthorized) true for 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

// IsTooManyRequests reports whether err is a 429 answer of the Bot API.
func IsTooManyRequests(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}

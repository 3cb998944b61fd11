/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/wildcardbot/gatekeeper/log"
)

// ErrorDomain is the domain of all errors returned by the operational endpoint.
const ErrorDomain = "WildcardBot"

// Error codes.
const (
	ErrCodeInternal         = "internalError"
	ErrCodeNotFound         = "notFound"
	ErrCodeMethodNotAllowed = "methodNotAllowed"
)

// Error is the body of a failed response. Status is sent as the HTTP status code and is not encoded.
type Error struct {
	Status  int                    `json:"-"`
	Domain  string                 `json:"domain"`
	Code    string                 `json:"code"`
	Message string                 `json:"message,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Domain, e.Code, e.Message)
}

// NewError creates an Error of ErrorDomain.
func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Domain: ErrorDomain, Code: code, Message: message}
}

// NewInternalError creates an Error for a failure the client can do nothing about.
func NewInternalError() *Error {
	return NewError(http.StatusInternalServerError, ErrCodeInternal, "Internal error.")
}

// NewNotFoundError creates an Error for an unknown path.
func NewNotFoundError(path string) *Error {
	return NewError(http.StatusNotFound, ErrCodeNotFound, "Not found.").AddContext("path", path)
}

// NewMethodNotAllowedError creates an Error for a known path requested with an unsupported method.
func NewMethodNotAllowedError(method string) *Error {
	return NewError(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed.").
		AddContext("method", method)
}

// AddContext sets a context value and returns e.
func (e *Error) AddContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = map[string]interface{}{}
	}
	e.Context[key] = value
	return e
}

// logFields describes e in a log entry. Context values are sorted by key.
func (e *Error) logFields() []log.Field {
	fields := []log.Field{
		log.Int("status", e.Status),
		log.String("error_code", e.Code),
		log.String("error_message", e.Message),
	}
	if len(e.Context) == 0 {
		return fields
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}
	return append(fields, log.Strings("error_context", pairs))
}

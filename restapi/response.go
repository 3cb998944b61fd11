/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package restapi writes JSON responses of the operational HTTP endpoint.
package restapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wildcardbot/gatekeeper/log"
)

// ContentTypeAppJSON represents MIME media type for JSON.
const ContentTypeAppJSON = "application/json"

// ErrorResponseData is the envelope of an Error in a response body.
type ErrorResponseData struct {
	Err *Error `json:"error"`
}

// RespondJSON writes data with 200 status code.
func RespondJSON(rw http.ResponseWriter, data interface{}, logger log.FieldLogger) {
	RespondCodeAndJSON(rw, http.StatusOK, data, logger)
}

// RespondCodeAndJSON writes data encoded as JSON without HTML escaping. A nil data means an empty body.
// Content-Type is set only when the handler has not chosen one.
func RespondCodeAndJSON(rw http.ResponseWriter, status int, data interface{}, logger log.FieldLogger) {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	if data == nil {
		rw.WriteHeader(status)
		return
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		logger.Error("failed to encode response body", log.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	body.Truncate(body.Len() - 1) // Encode appends a newline.

	header := rw.Header()
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", ContentTypeAppJSON)
	}
	header.Set("Content-Length", strconv.Itoa(body.Len()))
	rw.WriteHeader(status)
	if _, err := body.WriteTo(rw); err != nil {
		logger.Error("failed to write response body", log.Error(err))
	}
}

// RespondError writes apiErr with its status. Server errors are logged at "error" level, client ones at "warn".
func RespondError(rw http.ResponseWriter, apiErr *Error, logger log.FieldLogger) {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error("responding with error", apiErr.logFields()...)
	} else {
		logger.Warn("responding with error", apiErr.logFields()...)
	}
	RespondCodeAndJSON(rw, apiErr.Status, ErrorResponseData{apiErr}, logger)
}

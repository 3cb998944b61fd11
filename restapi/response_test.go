/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/log/logtest"
)

type failingWriter struct {
	*httptest.ResponseRecorder
}

func (rw *failingWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestRespondJSON(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		type snapshot struct {
			Users    int `json:"users"`
			InFlight int `json:"in_flight"`
		}
		resp := httptest.NewRecorder()
		logger := logtest.NewRecorder()
		RespondJSON(resp, snapshot{Users: 3, InFlight: 1}, logger)

		require.Equal(t, http.StatusOK, resp.Code)
		require.Equal(t, ContentTypeAppJSON, resp.Header().Get("Content-Type"))
		require.Equal(t, `{"users":3,"in_flight":1}`, resp.Body.String())
		require.Equal(t, "25", resp.Header().Get("Content-Length"))
		require.Empty(t, logger.Entries())
	})

	t.Run("html is not escaped", func(t *testing.T) {
		resp := httptest.NewRecorder()
		RespondJSON(resp, map[string]string{"text": "<b>&</b>"}, nil)
		require.Equal(t, `{"text":"<b>&</b>"}`, resp.Body.String())
	})

	t.Run("content type chosen by handler is kept", func(t *testing.T) {
		resp := httptest.NewRecorder()
		resp.Header().Set("Content-Type", "application/problem+json")
		RespondJSON(resp, "x", nil)
		require.Equal(t, "application/problem+json", resp.Header().Get("Content-Type"))
	})

	t.Run("encoding error", func(t *testing.T) {
		resp := httptest.NewRecorder()
		logger := logtest.NewRecorder()
		RespondJSON(resp, make(chan bool), logger)
		require.Equal(t, http.StatusInternalServerError, resp.Code)
		require.Empty(t, resp.Body.Bytes())
		_, found := logger.FindEntry("failed to encode response body")
		require.True(t, found)
	})

	t.Run("writing error", func(t *testing.T) {
		logger := logtest.NewRecorder()
		RespondJSON(&failingWriter{httptest.NewRecorder()}, "foo", logger)
		entry, found := logger.FindEntry("failed to write response body")
		require.True(t, found)
		require.Equal(t, log.LevelError, entry.Level)
	})

	t.Run("nil data", func(t *testing.T) {
		resp := httptest.NewRecorder()
		RespondCodeAndJSON(resp, http.StatusNoContent, nil, nil)
		require.Equal(t, http.StatusNoContent, resp.Code)
		require.Empty(t, resp.Header().Get("Content-Type"))
	})
}

func TestRespondError(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		resp := httptest.NewRecorder()
		logger := logtest.NewRecorder()
		RespondError(resp, NewNotFoundError("/unknown").AddContext("hint", "see /stats"), logger)

		require.Equal(t, http.StatusNotFound, resp.Code)
		var got ErrorResponseData
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Equal(t, ErrorDomain, got.Err.Domain)
		require.Equal(t, ErrCodeNotFound, got.Err.Code)
		require.Equal(t, "/unknown", got.Err.Context["path"])
		require.Zero(t, got.Err.Status)

		entry, found := logger.FindEntry("responding with error")
		require.True(t, found)
		require.Equal(t, log.LevelWarn, entry.Level)
		code, _ := entry.StringField("error_code")
		require.Equal(t, ErrCodeNotFound, code)
		errCtx, found := entry.FindField("error_context")
		require.True(t, found)
		require.EqualValues(t, []string{"hint=see /stats", "path=/unknown"}, errCtx.Any)
	})

	t.Run("internal error", func(t *testing.T) {
		resp := httptest.NewRecorder()
		logger := logtest.NewRecorder()
		RespondError(resp, NewInternalError(), logger)
		require.Equal(t, http.StatusInternalServerError, resp.Code)
		require.Equal(t, `{"error":{"domain":"WildcardBot","code":"internalError","message":"Internal error."}}`,
			resp.Body.String())
		require.Equal(t, 1, logger.CountAtLevel(log.LevelError))
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp := httptest.NewRecorder()
		RespondError(resp, NewMethodNotAllowedError(http.MethodPost), nil)
		require.Equal(t, http.StatusMethodNotAllowed, resp.Code)
		require.JSONEq(t, `{"error":{"domain":"WildcardBot","code":"methodNotAllowed",`+
			`"message":"Method not allowed.","context":{"method":"POST"}}}`, resp.Body.String())
	})
}

func TestError(t *testing.T) {
	var err error = NewNotFoundError("/x")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.EqualError(t, err, "WildcardBot notFound: Not found.")
}

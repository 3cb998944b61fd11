/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/wildcardbot/gatekeeper/httpserver/middleware"
	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/restapi"
)

// StatusClientClosedRequest is the non-standard status (used by Nginx) written when the caller went away.
const StatusClientClosedRequest = 499

// HealthCheckStatus is the state of one component of the bot.
type HealthCheckStatus int

// Component states.
const (
	HealthCheckStatusOK HealthCheckStatus = iota
	HealthCheckStatusFail
)

// HealthCheckResult maps component names, e.g. "telegram", to their states.
type HealthCheckResult = map[string]HealthCheckStatus

// HealthCheck reports the state of the components. It should respect ctx.
type HealthCheck = func(ctx context.Context) (HealthCheckResult, error)

type healthCheckResponseData struct {
	Components map[string]bool `json:"components"`
}

// HealthCheckHandler serves the health endpoint. It responds 200 when every component is fine,
// 503 when some component fails and 500 when the check itself fails.
type HealthCheckHandler struct {
	check HealthCheck
}

// NewHealthCheckHandler creates a HealthCheckHandler. A nil check reports no components.
func NewHealthCheckHandler(check HealthCheck) *HealthCheckHandler {
	if check == nil {
		check = func(ctx context.Context) (HealthCheckResult, error) {
			return HealthCheckResult{}, ctx.Err()
		}
	}
	return &HealthCheckHandler{check: check}
}

// ServeHTTP implements http.Handler.
func (h *HealthCheckHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.LoggerFromContext(ctx)

	result, err := h.check(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("health check canceled", log.Error(err))
			rw.WriteHeader(StatusClientClosedRequest)
			return
		}
		logger.Error("health check failed", log.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	data := healthCheckResponseData{Components: make(map[string]bool, len(result))}
	status := http.StatusOK
	for component, state := range result {
		healthy := state == HealthCheckStatusOK
		data.Components[component] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
		}
	}
	restapi.RespondCodeAndJSON(rw, status, data, logger)
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wildcardbot/gatekeeper/dispatch"
	"github.com/wildcardbot/gatekeeper/httpserver/middleware"
	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/restapi"
)

// Endpoint paths.
const (
	EndpointHealthz = "/healthz"
	EndpointMetrics = "/metrics"
	EndpointStats   = "/stats"
	EndpointDebug   = "/debug"
)

// RouterOpts represents options for creating chi.Router.
type RouterOpts struct {
	HealthCheck HealthCheck
	// MetricsHandler serves /metrics. promhttp.Handler() is used when nil.
	MetricsHandler http.Handler
	// Stats serves /stats. The endpoint is not registered when nil.
	Stats       dispatch.SnapshotProvider
	EnablePprof bool
	Logging     middleware.LoggingOpts
}

// NewRouter creates a new chi.Router with the operational endpoints.
func NewRouter(logger log.FieldLogger, opts RouterOpts) chi.Router {

	router := chi.NewRouter()
	router.Use(middleware.RequestInfoHandler(middleware.RequestInfoOpts{}))
	router.Use(middleware.Logging(logger, opts.Logging))
	router.Use(middleware.Recovery(middleware.RecoveryOpts{}))

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.Method(http.MethodGet, EndpointMetrics, metricsHandler)
	router.Method(http.MethodGet, EndpointHealthz, NewHealthCheckHandler(opts.HealthCheck))

	if opts.Stats != nil {
		router.Method(http.MethodGet, EndpointStats, NewStatsHandler(opts.Stats))
	}
	if opts.EnablePprof {
		router.Mount(EndpointDebug, chimiddleware.Profiler())
	}

	router.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		restapi.RespondError(rw, restapi.NewNotFoundError(r.URL.Path), middleware.LoggerFromContext(r.Context()))
	})
	router.MethodNotAllowed(func(rw http.ResponseWriter, r *http.Request) {
		restapi.RespondError(rw, restapi.NewMethodNotAllowedError(r.Method), middleware.LoggerFromContext(r.Context()))
	})

	return router
}

// StatsHandler serves the dispatch stats snapshot as JSON.
type StatsHandler struct {
	provider dispatch.SnapshotProvider
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(provider dispatch.SnapshotProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// ServeHTTP writes the current snapshot.
func (h *StatsHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	restapi.RespondJSON(rw, h.provider.Snapshot(), middleware.LoggerFromContext(r.Context()))
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpserver provides the operational HTTP endpoint of the bot: health-check, Prometheus metrics,
// the dispatch stats snapshot and, optionally, pprof.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/atomic"

	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/service"
)

// Opts holds optional settings of HTTPServer.
type Opts struct {
	// Handler replaces the router built by NewRouter.
	Handler http.Handler
	// Listener is served instead of listening on Config.Address.
	Listener net.Listener
	Router   RouterOpts
}

// HTTPServer is the operational endpoint run as a service.Unit.
type HTTPServer struct {
	srv      *http.Server
	cfg      *Config
	logger   log.FieldLogger
	listener net.Listener
	port     atomic.Int32
	serving  atomic.Bool
	served   chan struct{}
}

var _ service.Unit = (*HTTPServer)(nil)

// New creates an HTTPServer. Router options left empty are taken from cfg.
func New(cfg *Config, logger log.FieldLogger, opts Opts) *HTTPServer {
	handler := opts.Handler
	if handler == nil {
		handler = NewRouter(logger, routerOptsFromConfig(cfg, opts.Router))
	}
	return &HTTPServer{
		srv: &http.Server{
			Addr:              cfg.Address,
			Handler:           handler,
			ReadTimeout:       cfg.Timeouts.Read,
			ReadHeaderTimeout: cfg.Timeouts.ReadHeader,
			WriteTimeout:      cfg.Timeouts.Write,
			IdleTimeout:       cfg.Timeouts.Idle,
		},
		cfg:      cfg,
		logger:   logger.With(log.String("address", cfg.Address)),
		listener: opts.Listener,
		served:   make(chan struct{}),
	}
}

func routerOptsFromConfig(cfg *Config, opts RouterOpts) RouterOpts {
	opts.EnablePprof = opts.EnablePprof || cfg.EnablePprof
	opts.Logging.RequestStart = opts.Logging.RequestStart || cfg.Log.RequestStart
	if opts.Logging.ExcludedEndpoints == nil {
		opts.Logging.ExcludedEndpoints = cfg.Log.ExcludedEndpoints
	}
	return opts
}

// Start listens and serves until the server is stopped. A listen or serve failure is fatal.
func (s *HTTPServer) Start(fatalErr chan<- error) {
	s.serving.Store(true)
	defer close(s.served)

	if s.listener == nil {
		ln, err := net.Listen("tcp", s.srv.Addr)
		if err != nil {
			s.logger.Error("HTTP server cannot listen", log.Error(err))
			fatalErr <- err
			return
		}
		s.listener = ln
	}
	if tcpAddr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		s.port.Store(int32(tcpAddr.Port)) //nolint:gosec // ports fit into int32
	}
	s.logger.Info("HTTP server started", log.Int("port", s.GetPort()))

	err := s.srv.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		s.logger.Info("HTTP server closed")
		return
	}
	s.logger.Error("HTTP server failed", log.Error(err))
	fatalErr <- err
}

// Stop shuts the server down within the configured shutdown timeout or, if not graceful, closes it at once.
func (s *HTTPServer) Stop(gracefully bool) error {
	if gracefully {
		s.logger.Info("shutting down HTTP server", log.Duration("timeout", s.cfg.Timeouts.Shutdown))
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeouts.Shutdown)
		defer cancel()
		if err := s.srv.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown failed", log.Error(err))
			return err
		}
	} else if err := s.srv.Close(); err != nil {
		s.logger.Error("HTTP server close failed", log.Error(err))
		return err
	}
	if s.serving.Load() {
		<-s.served
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// GetPort returns the port being listened on, or 0 until Start listens.
func (s *HTTPServer) GetPort() int {
	return int(s.port.Load())
}

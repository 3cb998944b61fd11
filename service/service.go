/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wildcardbot/gatekeeper/log"
)

// DefaultShutdownSignals stop the bot gracefully.
var DefaultShutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// Opts holds optional settings of a Service.
type Opts struct {
	// ShutdownSignals replace DefaultShutdownSignals.
	ShutdownSignals []os.Signal
}

// Service runs the root unit of the process with its metrics registered.
type Service struct {
	unit            Unit
	logger          log.FieldLogger
	shutdownSignals []os.Signal
	signals         chan os.Signal
}

// New creates a Service for unit.
func New(logger log.FieldLogger, unit Unit, opts Opts) *Service {
	shutdownSignals := opts.ShutdownSignals
	if len(shutdownSignals) == 0 {
		shutdownSignals = DefaultShutdownSignals
	}
	return &Service{unit: unit, logger: logger, shutdownSignals: shutdownSignals, signals: make(chan os.Signal, 1)}
}

// Run starts the unit and blocks. The unit is stopped gracefully when ctx is done
// or a shutdown signal arrives. A fatal error of the unit is returned without stopping it.
func (s *Service) Run(ctx context.Context) error {
	if mr, ok := s.unit.(MetricsRegisterer); ok {
		mr.MustRegisterMetrics()
		defer mr.UnregisterMetrics()
	}

	signal.Notify(s.signals, s.shutdownSignals...)
	defer signal.Stop(s.signals)

	unitErr := make(chan error, 1)
	go s.unit.Start(unitErr)

	var stopReason log.Field
	select {
	case err := <-unitErr:
		s.logger.Error("service failed", log.Error(err))
		return fmt.Errorf("unit failed: %w", err)
	case sig := <-s.signals:
		stopReason = log.String("signal", sig.String())
	case <-ctx.Done():
		stopReason = log.NamedError("context", ctx.Err())
	}

	s.logger.Info("stopping service", stopReason)
	if err := s.unit.Stop(true); err != nil {
		s.logger.Error("service stopped with error", log.Error(err))
		return fmt.Errorf("stop unit: %w", err)
	}
	s.logger.Info("service stopped")
	return nil
}

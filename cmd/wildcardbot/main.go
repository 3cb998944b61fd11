/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

// Command wildcardbot runs the Telegram bot with per-user fair admission.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wildcardbot/gatekeeper/bot"
	"github.com/wildcardbot/gatekeeper/config"
	"github.com/wildcardbot/gatekeeper/dispatch"
	"github.com/wildcardbot/gatekeeper/httpclient"
	"github.com/wildcardbot/gatekeeper/httpserver"
	"github.com/wildcardbot/gatekeeper/internal/libinfo"
	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/lrucache"
	"github.com/wildcardbot/gatekeeper/service"
	"github.com/wildcardbot/gatekeeper/telegram"
)

const (
	metricsNamespace     = "wildcardbot"
	getMeTimeout         = 30 * time.Second
	workerStopTimeout    = 30 * time.Second
	healthCheckComponent = "telegram"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadAppConfig(config.NewDefaultLoader(envVarsPrefix), configPath)
	if err != nil {
		return err
	}

	logger, closeLogger, err := log.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer closeLogger()

	unit, err := newBotUnit(cfg, logger)
	if err != nil {
		logger.Error("bot initialization failed", log.Error(err))
		return err
	}
	logger.Info("starting bot", log.String("version", libinfo.GetVersion()))
	return service.New(logger, unit, service.Opts{}).Run(context.Background())
}

func newBotUnit(cfg *AppConfig, logger log.FieldLogger) (service.Unit, error) {
	dispatchMetrics := dispatch.NewPrometheusMetricsWithOpts(dispatch.PrometheusMetricsOpts{Namespace: metricsNamespace})
	middleware, err := dispatch.NewMiddleware(cfg.Dispatch, dispatch.NewStatsWithOpts(dispatch.StatsOpts{Metrics: dispatchMetrics}), logger)
	if err != nil {
		return nil, fmt.Errorf("create dispatch middleware: %w", err)
	}

	if cfg.Telegram.UserAgent == telegram.DefaultUserAgent {
		cfg.Telegram.UserAgent = libinfo.UserAgent(telegram.DefaultUserAgent)
	}
	clientCollector := httpclient.NewPrometheusMetricsCollector(metricsNamespace)
	client, err := telegram.NewClient(cfg.Telegram, telegram.ClientOpts{Logger: logger, Collector: clientCollector})
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	router := bot.NewRouter(logger, bot.RouterOpts{Username: cfg.Bot.Username})
	if cfg.Bot.Username == "" {
		if err = resolveUsername(client, router, logger); err != nil {
			return nil, err
		}
	}
	bot.RegisterCommands(router, client, cfg.Bot, middleware)

	cooldownMetrics := lrucache.NewPrometheusMetrics(metricsNamespace, "error_reply_cooldown")
	interceptor, err := bot.NewErrorInterceptorWithOpts(router, client, logger, bot.ErrorInterceptorOpts{
		ReplyText:       cfg.Bot.ErrorReplyText,
		ReplyCooldown:   cfg.Bot.ErrorReplyCooldown,
		CooldownMetrics: cooldownMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create error interceptor: %w", err)
	}
	handler := middleware.Wrap(interceptor)
	poller := telegram.NewPoller(client, handler, telegram.PollerOpts{
		Logger:       logger,
		PollTimeout:  cfg.Telegram.PollTimeout,
		PollLimit:    cfg.Telegram.PollLimit,
		DrainTimeout: cfg.Dispatch.RequestTimeout,
	})

	sweeper := service.NewPeriodicWorker(service.WorkerFunc(func(context.Context) error {
		if n := middleware.Sweep(time.Now()); n > 0 {
			logger.Debug("idle user queues removed", log.Int("removed", n))
		}
		interceptor.RemoveExpiredCooldowns()
		return nil
	}), cfg.Dispatch.IdleQueueTimeout, logger, service.PeriodicWorkerOpts{Name: "sweeper"})

	units := []service.Unit{
		service.NewWorkerUnit(poller, service.WorkerUnitOpts{
			Metrics:     clientCollector,
			StopTimeout: workerStopTimeout,
		}),
		service.NewWorkerUnit(sweeper, service.WorkerUnitOpts{
			Metrics: metricsRegisterers{dispatchMetrics, cooldownMetrics},
		}),
	}
	if cfg.Dispatch.StatsLogInterval > 0 {
		reporter := dispatch.NewPeriodicStatsReporter(middleware, cfg.Dispatch.StatsLogInterval, logger)
		units = append(units, service.NewWorkerUnit(reporter, service.WorkerUnitOpts{}))
	}

	startedAt := time.Now()
	units = append(units, httpserver.New(cfg.Server, logger, httpserver.Opts{
		Router: httpserver.RouterOpts{
			HealthCheck: newPollerHealthCheck(poller, startedAt, pollStalenessThreshold(cfg.Telegram)),
			Stats:       middleware,
		},
	}))

	return service.NewCompositeUnit(units...), nil
}

func resolveUsername(client *telegram.Client, router *bot.Router, logger log.FieldLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), getMeTimeout)
	defer cancel()
	me, err := client.GetMe(ctx)
	if err != nil {
		if errors.Is(err, telegram.ErrUnauthorized) {
			return fmt.Errorf("check bot token: %w", err)
		}
		logger.Warn("bot username cannot be resolved, mentions of other bots are not filtered", log.Error(err))
		return nil
	}
	router.SetUsername(me.Username)
	logger.Info("bot username is resolved", log.String("username", me.Username))
	return nil
}

// metricsRegisterers registers metrics of several components with one service unit.
type metricsRegisterers []service.MetricsRegisterer

func (m metricsRegisterers) MustRegisterMetrics() {
	for _, r := range m {
		r.MustRegisterMetrics()
	}
}

func (m metricsRegisterers) UnregisterMetrics() {
	for _, r := range m {
		r.UnregisterMetrics()
	}
}

// lastPolledAtProvider is implemented by telegram.Poller.
type lastPolledAtProvider interface {
	LastPolledAt() time.Time
}

func pollStalenessThreshold(cfg *telegram.Config) time.Duration {
	threshold := 3 * cfg.PollTimeout
	if cfg.Client != nil && cfg.Client.Timeout > 0 {
		threshold += cfg.Client.Timeout
	}
	if threshold < time.Minute {
		threshold = time.Minute
	}
	return threshold
}

// newPollerHealthCheck reports the telegram component as failed
// when no successful poll happened within the threshold.
func newPollerHealthCheck(poller lastPolledAtProvider, startedAt time.Time, threshold time.Duration) httpserver.HealthCheck {
	return func(ctx context.Context) (httpserver.HealthCheckResult, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		last := poller.LastPolledAt()
		if last.IsZero() {
			last = startedAt
		}
		status := httpserver.HealthCheckStatusOK
		if time.Since(last) > threshold {
			status = httpserver.HealthCheckStatusFail
		}
		return httpserver.HealthCheckResult{healthCheckComponent: status}, nil
	}
}

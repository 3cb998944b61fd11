/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package dispatch

import (
	"fmt"
	"time"

	"github.com/wildcardbot/gatekeeper/config"
	"github.com/wildcardbot/gatekeeper/internal/inflightlimit"
	"github.com/wildcardbot/gatekeeper/internal/userqueue"
)

const cfgDefaultKeyPrefix = "dispatch"

// Default values.
const (
	DefaultMaxInFlight      = inflightlimit.DefaultLimit
	DefaultSweepProbability = 0.01
	DefaultStatsLogInterval = 5 * time.Minute
)

const (
	cfgKeyMaxInFlight           = "maxInFlight"
	cfgKeyUserRateLimit         = "userRateLimit"
	cfgKeyRateWindow            = "rateWindow"
	cfgKeyRequestTimeout        = "requestTimeout"
	cfgKeyIdleQueueTimeout      = "idleQueueTimeout"
	cfgKeySweepProbability      = "sweepProbability"
	cfgKeyRateLimitedPause      = "rateLimitedPause"
	cfgKeyBacklogPause          = "backlogPause"
	cfgKeyBacklogPauseThreshold = "backlogPauseThreshold"
	cfgKeyStatsLogInterval      = "statsLogInterval"
)

// Config represents options of the admission middleware.
type Config struct {
	MaxInFlight           int           `mapstructure:"maxInFlight" yaml:"maxInFlight" json:"maxInFlight"`
	UserRateLimit         int           `mapstructure:"userRateLimit" yaml:"userRateLimit" json:"userRateLimit"`
	RateWindow            time.Duration `mapstructure:"rateWindow" yaml:"rateWindow" json:"rateWindow"`
	RequestTimeout        time.Duration `mapstructure:"requestTimeout" yaml:"requestTimeout" json:"requestTimeout"`
	IdleQueueTimeout      time.Duration `mapstructure:"idleQueueTimeout" yaml:"idleQueueTimeout" json:"idleQueueTimeout"`
	SweepProbability      float64       `mapstructure:"sweepProbability" yaml:"sweepProbability" json:"sweepProbability"`
	RateLimitedPause      time.Duration `mapstructure:"rateLimitedPause" yaml:"rateLimitedPause" json:"rateLimitedPause"`
	BacklogPause          time.Duration `mapstructure:"backlogPause" yaml:"backlogPause" json:"backlogPause"`
	BacklogPauseThreshold int           `mapstructure:"backlogPauseThreshold" yaml:"backlogPauseThreshold" json:"backlogPauseThreshold"`
	StatsLogInterval      time.Duration `mapstructure:"statsLogInterval" yaml:"statsLogInterval" json:"statsLogInterval"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*Config)

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(c *Config) {
		c.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	cfg := &Config{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.MaxInFlight = DefaultMaxInFlight
	cfg.UserRateLimit = userqueue.DefaultRateLimit
	cfg.RateWindow = userqueue.DefaultRateWindow
	cfg.RequestTimeout = userqueue.DefaultTimeout
	cfg.IdleQueueTimeout = userqueue.DefaultIdleThreshold
	cfg.SweepProbability = DefaultSweepProbability
	cfg.RateLimitedPause = userqueue.DefaultRateLimitedPause
	cfg.BacklogPause = userqueue.DefaultBacklogPause
	cfg.BacklogPauseThreshold = userqueue.DefaultBacklogPauseThreshold
	cfg.StatsLogInterval = DefaultStatsLogInterval
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxInFlight, DefaultMaxInFlight)
	dp.SetDefault(cfgKeyUserRateLimit, userqueue.DefaultRateLimit)
	dp.SetDefault(cfgKeyRateWindow, userqueue.DefaultRateWindow)
	dp.SetDefault(cfgKeyRequestTimeout, userqueue.DefaultTimeout)
	dp.SetDefault(cfgKeyIdleQueueTimeout, userqueue.DefaultIdleThreshold)
	dp.SetDefault(cfgKeySweepProbability, DefaultSweepProbability)
	dp.SetDefault(cfgKeyRateLimitedPause, userqueue.DefaultRateLimitedPause)
	dp.SetDefault(cfgKeyBacklogPause, userqueue.DefaultBacklogPause)
	dp.SetDefault(cfgKeyBacklogPauseThreshold, userqueue.DefaultBacklogPauseThreshold)
	dp.SetDefault(cfgKeyStatsLogInterval, DefaultStatsLogInterval)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	for _, p := range []struct {
		key string
		val *int
	}{
		{cfgKeyMaxInFlight, &c.MaxInFlight},
		{cfgKeyUserRateLimit, &c.UserRateLimit},
		{cfgKeyBacklogPauseThreshold, &c.BacklogPauseThreshold},
	} {
		if *p.val, err = dp.GetInt(p.key); err != nil {
			return err
		}
		if *p.val < 1 {
			return dp.WrapKeyErr(p.key, fmt.Errorf("must be positive"))
		}
	}

	for _, p := range []struct {
		key string
		val *time.Duration
	}{
		{cfgKeyRateWindow, &c.RateWindow},
		{cfgKeyRequestTimeout, &c.RequestTimeout},
		{cfgKeyIdleQueueTimeout, &c.IdleQueueTimeout},
		{cfgKeyRateLimitedPause, &c.RateLimitedPause},
		{cfgKeyBacklogPause, &c.BacklogPause},
		{cfgKeyStatsLogInterval, &c.StatsLogInterval},
	} {
		if *p.val, err = dp.GetDuration(p.key); err != nil {
			return err
		}
		if *p.val <= 0 {
			return dp.WrapKeyErr(p.key, fmt.Errorf("must be positive"))
		}
	}

	if c.SweepProbability, err = dp.GetFloat64(cfgKeySweepProbability); err != nil {
		return err
	}
	if c.SweepProbability < 0 || c.SweepProbability > 1 {
		return dp.WrapKeyErr(cfgKeySweepProbability, fmt.Errorf("should be in range [0, 1]"))
	}

	return nil
}

// QueueParams returns parameters for per-user queues.
func (c *Config) QueueParams() userqueue.Params {
	return userqueue.Params{
		RateLimit:             c.UserRateLimit,
		RateWindow:            c.RateWindow,
		RateLimitedPause:      c.RateLimitedPause,
		BacklogPauseThreshold: c.BacklogPauseThreshold,
		BacklogPause:          c.BacklogPause,
		Timeout:               c.RequestTimeout,
		IdleThreshold:         c.IdleQueueTimeout,
	}
}

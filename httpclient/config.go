/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/wildcardbot/gatekeeper/config"
	"github.com/wildcardbot/gatekeeper/retry"
)

const cfgDefaultKeyPrefix = "client"

// Defaults of the Bot API client.
const (
	DefaultClientTimeout        = time.Minute
	DefaultRateLimit            = 30
	DefaultSlowRequestThreshold = 5 * time.Second
	DefaultLogMode              = LoggingModeFailed
)

var (
	errNegative    = errors.New("must not be negative")
	errNotPositive = errors.New("must be positive")
)

// Config represents options of the HTTP client used for outgoing Bot API requests.
type Config struct {
	Timeout    time.Duration    `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	RateLimits RateLimitsConfig `mapstructure:"rateLimits" yaml:"rateLimits" json:"rateLimits"`
	Retries    RetriesConfig    `mapstructure:"retries" yaml:"retries" json:"retries"`
	Log        LogConfig        `mapstructure:"log" yaml:"log" json:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics" json:"metrics"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// RateLimitsConfig configures RateLimitingRoundTripper.
type RateLimitsConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	PerSecond   int           `mapstructure:"perSecond" yaml:"perSecond" json:"perSecond"`
	Burst       int           `mapstructure:"burst" yaml:"burst" json:"burst"`
	WaitTimeout time.Duration `mapstructure:"waitTimeout" yaml:"waitTimeout" json:"waitTimeout"`
}

// RetriesConfig configures RetryableRoundTripper.
type RetriesConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	MaxRetries    int           `mapstructure:"maxRetries" yaml:"maxRetries" json:"maxRetries"`
	InitialDelay  time.Duration `mapstructure:"initialDelay" yaml:"initialDelay" json:"initialDelay"`
	MaxDelay      time.Duration `mapstructure:"maxDelay" yaml:"maxDelay" json:"maxDelay"`
	MaxRetryAfter time.Duration `mapstructure:"maxRetryAfter" yaml:"maxRetryAfter" json:"maxRetryAfter"`
}

// LogConfig configures LoggingRoundTripper.
type LogConfig struct {
	Enabled              bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Mode                 LoggingMode   `mapstructure:"mode" yaml:"mode" json:"mode"`
	SlowRequestThreshold time.Duration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold" json:"slowRequestThreshold"`
}

// MetricsConfig configures MetricsRoundTripper.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

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
	cfg.Timeout = DefaultClientTimeout
	cfg.RateLimits = RateLimitsConfig{
		Enabled:     true,
		PerSecond:   DefaultRateLimit,
		Burst:       DefaultRateLimitBurst,
		WaitTimeout: DefaultRateLimitWaitTimeout,
	}
	cfg.Retries = RetriesConfig{
		Enabled:       true,
		MaxRetries:    DefaultMaxRetries,
		InitialDelay:  DefaultRetryInitialDelay,
		MaxDelay:      DefaultRetryMaxDelay,
		MaxRetryAfter: DefaultMaxRetryAfter,
	}
	cfg.Log = LogConfig{Enabled: true, Mode: DefaultLogMode, SlowRequestThreshold: DefaultSlowRequestThreshold}
	cfg.Metrics = MetricsConfig{Enabled: true}
	return cfg
}

// KeyPrefix implements config.KeyPrefixProvider.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults implements config.Config.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	def := NewDefaultConfig()
	dp.SetDefault("timeout", def.Timeout)

	rl := dp.WithKeyPrefix("rateLimits")
	rl.SetDefault("enabled", def.RateLimits.Enabled)
	rl.SetDefault("perSecond", def.RateLimits.PerSecond)
	rl.SetDefault("burst", def.RateLimits.Burst)
	rl.SetDefault("waitTimeout", def.RateLimits.WaitTimeout)

	rs := dp.WithKeyPrefix("retries")
	rs.SetDefault("enabled", def.Retries.Enabled)
	rs.SetDefault("maxRetries", def.Retries.MaxRetries)
	rs.SetDefault("initialDelay", def.Retries.InitialDelay)
	rs.SetDefault("maxDelay", def.Retries.MaxDelay)
	rs.SetDefault("maxRetryAfter", def.Retries.MaxRetryAfter)

	lg := dp.WithKeyPrefix("log")
	lg.SetDefault("enabled", def.Log.Enabled)
	lg.SetDefault("mode", string(def.Log.Mode))
	lg.SetDefault("slowRequestThreshold", def.Log.SlowRequestThreshold)

	dp.SetDefault("metrics.enabled", def.Metrics.Enabled)
}

// Set implements config.Config.
func (c *Config) Set(dp config.DataProvider) (err error) {
	if c.Timeout, err = dp.GetDuration("timeout"); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return dp.WrapKeyErr("timeout", errNegative)
	}
	if err = c.RateLimits.set(dp.WithKeyPrefix("rateLimits")); err != nil {
		return err
	}
	if err = c.Retries.set(dp.WithKeyPrefix("retries")); err != nil {
		return err
	}
	if err = c.Log.set(dp.WithKeyPrefix("log")); err != nil {
		return err
	}
	c.Metrics.Enabled, err = dp.GetBool("metrics.enabled")
	return err
}

func (c *RateLimitsConfig) set(dp config.DataProvider) (err error) {
	if c.Enabled, err = dp.GetBool("enabled"); err != nil {
		return err
	}
	if c.PerSecond, err = dp.GetInt("perSecond"); err != nil {
		return err
	}
	if c.Enabled && c.PerSecond <= 0 {
		return dp.WrapKeyErr("perSecond", errNotPositive)
	}
	if c.Burst, err = dp.GetInt("burst"); err != nil {
		return err
	}
	if c.Burst < 0 {
		return dp.WrapKeyErr("burst", errNegative)
	}
	if c.WaitTimeout, err = dp.GetDuration("waitTimeout"); err != nil {
		return err
	}
	if c.WaitTimeout < 0 {
		return dp.WrapKeyErr("waitTimeout", errNegative)
	}
	return nil
}

func (c *RetriesConfig) set(dp config.DataProvider) (err error) {
	if c.Enabled, err = dp.GetBool("enabled"); err != nil {
		return err
	}
	if c.MaxRetries, err = dp.GetInt("maxRetries"); err != nil {
		return err
	}
	if c.MaxRetries < 0 {
		return dp.WrapKeyErr("maxRetries", errNegative)
	}
	if c.InitialDelay, err = dp.GetDuration("initialDelay"); err != nil {
		return err
	}
	if c.InitialDelay <= 0 {
		return dp.WrapKeyErr("initialDelay", errNotPositive)
	}
	if c.MaxDelay, err = dp.GetDuration("maxDelay"); err != nil {
		return err
	}
	if c.MaxDelay < c.InitialDelay {
		return dp.WrapKeyErr("maxDelay", fmt.Errorf("must not be less than initialDelay (%s)", c.InitialDelay))
	}
	if c.MaxRetryAfter, err = dp.GetDuration("maxRetryAfter"); err != nil {
		return err
	}
	if c.MaxRetryAfter <= 0 {
		return dp.WrapKeyErr("maxRetryAfter", errNotPositive)
	}
	return nil
}

// Policy returns the backoff used when the Bot API has not asked for a delay.
func (c *RetriesConfig) Policy() retry.Policy {
	return retry.NewExponentialBackoffPolicy(c.InitialDelay, 0).WithMaxInterval(c.MaxDelay)
}

func (c *LogConfig) set(dp config.DataProvider) (err error) {
	if c.Enabled, err = dp.GetBool("enabled"); err != nil {
		return err
	}
	modes := []string{string(LoggingModeNone), string(LoggingModeAll), string(LoggingModeFailed)}
	mode, err := dp.GetStringFromSet("mode", modes, false)
	if err != nil {
		return err
	}
	c.Mode = LoggingMode(mode)
	c.SlowRequestThreshold, err = dp.GetDuration("slowRequestThreshold")
	return err
}

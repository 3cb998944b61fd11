/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/wildcardbot/gatekeeper/config"
)

const cfgDefaultKeyPrefix = "server"

// DefaultAddress is where the operational endpoint listens unless configured otherwise.
const DefaultAddress = ":8080"

// DefaultExcludedEndpoints are scraped every few seconds, their successful responses are not logged.
var DefaultExcludedEndpoints = []string{EndpointHealthz, EndpointMetrics}

// Config is the "server" section: the operational HTTP endpoint with health, metrics and stats.
type Config struct {
	Address     string         `mapstructure:"address" yaml:"address" json:"address"`
	EnablePprof bool           `mapstructure:"enablePprof" yaml:"enablePprof" json:"enablePprof"`
	Timeouts    TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts" json:"timeouts"`
	Log         LogConfig      `mapstructure:"log" yaml:"log" json:"log"`

	keyPrefix string
}

// TimeoutsConfig holds the timeouts of http.Server and the graceful shutdown limit.
type TimeoutsConfig struct {
	Write      time.Duration `mapstructure:"write" yaml:"write" json:"write"`
	Read       time.Duration `mapstructure:"read" yaml:"read" json:"read"`
	ReadHeader time.Duration `mapstructure:"readHeader" yaml:"readHeader" json:"readHeader"`
	Idle       time.Duration `mapstructure:"idle" yaml:"idle" json:"idle"`
	Shutdown   time.Duration `mapstructure:"shutdown" yaml:"shutdown" json:"shutdown"`
}

// LogConfig configures middleware.Logging of the endpoint.
type LogConfig struct {
	RequestStart      bool     `mapstructure:"requestStart" yaml:"requestStart" json:"requestStart"`
	ExcludedEndpoints []string `mapstructure:"excludedEndpoints" yaml:"excludedEndpoints" json:"excludedEndpoints"`
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
	cfg.Address = DefaultAddress
	cfg.Timeouts = TimeoutsConfig{
		Write:      time.Minute,
		Read:       15 * time.Second,
		ReadHeader: 10 * time.Second,
		Idle:       time.Minute,
		Shutdown:   5 * time.Second,
	}
	cfg.Log.ExcludedEndpoints = append([]string(nil), DefaultExcludedEndpoints...)
	return cfg
}

// KeyPrefix implements config.KeyPrefixProvider.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults implements config.Config.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	def := NewDefaultConfig()
	dp.SetDefault("address", def.Address)
	for _, t := range def.Timeouts.fields() {
		dp.SetDefault(t.key, *t.val)
	}
	dp.SetDefault("log.excludedEndpoints", def.Log.ExcludedEndpoints)
}

// Set implements config.Config.
func (c *Config) Set(dp config.DataProvider) (err error) {
	if c.Address, err = dp.GetString("address"); err != nil {
		return err
	}
	if _, _, err = net.SplitHostPort(c.Address); err != nil {
		return dp.WrapKeyErr("address", fmt.Errorf("must be host:port: %w", err))
	}
	if c.EnablePprof, err = dp.GetBool("enablePprof"); err != nil {
		return err
	}
	for _, t := range c.Timeouts.fields() {
		if *t.val, err = dp.GetDuration(t.key); err != nil {
			return err
		}
		if *t.val < 0 {
			return dp.WrapKeyErr(t.key, errors.New("cannot be negative"))
		}
	}
	if c.Timeouts.Shutdown == 0 {
		return dp.WrapKeyErr("timeouts.shutdown", errors.New("must be positive"))
	}
	if c.Log.RequestStart, err = dp.GetBool("log.requestStart"); err != nil {
		return err
	}
	c.Log.ExcludedEndpoints, err = dp.GetStringSlice("log.excludedEndpoints")
	return err
}

type timeoutField struct {
	key string
	val *time.Duration
}

func (t *TimeoutsConfig) fields() []timeoutField {
	return []timeoutField{
		{"timeouts.write", &t.Write},
		{"timeouts.read", &t.Read},
		{"timeouts.readHeader", &t.ReadHeader},
		{"timeouts.idle", &t.Idle},
		{"timeouts.shutdown", &t.Shutdown},
	}
}

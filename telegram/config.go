/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package telegram

import (
	"fmt"
	"net/url"
	"time"

	"github.com/wildcardbot/gatekeeper/config"
	"github.com/wildcardbot/gatekeeper/httpclient"
)

const cfgDefaultKeyPrefix = "telegram"

// Default values.
const (
	DefaultAPIURL      = "https://api.telegram.org"
	DefaultPollTimeout = 30 * time.Second
	DefaultPollLimit   = 100
	DefaultUserAgent   = "wildcardbot"
)

const (
	cfgKeyToken       = "token"
	cfgKeyAPIURL      = "apiURL"
	cfgKeyPollTimeout = "pollTimeout"
	cfgKeyPollLimit   = "pollLimit"
	cfgKeyUserAgent   = "userAgent"
)

// Config represents options of the Bot API client and the poller.
// The HTTP client settings are nested under the "client" key.
type Config struct {
	Token       string             `mapstructure:"token" yaml:"token" json:"token"`
	APIURL      string             `mapstructure:"apiURL" yaml:"apiURL" json:"apiURL"`
	PollTimeout time.Duration      `mapstructure:"pollTimeout" yaml:"pollTimeout" json:"pollTimeout"`
	PollLimit   int                `mapstructure:"pollLimit" yaml:"pollLimit" json:"pollLimit"`
	UserAgent   string             `mapstructure:"userAgent" yaml:"userAgent" json:"userAgent"`
	Client      *httpclient.Config `mapstructure:"client" yaml:"client" json:"client"`

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
	cfg := &Config{keyPrefix: cfgDefaultKeyPrefix, Client: httpclient.NewConfig()}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// NewDefaultConfig creates a new instance of the Config with default values. Token stays empty.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.APIURL = DefaultAPIURL
	cfg.PollTimeout = DefaultPollTimeout
	cfg.PollLimit = DefaultPollLimit
	cfg.UserAgent = DefaultUserAgent
	cfg.Client = httpclient.NewDefaultConfig()
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyAPIURL, DefaultAPIURL)
	dp.SetDefault(cfgKeyPollTimeout, DefaultPollTimeout)
	dp.SetDefault(cfgKeyPollLimit, DefaultPollLimit)
	dp.SetDefault(cfgKeyUserAgent, DefaultUserAgent)
	config.CallSetProviderDefaultsForFields(c, dp)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Token, err = dp.GetString(cfgKeyToken); err != nil {
		return err
	}
	if c.Token == "" {
		return dp.WrapKeyErr(cfgKeyToken, fmt.Errorf("cannot be empty"))
	}

	if c.APIURL, err = dp.GetString(cfgKeyAPIURL); err != nil {
		return err
	}
	if _, err = url.ParseRequestURI(c.APIURL); err != nil {
		return dp.WrapKeyErr(cfgKeyAPIURL, err)
	}

	if c.PollTimeout, err = dp.GetDuration(cfgKeyPollTimeout); err != nil {
		return err
	}
	if c.PollTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyPollTimeout, fmt.Errorf("must not be negative"))
	}

	if c.PollLimit, err = dp.GetInt(cfgKeyPollLimit); err != nil {
		return err
	}
	if c.PollLimit < 1 || c.PollLimit > 100 {
		return dp.WrapKeyErr(cfgKeyPollLimit, fmt.Errorf("should be in range [1, 100]"))
	}

	if c.UserAgent, err = dp.GetString(cfgKeyUserAgent); err != nil {
		return err
	}

	if err = config.CallSetForFields(c, dp); err != nil {
		return err
	}
	if c.Client != nil && c.Client.Timeout > 0 && c.Client.Timeout <= c.PollTimeout {
		return dp.WrapKeyErr(cfgKeyPollTimeout, fmt.Errorf("should be less than client timeout (%s)", c.Client.Timeout))
	}
	return nil
}

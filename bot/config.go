/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/wildcardbot/gatekeeper/config"
)

const cfgDefaultKeyPrefix = "bot"

const (
	cfgKeyAdminIDs       = "adminIDs"
	cfgKeyUsername       = "username"
	cfgKeyErrorReplyText = "errorReplyText"
	cfgKeyErrorCooldown  = "errorReplyCooldown"
)

// DefaultErrorReplyText is sent to a user when handling of their update fails.
const DefaultErrorReplyText = "❌ Something went wrong.\n\n🔄 Please try again later."

// DefaultErrorReplyCooldown is a minimal interval between two error replies to the same chat.
const DefaultErrorReplyCooldown = 10 * time.Second

// Config represents a set of configuration parameters of the command layer.
type Config struct {
	// AdminIDs are users allowed to run /stats. The command is not registered when the list is empty.
	AdminIDs []int64 `mapstructure:"adminIDs" yaml:"adminIDs" json:"adminIDs"`
	// Username is the bot username without "@". Commands addressed to other bots ("/cmd@other_bot") are ignored.
	// When empty, it is resolved with getMe on start.
	Username       string `mapstructure:"username" yaml:"username" json:"username"`
	ErrorReplyText string `mapstructure:"errorReplyText" yaml:"errorReplyText" json:"errorReplyText"`
	// ErrorReplyCooldown suppresses repeated error replies to the same chat. Zero disables it.
	ErrorReplyCooldown time.Duration `mapstructure:"errorReplyCooldown" yaml:"errorReplyCooldown" json:"errorReplyCooldown"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.ErrorReplyText = DefaultErrorReplyText
	cfg.ErrorReplyCooldown = DefaultErrorReplyCooldown
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyErrorReplyText, DefaultErrorReplyText)
	dp.SetDefault(cfgKeyErrorCooldown, DefaultErrorReplyCooldown)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.AdminIDs, err = dp.GetInt64Slice(cfgKeyAdminIDs); err != nil {
		return err
	}
	for _, id := range c.AdminIDs {
		if id <= 0 {
			return dp.WrapKeyErr(cfgKeyAdminIDs, fmt.Errorf("user id %d should be positive", id))
		}
	}

	if c.Username, err = dp.GetString(cfgKeyUsername); err != nil {
		return err
	}
	c.Username = strings.TrimPrefix(strings.TrimSpace(c.Username), "@")

	if c.ErrorReplyText, err = dp.GetString(cfgKeyErrorReplyText); err != nil {
		return err
	}
	if strings.TrimSpace(c.ErrorReplyText) == "" {
		return dp.WrapKeyErr(cfgKeyErrorReplyText, fmt.Errorf("cannot be empty"))
	}

	if c.ErrorReplyCooldown, err = dp.GetDuration(cfgKeyErrorCooldown); err != nil {
		return err
	}
	if c.ErrorReplyCooldown < 0 {
		return dp.WrapKeyErr(cfgKeyErrorCooldown, fmt.Errorf("cannot be negative"))
	}

	return nil
}

// IsAdmin reports whether userID is listed in AdminIDs.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

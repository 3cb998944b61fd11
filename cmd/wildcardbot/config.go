/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package main

import (
	"fmt"

	"github.com/wildcardbot/gatekeeper/bot"
	"github.com/wildcardbot/gatekeeper/config"
	"github.com/wildcardbot/gatekeeper/dispatch"
	"github.com/wildcardbot/gatekeeper/httpserver"
	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/telegram"
)

// envVarsPrefix is a prefix of environment variables overriding the config file,
// e.g. WILDCARDBOT_TELEGRAM_TOKEN or WILDCARDBOT_BOT_ADMINIDS="1,2".
const envVarsPrefix = "WILDCARDBOT"

// AppConfig aggregates configuration sections of the bot.
type AppConfig struct {
	Log      *log.Config
	Dispatch *dispatch.Config
	Telegram *telegram.Config
	Bot      *bot.Config
	Server   *httpserver.Config
}

// NewAppConfig creates a new AppConfig with the default key prefixes.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Log:      log.NewConfig(),
		Dispatch: dispatch.NewConfig(),
		Telegram: telegram.NewConfig(),
		Bot:      bot.NewConfig(),
		Server:   httpserver.NewConfig(),
	}
}

func (c *AppConfig) sections() []config.Config {
	return []config.Config{c.Log, c.Dispatch, c.Telegram, c.Bot, c.Server}
}

// loadAppConfig loads the config from path (YAML or JSON by extension) and environment variables.
// Only defaults and environment variables are used when path is empty.
func loadAppConfig(loader *config.Loader, path string) (*AppConfig, error) {
	cfg := NewAppConfig()
	if err := loader.LoadFile(path, cfg.sections()...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wildcardbot/gatekeeper/config"
	"github.com/wildcardbot/gatekeeper/httpserver"
	"github.com/wildcardbot/gatekeeper/log/logtest"
	"github.com/wildcardbot/gatekeeper/telegram"
)

func writeConfigFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadAppConfig(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		path := writeConfigFile(t, "config.yml", `
telegram:
  token: "123:abc"
dispatch:
  maxInFlight: 10
bot:
  adminIDs: [1]
server:
  address: "127.0.0.1:0"
`)
		cfg, err := loadAppConfig(config.NewLoader(config.NewViperAdapter()), path)
		require.NoError(t, err)
		require.Equal(t, "123:abc", cfg.Telegram.Token)
		require.Equal(t, 10, cfg.Dispatch.MaxInFlight)
		require.Equal(t, []int64{1}, cfg.Bot.AdminIDs)
		require.Equal(t, "127.0.0.1:0", cfg.Server.Address)
	})

	t.Run("json", func(t *testing.T) {
		path := writeConfigFile(t, "config.JSON", `{"telegram": {"token": "123:abc"}, "dispatch": {"userRateLimit": 2}}`)
		cfg, err := loadAppConfig(config.NewLoader(config.NewViperAdapter()), path)
		require.NoError(t, err)
		require.Equal(t, 2, cfg.Dispatch.UserRateLimit)
	})

	t.Run("token from environment", func(t *testing.T) {
		t.Setenv(envVarsPrefix+"_TELEGRAM_TOKEN", "456:def")
		cfg, err := loadAppConfig(config.NewDefaultLoader(envVarsPrefix), "")
		require.NoError(t, err)
		require.Equal(t, "456:def", cfg.Telegram.Token)
	})

	t.Run("missing token", func(t *testing.T) {
		path := writeConfigFile(t, "config.yaml", "dispatch:\n  maxInFlight: 10\n")
		_, err := loadAppConfig(config.NewLoader(config.NewViperAdapter()), path)
		require.EqualError(t, err, "load config: telegram.token: cannot be empty")
	})

	t.Run("unsupported format", func(t *testing.T) {
		path := writeConfigFile(t, "config.toml", "[telegram]\ntoken = \"123:abc\"\n")
		_, err := loadAppConfig(config.NewLoader(config.NewViperAdapter()), path)
		require.ErrorIs(t, err, config.ErrUnsupportedDataType)
	})
}

func TestNewBotUnit(t *testing.T) {
	path := writeConfigFile(t, "config.yml", `
telegram:
  token: "123:abc"
bot:
  username: "wildcard_bot"
`)
	cfg, err := loadAppConfig(config.NewLoader(config.NewViperAdapter()), path)
	require.NoError(t, err)

	unit, err := newBotUnit(cfg, logtest.NewRecorder())
	require.NoError(t, err)
	require.NotNil(t, unit)
}

type staticLastPolledAt time.Time

func (s staticLastPolledAt) LastPolledAt() time.Time {
	return time.Time(s)
}

func TestPollerHealthCheck(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	check := newPollerHealthCheck(staticLastPolledAt{}, now, time.Minute)
	res, err := check(ctx)
	require.NoError(t, err)
	require.Equal(t, httpserver.HealthCheckResult{healthCheckComponent: httpserver.HealthCheckStatusOK}, res)

	check = newPollerHealthCheck(staticLastPolledAt{}, now.Add(-2*time.Minute), time.Minute)
	res, err = check(ctx)
	require.NoError(t, err)
	require.Equal(t, httpserver.HealthCheckStatusFail, res[healthCheckComponent])

	check = newPollerHealthCheck(staticLastPolledAt(now.Add(-time.Second)), now.Add(-time.Hour), time.Minute)
	res, err = check(ctx)
	require.NoError(t, err)
	require.Equal(t, httpserver.HealthCheckStatusOK, res[healthCheckComponent])

	canceledCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = check(canceledCtx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPollStalenessThreshold(t *testing.T) {
	cfg := telegram.NewDefaultConfig()
	cfg.PollTimeout = 30 * time.Second
	cfg.Client.Timeout = time.Minute
	require.Equal(t, 150*time.Second, pollStalenessThreshold(cfg))

	cfg.PollTimeout = time.Second
	cfg.Client.Timeout = 0
	require.Equal(t, time.Minute, pollStalenessThreshold(cfg))
}

/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wildcardbot/gatekeeper/dispatch"
	"github.com/wildcardbot/gatekeeper/log/logtest"
	"github.com/wildcardbot/gatekeeper/telegram"
)

const adminID = 100

type staticSnapshot dispatch.StatsSnapshot

func (s staticSnapshot) Snapshot() dispatch.StatsSnapshot {
	return dispatch.StatsSnapshot(s)
}

func newTestCommands(t *testing.T, adminIDs ...int64) (*Router, *mockSender) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.AdminIDs = adminIDs
	router := NewRouter(logtest.NewRecorder(), RouterOpts{})
	sender := &mockSender{}
	RegisterCommands(router, sender, cfg, staticSnapshot{
		TotalRequests:      12,
		SuccessfulRequests: 10,
		ErrorRequests:      2,
		DroppedRequests:    1,
		Users:              3,
		InFlight:           1,
		PeakInFlight:       4,
		Queues:             2,
		AverageResponseMs:  150,
		Uptime:             90*time.Second + 300*time.Millisecond,
	})
	return router, sender
}

func TestCommands_Ping(t *testing.T) {
	router, sender := newTestCommands(t)
	require.NoError(t, router.HandleUpdate(context.Background(), textUpdate(7, telegram.ChatTypePrivate, "/ping")))
	require.Equal(t, []sentMessage{{ChatID: 7, Text: PongText}}, sender.Sent())
}

func TestCommands_StartAndHelp(t *testing.T) {
	router, sender := newTestCommands(t, adminID)
	ctx := context.Background()

	require.NoError(t, router.HandleUpdate(ctx, textUpdate(7, telegram.ChatTypePrivate, "/start")))
	require.NoError(t, router.HandleUpdate(ctx, textUpdate(adminID, telegram.ChatTypePrivate, "/help")))

	sent := sender.Sent()
	require.Len(t, sent, 2)
	require.Contains(t, sent[0].Text, WelcomeText)
	require.Contains(t, sent[0].Text, "/ping - ")
	require.NotContains(t, sent[0].Text, "/stats", "admin commands are hidden from regular users")
	require.Contains(t, sent[1].Text, "/stats - ")
}

func TestCommands_Stats(t *testing.T) {
	t.Run("not registered without admins", func(t *testing.T) {
		router, sender := newTestCommands(t)
		require.NotContains(t, router.Commands(), CommandStats)
		require.NoError(t, router.HandleUpdate(context.Background(), textUpdate(adminID, telegram.ChatTypePrivate, "/stats")))
		require.Empty(t, sender.Sent())
	})

	t.Run("admin", func(t *testing.T) {
		router, sender := newTestCommands(t, adminID)
		require.NoError(t, router.HandleUpdate(context.Background(), textUpdate(adminID, telegram.ChatTypePrivate, "/stats")))
		sent := sender.Sent()
		require.Len(t, sent, 1)
		require.Contains(t, sent[0].Text, "Requests: 12 (ok 10, errors 2, dropped 1, timed out 0)")
		require.Contains(t, sent[0].Text, "Users: 3")
		require.Contains(t, sent[0].Text, "Active: 1")
		require.Contains(t, sent[0].Text, "Avg response: 150ms")
		require.Contains(t, sent[0].Text, "Peak concurrency: 4")
		require.Contains(t, sent[0].Text, "Uptime: 1m30s")
	})

	t.Run("regular user", func(t *testing.T) {
		router, sender := newTestCommands(t, adminID)
		require.NoError(t, router.HandleUpdate(context.Background(), textUpdate(7, telegram.ChatTypePrivate, "/stats")))
		require.Equal(t, []sentMessage{{ChatID: 7, Text: AccessDeniedText}}, sender.Sent())
	})
}

func TestCommands_SendFailure(t *testing.T) {
	router, sender := newTestCommands(t)
	sender.err = errors.New("connection refused")
	err := router.HandleUpdate(context.Background(), textUpdate(7, telegram.ChatTypePrivate, "/ping"))
	require.ErrorIs(t, err, sender.err)
	require.EqualError(t, err, "reply to /ping: connection refused")
}

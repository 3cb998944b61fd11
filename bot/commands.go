/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wildcardbot/gatekeeper/dispatch"
	"github.com/wildcardbot/gatekeeper/telegram"
)

// Command names.
const (
	CommandStart = "start"
	CommandHelp  = "help"
	CommandPing  = "ping"
	CommandStats = "stats"
)

// Reply texts.
const (
	WelcomeText      = "👋 Welcome to WildCard Bot!"
	PongText         = "Pong"
	AccessDeniedText = "⚠️ Access denied. This command is available to admins only."
)

var commandDescriptions = map[string]string{
	CommandStart: "show the welcome message",
	CommandHelp:  "list available commands",
	CommandPing:  "check that the bot is alive",
	CommandStats: "show request statistics (admin only)",
}

// MessageSender sends text messages. It is implemented by telegram.Client.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *telegram.SendMessageOpts) (*telegram.Message, error)
}

// Commands holds the built-in command handlers.
type Commands struct {
	sender MessageSender
	cfg    *Config
	stats  dispatch.SnapshotProvider
	router *Router
}

// RegisterCommands registers /start, /help, /ping and, if there are admins, /stats in the router.
func RegisterCommands(router *Router, sender MessageSender, cfg *Config, stats dispatch.SnapshotProvider) *Commands {
	c := &Commands{sender: sender, cfg: cfg, stats: stats, router: router}
	router.HandleFunc(CommandStart, c.handleStart)
	router.HandleFunc(CommandHelp, c.handleHelp)
	router.HandleFunc(CommandPing, c.handlePing)
	if len(cfg.AdminIDs) != 0 && stats != nil {
		router.HandleFunc(CommandStats, c.handleStats)
	}
	return c
}

func (c *Commands) reply(ctx context.Context, cmd *Command, text string) error {
	if _, err := c.sender.SendMessage(ctx, cmd.ChatID, text, nil); err != nil {
		return fmt.Errorf("reply to /%s: %w", cmd.Name, err)
	}
	return nil
}

func (c *Commands) handleStart(ctx context.Context, cmd *Command) error {
	return c.reply(ctx, cmd, WelcomeText+"\n\n"+c.commandList(cmd.UserID))
}

func (c *Commands) handleHelp(ctx context.Context, cmd *Command) error {
	return c.reply(ctx, cmd, c.commandList(cmd.UserID))
}

func (c *Commands) handlePing(ctx context.Context, cmd *Command) error {
	return c.reply(ctx, cmd, PongText)
}

func (c *Commands) handleStats(ctx context.Context, cmd *Command) error {
	if !c.cfg.IsAdmin(cmd.UserID) {
		return c.reply(ctx, cmd, AccessDeniedText)
	}
	return c.reply(ctx, cmd, FormatStats(c.stats.Snapshot()))
}

func (c *Commands) commandList(userID int64) string {
	var sb strings.Builder
	sb.WriteString("📋 Available commands:")
	for _, name := range c.router.Commands() {
		if name == CommandStats && !c.cfg.IsAdmin(userID) {
			continue
		}
		sb.WriteString("\n/" + name)
		if desc, ok := commandDescriptions[name]; ok {
			sb.WriteString(" - " + desc)
		}
	}
	return sb.String()
}

// FormatStats renders a stats snapshot as a message.
func FormatStats(snap dispatch.StatsSnapshot) string {
	return fmt.Sprintf("📊 Bot stats\n\n"+
		"Requests: %d (ok %d, errors %d, dropped %d, timed out %d)\n"+
		"Users: %d\n"+
		"Active: %d\n"+
		"Avg response: %dms\n"+
		"Peak concurrency: %d\n"+
		"Queues: %d\n"+
		"Uptime: %s",
		snap.TotalRequests, snap.SuccessfulRequests, snap.ErrorRequests, snap.DroppedRequests, snap.TimedOutRequests,
		snap.Users,
		snap.InFlight,
		snap.AverageResponseMs,
		snap.PeakInFlight,
		snap.Queues,
		snap.Uptime.Truncate(time.Second),
	)
}

/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

// Package bot is the command layer of the bot. Router routes "/command" messages of private chats
// to command handlers, and ErrorInterceptor turns handler failures into a reply to the user.
package bot

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/wildcardbot/gatekeeper/dispatch"
	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/telegram"
)

// Command is a parsed "/name[@username] args" message.
type Command struct {
	Name   string
	Args   string
	UserID int64
	ChatID int64
	Update *telegram.Update
}

// CommandHandler handles a single command.
type CommandHandler interface {
	HandleCommand(ctx context.Context, cmd *Command) error
}

// CommandHandlerFunc is an adapter to allow the use of ordinary functions as CommandHandler.
type CommandHandlerFunc func(ctx context.Context, cmd *Command) error

// HandleCommand calls f(ctx, cmd).
func (f CommandHandlerFunc) HandleCommand(ctx context.Context, cmd *Command) error {
	return f(ctx, cmd)
}

// RouterOpts contains optional parameters for constructing Router.
type RouterOpts struct {
	// Username is the bot username. When set, commands addressed to other bots are ignored.
	Username string
}

// Router implements dispatch.Handler. Updates outside private chats, plain text, non-text messages
// and unknown commands are ignored without a reply.
type Router struct {
	logger log.FieldLogger

	mu       sync.RWMutex
	username string
	handlers map[string]CommandHandler
}

var _ dispatch.Handler = (*Router)(nil)

// NewRouter creates a new Router.
func NewRouter(logger log.FieldLogger, opts RouterOpts) *Router {
	return &Router{
		logger:   logger,
		username: strings.TrimPrefix(opts.Username, "@"),
		handlers: make(map[string]CommandHandler),
	}
}

// SetUsername sets the bot username once it becomes known.
func (r *Router) SetUsername(username string) {
	r.mu.Lock()
	r.username = strings.TrimPrefix(username, "@")
	r.mu.Unlock()
}

// Handle registers a handler for the command. Name is matched case-insensitively, without the leading slash.
func (r *Router) Handle(name string, handler CommandHandler) {
	r.mu.Lock()
	r.handlers[strings.ToLower(strings.TrimPrefix(name, "/"))] = handler
	r.mu.Unlock()
}

// HandleFunc registers a function as a handler for the command.
func (r *Router) HandleFunc(name string, fn func(ctx context.Context, cmd *Command) error) {
	r.Handle(name, CommandHandlerFunc(fn))
}

// Commands returns sorted names of the registered commands.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandleUpdate routes the update to the handler of its command.
func (r *Router) HandleUpdate(ctx context.Context, update *telegram.Update) error {
	chat, ok := update.Chat()
	if !ok || !chat.IsPrivate() {
		return nil
	}
	userID, ok := update.UserID()
	if !ok {
		return nil
	}

	r.mu.RLock()
	username := r.username
	r.mu.RUnlock()

	name, mention, args, ok := ParseCommand(update.Text())
	if !ok || (mention != "" && username != "" && !strings.EqualFold(mention, username)) {
		return nil
	}

	r.mu.RLock()
	handler, found := r.handlers[name]
	r.mu.RUnlock()
	if !found {
		r.logger.Debug("unknown command is ignored", log.UserID(userID), log.String("command", name))
		return nil
	}

	r.logger.Info("command received", log.UserID(userID), log.String("command", name))
	return handler.HandleCommand(ctx, &Command{
		Name:   name,
		Args:   args,
		UserID: userID,
		ChatID: chat.ID,
		Update: update,
	})
}

// ParseCommand splits "/name[@mention] args" text. Name is lower-cased.
// False is returned when the text is not a command.
func ParseCommand(text string) (name, mention, args string, ok bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '/' {
		return "", "", "", false
	}
	head := text[1:]
	if i := strings.IndexAny(head, " \t\n"); i != -1 {
		args = strings.TrimSpace(head[i+1:])
		head = head[:i]
	}
	if i := strings.IndexByte(head, '@'); i != -1 {
		mention = head[i+1:]
		head = head[:i]
	}
	if head == "" {
		return "", "", "", false
	}
	return strings.ToLower(head), mention, args, true
}

/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wildcardbot/gatekeeper/dispatch"
	"github.com/wildcardbot/gatekeeper/internal/timeout"
	"github.com/wildcardbot/gatekeeper/log"
	"github.com/wildcardbot/gatekeeper/lrucache"
	"github.com/wildcardbot/gatekeeper/telegram"
)

// DefaultMaxCooldownChats bounds the number of chats remembered for the error reply cooldown.
const DefaultMaxCooldownChats = 10000

// ErrorInterceptorOpts contains optional parameters for constructing ErrorInterceptor.
type ErrorInterceptorOpts struct {
	// ReplyText is sent on failure. DefaultErrorReplyText is used when empty.
	ReplyText string

	// ReplyCooldown is a minimal interval between two error replies to the same chat. Zero disables it.
	ReplyCooldown time.Duration

	// MaxCooldownChats limits memory used by the cooldown. The least recently replied chats are forgotten first.
	MaxCooldownChats int

	// CooldownMetrics receives usage of the cooldown cache.
	CooldownMetrics lrucache.MetricsCollector
}

// ErrorInterceptor wraps a handler and tells the user that handling of their update failed.
// The reply is sent only to private chats and never for throttling, timeouts or Bot API errors,
// where another message would make things worse. The error is always returned to the caller.
type ErrorInterceptor struct {
	next      dispatch.Handler
	sender    MessageSender
	replyText string
	logger    log.FieldLogger
	cooldown  *lrucache.LRUCache[int64, struct{}]
}

var _ dispatch.Handler = (*ErrorInterceptor)(nil)

// NewErrorInterceptor creates a new ErrorInterceptor that replies on every failure.
func NewErrorInterceptor(next dispatch.Handler, sender MessageSender, replyText string, logger log.FieldLogger) *ErrorInterceptor {
	interceptor, _ := NewErrorInterceptorWithOpts(next, sender, logger, ErrorInterceptorOpts{ReplyText: replyText})
	return interceptor
}

// NewErrorInterceptorWithOpts is a more configurable version of NewErrorInterceptor.
func NewErrorInterceptorWithOpts(
	next dispatch.Handler, sender MessageSender, logger log.FieldLogger, opts ErrorInterceptorOpts,
) (*ErrorInterceptor, error) {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	if opts.ReplyText == "" {
		opts.ReplyText = DefaultErrorReplyText
	}
	interceptor := &ErrorInterceptor{next: next, sender: sender, replyText: opts.ReplyText, logger: logger}
	if opts.ReplyCooldown > 0 {
		if opts.MaxCooldownChats == 0 {
			opts.MaxCooldownChats = DefaultMaxCooldownChats
		}
		cooldown, err := lrucache.New[int64, struct{}](opts.MaxCooldownChats, lrucache.Opts{
			DefaultTTL: opts.ReplyCooldown,
			Metrics:    opts.CooldownMetrics,
		})
		if err != nil {
			return nil, fmt.Errorf("create error reply cooldown cache: %w", err)
		}
		interceptor.cooldown = cooldown
	}
	return interceptor, nil
}

// HandleUpdate calls the wrapped handler and replies with the error text if it fails.
func (i *ErrorInterceptor) HandleUpdate(ctx context.Context, update *telegram.Update) error {
	err := i.next.HandleUpdate(ctx, update)
	if err == nil || !shouldReplyOnError(err) {
		return err
	}
	chat, ok := update.Chat()
	if !ok || !chat.IsPrivate() {
		return err
	}
	if i.cooldown != nil {
		if _, replied := i.cooldown.GetOrAdd(chat.ID, func() struct{} { return struct{}{} }); replied {
			i.logger.Debug("error reply is suppressed by cooldown", log.UpdateID(update.UpdateID))
			return err
		}
	}
	if _, sendErr := i.sender.SendMessage(ctx, chat.ID, i.replyText, nil); sendErr != nil {
		i.logger.Warn("sending error reply failed", log.UpdateID(update.UpdateID), log.Error(sendErr))
	}
	return err
}

// RemoveExpiredCooldowns forgets chats whose cooldown is over and returns their number.
func (i *ErrorInterceptor) RemoveExpiredCooldowns() int {
	if i.cooldown == nil {
		return 0
	}
	return i.cooldown.RemoveExpired()
}

func shouldReplyOnError(err error) bool {
	if errors.Is(err, timeout.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *telegram.APIError
	return !errors.As(err, &apiErr)
}

/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/wildcardbot/gatekeeper/dispatch"
	"github.com/wildcardbot/gatekeeper/internal/timeout"
	"github.com/wildcardbot/gatekeeper/log/logtest"
	"github.com/wildcardbot/gatekeeper/lrucache"
	"github.com/wildcardbot/gatekeeper/telegram"
)

func failingHandler(err error) dispatch.Handler {
	return dispatch.HandlerFunc(func(context.Context, *telegram.Update) error { return err })
}

func TestErrorInterceptor(t *testing.T) {
	const replyText = "oops"
	errFailed := errors.New("failed")

	t.Run("success is passed through", func(t *testing.T) {
		sender := &mockSender{}
		interceptor := NewErrorInterceptor(failingHandler(nil), sender, replyText, logtest.NewRecorder())
		require.NoError(t, interceptor.HandleUpdate(context.Background(), textUpdate(1, telegram.ChatTypePrivate, "/ping")))
		require.Empty(t, sender.Sent())
	})

	t.Run("failure in private chat is replied", func(t *testing.T) {
		sender := &mockSender{}
		interceptor := NewErrorInterceptor(failingHandler(errFailed), sender, replyText, logtest.NewRecorder())
		err := interceptor.HandleUpdate(context.Background(), textUpdate(1, telegram.ChatTypePrivate, "/ping"))
		require.ErrorIs(t, err, errFailed)
		require.Equal(t, []sentMessage{{ChatID: 1, Text: replyText}}, sender.Sent())
	})

	t.Run("failure in group is not replied", func(t *testing.T) {
		sender := &mockSender{}
		interceptor := NewErrorInterceptor(failingHandler(errFailed), sender, replyText, logtest.NewRecorder())
		require.ErrorIs(t, interceptor.HandleUpdate(context.Background(), textUpdate(1, "supergroup", "/ping")), errFailed)
		require.Empty(t, sender.Sent())
	})

	t.Run("silent errors", func(t *testing.T) {
		silentErrs := []error{
			timeout.ErrTimeout,
			fmt.Errorf("reply: %w", context.DeadlineExceeded),
			&telegram.APIError{Method: telegram.MethodSendMessage, Code: http.StatusTooManyRequests, Description: "Too Many Requests"},
			fmt.Errorf("reply: %w", &telegram.APIError{Method: telegram.MethodSendMessage, Code: http.StatusForbidden}),
		}
		for _, silentErr := range silentErrs {
			sender := &mockSender{}
			interceptor := NewErrorInterceptor(failingHandler(silentErr), sender, replyText, logtest.NewRecorder())
			require.ErrorIs(t, interceptor.HandleUpdate(context.Background(), textUpdate(1, telegram.ChatTypePrivate, "/ping")), silentErr)
			require.Empty(t, sender.Sent(), silentErr.Error())
		}
	})

	t.Run("reply failure is logged", func(t *testing.T) {
		sender := &mockSender{err: errors.New("network is unreachable")}
		logger := logtest.NewRecorder()
		interceptor := NewErrorInterceptor(failingHandler(errFailed), sender, "", logger)
		require.ErrorIs(t, interceptor.HandleUpdate(context.Background(), textUpdate(1, telegram.ChatTypePrivate, "/ping")), errFailed)
		_, found := logger.FindEntry("sending error reply failed")
		require.True(t, found)
	})
}

func TestErrorInterceptor_Cooldown(t *testing.T) {
	errFailed := errors.New("failed")
	ctx := context.Background()

	t.Run("repeated failures are replied once", func(t *testing.T) {
		sender := &mockSender{}
		metrics := lrucache.NewPrometheusMetrics("test", "error_reply_cooldown")
		interceptor, err := NewErrorInterceptorWithOpts(failingHandler(errFailed), sender, logtest.NewRecorder(), ErrorInterceptorOpts{
			ReplyText:       "oops",
			ReplyCooldown:   time.Hour,
			CooldownMetrics: metrics,
		})
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			require.ErrorIs(t, interceptor.HandleUpdate(ctx, textUpdate(1, telegram.ChatTypePrivate, "/ping")), errFailed)
		}
		require.ErrorIs(t, interceptor.HandleUpdate(ctx, textUpdate(2, telegram.ChatTypePrivate, "/ping")), errFailed)

		require.Equal(t, []sentMessage{{ChatID: 1, Text: "oops"}, {ChatID: 2, Text: "oops"}}, sender.Sent())
		require.Equal(t, 2.0, testutil.ToFloat64(metrics.Entries))
		require.Equal(t, 2.0, testutil.ToFloat64(metrics.Lookups.WithLabelValues("hit")))
		require.Equal(t, 0, interceptor.RemoveExpiredCooldowns())
	})

	t.Run("expired cooldowns are removed", func(t *testing.T) {
		sender := &mockSender{}
		interceptor, err := NewErrorInterceptorWithOpts(failingHandler(errFailed), sender, logtest.NewRecorder(), ErrorInterceptorOpts{
			ReplyCooldown: time.Millisecond,
		})
		require.NoError(t, err)

		require.ErrorIs(t, interceptor.HandleUpdate(ctx, textUpdate(1, telegram.ChatTypePrivate, "/ping")), errFailed)
		time.Sleep(5 * time.Millisecond)
		require.Equal(t, 1, interceptor.RemoveExpiredCooldowns())

		require.ErrorIs(t, interceptor.HandleUpdate(ctx, textUpdate(1, telegram.ChatTypePrivate, "/ping")), errFailed)
		require.Len(t, sender.Sent(), 2)
		require.Equal(t, DefaultErrorReplyText, sender.Sent()[0].Text)
	})

	t.Run("invalid cache size", func(t *testing.T) {
		_, err := NewErrorInterceptorWithOpts(failingHandler(errFailed), &mockSender{}, nil, ErrorInterceptorOpts{
			ReplyCooldown:    time.Second,
			MaxCooldownChats: -1,
		})
		require.ErrorContains(t, err, "create error reply cooldown cache")
	})

	t.Run("disabled cooldown", func(t *testing.T) {
		interceptor := NewErrorInterceptor(failingHandler(errFailed), &mockSender{}, "", logtest.NewRecorder())
		require.Equal(t, 0, interceptor.RemoveExpiredCooldowns())
	})
}

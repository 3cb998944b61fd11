/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package telegram

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdate_Accessors(t *testing.T) {
	tests := []struct {
		name       string
		update     Update
		wantUserID int64
		wantHasID  bool
		wantChatID int64
		wantText   string
	}{
		{
			name: "private message",
			update: Update{UpdateID: 1, Message: &Message{
				From: &User{ID: 10}, Chat: Chat{ID: 10, Type: ChatTypePrivate}, Text: "  /start  "}},
			wantUserID: 10, wantHasID: true, wantChatID: 10, wantText: "/start",
		},
		{
			name: "callback query",
			update: Update{UpdateID: 2, CallbackQuery: &CallbackQuery{
				ID: "q", From: User{ID: 20}, Message: &Message{Chat: Chat{ID: -100, Type: "group"}}}},
			wantUserID: 20, wantHasID: true, wantChatID: -100,
		},
		{
			name:   "channel post without sender",
			update: Update{UpdateID: 3, Message: &Message{Chat: Chat{ID: -5, Type: "channel"}, Text: "news"}},
			wantChatID: -5, wantText: "news",
		},
		{
			name:   "empty update",
			update: Update{UpdateID: 4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, ok := tt.update.UserID()
			require.Equal(t, tt.wantHasID, ok)
			require.Equal(t, tt.wantUserID, userID)
			require.Equal(t, tt.wantChatID, tt.update.ChatID())
			require.Equal(t, tt.wantText, tt.update.Text())
		})
	}
}

func TestUpdate_Decode(t *testing.T) {
	const data = `{"update_id":77,"message":{"message_id":3,"from":{"id":5,"is_bot":false,"first_name":"Ann"},` +
		`"chat":{"id":5,"type":"private"},"date":1700000000,"text":"/ping"}}`

	var update Update
	require.NoError(t, json.Unmarshal([]byte(data), &update))
	require.EqualValues(t, 77, update.UpdateID)
	chat, ok := update.Chat()
	require.True(t, ok)
	require.True(t, chat.IsPrivate())
	require.Equal(t, "Ann", update.Message.From.FirstName)
}

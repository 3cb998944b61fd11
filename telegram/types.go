/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

// Package telegram contains a minimal Telegram Bot API transport: update types,
// an HTTP client for the API methods used by the bot and a long-polling worker.
package telegram

import "strings"

// ChatTypePrivate is the type of a one-to-one chat with the bot.
const ChatTypePrivate = "private"

// Update is an incoming update.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is a chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
}

// User is a Telegram user or bot.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Chat is a chat where a message was sent.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// IsPrivate reports whether the chat is a private one.
func (c Chat) IsPrivate() bool {
	return c.Type == ChatTypePrivate
}

// CallbackQuery is a press of an inline keyboard button.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// UserID returns the identity of the user that caused the update.
// False is returned for updates without a sender (e.g. channel posts).
func (u *Update) UserID() (int64, bool) {
	switch {
	case u.Message != nil && u.Message.From != nil:
		return u.Message.From.ID, true
	case u.CallbackQuery != nil:
		return u.CallbackQuery.From.ID, true
	}
	return 0, false
}

// Chat returns the chat the update belongs to.
func (u *Update) Chat() (Chat, bool) {
	switch {
	case u.Message != nil:
		return u.Message.Chat, true
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return u.CallbackQuery.Message.Chat, true
	}
	return Chat{}, false
}

// ChatID returns the identifier of the chat the update belongs to or 0.
func (u *Update) ChatID() int64 {
	chat, _ := u.Chat()
	return chat.ID
}

// Text returns the text of the message or an empty string.
func (u *Update) Text() string {
	if u.Message == nil {
		return ""
	}
	return strings.TrimSpace(u.Message.Text)
}

// SendMessageOpts contains optional parameters of sendMessage.
type SendMessageOpts struct {
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	ReplyToMessageID      int64  `json:"reply_to_message_id,omitempty"`
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
	SendMessageOpts
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

type answerCallbackQueryRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

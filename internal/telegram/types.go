// Package telegram provides the Telegram Bot API gateway: the wire
// types, a typed HTTP client, and two interchangeable event-delivery
// adapters (webhook receiver and long-poll loop) that feed the same
// update handler.
package telegram

import "context"

// Update is a single inbound event: either a chat message or an
// inline-button callback query. Exactly one of Message and
// CallbackQuery is set for the events this bot consumes.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is an inbound or referenced chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// Chat identifies a conversation.
type Chat struct {
	ID int64 `json:"id"`
}

// CallbackQuery is a user's press of an inline button. ID is the
// acknowledgment token; Data is the opaque payload bound to the
// button; Message is the message the button was attached to.
type CallbackQuery struct {
	ID      string   `json:"id"`
	Data    string   `json:"data,omitempty"`
	Message *Message `json:"message,omitempty"`
}

// ChatID returns the chat the callback originated in, or 0 when the
// originating message is no longer available.
func (c *CallbackQuery) ChatID() int64 {
	if c.Message == nil {
		return 0
	}
	return c.Message.Chat.ID
}

// InlineKeyboardMarkup is the reply markup for inline buttons.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton is a single inline button.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Handler consumes inbound updates. Both delivery adapters (webhook
// and poller) drive the same Handler, so dispatch behavior cannot
// diverge between deployment modes.
type Handler interface {
	HandleUpdate(ctx context.Context, upd Update)
}

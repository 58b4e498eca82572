package telegram

import "gopkg.in/telebot.v3"

// Sender delivers a text message to a chat, optionally with an inline
// keyboard. It keeps the notifier independent of a live bot connection.
type Sender interface {
	SendMessage(chatID int64, text string, markup *telebot.ReplyMarkup) error
}

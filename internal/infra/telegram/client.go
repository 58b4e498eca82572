// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"mawakit/internal/domain/notification"
	domainTelegram "mawakit/internal/domain/telegram"
)

// ErrNoChat means nobody has sent /start yet, so there is nowhere to notify.
var ErrNoChat = errors.New("no telegram chat registered; send /start to the bot")

const (
	uniquePlay = "adhan_play"
	uniqueStop = "adhan_stop"
)

// NewBot builds a long-polling bot with a logging error handler.
func NewBot(token string, log *logrus.Entry) (*telebot.Bot, error) {
	pref := telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := log.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"text": c.Text(), "sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Telegram handler failed")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	return bot, nil
}

// TelebotAdapter implements the Sender interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

func (tba *TelebotAdapter) SendMessage(chatID int64, text string, markup *telebot.ReplyMarkup) error {
	opts := &telebot.SendOptions{ParseMode: telebot.ModeHTML}
	if markup != nil {
		opts.ReplyMarkup = markup
	}
	_, err := tba.bot.Send(telebot.ChatID(chatID), text, opts)
	return err
}

// ChatStore yields the registered chat id, 0 when there is none.
type ChatStore interface {
	TelegramChat(ctx context.Context) int64
}

// Notifier delivers notifications to the registered chat. Registering a chat
// with /start is what grants notification permission.
type Notifier struct {
	sender domainTelegram.Sender
	chats  ChatStore
	log    *logrus.Entry
}

func NewNotifier(sender domainTelegram.Sender, chats ChatStore, log *logrus.Entry) *Notifier {
	return &Notifier{sender: sender, chats: chats, log: log}
}

func (n *Notifier) Send(ctx context.Context, msg notification.Notification) error {
	chatID := n.chats.TelegramChat(ctx)
	if chatID == 0 {
		return ErrNoChat
	}
	var markup *telebot.ReplyMarkup
	if msg.OfferPlayback {
		markup = playbackMarkup()
	}
	if err := n.sender.SendMessage(chatID, formatNotification(msg), markup); err != nil {
		return fmt.Errorf("failed to send notification to chat %d: %w", chatID, err)
	}
	n.log.WithFields(logrus.Fields{"chat_id": chatID, "title": msg.Title}).Debug("Notification sent")
	return nil
}

func (n *Notifier) PermissionGranted() bool {
	return n.chats.TelegramChat(context.Background()) != 0
}

// RequestPermission cannot prompt anyone by itself; it tells the operator what
// to do.
func (n *Notifier) RequestPermission(ctx context.Context) error {
	if n.chats.TelegramChat(ctx) != 0 {
		return nil
	}
	n.log.Warn("Notifications need a chat: open the bot in Telegram and send /start")
	return ErrNoChat
}

func formatNotification(msg notification.Notification) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(escapeHTML(msg.Title))
	b.WriteString("</b>")
	if msg.Body != "" {
		b.WriteString("\n")
		b.WriteString(escapeHTML(msg.Body))
	}
	return b.String()
}

func playbackMarkup() *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{}
	m.Inline(m.Row(
		m.Data("▶️ تشغيل الأذان", uniquePlay),
		m.Data("⏹ إيقاف", uniqueStop),
	))
	return m
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

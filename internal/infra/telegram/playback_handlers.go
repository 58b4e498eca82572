package telegram

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterPlaybackHandlers wires /play, /stop and the inline buttons attached
// to adhan notifications. Only the registered chat may use them. Playback runs in the background so the handler can
// acknowledge right away.
func RegisterPlaybackHandlers(ctx context.Context, b *telebot.Bot, deps Deps, baseLogger *logrus.Entry) {
	log := baseLogger.WithField("handler_group", "playback")

	play := func(c telebot.Context) string {
		if err := deps.Settings.Authorize(ctx, c.Chat().ID); err != nil {
			return notAuthorizedText
		}
		if deps.Player == nil {
			return "الصوت معطل على هذا الجهاز."
		}
		id := deps.Prefs.AdhanSound(ctx)
		go func() {
			playCtx, cancel := context.WithTimeout(ctx, 15*time.Minute)
			defer cancel()
			if err := deps.Player.Play(playCtx, id); err != nil {
				c.Bot().OnError(err, c)
			}
		}()
		log.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "sound": id}).Info("Manual playback requested")
		return "▶️ جاري تشغيل الأذان"
	}

	stop := func(c telebot.Context) string {
		if err := deps.Settings.Authorize(ctx, c.Chat().ID); err != nil {
			return notAuthorizedText
		}
		if deps.Player == nil {
			return "الصوت معطل على هذا الجهاز."
		}
		deps.Player.Stop()
		log.WithField("sender_id", c.Sender().ID).Info("Playback stopped")
		return "⏹ تم إيقاف الأذان"
	}

	b.Handle("/play", func(c telebot.Context) error {
		return c.Send(play(c))
	})
	b.Handle("/stop", func(c telebot.Context) error {
		return c.Send(stop(c))
	})

	b.Handle(&telebot.Btn{Unique: uniquePlay}, func(c telebot.Context) error {
		return c.Respond(&telebot.CallbackResponse{Text: play(c)})
	})
	b.Handle(&telebot.Btn{Unique: uniqueStop}, func(c telebot.Context) error {
		return c.Respond(&telebot.CallbackResponse{Text: stop(c)})
	})
}

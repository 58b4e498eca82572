// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"mawakit/internal/app"
	"mawakit/internal/domain/adhan"
	"mawakit/internal/domain/prayer"
)

// Player is the audio surface the bot can drive.
type Player interface {
	Play(ctx context.Context, id adhan.SoundID) error
	Stop()
}

// Deps are the services the handlers call into.
type Deps struct {
	Settings  *app.SettingsService
	Prefs     *app.Preferences
	Timings   *app.TimingsService
	Countdown *app.CountdownService
	Player    Player // nil when audio is disabled
}

const helpText = `الأوامر المتاحة:

/times - مواقيت اليوم
/next - الصلاة القادمة والوقت المتبقي
/city &lt;المدينة&gt; - تغيير المدينة
/refresh - تحديث المواقيت من الخادم
/settings - عرض الإعدادات
/notify on|off - تفعيل الإشعارات
/prayer &lt;الصلاة&gt; on|off - إشعار صلاة معينة
/pre &lt;الصلاة&gt; &lt;0|5|10|15|20|30&gt; - التنبيه قبل الأذان
/iqama &lt;الصلاة&gt; &lt;دقائق&gt; | ramadan | default
/sound &lt;المعرف&gt; - اختيار صوت الأذان
/audio on|off - التشغيل التلقائي للأذان
/play - تشغيل الأذان
/stop - إيقاف الأذان`

func RegisterBotCommands(ctx context.Context, b *telebot.Bot, deps Deps, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		logCtx := startHelpLogger.WithFields(logrus.Fields{"command": "/start", "sender_id": c.Sender().ID})
		logCtx.Info("Processing /start command")

		err := deps.Settings.Register(ctx, c.Chat().ID)
		if errors.Is(err, app.ErrChatNotAuthorized) {
			logCtx.Warn("Another chat already owns this instance")
			return c.Send("هذا البوت مرتبط بمحادثة أخرى. يمكنك استخدام /times و /next فقط.")
		}
		if err != nil {
			logCtx.WithError(err).Error("Failed to register chat")
			return c.Send("حدث خطأ أثناء التسجيل. حاول مرة أخرى لاحقا.")
		}
		return c.Send("السلام عليكم! سيتم إرسال إشعارات الصلاة إلى هذه المحادثة.\n\n"+helpText, telebot.ModeHTML)
	})

	b.Handle("/help", func(c telebot.Context) error {
		startHelpLogger.WithFields(logrus.Fields{"command": "/help", "sender_id": c.Sender().ID}).Info("Processing /help command")
		return c.Send(helpText, telebot.ModeHTML)
	})

	timingsLogger := baseLogger.WithField("handler_group", "timings")

	b.Handle("/times", func(c telebot.Context) error {
		snap := deps.Timings.Snapshot()
		if snap.Timings == nil && !snap.Loading {
			snap = deps.Timings.FetchTimings(ctx, false)
		}
		return c.Send(FormatTimings(snap, deps.Prefs.IqamaSettings(ctx)), telebot.ModeHTML)
	})

	b.Handle("/next", func(c telebot.Context) error {
		next, ok := deps.Countdown.Next(ctx)
		if !ok {
			return c.Send(FormatTimings(deps.Timings.Snapshot(), nil), telebot.ModeHTML)
		}
		return c.Send(FormatNext(next), telebot.ModeHTML)
	})

	b.Handle("/city", func(c telebot.Context) error {
		logCtx := timingsLogger.WithFields(logrus.Fields{"command": "/city", "sender_id": c.Sender().ID})
		if err := deps.Settings.Authorize(ctx, c.Chat().ID); err != nil {
			logCtx.Warn("Unauthorized access attempt")
			return c.Send(notAuthorizedText)
		}
		name := strings.Join(c.Args(), " ")
		if name == "" {
			return c.Send(cityListText(deps.Timings.Snapshot().City))
		}
		snap, err := deps.Settings.SelectCity(ctx, name)
		if errors.Is(err, app.ErrUnknownCity) {
			return c.Send("مدينة غير معروفة.\n\n" + cityListText(deps.Timings.Snapshot().City))
		}
		if err != nil {
			logCtx.WithError(err).Error("Failed to change city")
			return c.Send("تعذر حفظ المدينة.")
		}
		logCtx.WithField("city", snap.City.APIName).Info("City changed")
		return c.Send(FormatTimings(snap, deps.Prefs.IqamaSettings(ctx)), telebot.ModeHTML)
	})

	b.Handle("/refresh", func(c telebot.Context) error {
		timingsLogger.WithFields(logrus.Fields{"command": "/refresh", "sender_id": c.Sender().ID}).Info("Manual refresh")
		snap := deps.Timings.Refetch(ctx)
		return c.Send(FormatTimings(snap, deps.Prefs.IqamaSettings(ctx)), telebot.ModeHTML)
	})
}

const notAuthorizedText = "عذرا، لا تملك صلاحية تغيير الإعدادات. أرسل /start أولا."

func cityListText(current prayer.City) string {
	var b strings.Builder
	b.WriteString("المدن المتاحة:\n")
	for _, c := range prayer.Cities {
		mark := "• "
		if c.APIName == current.APIName {
			mark = "✅ "
		}
		b.WriteString(mark + c.NameAr + " (" + c.APIName + ")\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"mawakit/internal/app"
	"mawakit/internal/domain/adhan"
	"mawakit/internal/domain/prayer"
)

// RegisterSettingsHandlers wires the commands that change preferences. Only
// the registered chat may use them.
func RegisterSettingsHandlers(ctx context.Context, b *telebot.Bot, deps Deps, baseLogger *logrus.Entry) {
	guarded := func(command string, h func(c telebot.Context, log *logrus.Entry) error) {
		b.Handle(command, func(c telebot.Context) error {
			handlerLogger := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			handlerLogger.Info("Command received")
			if err := deps.Settings.Authorize(ctx, c.Chat().ID); err != nil {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send(notAuthorizedText)
			}
			return h(c, handlerLogger)
		})
	}

	guarded("/settings", func(c telebot.Context, _ *logrus.Entry) error {
		sound, _ := adhan.Lookup(deps.Prefs.AdhanSound(ctx))
		return c.Send(FormatSettings(deps.Prefs.NotificationSettings(ctx), sound, deps.Prefs.AudioPermission(ctx)), telebot.ModeHTML)
	})

	guarded("/notify", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("الاستخدام: /notify on|off")
		}
		on, err := parseOnOff(args[0])
		if err != nil {
			return c.Send("الاستخدام: /notify on|off")
		}
		if _, err := deps.Settings.SetGlobalNotifications(ctx, on); err != nil {
			return replySettingsError(c, log, err)
		}
		return c.Send(fmt.Sprintf("الإشعارات الآن %s.", onOff(on)))
	})

	guarded("/prayer", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 2 {
			return c.Send("الاستخدام: /prayer <الصلاة> on|off")
		}
		p, err := prayer.ParsePrayer(args[0])
		if err != nil {
			return c.Send("صلاة غير معروفة.")
		}
		on, err := parseOnOff(args[1])
		if err != nil {
			return c.Send("الاستخدام: /prayer <الصلاة> on|off")
		}
		if _, err := deps.Settings.SetPrayerEnabled(ctx, p, on); err != nil {
			return replySettingsError(c, log, err)
		}
		return c.Send(fmt.Sprintf("إشعار %s الآن %s.", p.ArabicName(), onOff(on)))
	})

	guarded("/pre", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 2 {
			return c.Send("الاستخدام: /pre <الصلاة> <0|5|10|15|20|30>")
		}
		p, err := prayer.ParsePrayer(args[0])
		if err != nil {
			return c.Send("صلاة غير معروفة.")
		}
		minutes, err := strconv.Atoi(args[1])
		if err != nil {
			return c.Send("عدد الدقائق يجب أن يكون رقما.")
		}
		if _, err := deps.Settings.SetPreAdhanMinutes(ctx, p, minutes); err != nil {
			return replySettingsError(c, log, err)
		}
		if minutes == 0 {
			return c.Send(fmt.Sprintf("تم إلغاء التنبيه المسبق لصلاة %s.", p.ArabicName()))
		}
		return c.Send(fmt.Sprintf("سيصلك تنبيه قبل %d دقائق من أذان %s.", minutes, p.ArabicName()))
	})

	guarded("/iqama", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		var (
			iq  prayer.IqamaSettings
			err error
		)
		switch {
		case len(args) == 0:
			return c.Send(FormatIqama(deps.Prefs.IqamaSettings(ctx)))
		case len(args) == 1 && strings.EqualFold(args[0], "ramadan"):
			iq, err = deps.Settings.ApplyIqamaPreset(ctx, prayer.RamadanIqamaSettings())
		case len(args) == 1 && strings.EqualFold(args[0], "default"):
			iq, err = deps.Settings.ApplyIqamaPreset(ctx, prayer.DefaultIqamaSettings())
		case len(args) == 2:
			p, perr := prayer.ParsePrayer(args[0])
			if perr != nil {
				return c.Send("صلاة غير معروفة.")
			}
			minutes, aerr := strconv.Atoi(args[1])
			if aerr != nil {
				return c.Send("عدد الدقائق يجب أن يكون رقما.")
			}
			iq, err = deps.Settings.SetIqamaOffset(ctx, p, minutes)
		default:
			return c.Send("الاستخدام: /iqama <الصلاة> <دقائق> | ramadan | default")
		}
		if err != nil {
			return replySettingsError(c, log, err)
		}
		return c.Send(FormatIqama(iq))
	})

	guarded("/sound", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send(FormatSounds(deps.Prefs.AdhanSound(ctx)), telebot.ModeHTML)
		}
		sound, err := deps.Settings.SetAdhanSound(ctx, args[0])
		if err != nil {
			if errors.Is(err, app.ErrInvalidSettings) {
				return c.Send("صوت غير معروف.\n\n"+FormatSounds(deps.Prefs.AdhanSound(ctx)), telebot.ModeHTML)
			}
			return replySettingsError(c, log, err)
		}
		return c.Send(fmt.Sprintf("تم اختيار صوت %s.", sound.Name))
	})

	guarded("/audio", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("الاستخدام: /audio on|off")
		}
		on, err := parseOnOff(args[0])
		if err != nil {
			return c.Send("الاستخدام: /audio on|off")
		}
		perm := adhan.PermissionDenied
		if on {
			perm = adhan.PermissionGranted
		}
		if err := deps.Settings.SetAudioPermission(ctx, perm); err != nil {
			return replySettingsError(c, log, err)
		}
		if on && deps.Player == nil {
			return c.Send("تم الحفظ، لكن الصوت معطل على هذا الجهاز.")
		}
		return c.Send(fmt.Sprintf("التشغيل التلقائي للأذان: %s.", permissionText(perm)))
	})
}

func replySettingsError(c telebot.Context, log *logrus.Entry, err error) error {
	if errors.Is(err, app.ErrInvalidSettings) {
		log.WithError(err).Warn("Rejected invalid settings")
		return c.Send("قيمة غير صالحة.")
	}
	log.WithError(err).Error("Failed to save settings")
	return c.Send(fmt.Sprintf("حدث خطأ أثناء حفظ الإعدادات: %s", err.Error()))
}

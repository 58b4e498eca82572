package telegram

import (
	"fmt"
	"strings"

	"mawakit/internal/app"
	"mawakit/internal/domain/adhan"
	"mawakit/internal/domain/prayer"
)

// FormatTimings renders the daily card: every displayed prayer with its
// iqama time, plus the offline banner when the data is stale.
func FormatTimings(snap app.Snapshot, iqama prayer.IqamaSettings) string {
	if snap.Timings == nil {
		if snap.Err != nil {
			return app.NoDataMessage
		}
		return "جاري تحميل المواقيت..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🕌 <b>مواقيت الصلاة - %s</b>\n", escapeHTML(snap.City.NameAr))
	if snap.HijriDate != "" {
		fmt.Fprintf(&b, "%s\n", escapeHTML(snap.HijriDate))
	}
	b.WriteString("\n")
	for _, p := range prayer.Notifiable {
		fmt.Fprintf(&b, "%s: <b>%s</b>", p.ArabicName(), snap.Timings.Clock(p))
		if iq := prayer.IqamaTime(p, *snap.Timings, iqama); iq != "--" {
			fmt.Fprintf(&b, " (الإقامة %s)", iq)
		}
		b.WriteString("\n")
	}
	if snap.IsStale || snap.IsOffline {
		b.WriteString("\n⚠️ وضع عدم الاتصال: يتم عرض بيانات محفوظة")
		if !snap.LastUpdated.IsZero() {
			fmt.Fprintf(&b, "\nآخر تحديث: %s", snap.LastUpdated.Format("2006/01/02 15:04"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatNext renders the countdown line.
func FormatNext(next prayer.Next) string {
	prefix := "⏳"
	if next.IsUrgent {
		prefix = "⏰"
	}
	return fmt.Sprintf("%s الصلاة القادمة: <b>%s</b> (%s)\nالوقت المتبقي: <b>%s</b>",
		prefix, next.NameAr(), next.At.Format("15:04"), next.Countdown)
}

// FormatSettings summarises the notification and audio preferences.
func FormatSettings(ns prayer.NotificationSettings, sound adhan.Sound, perm adhan.Permission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 الإشعارات: %s\n", onOff(ns.GlobalEnabled))
	for _, p := range prayer.Notifiable {
		ps := ns.Setting(p)
		fmt.Fprintf(&b, "%s: %s", p.ArabicName(), onOff(ps.Enabled))
		if ps.PreAdhanMinutes > 0 {
			fmt.Fprintf(&b, "، تنبيه قبل %d دقائق", ps.PreAdhanMinutes)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n🔊 صوت الأذان: %s\nالتشغيل التلقائي: %s", escapeHTML(sound.Name), permissionText(perm))
	return b.String()
}

// FormatIqama lists the iqama offsets.
func FormatIqama(iq prayer.IqamaSettings) string {
	var b strings.Builder
	b.WriteString("⏱ الإقامة بعد الأذان:\n")
	for _, p := range prayer.IqamaPrayers {
		fmt.Fprintf(&b, "%s: %d دقيقة\n", p.ArabicName(), iq[p])
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatSounds(current adhan.SoundID) string {
	var b strings.Builder
	b.WriteString("🔊 الأصوات المتاحة:\n")
	for _, s := range adhan.Sounds {
		mark := "  "
		if s.ID == current {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s <code>%s</code> %s\n", mark, s.ID, escapeHTML(s.Name))
	}
	return strings.TrimRight(b.String(), "\n")
}

func onOff(v bool) string {
	if v {
		return "مفعلة"
	}
	return "معطلة"
}

func permissionText(p adhan.Permission) string {
	switch p {
	case adhan.PermissionGranted:
		return "مسموح"
	case adhan.PermissionDenied:
		return "مرفوض"
	default:
		return "غير محدد"
	}
}

// parseOnOff accepts English and Arabic switches.
func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "تشغيل", "نعم":
		return true, nil
	case "off", "false", "0", "إيقاف", "لا":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

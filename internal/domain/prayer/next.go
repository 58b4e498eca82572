package prayer

import (
	"fmt"
	"time"
)

// UrgentThreshold is how close the next prayer must be for the countdown to
// be emphasised.
const UrgentThreshold = 10 * time.Minute

// Next describes the upcoming prayer relative to a point in time.
type Next struct {
	Prayer    Prayer
	At        time.Time
	Remaining time.Duration
	Countdown string
	IsUrgent  bool
	// Tomorrow is set when every prayer of today has passed and the result
	// is tomorrow's Fajr.
	Tomorrow bool
}

// NameAr returns the Arabic name of the next prayer.
func (n Next) NameAr() string {
	return n.Prayer.ArabicName()
}

// NextPrayer finds the earliest displayed prayer strictly after now. When all
// of today's prayers have passed it wraps to tomorrow's Fajr, taken from
// tomorrow when known and otherwise approximated by today's Fajr a day later.
// ok is false when today has no usable times at all.
func NextPrayer(today Timings, now time.Time, tomorrow *Timings) (next Next, ok bool) {
	var firstFajr time.Time
	for _, p := range Notifiable {
		at, err := today.InstantOn(p, now)
		if err != nil {
			continue
		}
		if p == Fajr {
			firstFajr = at
		}
		if at.After(now) {
			return build(p, at, now, false), true
		}
	}

	nextDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	if tomorrow != nil {
		if at, err := tomorrow.InstantOn(Fajr, nextDay); err == nil {
			return build(Fajr, at, now, true), true
		}
	}
	if firstFajr.IsZero() {
		return Next{}, false
	}
	at := time.Date(nextDay.Year(), nextDay.Month(), nextDay.Day(), firstFajr.Hour(), firstFajr.Minute(), 0, 0, now.Location())
	return build(Fajr, at, now, true), true
}

func build(p Prayer, at, now time.Time, tomorrow bool) Next {
	remaining := at.Sub(now)
	return Next{
		Prayer:    p,
		At:        at,
		Remaining: remaining,
		Countdown: FormatCountdown(remaining),
		IsUrgent:  remaining < UrgentThreshold,
		Tomorrow:  tomorrow,
	}
}

// FormatCountdown renders d as HH:MM:SS, truncating to whole seconds.
// Negative durations render as 00:00:00.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// IqamaTime returns the HH:MM at which the iqama for p is called, or "--"
// when p has no offset or no usable adhan time.
func IqamaTime(p Prayer, t Timings, offsets IqamaSettings) string {
	offset, ok := offsets[p]
	if !ok {
		return "--"
	}
	h, m, err := ParseClock(t.Get(p))
	if err != nil {
		return "--"
	}
	total := (h*60 + m + offset) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// internal/domain/prayer/prayer.go
package prayer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Prayer identifies one of the daily time slots returned by the upstream API.
type Prayer string

const (
	Fajr    Prayer = "Fajr"
	Sunrise Prayer = "Sunrise"
	Dhuhr   Prayer = "Dhuhr"
	Asr     Prayer = "Asr"
	Sunset  Prayer = "Sunset"
	Maghrib Prayer = "Maghrib"
	Isha    Prayer = "Isha"
)

// All lists every slot in day order.
var All = []Prayer{Fajr, Sunrise, Dhuhr, Asr, Sunset, Maghrib, Isha}

// Notifiable lists the slots that carry notification settings and are shown as
// cards. Sunset is omitted: it coincides with Maghrib.
var Notifiable = []Prayer{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

// IqamaPrayers lists the prayers that have an iqama offset.
var IqamaPrayers = []Prayer{Fajr, Dhuhr, Asr, Maghrib, Isha}

// ArabicName returns the display name used in notifications.
func (p Prayer) ArabicName() string {
	switch p {
	case Fajr:
		return "الفجر"
	case Sunrise:
		return "الشروق"
	case Dhuhr:
		return "الظهر"
	case Asr:
		return "العصر"
	case Sunset:
		return "الغروب"
	case Maghrib:
		return "المغرب"
	case Isha:
		return "العشاء"
	default:
		return string(p)
	}
}

// Valid reports whether p is one of the known slots.
func (p Prayer) Valid() bool {
	switch p {
	case Fajr, Sunrise, Dhuhr, Asr, Sunset, Maghrib, Isha:
		return true
	default:
		return false
	}
}

// ParsePrayer matches a prayer name case-insensitively.
func ParsePrayer(s string) (Prayer, error) {
	for _, p := range All {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown prayer %q", s)
}

// Timings holds one day's prayer times as HH:MM strings, exactly as the
// upstream API sends them.
type Timings struct {
	Fajr    string `json:"Fajr"`
	Sunrise string `json:"Sunrise"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Sunset  string `json:"Sunset"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}

// Get returns the raw time string for p.
func (t Timings) Get(p Prayer) string {
	switch p {
	case Fajr:
		return t.Fajr
	case Sunrise:
		return t.Sunrise
	case Dhuhr:
		return t.Dhuhr
	case Asr:
		return t.Asr
	case Sunset:
		return t.Sunset
	case Maghrib:
		return t.Maghrib
	case Isha:
		return t.Isha
	default:
		return ""
	}
}

// Clock returns the HH:MM part of the time for p, dropping any timezone
// suffix such as " (CET)".
func (t Timings) Clock(p Prayer) string {
	fields := strings.Fields(t.Get(p))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ParseClock splits an "HH:MM" string (optionally followed by a suffix).
func ParseClock(s string) (hour, minute int, err error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("empty time string")
	}
	parts := strings.Split(fields[0], ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// InstantOn anchors the time for p on the calendar day of day, in day's
// location.
func (t Timings) InstantOn(p Prayer, day time.Time) (time.Time, error) {
	h, m, err := ParseClock(t.Get(p))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", p, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location()), nil
}

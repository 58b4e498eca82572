package prayer

import (
	"fmt"
	"time"
)

// HijriDate is the Islamic calendar date the upstream API attaches to each day.
type HijriDate struct {
	Date    string `json:"date"`
	Day     string `json:"day"`
	Weekday struct {
		Ar string `json:"ar"`
		En string `json:"en"`
	} `json:"weekday"`
	Month struct {
		Number int    `json:"number"`
		En     string `json:"en"`
		Ar     string `json:"ar"`
	} `json:"month"`
	Year string `json:"year"`
}

// Format renders the date the way it is shown next to the timings,
// e.g. "14 رمضان 1447 هـ".
func (h HijriDate) Format() string {
	return fmt.Sprintf("%s %s %s هـ", h.Day, h.Month.Ar, h.Year)
}

// GregorianDate is the civil date of a calendar entry; Date is DD-MM-YYYY.
type GregorianDate struct {
	Date    string `json:"date"`
	Weekday struct {
		En string `json:"en"`
	} `json:"weekday"`
}

// CalendarDay is one row of a monthly schedule.
type CalendarDay struct {
	Timings Timings `json:"timings"`
	Date    struct {
		Gregorian GregorianDate `json:"gregorian"`
		Hijri     HijriDate     `json:"hijri"`
	} `json:"date"`
}

// Day parses the Gregorian date of the entry in loc.
func (d CalendarDay) Day(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("02-01-2006", d.Date.Gregorian.Date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid gregorian date %q: %w", d.Date.Gregorian.Date, err)
	}
	return t, nil
}

// IsFriday reports whether the entry falls on a Friday.
func (d CalendarDay) IsFriday() bool {
	return d.Date.Gregorian.Weekday.En == "Friday"
}

// FindDay returns the entry for the calendar day of t.
func FindDay(days []CalendarDay, t time.Time) (CalendarDay, bool) {
	for _, d := range days {
		day, err := d.Day(t.Location())
		if err != nil {
			continue
		}
		if day.Year() == t.Year() && day.Month() == t.Month() && day.Day() == t.Day() {
			return d, true
		}
	}
	return CalendarDay{}, false
}

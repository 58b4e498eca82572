package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mawakit/internal/domain/prayer"
	"mawakit/internal/infra/logger"
)

func monthDays(month time.Month, year, count int, fajr string) []prayer.CalendarDay {
	days := make([]prayer.CalendarDay, 0, count)
	for d := 1; d <= count; d++ {
		var day prayer.CalendarDay
		day.Timings = sampleTimings()
		day.Timings.Fajr = fajr
		day.Date.Gregorian.Date = fmt.Sprintf("%02d-%02d-%d", d, int(month), year)
		days = append(days, day)
	}
	return days
}

func TestMonthCursorShift(t *testing.T) {
	t.Parallel()
	c := MonthCursor{Month: 12, Year: 2026}
	assert.Equal(t, MonthCursor{Month: 1, Year: 2027}, c.Shift(1))
	assert.Equal(t, MonthCursor{Month: 11, Year: 2026}, c.Shift(-1))
	assert.Equal(t, MonthCursor{Month: 12, Year: 2025}, c.Shift(-12))
	assert.Equal(t, "12/2026", c.String())
}

func TestCalendarMonth_CacheFirstWithStaleFallback(t *testing.T) {
	f := newFixture()
	f.api.calendar["Tunis"] = monthDays(time.March, 2026, 31, "05:00")
	svc := NewCalendarService(f.cache, f.api, f.conn, f.clock, logger.Discard())
	ctx := context.Background()
	cursor := CursorFor(f.clock.Now())

	res, err := svc.Month(ctx, tunis, cursor)
	require.NoError(t, err)
	assert.Len(t, res.Days, 31)
	assert.False(t, res.Stale)

	_, err = svc.Month(ctx, tunis, cursor)
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.callCount())

	f.clock.Advance(48 * time.Hour)
	f.api.err = errNet
	res, err = svc.Month(ctx, tunis, cursor)
	require.NoError(t, err)
	assert.True(t, res.Stale)

	_, err = svc.Month(ctx, sfax, cursor)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCalendarWeekSpansMonths(t *testing.T) {
	f := newFixture()
	f.clock.Advance(17 * 24 * time.Hour) // 29 March
	f.api.calendar["Tunis"] = append(monthDays(time.March, 2026, 31, "05:00"), monthDays(time.April, 2026, 30, "04:30")...)
	svc := NewCalendarService(f.cache, f.api, f.conn, f.clock, logger.Discard())

	week, err := svc.Week(context.Background(), tunis)
	require.NoError(t, err)
	require.Len(t, week, 7)
	assert.Equal(t, "29-03-2026", week[0].Date.Gregorian.Date)
	assert.Equal(t, "04-04-2026", week[6].Date.Gregorian.Date)
}

func TestCalendarTomorrowTimingsIsCacheOnly(t *testing.T) {
	f := newFixture()
	svc := NewCalendarService(f.cache, f.api, f.conn, f.clock, logger.Discard())
	ctx := context.Background()

	assert.Nil(t, svc.TomorrowTimings(ctx, tunis))
	assert.Equal(t, 0, f.api.callCount())

	days := monthDays(time.March, 2026, 31, "05:00")
	days[12].Timings.Fajr = "04:58"
	f.api.calendar["Tunis"] = days
	_, err := svc.Month(ctx, tunis, CursorFor(f.clock.Now()))
	require.NoError(t, err)

	tomorrow := svc.TomorrowTimings(ctx, tunis)
	require.NotNil(t, tomorrow)
	assert.Equal(t, "04:58", tomorrow.Fajr)
}

func TestCountdownService(t *testing.T) {
	f := newFixture()
	f.clock.Advance(12 * time.Hour) // 22:00
	f.api.timings["Tunis"] = sampleTimings()
	days := monthDays(time.March, 2026, 31, "05:00")
	days[12].Timings.Fajr = "04:58"
	f.api.calendar["Tunis"] = days

	timings := f.timingsService(tunis)
	calendar := NewCalendarService(f.cache, f.api, f.conn, f.clock, logger.Discard())
	countdown := NewCountdownService(timings, calendar, f.clock, logger.Discard())
	ctx := context.Background()

	countdown.Tick(ctx)
	_, ok := countdown.Current()
	assert.False(t, ok)

	timings.FetchTimings(ctx, false)
	countdown.Tick(ctx)
	next, ok := countdown.Current()
	require.True(t, ok)
	assert.Equal(t, prayer.Fajr, next.Prayer)
	assert.Equal(t, "07:00:00", next.Countdown)

	_, err := calendar.Month(ctx, tunis, CursorFor(f.clock.Now()))
	require.NoError(t, err)
	next, ok = countdown.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "06:58:00", next.Countdown)
	assert.True(t, next.Tomorrow)
}

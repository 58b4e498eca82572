package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"mawakit/internal/domain/prayer"
	"mawakit/internal/infra/cache"
)

// CalendarAPI fetches a whole month of timings.
type CalendarAPI interface {
	CalendarByCity(ctx context.Context, city string, month, year int) ([]prayer.CalendarDay, error)
}

// MonthCursor is the month shown by the calendar view.
type MonthCursor struct {
	Month int
	Year  int
}

// CursorFor returns the cursor for the month containing t.
func CursorFor(t time.Time) MonthCursor {
	return MonthCursor{Month: int(t.Month()), Year: t.Year()}
}

// Shift moves the cursor by offset months, carrying into the year.
func (c MonthCursor) Shift(offset int) MonthCursor {
	t := time.Date(c.Year, time.Month(c.Month)+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	return MonthCursor{Month: int(t.Month()), Year: t.Year()}
}

func (c MonthCursor) String() string {
	return fmt.Sprintf("%02d/%d", c.Month, c.Year)
}

// CalendarResult is one month of timings and where it came from.
type CalendarResult struct {
	Days  []prayer.CalendarDay
	Stale bool
}

// CalendarService loads monthly schedules through the same cache as the daily
// timings.
type CalendarService struct {
	cache *cache.Cache
	api   CalendarAPI
	conn  Connectivity
	clock clockwork.Clock
	log   *logrus.Entry
}

func NewCalendarService(c *cache.Cache, api CalendarAPI, conn Connectivity, clock clockwork.Clock, log *logrus.Entry) *CalendarService {
	return &CalendarService{cache: c, api: api, conn: conn, clock: clock, log: log}
}

// Month returns the schedule for the given month, cache first. When the
// network is unavailable an expired entry is used before giving up.
func (s *CalendarService) Month(ctx context.Context, city prayer.City, cursor MonthCursor) (CalendarResult, error) {
	key := cache.CalendarKey(city.APIName, cursor.Month, cursor.Year)
	log := s.log.WithFields(logrus.Fields{"city": city.APIName, "month": cursor.String()})

	if e := cache.Get[[]prayer.CalendarDay](ctx, s.cache, key, city.APIName); e != nil {
		log.Debug("Using cached calendar")
		return CalendarResult{Days: e.Data}, nil
	}

	if s.conn.Online() {
		days, err := s.api.CalendarByCity(ctx, city.APIName, cursor.Month, cursor.Year)
		if err == nil {
			s.cache.Set(ctx, key, days, city.APIName)
			log.WithField("days", len(days)).Info("Fetched calendar from server")
			return CalendarResult{Days: days}, nil
		}
		log.WithError(err).Warn("Calendar fetch failed, trying offline fallback")
	}

	if e := cache.GetStale[[]prayer.CalendarDay](ctx, s.cache, key, city.APIName); e != nil {
		return CalendarResult{Days: e.Data, Stale: true}, nil
	}
	return CalendarResult{}, fmt.Errorf("calendar %s for %s: %w", cursor, city.APIName, ErrNoData)
}

// Week returns the seven days starting today, reaching into next month when
// needed.
func (s *CalendarService) Week(ctx context.Context, city prayer.City) ([]prayer.CalendarDay, error) {
	now := s.clock.Now()
	months := map[MonthCursor][]prayer.CalendarDay{}
	week := make([]prayer.CalendarDay, 0, 7)
	for i := 0; i < 7; i++ {
		day := time.Date(now.Year(), now.Month(), now.Day()+i, 12, 0, 0, 0, now.Location())
		cursor := CursorFor(day)
		days, ok := months[cursor]
		if !ok {
			res, err := s.Month(ctx, city, cursor)
			if err != nil {
				if len(week) > 0 {
					break
				}
				return nil, err
			}
			days = res.Days
			months[cursor] = days
		}
		if d, found := prayer.FindDay(days, day); found {
			week = append(week, d)
		}
	}
	return week, nil
}

// TomorrowTimings looks tomorrow up in the cached calendar without touching
// the network. It returns nil when the month is not cached.
func (s *CalendarService) TomorrowTimings(ctx context.Context, city prayer.City) *prayer.Timings {
	now := s.clock.Now()
	tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 12, 0, 0, 0, now.Location())
	cursor := CursorFor(tomorrow)
	e := cache.GetStale[[]prayer.CalendarDay](ctx, s.cache, cache.CalendarKey(city.APIName, cursor.Month, cursor.Year), city.APIName)
	if e == nil {
		return nil
	}
	d, ok := prayer.FindDay(e.Data, tomorrow)
	if !ok {
		return nil
	}
	return &d.Timings
}

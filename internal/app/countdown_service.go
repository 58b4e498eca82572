package app

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"mawakit/internal/domain/prayer"
)

// CountdownService recomputes the next prayer on every tick and remembers
// the last result for the display surfaces.
type CountdownService struct {
	timings  *TimingsService
	calendar *CalendarService
	clock    clockwork.Clock
	log      *logrus.Entry

	mu      sync.RWMutex
	current *prayer.Next
}

func NewCountdownService(timings *TimingsService, calendar *CalendarService, clock clockwork.Clock, log *logrus.Entry) *CountdownService {
	return &CountdownService{timings: timings, calendar: calendar, clock: clock, log: log}
}

// Next computes the next prayer from the current snapshot. ok is false while
// no timings are loaded.
func (s *CountdownService) Next(ctx context.Context) (prayer.Next, bool) {
	snap := s.timings.Snapshot()
	if snap.Timings == nil {
		return prayer.Next{}, false
	}
	var tomorrow *prayer.Timings
	if s.calendar != nil {
		tomorrow = s.calendar.TomorrowTimings(ctx, snap.City)
	}
	return prayer.NextPrayer(*snap.Timings, s.clock.Now(), tomorrow)
}

// Tick refreshes the remembered countdown.
func (s *CountdownService) Tick(ctx context.Context) {
	next, ok := s.Next(ctx)

	s.mu.Lock()
	prev := s.current
	if ok {
		s.current = &next
	} else {
		s.current = nil
	}
	s.mu.Unlock()

	if ok && (prev == nil || prev.Prayer != next.Prayer) {
		s.log.WithFields(logrus.Fields{
			"prayer":    next.Prayer,
			"at":        next.At.Format("15:04"),
			"countdown": next.Countdown,
		}).Info("Next prayer changed")
	}
}

// Current returns the result of the last tick.
func (s *CountdownService) Current() (prayer.Next, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return prayer.Next{}, false
	}
	return *s.current, true
}

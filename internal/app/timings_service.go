// internal/app/timings_service.go
package app

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"mawakit/internal/domain/prayer"
	"mawakit/internal/infra/aladhan"
	"mawakit/internal/infra/cache"
)

// TimingsAPI fetches today's timings for a city.
type TimingsAPI interface {
	TimingsByCity(ctx context.Context, city string) (*aladhan.TimingsResult, error)
}

// Connectivity reports whether the network is believed reachable.
type Connectivity interface {
	Online() bool
}

// State is the provider's position in its load cycle.
type State string

const (
	StateIdle         State = "idle"
	StateLoading      State = "loading"
	StateFresh        State = "fresh"
	StateStaleOffline State = "stale_offline"
	StateErrorNoData  State = "error_no_data"
)

// Snapshot is what the provider exposes to its consumers.
type Snapshot struct {
	City        prayer.City
	State       State
	Timings     *prayer.Timings
	HijriDate   string
	Loading     bool
	Err         error
	IsOffline   bool
	IsStale     bool
	LastUpdated time.Time
}

// cachedTimings is the payload stored under the timings cache key. Date is the
// Gregorian DD-MM-YYYY the timings belong to.
type cachedTimings struct {
	Timings   prayer.Timings `json:"timings"`
	HijriDate string         `json:"hijriDate"`
	Date      string         `json:"date,omitempty"`
}

// TimingsService keeps today's timings for the selected city, preferring fresh
// cache, then the network, then stale cache.
type TimingsService struct {
	cache *cache.Cache
	api   TimingsAPI
	conn  Connectivity
	clock clockwork.Clock
	log   *logrus.Entry

	mu          sync.Mutex
	snap        Snapshot
	issued      uint64 // last request sequence handed out
	adopted     uint64 // sequence of the last result applied to snap
	subscribers []func(Snapshot)
}

func NewTimingsService(c *cache.Cache, api TimingsAPI, conn Connectivity, clock clockwork.Clock, log *logrus.Entry, city prayer.City) *TimingsService {
	return &TimingsService{
		cache: c,
		api:   api,
		conn:  conn,
		clock: clock,
		log:   log,
		snap:  Snapshot{City: city, State: StateIdle, IsOffline: !conn.Online()},
	}
}

// Snapshot returns a copy of the current state.
func (s *TimingsService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.copy()
}

// Subscribe registers fn to receive every state change.
func (s *TimingsService) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// SelectCity switches to city. Timings are cleared immediately, so nothing
// from the previous city is ever exposed under the new one, and then a
// cache-first fetch runs.
func (s *TimingsService) SelectCity(ctx context.Context, city prayer.City) Snapshot {
	s.mu.Lock()
	s.snap = Snapshot{
		City:      city,
		State:     StateLoading,
		Loading:   true,
		IsOffline: s.snap.IsOffline,
	}
	snap := s.snap.copy()
	s.mu.Unlock()
	s.publish(snap)

	return s.FetchTimings(ctx, false)
}

// Refetch bypasses the fresh-cache check.
func (s *TimingsService) Refetch(ctx context.Context) Snapshot {
	return s.FetchTimings(ctx, true)
}

// HandleConnectivityChange records the new status and, on reconnect,
// refetches. Going offline never clears timings.
func (s *TimingsService) HandleConnectivityChange(ctx context.Context, online bool) {
	s.mu.Lock()
	s.snap.IsOffline = !online
	snap := s.snap.copy()
	s.mu.Unlock()
	s.publish(snap)

	if online {
		s.log.Info("Connection restored, refreshing timings")
		s.Refetch(ctx)
	}
}

// FetchTimings loads timings for the current city. Unless force is set a fresh
// cache entry for today wins. Successful network results are always written to
// the cache, but only adopted if the city has not changed and no newer request
// has completed in the meantime.
func (s *TimingsService) FetchTimings(ctx context.Context, force bool) Snapshot {
	s.mu.Lock()
	city := s.snap.City
	s.issued++
	seq := s.issued
	offline := !s.conn.Online()
	s.snap.Loading = true
	s.snap.Err = nil
	s.snap.IsOffline = offline
	if s.snap.Timings == nil {
		s.snap.State = StateLoading
	}
	snap := s.snap.copy()
	s.mu.Unlock()
	s.publish(snap)

	logFields := logrus.Fields{"city": city.APIName, "force": force, "seq": seq}
	key := cache.TimingsKey(city.APIName)
	now := s.clock.Now()

	if !force {
		if e := cache.Get[cachedTimings](ctx, s.cache, key, city.APIName); e != nil && e.Data.isFor(now) {
			s.log.WithFields(logFields).Debug("Using cached timings")
			return s.adopt(seq, city, true, func(snap *Snapshot) {
				snap.Timings = &e.Data.Timings
				snap.HijriDate = e.Data.HijriDate
				snap.LastUpdated = e.StoredAt()
				snap.IsStale = false
				snap.State = StateFresh
			})
		}
	}

	if !offline {
		res, err := s.api.TimingsByCity(ctx, city.APIName)
		if err == nil {
			data := cachedTimings{
				Timings:   res.Timings,
				HijriDate: res.Date.Hijri.Format(),
				Date:      res.Date.Gregorian.Date,
			}
			s.cache.Set(ctx, key, data, city.APIName)
			s.log.WithFields(logFields).Info("Fetched timings from server")
			return s.adopt(seq, city, true, func(snap *Snapshot) {
				snap.Timings = &data.Timings
				snap.HijriDate = data.HijriDate
				snap.LastUpdated = now
				snap.IsStale = false
				snap.IsOffline = false
				snap.State = StateFresh
			})
		}
		s.log.WithError(err).WithFields(logFields).Warn("Fetch failed, trying offline fallback")
	}

	if e := cache.GetStale[cachedTimings](ctx, s.cache, key, city.APIName); e != nil {
		s.log.WithFields(logFields).WithField("stored_at", e.StoredAt()).Info("Using stale cached timings")
		return s.adopt(seq, city, false, func(snap *Snapshot) {
			snap.Timings = &e.Data.Timings
			snap.HijriDate = e.Data.HijriDate
			snap.LastUpdated = e.StoredAt()
			snap.IsStale = true
			snap.IsOffline = true
			snap.State = StateStaleOffline
		})
	}

	s.log.WithFields(logFields).Error("No timings available")
	return s.adopt(seq, city, false, func(snap *Snapshot) {
		snap.Timings = nil
		snap.HijriDate = ""
		snap.IsStale = false
		snap.IsOffline = true
		snap.Err = ErrNoData
		snap.State = StateErrorNoData
	})
}

// adopt applies a completed request unless it was overtaken. A result for a
// city that is no longer selected is always dropped. An older result is only
// taken when it is fresh and the view is not.
func (s *TimingsService) adopt(seq uint64, city prayer.City, fresh bool, apply func(*Snapshot)) Snapshot {
	s.mu.Lock()
	upgrade := fresh && s.snap.State != StateFresh
	if s.snap.City.APIName != city.APIName || (seq < s.adopted && !upgrade) {
		snap := s.snap.copy()
		s.mu.Unlock()
		s.log.WithFields(logrus.Fields{"city": city.APIName, "seq": seq}).Debug("Discarding superseded timings result")
		return snap
	}
	if seq > s.adopted {
		s.adopted = seq
	}
	apply(&s.snap)
	s.snap.Loading = s.issued > s.adopted
	snap := s.snap.copy()
	s.mu.Unlock()

	s.publish(snap)
	return snap
}

func (s *TimingsService) publish(snap Snapshot) {
	s.mu.Lock()
	subs := append([]func(Snapshot){}, s.subscribers...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snap.copy())
	}
}

func (snap Snapshot) copy() Snapshot {
	if snap.Timings != nil {
		t := *snap.Timings
		snap.Timings = &t
	}
	return snap
}

// isFor reports whether the entry can serve as today's timings. Entries saved
// without a date are trusted for the whole TTL.
func (c cachedTimings) isFor(now time.Time) bool {
	return c.Date == "" || c.Date == now.Format("02-01-2006")
}

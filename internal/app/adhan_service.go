// internal/app/adhan_service.go
package app

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"mawakit/internal/domain/adhan"
	"mawakit/internal/domain/notification"
	"mawakit/internal/domain/prayer"
)

// DefaultPlayTimeout bounds one automatic adhan playback.
const DefaultPlayTimeout = 10 * time.Minute

// AdhanService evaluates the notification rules on every tick.
type AdhanService interface {
	// CheckTime fires the pre-adhan and at-adhan notifications that are due,
	// each at most once per prayer per day.
	CheckTime(ctx context.Context)
}

// TimingsSource exposes the current timings snapshot.
type TimingsSource interface {
	Snapshot() Snapshot
}

// AdhanPreferences is the subset of preferences the rules read on each tick.
type AdhanPreferences interface {
	NotificationSettings(ctx context.Context) prayer.NotificationSettings
	AudioPermission(ctx context.Context) adhan.Permission
	AdhanSound(ctx context.Context) adhan.SoundID
}

// AdhanPlayer plays a sound to completion.
type AdhanPlayer interface {
	Play(ctx context.Context, id adhan.SoundID) error
}

// AdhanServiceImpl implements AdhanService.
type AdhanServiceImpl struct {
	timings     TimingsSource
	prefs       AdhanPreferences
	notifier    notification.Notifier
	player      AdhanPlayer // nil when audio is disabled
	clock       clockwork.Clock
	log         *logrus.Entry
	playTimeout time.Duration

	mu       sync.Mutex
	day      string
	notified map[string]struct{}
	playing  sync.WaitGroup
}

func NewAdhanServiceImpl(
	timings TimingsSource,
	prefs AdhanPreferences,
	notifier notification.Notifier,
	player AdhanPlayer,
	clock clockwork.Clock,
	log *logrus.Entry,
) *AdhanServiceImpl {
	return &AdhanServiceImpl{
		timings:     timings,
		prefs:       prefs,
		notifier:    notifier,
		player:      player,
		clock:       clock,
		log:         log,
		playTimeout: DefaultPlayTimeout,
		notified:    make(map[string]struct{}),
	}
}

func (s *AdhanServiceImpl) CheckTime(ctx context.Context) {
	snap := s.timings.Snapshot()
	if snap.Timings == nil {
		return
	}
	if !s.notifier.PermissionGranted() {
		return
	}
	settings := s.prefs.NotificationSettings(ctx)
	if !settings.GlobalEnabled {
		return
	}

	now := s.clock.Now()
	s.rollover(now)
	isFriday := now.Weekday() == time.Friday

	for _, p := range prayer.Notifiable {
		ps := settings.Setting(p)
		if !ps.Enabled {
			continue
		}
		at, err := snap.Timings.InstantOn(p, now)
		if err != nil {
			continue
		}
		diffMinutes := roundMinutes(at.Sub(now))
		key := fmt.Sprintf("%s-%d", p, now.Day())
		fields := logrus.Fields{"prayer": p, "city": snap.City.APIName}

		if ps.PreAdhanMinutes > 0 && diffMinutes == ps.PreAdhanMinutes && s.markNotified(key+"_pre") {
			s.log.WithFields(fields).WithField("minutes", ps.PreAdhanMinutes).Info("Sending pre-adhan notification")
			s.send(ctx, preAdhanNotification(p, ps.PreAdhanMinutes, isFriday))
		}

		if abs(diffMinutes) < 1 && s.markNotified(key+"_at") {
			s.log.WithFields(fields).Info("Sending adhan notification")
			s.send(ctx, atAdhanNotification(p, isFriday))
			if s.player != nil && s.prefs.AudioPermission(ctx) == adhan.PermissionGranted {
				s.playAdhan(ctx, p)
			}
		}
	}
}

// Wait blocks until every playback started by CheckTime has finished.
func (s *AdhanServiceImpl) Wait() {
	s.playing.Wait()
}

// markNotified records key and reports whether it was new.
func (s *AdhanServiceImpl) markNotified(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notified[key]; ok {
		return false
	}
	s.notified[key] = struct{}{}
	return true
}

// rollover forgets keys from previous days, so a process running for weeks
// does not carry a day-of-month key into the next month.
func (s *AdhanServiceImpl) rollover(now time.Time) {
	day := now.Format("2006-01-02")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day != day {
		s.day = day
		s.notified = make(map[string]struct{})
	}
}

func (s *AdhanServiceImpl) send(ctx context.Context, n notification.Notification) {
	if err := s.notifier.Send(ctx, n); err != nil {
		s.log.WithError(err).WithField("title", n.Title).Error("Failed to send notification")
	}
}

// playAdhan starts playback in the background. A failure is reported with a
// notification that lets the user start the sound by hand.
func (s *AdhanServiceImpl) playAdhan(ctx context.Context, p prayer.Prayer) {
	id := s.prefs.AdhanSound(ctx)
	playCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.playTimeout)
	s.playing.Add(1)
	go func() {
		defer s.playing.Done()
		defer cancel()
		if err := s.player.Play(playCtx, id); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"prayer": p, "sound": id}).Warn("Automatic adhan playback failed")
			s.send(playCtx, playbackFailedNotification(p))
		}
	}()
}

func preAdhanNotification(p prayer.Prayer, minutes int, isFriday bool) notification.Notification {
	if isFriday && p == prayer.Dhuhr {
		return notification.Notification{
			Title: "اقترب موعد صلاة الجمعة",
			Body:  fmt.Sprintf("بقي %d دقائق. بكر إلى المسجد تنل الأجر.", minutes),
		}
	}
	return notification.Notification{
		Title: fmt.Sprintf("اقترب وقت صلاة %s", p.ArabicName()),
		Body:  fmt.Sprintf("بقي %d دقائق على الأذان", minutes),
	}
}

func atAdhanNotification(p prayer.Prayer, isFriday bool) notification.Notification {
	switch {
	case isFriday && p == prayer.Dhuhr:
		return notification.Notification{
			Title:         "حان موعد صلاة الجمعة",
			Body:          "إنها صلاة الجمعة، فاسعوا إلى ذكر الله",
			OfferPlayback: true,
		}
	case p == prayer.Fajr:
		return notification.Notification{
			Title:         fmt.Sprintf("حان الآن وقت صلاة %s", p.ArabicName()),
			Body:          "الصلاة خير من النوم",
			OfferPlayback: true,
		}
	default:
		return notification.Notification{
			Title:         fmt.Sprintf("حان الآن وقت صلاة %s", p.ArabicName()),
			Body:          "الله أكبر، الله أكبر",
			OfferPlayback: true,
		}
	}
}

func playbackFailedNotification(p prayer.Prayer) notification.Notification {
	return notification.Notification{
		Title:         fmt.Sprintf("حان وقت صلاة %s", p.ArabicName()),
		Body:          "تعذر تشغيل الأذان تلقائيا. أرسل /play لتشغيله.",
		OfferPlayback: true,
	}
}

// roundMinutes rounds half up, so -30s counts as minute zero.
func roundMinutes(d time.Duration) int {
	return int(math.Floor(float64(d)/float64(time.Minute) + 0.5))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

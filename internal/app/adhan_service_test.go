package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mawakit/internal/domain/adhan"
	"mawakit/internal/domain/prayer"
	"mawakit/internal/infra/logger"
)

type adhanFixture struct {
	clock    *clockwork.FakeClock
	prefs    *fakePrefs
	notifier *recordingNotifier
	player   *fakePlayer
	svc      *AdhanServiceImpl
}

// 2026-03-12 is a Thursday.
func newAdhanFixture(at time.Time) *adhanFixture {
	settings := prayer.DefaultNotificationSettings()
	settings.GlobalEnabled = true
	f := &adhanFixture{
		clock:    clockwork.NewFakeClockAt(at),
		prefs:    &fakePrefs{settings: settings, permission: adhan.PermissionGranted, sound: adhan.SoundTunis},
		notifier: &recordingNotifier{granted: true},
		player:   &fakePlayer{},
	}
	timings := sampleTimings()
	src := staticTimings{snap: Snapshot{City: tunis, State: StateFresh, Timings: &timings}}
	f.svc = NewAdhanServiceImpl(src, f.prefs, f.notifier, f.player, f.clock, logger.Discard())
	return f
}

func (f *adhanFixture) check() {
	f.svc.CheckTime(context.Background())
	f.svc.Wait()
}

func TestCheckTime_PreAdhanOnce(t *testing.T) {
	f := newAdhanFixture(time.Date(2026, 3, 12, 12, 20, 0, 0, cet))

	f.check()
	f.clock.Advance(5 * time.Second)
	f.check()
	f.clock.Advance(20 * time.Second)
	f.check()

	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "اقترب وقت صلاة الظهر", msgs[0].Title)
	assert.Equal(t, "بقي 10 دقائق على الأذان", msgs[0].Body)
	assert.Empty(t, f.player.plays())
}

func TestCheckTime_AtAdhanOnceAndPlays(t *testing.T) {
	f := newAdhanFixture(time.Date(2026, 3, 12, 12, 29, 40, 0, cet))

	for i := 0; i < 12; i++ {
		f.check()
		f.clock.Advance(5 * time.Second)
	}

	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "حان الآن وقت صلاة الظهر", msgs[0].Title)
	assert.Equal(t, "الله أكبر، الله أكبر", msgs[0].Body)
	assert.Equal(t, []adhan.SoundID{adhan.SoundTunis}, f.player.plays())
}

func TestCheckTime_FajrBody(t *testing.T) {
	f := newAdhanFixture(time.Date(2026, 3, 12, 5, 0, 0, 0, cet))
	f.check()

	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "الصلاة خير من النوم", msgs[0].Body)
}

func TestCheckTime_FridayDhuhr(t *testing.T) {
	f := newAdhanFixture(time.Date(2026, 3, 13, 12, 20, 0, 0, cet))
	f.check()
	f.clock.Advance(10 * time.Minute)
	f.check()

	msgs := f.notifier.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "اقترب موعد صلاة الجمعة", msgs[0].Title)
	assert.Equal(t, "بقي 10 دقائق. بكر إلى المسجد تنل الأجر.", msgs[0].Body)
	assert.Equal(t, "حان موعد صلاة الجمعة", msgs[1].Title)
	assert.Equal(t, "إنها صلاة الجمعة، فاسعوا إلى ذكر الله", msgs[1].Body)
}

func TestCheckTime_Gates(t *testing.T) {
	at := time.Date(2026, 3, 12, 12, 30, 0, 0, cet)

	t.Run("global switch off", func(t *testing.T) {
		f := newAdhanFixture(at)
		f.prefs.settings.GlobalEnabled = false
		f.check()
		assert.Empty(t, f.notifier.messages())
	})

	t.Run("permission not granted", func(t *testing.T) {
		f := newAdhanFixture(at)
		f.notifier.granted = false
		f.check()
		assert.Empty(t, f.notifier.messages())
		assert.Empty(t, f.player.plays())
	})

	t.Run("prayer disabled", func(t *testing.T) {
		f := newAdhanFixture(at)
		f.prefs.settings = f.prefs.settings.Clone()
		f.prefs.settings.Prayers[prayer.Dhuhr] = prayer.PrayerSetting{Enabled: false, PreAdhanMinutes: 10}
		f.check()
		assert.Empty(t, f.notifier.messages())
	})

	t.Run("no timings", func(t *testing.T) {
		f := newAdhanFixture(at)
		f.svc.timings = staticTimings{snap: Snapshot{City: tunis, State: StateErrorNoData}}
		f.check()
		assert.Empty(t, f.notifier.messages())
	})

	t.Run("audio not allowed", func(t *testing.T) {
		f := newAdhanFixture(at)
		f.prefs.permission = adhan.PermissionUnknown
		f.check()
		assert.Len(t, f.notifier.messages(), 1)
		assert.Empty(t, f.player.plays())
	})

	t.Run("pre-adhan zero only fires at-adhan", func(t *testing.T) {
		f := newAdhanFixture(time.Date(2026, 3, 12, 6, 30, 0, 0, cet))
		f.check()
		msgs := f.notifier.messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "حان الآن وقت صلاة الشروق", msgs[0].Title)
	})
}

func TestCheckTime_PlaybackFailureFallsBackToNotification(t *testing.T) {
	f := newAdhanFixture(time.Date(2026, 3, 12, 15, 45, 0, 0, cet))
	f.player.err = errors.New("audio context suspended")

	f.check()

	msgs := f.notifier.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "حان الآن وقت صلاة العصر", msgs[0].Title)
	assert.Contains(t, msgs[1].Body, "/play")
}

func TestCheckTime_NewDayFiresAgain(t *testing.T) {
	f := newAdhanFixture(time.Date(2026, 3, 12, 12, 30, 0, 0, cet))
	f.check()
	f.clock.Advance(24 * time.Hour)
	f.check()

	assert.Len(t, f.notifier.messages(), 2)
}

func TestCheckTime_SameDayOfNextMonthFiresAgain(t *testing.T) {
	f := newAdhanFixture(time.Date(2026, 3, 12, 12, 30, 0, 0, cet))
	f.check()
	f.clock.Advance(31 * 24 * time.Hour)
	require.Equal(t, 12, f.clock.Now().Day())
	f.check()

	assert.Len(t, f.notifier.messages(), 2)
}

func TestRoundMinutes(t *testing.T) {
	assert.Equal(t, 0, roundMinutes(-30*time.Second))
	assert.Equal(t, -1, roundMinutes(-31*time.Second))
	assert.Equal(t, 1, roundMinutes(30*time.Second))
	assert.Equal(t, 10, roundMinutes(9*time.Minute+31*time.Second))
}

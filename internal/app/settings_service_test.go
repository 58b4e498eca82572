package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mawakit/internal/domain/adhan"
	"mawakit/internal/domain/prayer"
	"mawakit/internal/infra/logger"
)

func newSettingsService(f *fixture) (*SettingsService, *Preferences, *TimingsService) {
	prefs := NewPreferences(f.store, logger.Discard())
	timings := f.timingsService(tunis)
	return NewSettingsService(prefs, timings, logger.Discard()), prefs, timings
}

func TestSettingsService_Register(t *testing.T) {
	f := newFixture()
	svc, prefs, _ := newSettingsService(f)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, 100))
	require.NoError(t, svc.Register(ctx, 100))
	assert.ErrorIs(t, svc.Register(ctx, 200), ErrChatNotAuthorized)
	assert.EqualValues(t, 100, prefs.TelegramChat(ctx))

	assert.NoError(t, svc.Authorize(ctx, 100))
	assert.ErrorIs(t, svc.Authorize(ctx, 200), ErrChatNotAuthorized)
}

func TestSettingsService_SelectCity(t *testing.T) {
	f := newFixture()
	f.api.timings["Sousse"] = sampleTimings()
	svc, prefs, timings := newSettingsService(f)
	ctx := context.Background()

	snap, err := svc.SelectCity(ctx, "sousse")
	require.NoError(t, err)
	assert.Equal(t, "Sousse", snap.City.APIName)
	stored, ok := prefs.StoredCity(ctx)
	require.True(t, ok)
	assert.Equal(t, "Sousse", stored.APIName)
	assert.Equal(t, "Sousse", timings.Snapshot().City.APIName)

	_, err = svc.SelectCity(ctx, "Paris")
	assert.ErrorIs(t, err, ErrUnknownCity)
}

func TestSettingsService_Notifications(t *testing.T) {
	f := newFixture()
	svc, prefs, _ := newSettingsService(f)
	ctx := context.Background()

	_, err := svc.SetGlobalNotifications(ctx, true)
	require.NoError(t, err)
	_, err = svc.SetPrayerEnabled(ctx, prayer.Asr, false)
	require.NoError(t, err)
	_, err = svc.SetPreAdhanMinutes(ctx, prayer.Isha, 30)
	require.NoError(t, err)

	ns := prefs.NotificationSettings(ctx)
	assert.True(t, ns.GlobalEnabled)
	assert.False(t, ns.Setting(prayer.Asr).Enabled)
	assert.Equal(t, 30, ns.Setting(prayer.Isha).PreAdhanMinutes)

	_, err = svc.SetPreAdhanMinutes(ctx, prayer.Isha, 7)
	assert.ErrorIs(t, err, ErrInvalidSettings)
	_, err = svc.SetPrayerEnabled(ctx, prayer.Sunset, true)
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.Equal(t, 30, prefs.NotificationSettings(ctx).Setting(prayer.Isha).PreAdhanMinutes)
}

func TestSettingsService_Iqama(t *testing.T) {
	f := newFixture()
	svc, prefs, _ := newSettingsService(f)
	ctx := context.Background()

	iq, err := svc.SetIqamaOffset(ctx, prayer.Maghrib, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, iq[prayer.Maghrib])
	assert.Equal(t, 30, iq[prayer.Fajr])

	_, err = svc.SetIqamaOffset(ctx, prayer.Sunrise, 5)
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = svc.ApplyIqamaPreset(ctx, prayer.RamadanIqamaSettings())
	require.NoError(t, err)
	assert.Equal(t, prayer.RamadanIqamaSettings(), prefs.IqamaSettings(ctx))
}

func TestSettingsService_Sound(t *testing.T) {
	f := newFixture()
	svc, prefs, _ := newSettingsService(f)
	ctx := context.Background()

	sound, err := svc.SetAdhanSound(ctx, "madinah")
	require.NoError(t, err)
	assert.Equal(t, adhan.SoundMadinah, sound.ID)
	assert.Equal(t, adhan.SoundMadinah, prefs.AdhanSound(ctx))

	_, err = svc.SetAdhanSound(ctx, "cairo")
	assert.ErrorIs(t, err, ErrInvalidSettings)

	require.NoError(t, svc.SetAudioPermission(ctx, adhan.PermissionDenied))
	assert.Equal(t, adhan.PermissionDenied, prefs.AudioPermission(ctx))
}

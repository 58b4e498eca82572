// internal/app/preferences.go
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"mawakit/internal/domain/adhan"
	"mawakit/internal/domain/prayer"
	"mawakit/internal/infra/storage"
)

// Fixed preference keys. They are neither versioned nor expired and must not
// share a prefix with the cache keys, or a quota cleanup would wipe them.
const (
	KeyAdhanSound           = "mawakit_adhan_sound"
	KeyAudioPermission      = "mawakit_audio_permission"
	KeyNotificationSettings = "mawakit_settings_notifications"
	KeyIqamaSettings        = "mawakit_settings_iqama"
	KeySelectedCity         = "mawakit_selected_city"
	KeyTelegramChat         = "mawakit_telegram_chat"
)

// Preferences reads and writes the user's choices. Reads never fail: missing
// or unreadable values fall back to defaults.
type Preferences struct {
	store storage.Storage
	log   *logrus.Entry
}

func NewPreferences(store storage.Storage, log *logrus.Entry) *Preferences {
	return &Preferences{store: store, log: log}
}

func (p *Preferences) AdhanSound(ctx context.Context) adhan.SoundID {
	v, ok := p.get(ctx, KeyAdhanSound)
	if !ok {
		return adhan.DefaultSound
	}
	return adhan.SoundID(v)
}

func (p *Preferences) SetAdhanSound(ctx context.Context, id adhan.SoundID) error {
	return p.set(ctx, KeyAdhanSound, string(id))
}

func (p *Preferences) AudioPermission(ctx context.Context) adhan.Permission {
	v, _ := p.get(ctx, KeyAudioPermission)
	return adhan.ParsePermission(v)
}

func (p *Preferences) SetAudioPermission(ctx context.Context, perm adhan.Permission) error {
	return p.set(ctx, KeyAudioPermission, string(perm))
}

// NotificationSettings returns the stored settings, filling prayers that are
// missing from older saves with their defaults.
func (p *Preferences) NotificationSettings(ctx context.Context) prayer.NotificationSettings {
	defaults := prayer.DefaultNotificationSettings()
	v, ok := p.get(ctx, KeyNotificationSettings)
	if !ok {
		return defaults
	}
	var s prayer.NotificationSettings
	if err := json.Unmarshal([]byte(v), &s); err != nil {
		p.log.WithError(err).Warn("Stored notification settings are unreadable, using defaults")
		return defaults
	}
	if s.Prayers == nil {
		s.Prayers = map[prayer.Prayer]prayer.PrayerSetting{}
	}
	for pr, ps := range defaults.Prayers {
		if _, ok := s.Prayers[pr]; !ok {
			s.Prayers[pr] = ps
		}
	}
	if err := s.Validate(); err != nil {
		p.log.WithError(err).Warn("Stored notification settings are invalid, using defaults")
		return defaults
	}
	return s
}

func (p *Preferences) SetNotificationSettings(ctx context.Context, s prayer.NotificationSettings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return p.setJSON(ctx, KeyNotificationSettings, s)
}

func (p *Preferences) IqamaSettings(ctx context.Context) prayer.IqamaSettings {
	v, ok := p.get(ctx, KeyIqamaSettings)
	if !ok {
		return prayer.DefaultIqamaSettings()
	}
	var s prayer.IqamaSettings
	if err := json.Unmarshal([]byte(v), &s); err != nil || s.Validate() != nil {
		p.log.Warn("Stored iqama settings are unusable, using defaults")
		return prayer.DefaultIqamaSettings()
	}
	return s
}

func (p *Preferences) SetIqamaSettings(ctx context.Context, s prayer.IqamaSettings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return p.setJSON(ctx, KeyIqamaSettings, s)
}

// StoredCity reports the saved city, if a known one was saved.
func (p *Preferences) StoredCity(ctx context.Context) (prayer.City, bool) {
	v, ok := p.get(ctx, KeySelectedCity)
	if !ok {
		return prayer.City{}, false
	}
	return prayer.LookupCity(v)
}

func (p *Preferences) SetSelectedCity(ctx context.Context, c prayer.City) error {
	return p.set(ctx, KeySelectedCity, c.APIName)
}

// TelegramChat returns the registered chat id, 0 when nobody has subscribed.
func (p *Preferences) TelegramChat(ctx context.Context) int64 {
	v, ok := p.get(ctx, KeyTelegramChat)
	if !ok {
		return 0
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (p *Preferences) SetTelegramChat(ctx context.Context, chatID int64) error {
	return p.set(ctx, KeyTelegramChat, strconv.FormatInt(chatID, 10))
}

func (p *Preferences) get(ctx context.Context, key string) (string, bool) {
	v, err := p.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			p.log.WithError(err).WithField("key", key).Warn("Failed to read preference")
		}
		return "", false
	}
	return v, true
}

func (p *Preferences) set(ctx context.Context, key, value string) error {
	if err := p.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	return nil
}

func (p *Preferences) setJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode preference %s: %w", key, err)
	}
	return p.set(ctx, key, string(b))
}

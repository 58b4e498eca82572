package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"mawakit/internal/domain/adhan"
	"mawakit/internal/domain/prayer"
)

// ErrChatNotAuthorized is returned when a chat other than the registered one
// tries to change settings.
var ErrChatNotAuthorized = fmt.Errorf("chat is not the registered owner")

// SettingsService applies user changes to the stored preferences.
type SettingsService struct {
	prefs   *Preferences
	timings *TimingsService
	log     *logrus.Entry
}

func NewSettingsService(prefs *Preferences, timings *TimingsService, log *logrus.Entry) *SettingsService {
	return &SettingsService{prefs: prefs, timings: timings, log: log}
}

// Register makes chatID the chat that receives notifications. The first chat
// to register becomes the owner; later ones are refused.
func (s *SettingsService) Register(ctx context.Context, chatID int64) error {
	owner := s.prefs.TelegramChat(ctx)
	if owner != 0 && owner != chatID {
		return ErrChatNotAuthorized
	}
	if owner == chatID {
		return nil
	}
	if err := s.prefs.SetTelegramChat(ctx, chatID); err != nil {
		return err
	}
	s.log.WithField("chat_id", chatID).Info("Registered notification chat")
	return nil
}

// Authorize checks that chatID owns the settings.
func (s *SettingsService) Authorize(ctx context.Context, chatID int64) error {
	if s.prefs.TelegramChat(ctx) != chatID {
		return ErrChatNotAuthorized
	}
	return nil
}

// SelectCity validates name against the city list, persists it and reloads
// timings for it.
func (s *SettingsService) SelectCity(ctx context.Context, name string) (Snapshot, error) {
	city, ok := prayer.LookupCity(name)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownCity, name)
	}
	if err := s.prefs.SetSelectedCity(ctx, city); err != nil {
		return Snapshot{}, err
	}
	return s.timings.SelectCity(ctx, city), nil
}

func (s *SettingsService) SetGlobalNotifications(ctx context.Context, enabled bool) (prayer.NotificationSettings, error) {
	return s.updateNotifications(ctx, func(ns *prayer.NotificationSettings) error {
		ns.GlobalEnabled = enabled
		return nil
	})
}

func (s *SettingsService) SetPrayerEnabled(ctx context.Context, p prayer.Prayer, enabled bool) (prayer.NotificationSettings, error) {
	return s.updateNotifications(ctx, func(ns *prayer.NotificationSettings) error {
		ps, ok := ns.Prayers[p]
		if !ok {
			return fmt.Errorf("%w: %s has no notification setting", ErrInvalidSettings, p)
		}
		ps.Enabled = enabled
		ns.Prayers[p] = ps
		return nil
	})
}

// SetPreAdhanMinutes accepts only values from prayer.PreAdhanOptions.
func (s *SettingsService) SetPreAdhanMinutes(ctx context.Context, p prayer.Prayer, minutes int) (prayer.NotificationSettings, error) {
	return s.updateNotifications(ctx, func(ns *prayer.NotificationSettings) error {
		ps, ok := ns.Prayers[p]
		if !ok {
			return fmt.Errorf("%w: %s has no notification setting", ErrInvalidSettings, p)
		}
		ps.PreAdhanMinutes = minutes
		ns.Prayers[p] = ps
		return nil
	})
}

func (s *SettingsService) updateNotifications(ctx context.Context, change func(*prayer.NotificationSettings) error) (prayer.NotificationSettings, error) {
	ns := s.prefs.NotificationSettings(ctx).Clone()
	if err := change(&ns); err != nil {
		return prayer.NotificationSettings{}, err
	}
	if err := s.prefs.SetNotificationSettings(ctx, ns); err != nil {
		return prayer.NotificationSettings{}, err
	}
	return ns, nil
}

func (s *SettingsService) SetIqamaOffset(ctx context.Context, p prayer.Prayer, minutes int) (prayer.IqamaSettings, error) {
	iq := s.prefs.IqamaSettings(ctx)
	if _, ok := iq[p]; !ok {
		return nil, fmt.Errorf("%w: %s has no iqama", ErrInvalidSettings, p)
	}
	next := make(prayer.IqamaSettings, len(iq))
	for k, v := range iq {
		next[k] = v
	}
	next[p] = minutes
	if err := s.prefs.SetIqamaSettings(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ApplyIqamaPreset replaces every offset, e.g. with the Ramadan preset.
func (s *SettingsService) ApplyIqamaPreset(ctx context.Context, preset prayer.IqamaSettings) (prayer.IqamaSettings, error) {
	if err := s.prefs.SetIqamaSettings(ctx, preset); err != nil {
		return nil, err
	}
	return preset, nil
}

func (s *SettingsService) SetAdhanSound(ctx context.Context, raw string) (adhan.Sound, error) {
	id, err := adhan.ParseSoundID(raw)
	if err != nil {
		return adhan.Sound{}, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := s.prefs.SetAdhanSound(ctx, id); err != nil {
		return adhan.Sound{}, err
	}
	sound, _ := adhan.Lookup(id)
	return sound, nil
}

func (s *SettingsService) SetAudioPermission(ctx context.Context, perm adhan.Permission) error {
	return s.prefs.SetAudioPermission(ctx, perm)
}

// internal/domain/prayer/settings.go
package prayer

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// PreAdhanOptions are the only lead times a user can pick.
var PreAdhanOptions = []int{0, 5, 10, 15, 20, 30}

var validate = validator.New(validator.WithRequiredStructEnabled())

// PrayerSetting controls notifications for a single prayer.
type PrayerSetting struct {
	Enabled         bool `json:"enabled"`
	PreAdhanMinutes int  `json:"preAdhanMinutes" validate:"oneof=0 5 10 15 20 30"`
}

// NotificationSettings is the user's notification configuration. A prayer
// fires only if both GlobalEnabled and its own Enabled flag are set.
type NotificationSettings struct {
	GlobalEnabled bool                     `json:"globalEnabled"`
	Prayers       map[Prayer]PrayerSetting `json:"prayers" validate:"required,dive"`
}

// DefaultNotificationSettings returns the settings a fresh install starts with.
func DefaultNotificationSettings() NotificationSettings {
	s := NotificationSettings{
		GlobalEnabled: false,
		Prayers:       make(map[Prayer]PrayerSetting, len(Notifiable)),
	}
	for _, p := range Notifiable {
		pre := 10
		if p == Sunrise {
			pre = 0
		}
		s.Prayers[p] = PrayerSetting{Enabled: true, PreAdhanMinutes: pre}
	}
	return s
}

// Validate checks the pre-adhan invariant and that only notifiable prayers are
// configured.
func (s NotificationSettings) Validate() error {
	for p := range s.Prayers {
		if !isNotifiable(p) {
			return fmt.Errorf("prayer %q does not support notifications", p)
		}
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid notification settings: %w", err)
	}
	return nil
}

// Setting returns the per-prayer setting; unknown prayers are disabled.
func (s NotificationSettings) Setting(p Prayer) PrayerSetting {
	if s.Prayers == nil {
		return PrayerSetting{}
	}
	return s.Prayers[p]
}

// Clone returns a deep copy safe to mutate.
func (s NotificationSettings) Clone() NotificationSettings {
	out := NotificationSettings{GlobalEnabled: s.GlobalEnabled, Prayers: make(map[Prayer]PrayerSetting, len(s.Prayers))}
	for p, ps := range s.Prayers {
		out.Prayers[p] = ps
	}
	return out
}

func isNotifiable(p Prayer) bool {
	for _, n := range Notifiable {
		if n == p {
			return true
		}
	}
	return false
}

// IqamaSettings maps a prayer to the minutes between adhan and iqama. It is
// display-only.
type IqamaSettings map[Prayer]int

// DefaultIqamaSettings returns the everyday offsets.
func DefaultIqamaSettings() IqamaSettings {
	return IqamaSettings{Fajr: 30, Dhuhr: 20, Asr: 25, Maghrib: 15, Isha: 20}
}

// RamadanIqamaSettings returns the shorter offsets used during Ramadan.
func RamadanIqamaSettings() IqamaSettings {
	return IqamaSettings{Fajr: 15, Dhuhr: 15, Asr: 15, Maghrib: 10, Isha: 15}
}

// Validate rejects unknown prayers and offsets outside 0..120 minutes.
func (s IqamaSettings) Validate() error {
	for p, m := range s {
		if !p.Valid() {
			return fmt.Errorf("unknown prayer %q", p)
		}
		if err := validate.Var(m, "min=0,max=120"); err != nil {
			return fmt.Errorf("invalid iqama offset for %s: %w", p, err)
		}
	}
	return nil
}

// internal/domain/adhan/sound.go
package adhan

import "fmt"

// SoundID names one of the bundled adhan recordings.
type SoundID string

const (
	SoundMakkah  SoundID = "makkah"
	SoundMadinah SoundID = "madinah"
	SoundTunis   SoundID = "tunis"
	SoundAqsa    SoundID = "aqsa"
	SoundFajr    SoundID = "fajr"
)

// Sound is an entry of the static sound table.
type Sound struct {
	ID     SoundID
	Name   string
	URL    string
	IsFajr bool
}

// Sounds is ordered; the first entry is the default and the fallback for
// unknown ids.
var Sounds = []Sound{
	{ID: SoundMakkah, Name: "مكة المكرمة", URL: "https://media.blubrry.com/muslim_central_quran/podcasts.qurancentral.com/adhan/adhan-makkah-2.mp3"},
	{ID: SoundMadinah, Name: "المدينة المنورة", URL: "https://media.blubrry.com/muslim_central_quran/podcasts.qurancentral.com/adhan/adhan-madinah.mp3"},
	{ID: SoundTunis, Name: "تونس (الزيتونة)", URL: "https://www.tvquran.com/uploads/adhan/Al-Zaytuna.mp3"},
	{ID: SoundAqsa, Name: "المسجد الأقصى", URL: "https://media.blubrry.com/muslim_central_quran/podcasts.qurancentral.com/adhan/adhan-alaqsa.mp3"},
	{ID: SoundFajr, Name: "أذان الفجر الخاص", URL: "https://media.blubrry.com/muslim_central_quran/podcasts.qurancentral.com/adhan/adhan-fajr.mp3", IsFajr: true},
}

// DefaultSound is the sound used on a fresh install.
const DefaultSound = SoundMakkah

// Lookup resolves id against the sound table, falling back to the first
// entry. found reports whether id was known.
func Lookup(id SoundID) (s Sound, found bool) {
	for _, s := range Sounds {
		if s.ID == id {
			return s, true
		}
	}
	return Sounds[0], false
}

// ParseSoundID validates a user-supplied id.
func ParseSoundID(s string) (SoundID, error) {
	if _, ok := Lookup(SoundID(s)); !ok {
		return "", fmt.Errorf("unknown sound %q", s)
	}
	return SoundID(s), nil
}

// Permission is the user's decision about automatic adhan playback.
type Permission string

const (
	PermissionUnknown Permission = "unknown"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ParsePermission maps stored or user-supplied text to a Permission; anything
// unrecognised is PermissionUnknown.
func ParsePermission(s string) Permission {
	switch Permission(s) {
	case PermissionGranted, PermissionDenied:
		return Permission(s)
	default:
		return PermissionUnknown
	}
}

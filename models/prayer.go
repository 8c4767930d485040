package models

// Canonical prayer names, in matching order.
const (
	PrayerFajr    = "Fajr"
	PrayerDhuhr   = "Dhuhr"
	PrayerAsr     = "Asr"
	PrayerMaghrib = "Maghrib"
	PrayerIsha    = "Isha"
)

// PrayerNames lists the five canonical prayers in the order the matcher
// checks them.
var PrayerNames = []string{PrayerFajr, PrayerDhuhr, PrayerAsr, PrayerMaghrib, PrayerIsha}

// PrayerTimings holds one day's prayer times for a location as returned by
// the timings provider. Times are provider-formatted clock strings, possibly
// unpadded and possibly suffixed with a parenthetical timezone abbreviation
// (e.g. "19:28 (IST)"). Timings are fetched fresh per subscription per
// invocation and never persisted.
type PrayerTimings struct {
	Fajr    string `json:"Fajr"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`

	// Timezone is the IANA zone name reported by the provider for the
	// queried location. Empty when the provider omitted it; the engine
	// never synthesizes a default.
	Timezone string `json:"-"`
}

// Time returns the raw provider time string for a canonical prayer name.
func (t *PrayerTimings) Time(name string) string {
	switch name {
	case PrayerFajr:
		return t.Fajr
	case PrayerDhuhr:
		return t.Dhuhr
	case PrayerAsr:
		return t.Asr
	case PrayerMaghrib:
		return t.Maghrib
	case PrayerIsha:
		return t.Isha
	}
	return ""
}

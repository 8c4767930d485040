package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"prayer-notification-server/models"
)

// MatchPrayer converts nowUTC into the subscriber's local wall clock and
// returns the canonical prayer whose time equals that exact minute, or ""
// when none is due. Matching is exact-minute, not windowed: the scheduler's
// once-per-minute invocation cadence is what makes this correct.
//
// If upstream data pathologically puts two prayers on the same minute, the
// first in canonical order wins.
func MatchPrayer(timings *models.PrayerTimings, nowUTC time.Time) (string, error) {
	if timings.Timezone == "" {
		return "", fmt.Errorf("provider returned no timezone")
	}
	loc, err := time.LoadLocation(timings.Timezone)
	if err != nil {
		return "", fmt.Errorf("invalid timezone %q: %w", timings.Timezone, err)
	}

	localTime := nowUTC.In(loc).Format("15:04")
	for _, prayer := range models.PrayerNames {
		raw := timings.Time(prayer)
		if raw == "" {
			continue
		}
		if NormalizeClock(raw) == localTime {
			return prayer, nil
		}
	}
	return "", nil
}

// NormalizeClock reduces a provider time string to zero-padded 24-hour
// "HH:MM". Trailing parenthetical annotations are discarded ("19:28 (IST)"
// becomes "19:28") and unpadded hours are padded ("5:07" becomes "05:07").
// Returns "" for strings that do not parse as a clock time.
func NormalizeClock(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "("); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return ""
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return ""
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Legacy notes carry no hour information, so a note that mentions the target
// weekday falls back to the coarse working-hours window below. This mirrors
// the behaviour legacy data always had and is deliberately imprecise.
const (
	legacyFallbackFirstHour = 8
	legacyFallbackLastHour  = 20
)

// SlotsOn enumerates the bookable "HH:00" labels for a calendar date,
// ascending and duplicate-free. Structured stores map their hour set for the
// date's weekday; legacy notes that mention the weekday yield the fallback
// window; everything else yields an empty list.
func SlotsOn(store Store, date time.Time) []string {
	day := WeekdayOf(date)

	switch store.Kind() {
	case KindStructured:
		hours := store.HoursFor(day)
		sort.Ints(hours)
		slots := make([]string, 0, len(hours))
		for _, hour := range hours {
			slots = append(slots, formatSlot(hour))
		}
		return slots
	case KindLegacy:
		if !noteMentionsDay(store.Note(), day) {
			return []string{}
		}
		slots := make([]string, 0, legacyFallbackLastHour-legacyFallbackFirstHour+1)
		for hour := legacyFallbackFirstHour; hour <= legacyFallbackLastHour; hour++ {
			slots = append(slots, formatSlot(hour))
		}
		return slots
	default:
		return []string{}
	}
}

// IsSlotAvailable validates an already-chosen timestamp against the store.
// Structured stores require the exact hour to be present for the weekday.
// Legacy notes match on the weekday name alone and ignore the hour, which is
// the documented coarse rule for pre-structured data. Empty stores never
// match. The function is pure; surfacing the outcome to a user is the
// caller's concern.
func IsSlotAvailable(store Store, at time.Time) bool {
	day := WeekdayOf(at)
	hour := at.Hour()

	switch store.Kind() {
	case KindStructured:
		for _, h := range store.HoursFor(day) {
			if h == hour {
				return true
			}
		}
		return false
	case KindLegacy:
		return noteMentionsDay(store.Note(), day)
	default:
		return false
	}
}

func noteMentionsDay(note, day string) bool {
	return strings.Contains(strings.ToLower(note), strings.ToLower(day))
}

func formatSlot(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// Package availability models a tutor's weekly teachable hours and the slot
// matching rules the booking flow runs against them.
//
// The persisted form is an opaque text column. Historically it held free text
// ("Tersedia hari Senin dan Rabu"); the structured schedule feature replaced
// that with a JSON object mapping day labels to hour sets. Both shapes are
// still in the wild, so parsing never fails: anything that is not a JSON day
// map degrades to a legacy note that round-trips unchanged.
package availability

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the three shapes an availability value can take.
type Kind int

const (
	// KindEmpty is a tutor with no availability data at all.
	KindEmpty Kind = iota
	// KindStructured is the day-to-hours map written by the schedule editor.
	KindStructured
	// KindLegacy is pre-structured free text, kept verbatim.
	KindLegacy
)

// Store is an immutable snapshot of a tutor's weekly availability.
// The zero value is an empty store. Mutating operations return a new Store.
type Store struct {
	days map[string][]int
	note string
}

// Parse decodes the persisted availability column. An empty string yields an
// empty store; a JSON object yields a structured store; everything else,
// including malformed JSON, is preserved verbatim as a legacy note.
func Parse(raw string) Store {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return Store{}
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return Store{note: raw}
	}

	days := make(map[string][]int, len(decoded))
	for key, value := range decoded {
		day, _ := CanonicalDay(key)
		days[day] = decodeHours(value)
	}
	return Store{days: days}
}

// decodeHours extracts a sorted, deduplicated hour set from a JSON array.
// Elements may be numbers or numeral strings; anything else is dropped.
// A non-array value degrades to an empty set so the day stays present.
func decodeHours(raw json.RawMessage) []int {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []int{}
	}
	seen := make(map[int]struct{}, len(items))
	hours := make([]int, 0, len(items))
	for _, item := range items {
		var n int
		if err := json.Unmarshal(item, &n); err != nil {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				continue
			}
			parsed, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				continue
			}
			n = parsed
		}
		if n < 0 || n > 23 {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		hours = append(hours, n)
	}
	sort.Ints(hours)
	return hours
}

// Kind reports which shape the store holds.
func (s Store) Kind() Kind {
	switch {
	case s.note != "":
		return KindLegacy
	case s.days != nil:
		return KindStructured
	default:
		return KindEmpty
	}
}

// Note returns the legacy free-text value, empty unless Kind is KindLegacy.
func (s Store) Note() string {
	return s.note
}

// Days returns a copy of the structured day map. Legacy and empty stores
// return nil.
func (s Store) Days() map[string][]int {
	if s.days == nil {
		return nil
	}
	out := make(map[string][]int, len(s.days))
	for day, hours := range s.days {
		out[day] = append([]int(nil), hours...)
	}
	return out
}

// HasDay reports whether the day is activated, even with zero hours. This is
// distinct from HoursFor returning empty: a day toggled on but not yet given
// hours is an intermediate editing state the UI must render as active.
func (s Store) HasDay(day string) bool {
	canonical, _ := CanonicalDay(day)
	_, ok := s.days[canonical]
	return ok
}

// HoursFor returns the sorted hour set for a day. Absent days, legacy notes
// and empty stores all yield an empty sequence.
func (s Store) HoursFor(day string) []int {
	canonical, _ := CanonicalDay(day)
	hours, ok := s.days[canonical]
	if !ok {
		return []int{}
	}
	return append([]int(nil), hours...)
}

// ToggleDay activates an absent day with an empty hour set, or removes a
// present day along with all of its hours. Legacy stores are first promoted
// to an empty structured store, discarding the note.
func (s Store) ToggleDay(day string) Store {
	canonical, _ := CanonicalDay(day)
	next := s.cloneStructured()
	if _, ok := next.days[canonical]; ok {
		delete(next.days, canonical)
	} else {
		next.days[canonical] = []int{}
	}
	return next
}

// ToggleHour flips membership of an hour within a day, keeping the set
// sorted. Toggling an hour on a missing day creates the day with exactly
// that hour.
func (s Store) ToggleHour(day string, hour int) Store {
	canonical, _ := CanonicalDay(day)
	next := s.cloneStructured()
	hours := next.days[canonical]
	idx := sort.SearchInts(hours, hour)
	if idx < len(hours) && hours[idx] == hour {
		next.days[canonical] = append(hours[:idx:idx], hours[idx+1:]...)
	} else {
		updated := append(hours[:idx:idx], hour)
		next.days[canonical] = append(updated, hours[idx:]...)
	}
	return next
}

// Serialize renders the store back to its persisted text form. Legacy notes
// round-trip to the identical string; structured and empty stores encode as
// a JSON object.
func (s Store) Serialize() string {
	if s.note != "" {
		return s.note
	}
	days := s.days
	if days == nil {
		days = map[string][]int{}
	}
	encoded, err := json.Marshal(days)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func (s Store) cloneStructured() Store {
	days := make(map[string][]int, len(s.days)+1)
	for day, hours := range s.days {
		days[day] = append([]int(nil), hours...)
	}
	return Store{days: days}
}

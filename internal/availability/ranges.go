package availability

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TimeRange is the start/end form used by the tutor entity's schedule
// column. The hour-set Store is canonical; ranges exist only at the storage
// and request boundary and are converted on the way in and out.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FromRanges converts a day-to-ranges schedule into the canonical hour-set
// store. Each range covers [start, end) at hour granularity; ranges that do
// not parse as "HH:MM" are skipped rather than failing the whole schedule.
func FromRanges(schedule map[string][]TimeRange) Store {
	if schedule == nil {
		return Store{}
	}
	days := make(map[string][]int, len(schedule))
	for key, ranges := range schedule {
		day, _ := CanonicalDay(key)
		seen := make(map[int]struct{})
		hours := []int{}
		for _, r := range ranges {
			start, okStart := parseHour(r.Start)
			end, okEnd := parseHour(r.End)
			if !okStart || !okEnd || end <= start {
				continue
			}
			for hour := start; hour < end && hour <= 23; hour++ {
				if _, dup := seen[hour]; dup {
					continue
				}
				seen[hour] = struct{}{}
				hours = append(hours, hour)
			}
		}
		sort.Ints(hours)
		days[day] = hours
	}
	return Store{days: days}
}

// ToRanges renders a structured store as the range form, collapsing
// consecutive hours into single ranges. Legacy and empty stores yield nil.
func ToRanges(store Store) map[string][]TimeRange {
	if store.Kind() != KindStructured {
		return nil
	}
	out := make(map[string][]TimeRange, len(store.days))
	for day, hours := range store.days {
		ranges := []TimeRange{}
		for i := 0; i < len(hours); {
			j := i
			for j+1 < len(hours) && hours[j+1] == hours[j]+1 {
				j++
			}
			ranges = append(ranges, TimeRange{
				Start: fmt.Sprintf("%02d:00", hours[i]),
				End:   fmt.Sprintf("%02d:00", hours[j]+1),
			})
			i = j + 1
		}
		out[day] = ranges
	}
	return out
}

func parseHour(v string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(v), ":", 2)
	if parts[0] == "" {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 24 {
		return 0, false
	}
	return hour, true
}

package availability

import (
	"strings"
	"time"
)

// Weekdays lists the canonical Indonesian day labels used as store keys,
// ordered Monday first to match how tutors read a weekly schedule.
var Weekdays = []string{"Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu", "Minggu"}

var weekdayByTime = map[time.Weekday]string{
	time.Monday:    "Senin",
	time.Tuesday:   "Selasa",
	time.Wednesday: "Rabu",
	time.Thursday:  "Kamis",
	time.Friday:    "Jumat",
	time.Saturday:  "Sabtu",
	time.Sunday:    "Minggu",
}

// WeekdayOf resolves the canonical day label for a timestamp in its own location.
func WeekdayOf(t time.Time) string {
	return weekdayByTime[t.Weekday()]
}

// CanonicalDay normalises a day label to its canonical spelling. The second
// return value reports whether the label named a known weekday at all.
func CanonicalDay(name string) (string, bool) {
	for _, day := range Weekdays {
		if strings.EqualFold(day, name) {
			return day, true
		}
	}
	return name, false
}

package dto

import "github.com/noah-isme/tutorin-api/internal/availability"

// TutorSummary is the list-view projection of a tutor profile.
type TutorSummary struct {
	ID         string   `json:"id"`
	FullName   string   `json:"full_name"`
	City       string   `json:"city"`
	Subjects   []string `json:"subjects"`
	HourlyRate float64  `json:"hourly_rate"`
	Active     bool     `json:"active"`
}

// CreateTutorRequest registers a tutor profile for an existing user.
type CreateTutorRequest struct {
	UserID     string   `json:"user_id" validate:"required"`
	FullName   string   `json:"full_name" validate:"required"`
	Bio        string   `json:"bio"`
	City       string   `json:"city" validate:"required"`
	Subjects   []string `json:"subjects" validate:"required,min=1"`
	HourlyRate float64  `json:"hourly_rate" validate:"required,gt=0"`
}

// AvailabilityView renders the parsed availability for clients. Exactly one
// of Days or LegacyNote is populated; consumers must branch on Legacy
// instead of assuming structure.
type AvailabilityView struct {
	TutorID    string           `json:"tutor_id"`
	Legacy     bool             `json:"legacy"`
	LegacyNote string           `json:"legacy_note,omitempty"`
	Days       map[string][]int `json:"days,omitempty"`
	Version    int              `json:"version"`
}

// ToggleDayRequest flips a whole day and carries the optimistic-concurrency
// version the client last saw. A stale version means another device edited
// the schedule in between; the write is rejected rather than silently
// last-write-wins.
type ToggleDayRequest struct {
	Day     string `json:"day" validate:"required"`
	Version int    `json:"version" validate:"gte=0"`
}

// ToggleHourRequest flips one hour within a day.
type ToggleHourRequest struct {
	Day     string `json:"day" validate:"required"`
	Hour    int    `json:"hour" validate:"gte=0,lte=23"`
	Version int    `json:"version" validate:"gte=0"`
}

// SetScheduleRequest replaces the availability using the start/end range
// form kept for older clients; it is converted to the hour-set form on
// write.
type SetScheduleRequest struct {
	Schedule map[string][]availability.TimeRange `json:"schedule" validate:"required"`
	Version  int                                 `json:"version" validate:"gte=0"`
}

// SlotsResponse lists the bookable hour labels for one tutor and date.
type SlotsResponse struct {
	TutorID string   `json:"tutor_id"`
	Date    string   `json:"date"`
	Slots   []string `json:"slots"`
}

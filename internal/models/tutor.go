package models

import (
	"time"

	"github.com/lib/pq"
)

// Tutor represents a tutor profile linked to a user account.
//
// Availability is stored as an opaque text column: either a JSON day-to-hours
// map written by the schedule editor, or legacy free text. It is parsed by
// internal/availability, never queried in SQL. Version guards concurrent
// profile edits: every availability write bumps it, and a write carrying a
// stale version is rejected.
type Tutor struct {
	ID           string         `db:"id" json:"id"`
	UserID       string         `db:"user_id" json:"user_id"`
	FullName     string         `db:"full_name" json:"full_name"`
	Bio          string         `db:"bio" json:"bio"`
	City         string         `db:"city" json:"city"`
	Subjects     pq.StringArray `db:"subjects" json:"subjects"`
	HourlyRate   float64        `db:"hourly_rate" json:"hourly_rate"`
	Availability string         `db:"availability" json:"-"`
	Version      int            `db:"version" json:"version"`
	Active       bool           `db:"active" json:"active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// TutorFilter captures filtering criteria for listing tutors.
type TutorFilter struct {
	Subject   string
	City      string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package models

import (
	"fmt"
	"time"
)

// BookingStatus tracks a booking through its lifecycle.
type BookingStatus string

const (
	BookingRequested BookingStatus = "requested"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// BookingMode distinguishes online sessions from in-person ones.
type BookingMode string

const (
	ModeOnline  BookingMode = "online"
	ModeOffline BookingMode = "offline"
)

// Booking represents a persisted tutoring session request. Bookings are
// never hard-deleted; cancelled is a terminal status, not a removal.
type Booking struct {
	ID            string        `db:"id" json:"id"`
	StudentID     string        `db:"student_id" json:"student_id"`
	ParentID      *string       `db:"parent_id" json:"parent_id,omitempty"`
	TutorID       string        `db:"tutor_id" json:"tutor_id"`
	Subject       string        `db:"subject" json:"subject"`
	Mode          BookingMode   `db:"mode" json:"mode"`
	Address       string        `db:"address" json:"address,omitempty"`
	Note          string        `db:"note" json:"note,omitempty"`
	City          string        `db:"city" json:"city"`
	ScheduledAt   time.Time     `db:"scheduled_at" json:"scheduled_at"`
	DurationHours float64       `db:"duration_hours" json:"duration_hours"`
	PriceTotal    float64       `db:"price_total" json:"price_total"`
	Status        BookingStatus `db:"status" json:"status"`
	PaymentRef    *string       `db:"payment_ref" json:"payment_ref,omitempty"`
	SlotWarning   bool          `db:"slot_warning" json:"slot_warning"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingFilter describes query params for listing bookings.
type BookingFilter struct {
	TutorID   string
	StudentID string
	ParentID  string
	Status    BookingStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// allowedTransitions encodes the booking lifecycle. Completed and cancelled
// are terminal.
var allowedTransitions = map[BookingStatus][]BookingStatus{
	BookingRequested: {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

// InvalidTransitionError reports a rejected status change, naming both the
// current and the requested state.
type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("cannot transition booking from %q to %q", e.From, e.To)
}

// ValidateTransition checks whether a status change is allowed by the
// lifecycle. Actor gating is layered on top by the service.
func ValidateTransition(from, to BookingStatus) error {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

// IsTerminal reports whether no further transitions exist from the status.
func (s BookingStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// Valid reports whether the status is one of the lifecycle states.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingRequested, BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

package dto

import (
	"time"

	"github.com/noah-isme/tutorin-api/internal/models"
)

// CreateBookingRequest is the payload for both the preview and the final
// create call. Preview validates and prices it without persisting anything;
// the client shows the summary and posts the same payload again to confirm.
type CreateBookingRequest struct {
	TutorID       string  `json:"tutor_id" validate:"required"`
	Subject       string  `json:"subject" validate:"required"`
	Mode          string  `json:"mode" validate:"required,oneof=online offline"`
	ScheduledAt   string  `json:"scheduled_at" validate:"required"`
	DurationHours float64 `json:"duration_hours" validate:"required"`
	Address       string  `json:"address"`
	Note          string  `json:"note"`
	ParentID      string  `json:"parent_id"`
	// StudentID names the child a parent is booking for. Ignored for other
	// roles; when a parent omits it the booking is recorded under the
	// parent's own id.
	StudentID string `json:"student_id"`
}

// BookingPreview is the two-step review summary: everything the confirmation
// screen shows, plus whether the slot passed the availability check.
type BookingPreview struct {
	TutorID       string    `json:"tutor_id"`
	TutorName     string    `json:"tutor_name"`
	Subject       string    `json:"subject"`
	Mode          string    `json:"mode"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	DurationHours float64   `json:"duration_hours"`
	HourlyRate    float64   `json:"hourly_rate"`
	PriceTotal    float64   `json:"price_total"`
	SlotAvailable bool      `json:"slot_available"`
	SlotWarning   string    `json:"slot_warning,omitempty"`
}

// BookingResponse wraps a booking record with an optional slot warning
// attached at creation time.
type BookingResponse struct {
	Booking     *models.Booking `json:"booking"`
	SlotWarning string          `json:"slot_warning,omitempty"`
}

// UpdateBookingStatusRequest asks for a lifecycle transition.
type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=requested confirmed completed cancelled"`
}

// ExportResponse returns the signed download link for a generated recap.
type ExportResponse struct {
	ExportID    string    `json:"export_id"`
	Format      string    `json:"format"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

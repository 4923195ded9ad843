package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutorin-api/internal/models"
)

const bookingColumns = `id, student_id, parent_id, tutor_id, subject, mode, address, note, city, scheduled_at, duration_hours, price_total, status, payment_ref, slot_warning, created_at, updated_at`

// BookingRepository provides database access for bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new instance of BookingRepository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a booking in its initial state.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	const query = `INSERT INTO bookings (id, student_id, parent_id, tutor_id, subject, mode, address, note, city, scheduled_at, duration_hours, price_total, status, payment_ref, slot_warning, created_at, updated_at)
VALUES (:id, :student_id, :parent_id, :tutor_id, :subject, :mode, :address, :note, :city, :scheduled_at, :duration_hours, :price_total, :status, :payment_ref, :slot_warning, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// FindByID returns a booking by identifier.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE id = $1 LIMIT 1`, bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find booking by id: %w", err)
	}
	return &booking, nil
}

// List returns bookings matching the filter with total count.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	baseQuery := `FROM bookings WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.TutorID != "" {
		conditions = append(conditions, fmt.Sprintf("tutor_id = $%d", len(args)+1))
		args = append(args, filter.TutorID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ParentID != "" {
		conditions = append(conditions, fmt.Sprintf("parent_id = $%d", len(args)+1))
		args = append(args, filter.ParentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) " + baseQuery
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY scheduled_at DESC LIMIT $%d OFFSET $%d",
		bookingColumns, baseQuery, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, total, nil
}

// UpdateStatus transitions a booking's status with a compare-and-set on the
// expected current status, so two racing transitions cannot both win. It
// returns sql.ErrNoRows when the row no longer carries the expected status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) (*models.Booking, error) {
	query := fmt.Sprintf(`UPDATE bookings
SET status = $2, updated_at = $3
WHERE id = $1 AND status = $4
RETURNING %s`, bookingColumns)
	var booking models.Booking
	err := r.db.GetContext(ctx, &booking, query, id, to, time.Now().UTC(), from)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	return &booking, nil
}

// ListForTutorBetween returns all bookings for a tutor in a time window,
// oldest first. Used by the recap export.
func (r *BookingRepository) ListForTutorBetween(ctx context.Context, tutorID string, from, to time.Time) ([]models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE tutor_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3 ORDER BY scheduled_at ASC`, bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, tutorID, from, to); err != nil {
		return nil, fmt.Errorf("list tutor bookings: %w", err)
	}
	return bookings, nil
}

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorin-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func bookingRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "student_id", "parent_id", "tutor_id", "subject", "mode", "address", "note", "city",
		"scheduled_at", "duration_hours", "price_total", "status", "payment_ref", "slot_warning",
		"created_at", "updated_at",
	}).AddRow(
		"bk-1", "student-1", nil, "tutor-1", "Matematika", "online", "", "", "Jakarta",
		now.Add(24*time.Hour), 1.5, 150000.0, "requested", nil, false,
		now, now,
	)
}

func TestBookingRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(1, 1))

	booking := &models.Booking{
		StudentID:     "student-1",
		TutorID:       "tutor-1",
		Subject:       "Matematika",
		Mode:          models.ModeOnline,
		City:          "Jakarta",
		ScheduledAt:   time.Now().Add(24 * time.Hour),
		DurationHours: 1.5,
		PriceTotal:    150000,
		Status:        models.BookingRequested,
	}
	require.NoError(t, repo.Create(context.Background(), booking))
	assert.NotEmpty(t, booking.ID)
	assert.False(t, booking.CreatedAt.IsZero())
}

func TestBookingRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id =").
		WithArgs("bk-1").
		WillReturnRows(bookingRows())

	booking, err := repo.FindByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, "bk-1", booking.ID)
	assert.Equal(t, models.BookingRequested, booking.Status)
}

func TestBookingRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id =").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestBookingRepositoryUpdateStatusCompareAndSet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	rows := bookingRows()
	mock.ExpectQuery("UPDATE bookings").
		WithArgs("bk-1", models.BookingConfirmed, sqlmock.AnyArg(), models.BookingRequested).
		WillReturnRows(rows)

	booking, err := repo.UpdateStatus(context.Background(), "bk-1", models.BookingRequested, models.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, "bk-1", booking.ID)
}

func TestBookingRepositoryUpdateStatusStale(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	mock.ExpectQuery("UPDATE bookings").
		WithArgs("bk-1", models.BookingConfirmed, sqlmock.AnyArg(), models.BookingRequested).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateStatus(context.Background(), "bk-1", models.BookingRequested, models.BookingConfirmed)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestBookingRepositoryListFiltersByTutorAndStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM bookings").
		WithArgs("tutor-1", models.BookingRequested).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs("tutor-1", models.BookingRequested, 20, 0).
		WillReturnRows(bookingRows())

	bookings, total, err := repo.List(context.Background(), models.BookingFilter{
		TutorID: "tutor-1",
		Status:  models.BookingRequested,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, bookings, 1)
	assert.Equal(t, "tutor-1", bookings[0].TutorID)
}

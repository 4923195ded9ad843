package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorin-api/internal/availability"
	"github.com/noah-isme/tutorin-api/internal/dto"
	"github.com/noah-isme/tutorin-api/internal/models"
	appErrors "github.com/noah-isme/tutorin-api/pkg/errors"
	"github.com/noah-isme/tutorin-api/pkg/realtime"
)

type mockBookingRepo struct {
	bookings map[string]*models.Booking
	seq      int
	// casFails simulates another transition landing between the read and
	// the compare-and-set write.
	casFails bool
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	if m.bookings == nil {
		m.bookings = make(map[string]*models.Booking)
	}
	if booking.ID == "" {
		m.seq++
		booking.ID = fmt.Sprintf("bk-%d", m.seq)
	}
	booking.CreatedAt = time.Now().UTC()
	booking.UpdatedAt = booking.CreatedAt
	copied := *booking
	m.bookings[booking.ID] = &copied
	return nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	booking, ok := m.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *booking
	return &copied, nil
}

func (m *mockBookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	var out []models.Booking
	for _, booking := range m.bookings {
		if filter.TutorID != "" && booking.TutorID != filter.TutorID {
			continue
		}
		if filter.StudentID != "" && booking.StudentID != filter.StudentID {
			continue
		}
		out = append(out, *booking)
	}
	return out, len(out), nil
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) (*models.Booking, error) {
	booking, ok := m.bookings[id]
	if !ok || m.casFails || booking.Status != from {
		return nil, sql.ErrNoRows
	}
	booking.Status = to
	booking.UpdatedAt = time.Now().UTC()
	copied := *booking
	return &copied, nil
}

type mockNotifier struct {
	events []string
}

func (m *mockNotifier) Notify(event string, booking *models.Booking) {
	m.events = append(m.events, event)
}

type mockHints struct {
	hints []realtime.Hint
}

func (m *mockHints) Publish(hint realtime.Hint) {
	m.hints = append(m.hints, hint)
}

// futureSlot returns a timestamp comfortably in the future and an
// availability payload that marks exactly that weekday and hour as open.
func futureSlot() (time.Time, string) {
	at := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	day := availability.WeekdayOf(at)
	return at, fmt.Sprintf(`{"%s":[%d]}`, day, at.Hour())
}

func newBookingService(repo *mockBookingRepo, tutors *mockTutorRepo, notifier *mockNotifier, hints *mockHints, block bool) *BookingService {
	var n bookingNotifier
	if notifier != nil {
		n = notifier
	}
	var h bookingHintPublisher
	if hints != nil {
		h = hints
	}
	return NewBookingService(repo, tutors, &mockAudit{}, n, h, nil, nil, nil, BookingServiceConfig{
		MinDurationHours:      1,
		MaxDurationHours:      4,
		BlockUnavailableSlots: block,
	})
}

func bookingRequest(at time.Time) dto.CreateBookingRequest {
	return dto.CreateBookingRequest{
		TutorID:       "tutor-1",
		Subject:       "Matematika",
		Mode:          "online",
		ScheduledAt:   at.Format(time.RFC3339),
		DurationHours: 1.5,
	}
}

func TestBookingServicePreviewPricesAndChecksSlot(t *testing.T) {
	at, avail := futureSlot()
	svc := newBookingService(&mockBookingRepo{}, seedTutor(avail, 1), nil, nil, false)

	preview, err := svc.Preview(context.Background(), bookingRequest(at), tutorActor(models.RoleStudent, "student-1"))
	require.NoError(t, err)
	assert.Equal(t, 150000.0, preview.PriceTotal)
	assert.True(t, preview.SlotAvailable)
	assert.Empty(t, preview.SlotWarning)
}

func TestBookingServicePreviewWarnsOnUnavailableSlot(t *testing.T) {
	at, _ := futureSlot()
	svc := newBookingService(&mockBookingRepo{}, seedTutor(`{}`, 1), nil, nil, false)

	preview, err := svc.Preview(context.Background(), bookingRequest(at), tutorActor(models.RoleStudent, "student-1"))
	require.NoError(t, err)
	assert.False(t, preview.SlotAvailable)
	assert.NotEmpty(t, preview.SlotWarning)
}

func TestBookingServiceCreateRecordsWarningWhenNotBlocking(t *testing.T) {
	at, _ := futureSlot()
	repo := &mockBookingRepo{}
	notifier := &mockNotifier{}
	hints := &mockHints{}
	svc := newBookingService(repo, seedTutor(`{}`, 1), notifier, hints, false)

	resp, err := svc.Create(context.Background(), bookingRequest(at), tutorActor(models.RoleStudent, "student-1"))
	require.NoError(t, err)
	assert.True(t, resp.Booking.SlotWarning)
	assert.NotEmpty(t, resp.SlotWarning)
	assert.Equal(t, models.BookingRequested, resp.Booking.Status)
	assert.Equal(t, []string{"booking.requested"}, notifier.events)
	require.Len(t, hints.hints, 1)
	assert.Equal(t, "booking", hints.hints[0].Resource)
}

func TestBookingServiceCreateBlocksUnavailableSlotWhenConfigured(t *testing.T) {
	at, _ := futureSlot()
	svc := newBookingService(&mockBookingRepo{}, seedTutor(`{}`, 1), nil, nil, true)

	_, err := svc.Create(context.Background(), bookingRequest(at), tutorActor(models.RoleStudent, "student-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCreateRequiresAddressOffline(t *testing.T) {
	at, avail := futureSlot()
	svc := newBookingService(&mockBookingRepo{}, seedTutor(avail, 1), nil, nil, false)

	req := bookingRequest(at)
	req.Mode = "offline"
	_, err := svc.Create(context.Background(), req, tutorActor(models.RoleStudent, "student-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCreateRejectsOddDurationStep(t *testing.T) {
	at, avail := futureSlot()
	svc := newBookingService(&mockBookingRepo{}, seedTutor(avail, 1), nil, nil, false)

	req := bookingRequest(at)
	req.DurationHours = 1.25
	_, err := svc.Create(context.Background(), req, tutorActor(models.RoleStudent, "student-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceParentBooksForNamedStudent(t *testing.T) {
	at, avail := futureSlot()
	repo := &mockBookingRepo{}
	svc := newBookingService(repo, seedTutor(avail, 1), nil, nil, false)

	req := bookingRequest(at)
	req.StudentID = "student-7"
	res, err := svc.Create(context.Background(), req, tutorActor(models.RoleParent, "parent-1"))
	require.NoError(t, err)
	assert.Equal(t, "student-7", res.Booking.StudentID)
	require.NotNil(t, res.Booking.ParentID)
	assert.Equal(t, "parent-1", *res.Booking.ParentID)
}

func TestBookingServiceParentWithoutStudentBooksAsSelf(t *testing.T) {
	at, avail := futureSlot()
	svc := newBookingService(&mockBookingRepo{}, seedTutor(avail, 1), nil, nil, false)

	res, err := svc.Create(context.Background(), bookingRequest(at), tutorActor(models.RoleParent, "parent-1"))
	require.NoError(t, err)
	assert.Equal(t, "parent-1", res.Booking.StudentID)
	require.NotNil(t, res.Booking.ParentID)
	assert.Equal(t, "parent-1", *res.Booking.ParentID)
}

func TestBookingServiceCreateRejectsPastSchedule(t *testing.T) {
	svc := newBookingService(&mockBookingRepo{}, seedTutor(`{}`, 1), nil, nil, false)

	req := bookingRequest(time.Now().UTC().Add(-time.Hour))
	_, err := svc.Create(context.Background(), req, tutorActor(models.RoleStudent, "student-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func seedBooking(status models.BookingStatus, scheduledAt time.Time) *mockBookingRepo {
	return &mockBookingRepo{bookings: map[string]*models.Booking{
		"bk-1": {
			ID:          "bk-1",
			StudentID:   "student-1",
			TutorID:     "tutor-1",
			Subject:     "Matematika",
			Mode:        models.ModeOnline,
			ScheduledAt: scheduledAt,
			Status:      status,
		},
	}}
}

func TestBookingServiceTutorConfirmsOwnBooking(t *testing.T) {
	at, avail := futureSlot()
	repo := seedBooking(models.BookingRequested, at)
	notifier := &mockNotifier{}
	svc := newBookingService(repo, seedTutor(avail, 1), notifier, nil, false)

	booking, err := svc.UpdateStatus(context.Background(), "bk-1",
		dto.UpdateBookingStatusRequest{Status: "confirmed"}, tutorActor(models.RoleTutor, "user-1"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, booking.Status)
	assert.Equal(t, []string{"booking.confirmed"}, notifier.events)
}

func TestBookingServiceStudentCannotConfirm(t *testing.T) {
	at, avail := futureSlot()
	repo := seedBooking(models.BookingRequested, at)
	svc := newBookingService(repo, seedTutor(avail, 1), nil, nil, false)

	_, err := svc.UpdateStatus(context.Background(), "bk-1",
		dto.UpdateBookingStatusRequest{Status: "confirmed"}, tutorActor(models.RoleStudent, "student-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceStudentCancelsOwnBooking(t *testing.T) {
	at, avail := futureSlot()
	repo := seedBooking(models.BookingRequested, at)
	svc := newBookingService(repo, seedTutor(avail, 1), nil, nil, false)

	booking, err := svc.UpdateStatus(context.Background(), "bk-1",
		dto.UpdateBookingStatusRequest{Status: "cancelled"}, tutorActor(models.RoleStudent, "student-1"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, booking.Status)
}

func TestBookingServiceRejectsSkippingConfirmation(t *testing.T) {
	at, avail := futureSlot()
	repo := seedBooking(models.BookingRequested, at)
	svc := newBookingService(repo, seedTutor(avail, 1), nil, nil, false)

	_, err := svc.UpdateStatus(context.Background(), "bk-1",
		dto.UpdateBookingStatusRequest{Status: "completed"}, tutorActor(models.RoleTutor, "user-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceRejectsCompletionBeforeScheduledTime(t *testing.T) {
	at, avail := futureSlot()
	repo := seedBooking(models.BookingConfirmed, at)
	svc := newBookingService(repo, seedTutor(avail, 1), nil, nil, false)

	_, err := svc.UpdateStatus(context.Background(), "bk-1",
		dto.UpdateBookingStatusRequest{Status: "completed"}, tutorActor(models.RoleTutor, "user-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCompletesAfterScheduledTime(t *testing.T) {
	past := time.Now().UTC().Add(-2 * time.Hour)
	repo := seedBooking(models.BookingConfirmed, past)
	svc := newBookingService(repo, seedTutor(`{}`, 1), nil, nil, false)

	booking, err := svc.UpdateStatus(context.Background(), "bk-1",
		dto.UpdateBookingStatusRequest{Status: "completed"}, tutorActor(models.RoleTutor, "user-1"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, booking.Status)
}

func TestBookingServiceConcurrentTransitionLosesCleanly(t *testing.T) {
	at, avail := futureSlot()
	repo := seedBooking(models.BookingRequested, at)
	svc := newBookingService(repo, seedTutor(avail, 1), nil, nil, false)

	repo.casFails = true

	_, err := svc.UpdateStatus(context.Background(), "bk-1",
		dto.UpdateBookingStatusRequest{Status: "confirmed"}, tutorActor(models.RoleTutor, "user-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceListScopesToActor(t *testing.T) {
	at, avail := futureSlot()
	repo := seedBooking(models.BookingRequested, at)
	repo.bookings["bk-2"] = &models.Booking{
		ID: "bk-2", StudentID: "student-2", TutorID: "tutor-2",
		ScheduledAt: at, Status: models.BookingRequested,
	}
	svc := newBookingService(repo, seedTutor(avail, 1), nil, nil, false)

	bookings, _, err := svc.List(context.Background(), models.BookingFilter{}, tutorActor(models.RoleStudent, "student-1"))
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "bk-1", bookings[0].ID)
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorin-api/internal/availability"
	"github.com/noah-isme/tutorin-api/internal/dto"
	"github.com/noah-isme/tutorin-api/internal/models"
	appErrors "github.com/noah-isme/tutorin-api/pkg/errors"
	"github.com/noah-isme/tutorin-api/pkg/realtime"
)

type bookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) (*models.Booking, error)
}

type bookingTutorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Tutor, error)
}

type bookingNotifier interface {
	Notify(event string, booking *models.Booking)
}

type bookingHintPublisher interface {
	Publish(hint realtime.Hint)
}

type bookingMetrics interface {
	BookingCreated(mode string)
	BookingTransition(from, to string)
}

// BookingServiceConfig tunes booking validation and the slot policy.
type BookingServiceConfig struct {
	MinDurationHours      float64
	MaxDurationHours      float64
	BlockUnavailableSlots bool
}

const slotWarningMessage = "jadwal di luar ketersediaan tutor, tutor dapat menolak"

// BookingService owns the booking lifecycle: preview, creation and status
// transitions.
type BookingService struct {
	repo      bookingRepository
	tutors    bookingTutorRepository
	audit     tutorAuditLogger
	notifier  bookingNotifier
	hints     bookingHintPublisher
	metrics   bookingMetrics
	validator *validator.Validate
	logger    *zap.Logger
	config    BookingServiceConfig
	now       func() time.Time
}

// NewBookingService constructs a BookingService. Notifier, hints and metrics
// may be nil; the booking flow works without them.
func NewBookingService(repo bookingRepository, tutors bookingTutorRepository, audit tutorAuditLogger, notifier bookingNotifier, hints bookingHintPublisher, metrics bookingMetrics, validate *validator.Validate, logger *zap.Logger, cfg BookingServiceConfig) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinDurationHours <= 0 {
		cfg.MinDurationHours = 1
	}
	if cfg.MaxDurationHours <= 0 {
		cfg.MaxDurationHours = 4
	}
	return &BookingService{
		repo:      repo,
		tutors:    tutors,
		audit:     audit,
		notifier:  notifier,
		hints:     hints,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Preview validates and prices a booking request without persisting it. The
// client shows the summary and posts the same payload again to confirm.
func (s *BookingService) Preview(ctx context.Context, req dto.CreateBookingRequest, actor *models.JWTClaims) (*dto.BookingPreview, error) {
	tutor, scheduledAt, err := s.validateRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	store := availability.Parse(tutor.Availability)
	available := availability.IsSlotAvailable(store, scheduledAt)

	preview := &dto.BookingPreview{
		TutorID:       tutor.ID,
		TutorName:     tutor.FullName,
		Subject:       req.Subject,
		Mode:          req.Mode,
		ScheduledAt:   scheduledAt,
		DurationHours: req.DurationHours,
		HourlyRate:    tutor.HourlyRate,
		PriceTotal:    tutor.HourlyRate * req.DurationHours,
		SlotAvailable: available,
	}
	if !available {
		preview.SlotWarning = slotWarningMessage
	}
	return preview, nil
}

// Create persists a booking in the requested state. Depending on
// configuration an unavailable slot either rejects the booking or records it
// with a warning flag.
func (s *BookingService) Create(ctx context.Context, req dto.CreateBookingRequest, actor *models.JWTClaims) (*dto.BookingResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	tutor, scheduledAt, err := s.validateRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	store := availability.Parse(tutor.Availability)
	available := availability.IsSlotAvailable(store, scheduledAt)
	if !available && s.config.BlockUnavailableSlots {
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "")
	}

	booking := &models.Booking{
		StudentID:     actor.UserID,
		TutorID:       tutor.ID,
		Subject:       req.Subject,
		Mode:          models.BookingMode(req.Mode),
		Address:       req.Address,
		Note:          req.Note,
		City:          tutor.City,
		ScheduledAt:   scheduledAt,
		DurationHours: req.DurationHours,
		PriceTotal:    tutor.HourlyRate * req.DurationHours,
		Status:        models.BookingRequested,
		SlotWarning:   !available,
	}
	if actor.Role == models.RoleParent {
		booking.ParentID = &actor.UserID
		if req.StudentID != "" {
			booking.StudentID = req.StudentID
		}
	} else if req.ParentID != "" {
		parentID := req.ParentID
		booking.ParentID = &parentID
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}

	s.afterChange(ctx, booking, actor, models.AuditActionBookingCreate, nil)
	if s.metrics != nil {
		s.metrics.BookingCreated(string(booking.Mode))
	}
	if s.notifier != nil {
		s.notifier.Notify("booking.requested", booking)
	}

	resp := &dto.BookingResponse{Booking: booking}
	if booking.SlotWarning {
		resp.SlotWarning = slotWarningMessage
	}
	return resp, nil
}

// Get returns a booking if the actor participates in it or is an admin.
func (s *BookingService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeParticipant(ctx, booking, actor); err != nil {
		return nil, err
	}
	return booking, nil
}

// List returns bookings visible to the actor. Non-admin actors are scoped to
// their own side of the marketplace regardless of the filter they send.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter, actor *models.JWTClaims) ([]models.Booking, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}

	switch actor.Role {
	case models.RoleAdmin:
		// Admins see everything; filter passes through.
	case models.RoleStudent:
		filter.StudentID = actor.UserID
	case models.RoleParent:
		filter.ParentID = actor.UserID
	case models.RoleTutor:
		tutor, err := s.tutors.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "tutor profile not found")
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor profile")
		}
		filter.TutorID = tutor.ID
	default:
		return nil, nil, appErrors.ErrForbidden
	}

	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return bookings, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// UpdateStatus transitions a booking through its lifecycle. The transition is
// checked against the state machine, the actor is gated per target status,
// and the write is a compare-and-set so racing transitions cannot both win.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, req dto.UpdateBookingStatusRequest, actor *models.JWTClaims) (*models.Booking, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	target := models.BookingStatus(req.Status)

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := models.ValidateTransition(booking.Status, target); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status, err.Error())
	}
	if err := s.authorizeTransition(ctx, booking, target, actor); err != nil {
		return nil, err
	}
	if target == models.BookingCompleted && s.now().Before(booking.ScheduledAt) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "booking cannot be completed before its scheduled time")
	}

	from := booking.Status
	updated, err := s.repo.UpdateStatus(ctx, id, from, target)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "booking status changed concurrently, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking status")
	}

	s.afterChange(ctx, updated, actor, models.AuditActionBookingTransition, &from)
	if s.metrics != nil {
		s.metrics.BookingTransition(string(from), string(target))
	}
	if s.notifier != nil {
		s.notifier.Notify("booking."+string(target), updated)
	}
	return updated, nil
}

// validateRequest runs the shared preview/create checks and resolves the
// tutor and the parsed schedule time.
func (s *BookingService) validateRequest(ctx context.Context, req dto.CreateBookingRequest) (*models.Tutor, time.Time, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "scheduled_at must be an RFC 3339 timestamp")
	}
	if !scheduledAt.After(s.now()) {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "scheduled_at must be in the future")
	}

	if req.DurationHours < s.config.MinDurationHours || req.DurationHours > s.config.MaxDurationHours {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("duration_hours must be between %.1f and %.1f", s.config.MinDurationHours, s.config.MaxDurationHours))
	}
	if halves := req.DurationHours * 2; math.Abs(halves-math.Round(halves)) > 1e-9 {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "duration_hours must step in 0.5 increments")
	}

	if models.BookingMode(req.Mode) == models.ModeOffline && req.Address == "" {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "address is required for offline bookings")
	}

	tutor, err := s.tutors.FindByID(ctx, req.TutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	if !tutor.Active {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrConflict, "tutor is not accepting bookings")
	}
	return tutor, scheduledAt, nil
}

// authorizeTransition gates who may request each target status: tutors
// confirm and complete their own bookings, either side may cancel, admins may
// do anything.
func (s *BookingService) authorizeTransition(ctx context.Context, booking *models.Booking, target models.BookingStatus, actor *models.JWTClaims) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}

	switch target {
	case models.BookingConfirmed, models.BookingCompleted:
		if actor.Role != models.RoleTutor {
			return appErrors.Clone(appErrors.ErrForbidden, "only the tutor may confirm or complete a booking")
		}
		return s.requireOwningTutor(ctx, booking, actor)
	case models.BookingCancelled:
		if actor.Role == models.RoleTutor {
			return s.requireOwningTutor(ctx, booking, actor)
		}
		if s.isRequester(booking, actor) {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "only booking participants may cancel")
	default:
		return appErrors.ErrForbidden
	}
}

// authorizeParticipant allows the requesting student or parent, the owning
// tutor and admins to read a booking.
func (s *BookingService) authorizeParticipant(ctx context.Context, booking *models.Booking, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if s.isRequester(booking, actor) {
		return nil
	}
	if actor.Role == models.RoleTutor {
		return s.requireOwningTutor(ctx, booking, actor)
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not a participant of this booking")
}

func (s *BookingService) isRequester(booking *models.Booking, actor *models.JWTClaims) bool {
	if booking.StudentID == actor.UserID {
		return true
	}
	return booking.ParentID != nil && *booking.ParentID == actor.UserID
}

func (s *BookingService) requireOwningTutor(ctx context.Context, booking *models.Booking, actor *models.JWTClaims) error {
	tutor, err := s.tutors.FindByID(ctx, booking.TutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	if tutor.UserID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "booking belongs to a different tutor")
	}
	return nil
}

func (s *BookingService) load(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

// afterChange records the audit trail entry and publishes a refresh hint.
// Both are best-effort; failures are logged, never surfaced.
func (s *BookingService) afterChange(ctx context.Context, booking *models.Booking, actor *models.JWTClaims, action string, from *models.BookingStatus) {
	if s.audit != nil {
		values := map[string]string{"status": string(booking.Status)}
		var oldValues []byte
		if from != nil {
			oldValues, _ = json.Marshal(map[string]string{"status": string(*from)})
		}
		newValues, _ := json.Marshal(values)
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     action,
			Resource:   "booking",
			ResourceID: &booking.ID,
			OldValues:  oldValues,
			NewValues:  newValues,
		}); err != nil {
			s.logger.Warn("failed to record booking audit log", zap.Error(err))
		}
	}

	if s.hints != nil {
		s.hints.Publish(realtime.Hint{
			Resource: "booking",
			ID:       booking.ID,
			Status:   string(booking.Status),
			SentAt:   s.now(),
		})
	}
}

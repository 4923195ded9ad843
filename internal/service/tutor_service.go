package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorin-api/internal/availability"
	"github.com/noah-isme/tutorin-api/internal/dto"
	"github.com/noah-isme/tutorin-api/internal/models"
	appErrors "github.com/noah-isme/tutorin-api/pkg/errors"
)

type tutorRepository interface {
	Create(ctx context.Context, tutor *models.Tutor) error
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Tutor, error)
	List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error)
	UpdateAvailability(ctx context.Context, id, serialized string, expectedVersion int) (*models.Tutor, error)
}

type slotsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type tutorAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type tutorMetrics interface {
	RecordSlotCacheLookup(hit bool)
}

// TutorServiceConfig tunes caching behaviour.
type TutorServiceConfig struct {
	SlotsCacheTTL time.Duration
}

// TutorService manages tutor profiles and their weekly availability.
type TutorService struct {
	repo      tutorRepository
	cache     slotsCache
	audit     tutorAuditLogger
	metrics   tutorMetrics
	validator *validator.Validate
	logger    *zap.Logger
	config    TutorServiceConfig
}

// NewTutorService constructs a TutorService. Cache, audit and metrics may be
// nil; the service works without them.
func NewTutorService(repo tutorRepository, cache slotsCache, audit tutorAuditLogger, metrics tutorMetrics, validate *validator.Validate, logger *zap.Logger, cfg TutorServiceConfig) *TutorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlotsCacheTTL <= 0 {
		cfg.SlotsCacheTTL = 5 * time.Minute
	}
	return &TutorService{repo: repo, cache: cache, audit: audit, metrics: metrics, validator: validate, logger: logger, config: cfg}
}

// Create registers a tutor profile with an empty availability store.
func (s *TutorService) Create(ctx context.Context, req dto.CreateTutorRequest) (*models.Tutor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tutor payload")
	}
	tutor := &models.Tutor{
		UserID:       req.UserID,
		FullName:     req.FullName,
		Bio:          req.Bio,
		City:         req.City,
		Subjects:     req.Subjects,
		HourlyRate:   req.HourlyRate,
		Availability: availability.Store{}.Serialize(),
		Version:      0,
		Active:       true,
	}
	if err := s.repo.Create(ctx, tutor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tutor")
	}
	return tutor, nil
}

// Get returns a tutor profile by id.
func (s *TutorService) Get(ctx context.Context, id string) (*models.Tutor, error) {
	tutor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	return tutor, nil
}

// List returns tutor summaries matching the filter.
func (s *TutorService) List(ctx context.Context, filter models.TutorFilter) ([]dto.TutorSummary, *models.Pagination, error) {
	tutors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutors")
	}
	summaries := make([]dto.TutorSummary, 0, len(tutors))
	for _, tutor := range tutors {
		summaries = append(summaries, dto.TutorSummary{
			ID:         tutor.ID,
			FullName:   tutor.FullName,
			City:       tutor.City,
			Subjects:   tutor.Subjects,
			HourlyRate: tutor.HourlyRate,
			Active:     tutor.Active,
		})
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return summaries, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// GetAvailability returns the parsed availability for a tutor. Legacy
// free-text data is flagged rather than forced into the structured shape.
func (s *TutorService) GetAvailability(ctx context.Context, tutorID string) (*dto.AvailabilityView, error) {
	tutor, err := s.Get(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	return availabilityView(tutor), nil
}

// ToggleDay flips a whole day on or off in the tutor's availability.
func (s *TutorService) ToggleDay(ctx context.Context, tutorID, day string, version int, actor *models.JWTClaims) (*dto.AvailabilityView, error) {
	if _, ok := availability.CanonicalDay(day); !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", day))
	}
	return s.mutateAvailability(ctx, tutorID, version, actor, func(store availability.Store) availability.Store {
		return store.ToggleDay(day)
	})
}

// ToggleHour flips one hour within a day in the tutor's availability.
func (s *TutorService) ToggleHour(ctx context.Context, tutorID, day string, hour, version int, actor *models.JWTClaims) (*dto.AvailabilityView, error) {
	if _, ok := availability.CanonicalDay(day); !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", day))
	}
	if hour < 0 || hour > 23 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hour must be between 0 and 23")
	}
	return s.mutateAvailability(ctx, tutorID, version, actor, func(store availability.Store) availability.Store {
		return store.ToggleHour(day, hour)
	})
}

// SetSchedule replaces the availability from the start/end range form.
func (s *TutorService) SetSchedule(ctx context.Context, tutorID string, req dto.SetScheduleRequest, actor *models.JWTClaims) (*dto.AvailabilityView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	return s.mutateAvailability(ctx, tutorID, req.Version, actor, func(availability.Store) availability.Store {
		return availability.FromRanges(req.Schedule)
	})
}

// SlotsOn lists the bookable "HH:00" labels for a tutor on a date
// (YYYY-MM-DD), served from cache when possible.
func (s *TutorService) SlotsOn(ctx context.Context, tutorID, date string) (*dto.SlotsResponse, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	key := cacheSlotsKey(tutorID, date)
	if s.cache != nil {
		var cached []string
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordSlotCacheLookup(true)
			}
			return &dto.SlotsResponse{TutorID: tutorID, Date: date, Slots: cached}, nil
		}
		if s.metrics != nil {
			s.metrics.RecordSlotCacheLookup(false)
		}
	}

	tutor, err := s.Get(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	store := availability.Parse(tutor.Availability)
	slots := availability.SlotsOn(store, day)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, slots, s.config.SlotsCacheTTL); err != nil {
			s.logger.Warn("failed to cache slots", zap.String("tutor_id", tutorID), zap.Error(err))
		}
	}
	return &dto.SlotsResponse{TutorID: tutorID, Date: date, Slots: slots}, nil
}

func (s *TutorService) mutateAvailability(ctx context.Context, tutorID string, version int, actor *models.JWTClaims, mutate func(availability.Store) availability.Store) (*dto.AvailabilityView, error) {
	tutor, err := s.Get(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(tutor, actor); err != nil {
		return nil, err
	}

	store := availability.Parse(tutor.Availability)
	before := store.Serialize()
	updated := mutate(store)

	saved, err := s.repo.UpdateAvailability(ctx, tutorID, updated.Serialize(), version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "availability was changed elsewhere, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, cacheSlotsKey(tutorID, "*")); err != nil {
			s.logger.Warn("failed to invalidate slot cache", zap.String("tutor_id", tutorID), zap.Error(err))
		}
	}

	if s.audit != nil && actor != nil {
		oldValues, _ := json.Marshal(map[string]string{"availability": before})
		newValues, _ := json.Marshal(map[string]string{"availability": saved.Availability})
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionAvailabilityUpdate,
			Resource:   "tutor",
			ResourceID: &tutorID,
			OldValues:  oldValues,
			NewValues:  newValues,
		}); err != nil {
			s.logger.Warn("failed to record availability audit log", zap.Error(err))
		}
	}

	return availabilityView(saved), nil
}

// authorizeOwner allows the owning tutor and admins to edit availability.
func (s *TutorService) authorizeOwner(tutor *models.Tutor, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleTutor && tutor.UserID == actor.UserID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only the owning tutor may edit availability")
}

func availabilityView(tutor *models.Tutor) *dto.AvailabilityView {
	store := availability.Parse(tutor.Availability)
	view := &dto.AvailabilityView{
		TutorID: tutor.ID,
		Version: tutor.Version,
	}
	switch store.Kind() {
	case availability.KindLegacy:
		view.Legacy = true
		view.LegacyNote = store.Note()
	case availability.KindStructured:
		view.Days = store.Days()
	default:
		view.Days = map[string][]int{}
	}
	return view
}

func cacheSlotsKey(tutorID, date string) string {
	return fmt.Sprintf("slots:%s:%s", tutorID, date)
}

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorin-api/internal/middleware"
	"github.com/noah-isme/tutorin-api/internal/models"
	"github.com/noah-isme/tutorin-api/internal/service"
)

type stubTutorRepo struct {
	tutor *models.Tutor
}

func (s *stubTutorRepo) Create(ctx context.Context, tutor *models.Tutor) error { return nil }

func (s *stubTutorRepo) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	if s.tutor == nil || s.tutor.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.tutor
	return &copied, nil
}

func (s *stubTutorRepo) FindByUserID(ctx context.Context, userID string) (*models.Tutor, error) {
	return nil, sql.ErrNoRows
}

func (s *stubTutorRepo) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error) {
	if s.tutor == nil {
		return nil, 0, nil
	}
	return []models.Tutor{*s.tutor}, 1, nil
}

func (s *stubTutorRepo) UpdateAvailability(ctx context.Context, id, serialized string, expectedVersion int) (*models.Tutor, error) {
	if s.tutor == nil || s.tutor.Version != expectedVersion {
		return nil, sql.ErrNoRows
	}
	s.tutor.Availability = serialized
	s.tutor.Version++
	copied := *s.tutor
	return &copied, nil
}

func newTutorRouter(repo *stubTutorRepo, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewTutorService(repo, nil, nil, nil, nil, nil, service.TutorServiceConfig{})
	h := NewTutorHandler(svc)

	r := gin.New()
	if claims != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserKey, claims)
			c.Next()
		})
	}
	r.GET("/tutors/:id/availability", h.GetAvailability)
	r.POST("/tutors/:id/availability/toggle-day", h.ToggleDay)
	r.GET("/tutors/:id/slots", h.Slots)
	return r
}

func seededTutor() *models.Tutor {
	return &models.Tutor{
		ID:           "tutor-1",
		UserID:       "user-1",
		FullName:     "Budi Santoso",
		Availability: `{"Senin":[8,10]}`,
		Version:      3,
		Active:       true,
	}
}

func TestTutorHandlerGetAvailability(t *testing.T) {
	r := newTutorRouter(&stubTutorRepo{tutor: seededTutor()}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tutors/tutor-1/availability", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			TutorID string           `json:"tutor_id"`
			Days    map[string][]int `json:"days"`
			Version int              `json:"version"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "tutor-1", body.Data.TutorID)
	assert.Equal(t, []int{8, 10}, body.Data.Days["Senin"])
	assert.Equal(t, 3, body.Data.Version)
}

func TestTutorHandlerToggleDayStaleVersionReturns412(t *testing.T) {
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleTutor}
	r := newTutorRouter(&stubTutorRepo{tutor: seededTutor()}, claims)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tutors/tutor-1/availability/toggle-day",
		strings.NewReader(`{"day":"Senin","version":1}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestTutorHandlerToggleDaySucceeds(t *testing.T) {
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleTutor}
	repo := &stubTutorRepo{tutor: seededTutor()}
	r := newTutorRouter(repo, claims)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tutors/tutor-1/availability/toggle-day",
		strings.NewReader(`{"day":"Selasa","version":3}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, repo.tutor.Version)
}

func TestTutorHandlerSlotsRequiresDate(t *testing.T) {
	r := newTutorRouter(&stubTutorRepo{tutor: seededTutor()}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tutors/tutor-1/slots", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTutorHandlerSlotsReturnsLabels(t *testing.T) {
	r := newTutorRouter(&stubTutorRepo{tutor: seededTutor()}, nil)

	w := httptest.NewRecorder()
	// 2024-01-08 is a Monday.
	req := httptest.NewRequest(http.MethodGet, "/tutors/tutor-1/slots?date=2024-01-08", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Slots []string `json:"slots"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"08:00", "10:00"}, body.Data.Slots)
}

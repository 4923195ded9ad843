package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorin-api/internal/dto"
	"github.com/noah-isme/tutorin-api/internal/models"
	"github.com/noah-isme/tutorin-api/internal/service"
	appErrors "github.com/noah-isme/tutorin-api/pkg/errors"
	"github.com/noah-isme/tutorin-api/pkg/response"
)

// TutorHandler wires HTTP endpoints to the tutor service.
type TutorHandler struct {
	service *service.TutorService
}

// NewTutorHandler creates a new handler.
func NewTutorHandler(svc *service.TutorService) *TutorHandler {
	return &TutorHandler{service: svc}
}

// List godoc
// @Summary List tutors
// @Description List tutor profiles with subject, city and search filters
// @Tags Tutors
// @Produce json
// @Param subject query string false "Filter by subject"
// @Param city query string false "Filter by city"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tutors [get]
func (h *TutorHandler) List(c *gin.Context) {
	filter := models.TutorFilter{
		Subject:   c.Query("subject"),
		City:      c.Query("city"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
	}
	active := true
	filter.Active = &active

	tutors, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutors, pagination)
}

// Get godoc
// @Summary Get tutor profile
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id} [get]
func (h *TutorHandler) Get(c *gin.Context) {
	tutor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}

// Create godoc
// @Summary Register tutor profile
// @Tags Tutors
// @Accept json
// @Produce json
// @Param payload body dto.CreateTutorRequest true "Tutor payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tutors [post]
func (h *TutorHandler) Create(c *gin.Context) {
	var req dto.CreateTutorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tutor payload"))
		return
	}

	tutor, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tutor)
}

// GetAvailability godoc
// @Summary Get tutor availability
// @Description Returns the weekly availability, flagged when legacy free-text
// @Tags Availability
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id}/availability [get]
func (h *TutorHandler) GetAvailability(c *gin.Context) {
	view, err := h.service.GetAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ToggleDay godoc
// @Summary Toggle a day's availability
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body dto.ToggleDayRequest true "Day and version"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /tutors/{id}/availability/toggle-day [post]
func (h *TutorHandler) ToggleDay(c *gin.Context) {
	var req dto.ToggleDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid toggle payload"))
		return
	}

	view, err := h.service.ToggleDay(c.Request.Context(), c.Param("id"), req.Day, req.Version, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ToggleHour godoc
// @Summary Toggle one hour within a day
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body dto.ToggleHourRequest true "Day, hour and version"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /tutors/{id}/availability/toggle-hour [post]
func (h *TutorHandler) ToggleHour(c *gin.Context) {
	var req dto.ToggleHourRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid toggle payload"))
		return
	}

	view, err := h.service.ToggleHour(c.Request.Context(), c.Param("id"), req.Day, req.Hour, req.Version, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// SetSchedule godoc
// @Summary Replace availability from time ranges
// @Description Accepts the start/end range form used by older clients
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body dto.SetScheduleRequest true "Weekly schedule"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /tutors/{id}/availability [put]
func (h *TutorHandler) SetSchedule(c *gin.Context) {
	var req dto.SetScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}

	view, err := h.service.SetSchedule(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Slots godoc
// @Summary List bookable slots for a date
// @Tags Availability
// @Produce json
// @Param id path string true "Tutor ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tutors/{id}/slots [get]
func (h *TutorHandler) Slots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}

	slots, err := h.service.SlotsOn(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorin-api/internal/service"
	appErrors "github.com/noah-isme/tutorin-api/pkg/errors"
	"github.com/noah-isme/tutorin-api/pkg/response"
)

// ExportHandler wires HTTP endpoints to the recap export service.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// GenerateRecap godoc
// @Summary Generate a monthly booking recap
// @Description Renders the tutor's bookings for a month as CSV or PDF and returns a signed download link
// @Tags Exports
// @Produce json
// @Param id path string true "Tutor ID"
// @Param month query string true "Month (YYYY-MM)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tutors/{id}/recap [post]
func (h *ExportHandler) GenerateRecap(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month query parameter is required"))
		return
	}
	format := c.DefaultQuery("format", "csv")

	res, err := h.service.GenerateRecap(c.Request.Context(), c.Param("id"), month, format, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Download godoc
// @Summary Download a generated recap
// @Description Streams the export referenced by a signed token; no session required
// @Tags Exports
// @Produce application/octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter is required"))
		return
	}

	file, filename, err := h.service.ResolveDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	stat, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.DataFromReader(http.StatusOK, stat.Size(), "application/octet-stream", file, nil)
}

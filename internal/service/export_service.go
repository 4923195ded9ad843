package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorin-api/internal/dto"
	"github.com/noah-isme/tutorin-api/internal/models"
	appErrors "github.com/noah-isme/tutorin-api/pkg/errors"
	"github.com/noah-isme/tutorin-api/pkg/export"
	"github.com/noah-isme/tutorin-api/pkg/storage"
)

type exportBookingRepository interface {
	ListForTutorBetween(ctx context.Context, tutorID string, from, to time.Time) ([]models.Booking, error)
}

type exportTutorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

// ExportService generates monthly booking recaps for tutors as CSV or PDF
// files with signed, session-free download links.
type ExportService struct {
	bookings exportBookingRepository
	tutors   exportTutorRepository
	storage  exportStorage
	signer   *storage.SignedURLSigner
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs the recap exporter.
func NewExportService(bookings exportBookingRepository, tutors exportTutorRepository, store exportStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		bookings: bookings,
		tutors:   tutors,
		storage:  store,
		signer:   signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// GenerateRecap renders the tutor's bookings for one month (YYYY-MM) and
// returns a signed download link. Only the owning tutor and admins may ask.
func (s *ExportService) GenerateRecap(ctx context.Context, tutorID, month, format string, actor *models.JWTClaims) (*dto.ExportResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	start, err := time.ParseInLocation("2006-01", month, time.Local)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be formatted YYYY-MM")
	}
	end := start.AddDate(0, 1, 0)

	tutor, err := s.tutors.FindByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	if actor.Role != models.RoleAdmin && !(actor.Role == models.RoleTutor && tutor.UserID == actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning tutor may export a recap")
	}

	bookings, err := s.bookings.ListForTutorBetween(ctx, tutorID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}

	dataset := recapDataset(bookings)
	var payload []byte
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		title := fmt.Sprintf("Rekap Les %s - %s", tutor.FullName, start.Format("January 2006"))
		payload, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render recap")
	}

	exportID := uuid.NewString()
	relPath := path.Join("recaps", tutorID, fmt.Sprintf("%s-%s.%s", month, exportID, format))
	if _, err := s.storage.Save(relPath, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store recap")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	s.logger.Info("recap generated",
		zap.String("tutor_id", tutorID), zap.String("month", month),
		zap.String("format", format), zap.Int("bookings", len(bookings)))

	return &dto.ExportResponse{
		ExportID:    exportID,
		Format:      format,
		DownloadURL: "/exports/download?token=" + token,
		ExpiresAt:   expiresAt,
	}, nil
}

// ResolveDownload validates a signed token and opens the referenced file.
// The caller owns closing the file.
func (s *ExportService) ResolveDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
	}
	return file, path.Base(relPath), nil
}

func recapDataset(bookings []models.Booking) export.Dataset {
	headers := []string{"Tanggal", "Jam", "Mata Pelajaran", "Mode", "Durasi (jam)", "Status", "Harga"}
	rows := make([]map[string]string, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, map[string]string{
			"Tanggal":        b.ScheduledAt.Format("02-01-2006"),
			"Jam":            b.ScheduledAt.Format("15:04"),
			"Mata Pelajaran": b.Subject,
			"Mode":           string(b.Mode),
			"Durasi (jam)":   fmt.Sprintf("%.1f", b.DurationHours),
			"Status":         string(b.Status),
			"Harga":          fmt.Sprintf("Rp %.0f", b.PriceTotal),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

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

const tutorColumns = `id, user_id, full_name, bio, city, subjects, hourly_rate, availability, version, active, created_at, updated_at`

// TutorRepository provides database access for tutor profiles.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository creates a new instance of TutorRepository.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

// Create inserts a tutor profile with an empty availability store.
func (r *TutorRepository) Create(ctx context.Context, tutor *models.Tutor) error {
	if tutor.ID == "" {
		tutor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tutor.CreatedAt = now
	tutor.UpdatedAt = now
	const query = `INSERT INTO tutors (id, user_id, full_name, bio, city, subjects, hourly_rate, availability, version, active, created_at, updated_at)
VALUES (:id, :user_id, :full_name, :bio, :city, :subjects, :hourly_rate, :availability, :version, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tutor); err != nil {
		return fmt.Errorf("create tutor: %w", err)
	}
	return nil
}

// FindByID returns a tutor profile by identifier.
func (r *TutorRepository) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	query := fmt.Sprintf(`SELECT %s FROM tutors WHERE id = $1 LIMIT 1`, tutorColumns)
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tutor by id: %w", err)
	}
	return &tutor, nil
}

// FindByUserID returns the tutor profile owned by a user account.
func (r *TutorRepository) FindByUserID(ctx context.Context, userID string) (*models.Tutor, error) {
	query := fmt.Sprintf(`SELECT %s FROM tutors WHERE user_id = $1 LIMIT 1`, tutorColumns)
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tutor by user id: %w", err)
	}
	return &tutor, nil
}

// List returns tutors matching the filter with total count.
func (r *TutorRepository) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error) {
	baseQuery := `FROM tutors WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(subjects)", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.City != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(city) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.City))
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(bio) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) " + baseQuery
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tutors: %w", err)
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"full_name":   true,
		"city":        true,
		"hourly_rate": true,
		"created_at":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		tutorColumns, baseQuery, sortBy, sortOrder, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	var tutors []models.Tutor
	if err := r.db.SelectContext(ctx, &tutors, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list tutors: %w", err)
	}
	return tutors, total, nil
}

// UpdateAvailability replaces the availability blob, guarded by the profile
// version. It returns sql.ErrNoRows when the version is stale, which the
// service maps to a precondition failure.
func (r *TutorRepository) UpdateAvailability(ctx context.Context, id, serialized string, expectedVersion int) (*models.Tutor, error) {
	query := fmt.Sprintf(`UPDATE tutors
SET availability = $2, version = version + 1, updated_at = $3
WHERE id = $1 AND version = $4
RETURNING %s`, tutorColumns)
	var tutor models.Tutor
	err := r.db.GetContext(ctx, &tutor, query, id, serialized, time.Now().UTC(), expectedVersion)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update tutor availability: %w", err)
	}
	return &tutor, nil
}

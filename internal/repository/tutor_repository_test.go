package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorin-api/internal/models"
)

func tutorRows(availability string, version int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "full_name", "bio", "city", "subjects", "hourly_rate",
		"availability", "version", "active", "created_at", "updated_at",
	}).AddRow(
		"tutor-1", "user-1", "Budi Santoso", "", "Jakarta", "{Matematika,Fisika}", 100000.0,
		availability, version, true, now, now,
	)
}

func TestTutorRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTutorRepository(db)
	mock.ExpectQuery("SELECT (.+) FROM tutors WHERE id =").
		WithArgs("tutor-1").
		WillReturnRows(tutorRows(`{"Senin":[8,10]}`, 3))

	tutor, err := repo.FindByID(context.Background(), "tutor-1")
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", tutor.FullName)
	assert.Equal(t, `{"Senin":[8,10]}`, tutor.Availability)
	assert.Equal(t, 3, tutor.Version)
	assert.Equal(t, []string{"Matematika", "Fisika"}, []string(tutor.Subjects))
}

func TestTutorRepositoryUpdateAvailabilityBumpsVersion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTutorRepository(db)
	mock.ExpectQuery("UPDATE tutors").
		WithArgs("tutor-1", `{"Senin":[8]}`, sqlmock.AnyArg(), 3).
		WillReturnRows(tutorRows(`{"Senin":[8]}`, 4))

	tutor, err := repo.UpdateAvailability(context.Background(), "tutor-1", `{"Senin":[8]}`, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, tutor.Version)
}

func TestTutorRepositoryUpdateAvailabilityStaleVersion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTutorRepository(db)
	mock.ExpectQuery("UPDATE tutors").
		WithArgs("tutor-1", `{"Senin":[8]}`, sqlmock.AnyArg(), 2).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateAvailability(context.Background(), "tutor-1", `{"Senin":[8]}`, 2)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTutorRepositoryListWithSubjectFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTutorRepository(db)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM tutors").
		WithArgs("Matematika").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM tutors").
		WithArgs("Matematika", 20, 0).
		WillReturnRows(tutorRows("", 0))

	tutors, total, err := repo.List(context.Background(), models.TutorFilter{Subject: "Matematika"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, tutors, 1)
}

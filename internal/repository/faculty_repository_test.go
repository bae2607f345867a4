package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unitutor-api/internal/models"
)

var facultyRowColumns = []string{"user_id", "full_name", "email", "department", "consultation_days", "consultation_start", "consultation_end", "consultation_location", "updated_at"}

func TestGetFacultyProfile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFacultyRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.id = $1 AND u.role = $2 AND u.active = TRUE")).
		WithArgs("f-1", "FACULTY").
		WillReturnRows(sqlmock.NewRows(facultyRowColumns).
			AddRow("f-1", "Dr. Ana", "ana@uni.edu", "CS", "{Monday,Wednesday}", "09:00", "12:00", "Room 4.2", time.Now()))

	profile, err := repo.GetProfile(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"Monday", "Wednesday"}, profile.ConsultationDays)
	require.True(t, profile.HasWindow())
	assert.Equal(t, "09:00", *profile.ConsultationStart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFacultyProfileWithoutWindow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFacultyRepository(db)

	mock.ExpectQuery("FROM users u LEFT JOIN faculty_profiles").
		WillReturnRows(sqlmock.NewRows(facultyRowColumns).
			AddRow("f-2", "Dr. Budi", "budi@uni.edu", "", "{}", nil, nil, nil, time.Now()))

	profile, err := repo.GetProfile(context.Background(), "f-2")
	require.NoError(t, err)
	assert.Empty(t, profile.ConsultationDays)
	assert.False(t, profile.HasWindow())
}

func TestGetFacultyProfileNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFacultyRepository(db)

	mock.ExpectQuery("FROM users u LEFT JOIN faculty_profiles").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetProfile(context.Background(), "s-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListFacultyByDay(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFacultyRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.role = $1 AND u.active = TRUE AND $2 = ANY(fp.consultation_days) ORDER BY u.full_name ASC LIMIT 20 OFFSET 0")).
		WithArgs("FACULTY", "Monday").
		WillReturnRows(sqlmock.NewRows(facultyRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users u LEFT JOIN faculty_profiles fp")).
		WithArgs("FACULTY", "Monday").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.FacultyFilter{Day: "Monday"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertAvailability(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFacultyRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE")).WillReturnResult(sqlmock.NewResult(0, 1))

	start, end := "09:00", "12:00"
	profile := &models.FacultyProfile{UserID: "f-1", ConsultationDays: pq.StringArray{"Monday"}, ConsultationStart: &start, ConsultationEnd: &end}
	require.NoError(t, repo.UpsertAvailability(context.Background(), profile))
	assert.False(t, profile.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unitutor-api/internal/models"
)

// FacultyRepository reads and writes faculty consultation availability.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs the repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// Faculty without a profile row still appear, with no consultation days.
const facultySelect = `SELECT u.id AS user_id, u.full_name, u.email,
COALESCE(fp.department, '') AS department,
COALESCE(fp.consultation_days, '{}') AS consultation_days,
to_char(fp.consultation_start, 'HH24:MI') AS consultation_start,
to_char(fp.consultation_end, 'HH24:MI') AS consultation_end,
fp.consultation_location,
COALESCE(fp.updated_at, u.updated_at) AS updated_at
FROM users u LEFT JOIN faculty_profiles fp ON fp.user_id = u.id`

// GetProfile returns availability for an active FACULTY user or sql.ErrNoRows.
func (r *FacultyRepository) GetProfile(ctx context.Context, facultyID string) (*models.FacultyProfile, error) {
	query := facultySelect + ` WHERE u.id = $1 AND u.role = $2 AND u.active = TRUE`
	var profile models.FacultyProfile
	if err := r.db.GetContext(ctx, &profile, query, facultyID, models.RoleFaculty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get faculty profile: %w", err)
	}
	return &profile, nil
}

// List returns active faculty with their availability.
func (r *FacultyRepository) List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyProfile, int, error) {
	var w whereBuilder
	w.add("u.role = ?", models.RoleFaculty)
	w.add("u.active = TRUE")
	if filter.Department != "" {
		w.add("LOWER(fp.department) = LOWER(?)", filter.Department)
	}
	if filter.Day != "" {
		w.add("? = ANY(fp.consultation_days)", filter.Day)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		w.add("(LOWER(u.full_name) LIKE ? OR LOWER(u.email) LIKE ?)", pattern, pattern)
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY u.full_name ASC LIMIT %d OFFSET %d", facultySelect, w.clause(), limit, offset)
	var profiles []models.FacultyProfile
	if err := r.db.SelectContext(ctx, &profiles, query, w.args...); err != nil {
		return nil, 0, fmt.Errorf("list faculty: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM users u LEFT JOIN faculty_profiles fp ON fp.user_id = u.id" + w.clause()
	if err := r.db.GetContext(ctx, &total, countQuery, w.args...); err != nil {
		return nil, 0, fmt.Errorf("count faculty: %w", err)
	}
	return profiles, total, nil
}

// UpsertAvailability stores the consultation settings of profile.UserID.
func (r *FacultyRepository) UpsertAvailability(ctx context.Context, profile *models.FacultyProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO faculty_profiles (user_id, department, consultation_days, consultation_start, consultation_end, consultation_location, updated_at)
VALUES (:user_id, :department, :consultation_days, :consultation_start, :consultation_end, :consultation_location, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET department = EXCLUDED.department, consultation_days = EXCLUDED.consultation_days,
consultation_start = EXCLUDED.consultation_start, consultation_end = EXCLUDED.consultation_end,
consultation_location = EXCLUDED.consultation_location, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return translate(err, "upsert faculty availability")
	}
	return nil
}

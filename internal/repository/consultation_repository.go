package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unitutor-api/internal/models"
)

// ConsultationRepository persists consultation bookings.
type ConsultationRepository struct {
	db *sqlx.DB
}

// NewConsultationRepository constructs the repository.
func NewConsultationRepository(db *sqlx.DB) *ConsultationRepository {
	return &ConsultationRepository{db: db}
}

// Dates and times are rendered as text so they round-trip as "YYYY-MM-DD" and "HH:MM".
const consultationColumns = `id, faculty_id, student_id, to_char(booking_date, 'YYYY-MM-DD') AS booking_date,
to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time,
topic, notes, status, cancelled_by, created_at, updated_at`

// FindActiveByFacultyDate returns PENDING and CONFIRMED bookings for a faculty on date.
func (r *ConsultationRepository) FindActiveByFacultyDate(ctx context.Context, facultyID, date string) ([]models.ConsultationBooking, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultation_bookings
WHERE faculty_id = $1 AND booking_date = $2 AND status = ANY($3) ORDER BY start_time ASC`
	var bookings []models.ConsultationBooking
	if err := r.db.SelectContext(ctx, &bookings, query, facultyID, date, statusArray(models.ActiveConsultationStatuses)); err != nil {
		return nil, fmt.Errorf("find active consultations: %w", err)
	}
	return bookings, nil
}

// Create inserts a booking. Losing a race for the same slot surfaces as ErrOverlap.
func (r *ConsultationRepository) Create(ctx context.Context, booking *models.ConsultationBooking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.Status == "" {
		booking.Status = models.ConsultationPending
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	const query = `INSERT INTO consultation_bookings (id, faculty_id, student_id, booking_date, start_time, end_time, topic, notes, status, created_at, updated_at)
VALUES (:id, :faculty_id, :student_id, :booking_date, :start_time, :end_time, :topic, :notes, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return translate(err, "create consultation")
	}
	return nil
}

// FindByID returns a booking or sql.ErrNoRows.
func (r *ConsultationRepository) FindByID(ctx context.Context, id string) (*models.ConsultationBooking, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultation_bookings WHERE id = $1`
	var booking models.ConsultationBooking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find consultation: %w", err)
	}
	return &booking, nil
}

// List returns bookings matching filter, newest date first.
func (r *ConsultationRepository) List(ctx context.Context, filter models.ConsultationFilter) ([]models.ConsultationBooking, int, error) {
	var w whereBuilder
	if filter.FacultyID != "" {
		w.add("faculty_id = ?", filter.FacultyID)
	}
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	if len(filter.Status) > 0 {
		w.add("status = ANY(?)", statusArray(filter.Status))
	}
	if filter.DateFrom != "" {
		w.add("booking_date >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		w.add("booking_date <= ?", filter.DateTo)
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM consultation_bookings%s ORDER BY consultation_bookings.booking_date DESC, consultation_bookings.start_time ASC LIMIT %d OFFSET %d",
		consultationColumns, w.clause(), limit, offset)
	var bookings []models.ConsultationBooking
	if err := r.db.SelectContext(ctx, &bookings, query, w.args...); err != nil {
		return nil, 0, fmt.Errorf("list consultations: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM consultation_bookings"+w.clause(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("count consultations: %w", err)
	}
	return bookings, total, nil
}

// UpdateStatus moves a booking to status, recording who cancelled it when applicable.
func (r *ConsultationRepository) UpdateStatus(ctx context.Context, id string, status models.ConsultationStatus, cancelledBy *string) error {
	const query = `UPDATE consultation_bookings SET status = $2, cancelled_by = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, cancelledBy, time.Now().UTC())
	if err != nil {
		return translate(err, "update consultation status")
	}
	return expectAffected(res)
}

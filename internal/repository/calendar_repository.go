package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unitutor-api/internal/models"
)

// CalendarRepository reads the rows a calendar projection is assembled from.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs the repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// ListMeetings returns non-cancelled meetings intersecting [From, To) joined with room and organizer names.
func (r *CalendarRepository) ListMeetings(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEntry, error) {
	var w whereBuilder
	w.add("m.status <> ?", models.MeetingStatusCancelled)
	w.add("m.start_time < ?", filter.To)
	w.add("m.end_time > ?", filter.From)
	if filter.RoomID != "" {
		w.add("m.room_id = ?", filter.RoomID)
	}
	if filter.UserID != "" {
		w.add("(m.organizer_id = ? OR EXISTS (SELECT 1 FROM meeting_participants p WHERE p.meeting_id = m.id AND p.user_id = ?))", filter.UserID, filter.UserID)
	}

	query := `SELECT m.id, 'MEETING' AS kind, m.title, m.type, m.status, m.start_time, m.end_time,
m.room_id, rm.name AS room_name, rm.building, m.organizer_id, u.full_name AS organizer_name, NULL AS counterpart_name
FROM meetings m
JOIN users u ON u.id = m.organizer_id
LEFT JOIN rooms rm ON rm.id = m.room_id` + w.clause() + ` ORDER BY m.start_time ASC, m.id ASC`

	var entries []models.CalendarEntry
	if err := r.db.SelectContext(ctx, &entries, query, w.args...); err != nil {
		return nil, fmt.Errorf("list calendar meetings: %w", err)
	}
	return entries, nil
}

// ListConsultations returns active or completed consultations of a user (as faculty or student)
// within [From, To). Booking dates and times are interpreted in timezone.
func (r *CalendarRepository) ListConsultations(ctx context.Context, filter models.CalendarFilter, timezone string) ([]models.CalendarEntry, error) {
	if filter.UserID == "" {
		return nil, nil
	}
	if timezone == "" {
		timezone = "UTC"
	}

	const query = `SELECT c.id, 'CONSULTATION' AS kind, c.topic AS title, 'CONSULTATION' AS type, c.status,
(c.booking_date + c.start_time) AT TIME ZONE $1 AS start_time,
(c.booking_date + c.end_time) AT TIME ZONE $1 AS end_time,
NULL AS room_id, fp.consultation_location AS room_name, NULL AS building,
c.faculty_id AS organizer_id, f.full_name AS organizer_name, s.full_name AS counterpart_name
FROM consultation_bookings c
JOIN users f ON f.id = c.faculty_id
JOIN users s ON s.id = c.student_id
LEFT JOIN faculty_profiles fp ON fp.user_id = c.faculty_id
WHERE c.status <> $2
AND (c.faculty_id = $3 OR c.student_id = $3)
AND (c.booking_date + c.start_time) AT TIME ZONE $1 < $4
AND (c.booking_date + c.end_time) AT TIME ZONE $1 > $5
ORDER BY start_time ASC, c.id ASC`

	var entries []models.CalendarEntry
	if err := r.db.SelectContext(ctx, &entries, query, timezone, models.ConsultationCancelled, filter.UserID, filter.To, filter.From); err != nil {
		return nil, fmt.Errorf("list calendar consultations: %w", err)
	}
	return entries, nil
}

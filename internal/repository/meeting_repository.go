package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/unitutor-api/internal/models"
)

// MeetingRepository persists meetings and their participants.
type MeetingRepository struct {
	db *sqlx.DB
}

// NewMeetingRepository constructs the repository.
func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

const meetingColumns = `m.id, m.title, m.description, m.organizer_id, m.room_id, m.type, m.start_time, m.end_time, m.status, m.meeting_url, m.series_id, m.recurrence_rule, m.created_at, m.updated_at`

const insertMeeting = `INSERT INTO meetings (id, title, description, organizer_id, room_id, type, start_time, end_time, status, meeting_url, series_id, recurrence_rule, created_at, updated_at)
VALUES (:id, :title, :description, :organizer_id, :room_id, :type, :start_time, :end_time, :status, :meeting_url, :series_id, :recurrence_rule, :created_at, :updated_at)`

// List returns meetings matching filter ordered by start time.
func (r *MeetingRepository) List(ctx context.Context, filter models.MeetingFilter) ([]models.Meeting, int, error) {
	var w whereBuilder
	if filter.RoomID != "" {
		w.add("m.room_id = ?", filter.RoomID)
	}
	if filter.OrganizerID != "" && filter.ParticipantID != "" && filter.OrganizerID == filter.ParticipantID {
		w.add("(m.organizer_id = ? OR EXISTS (SELECT 1 FROM meeting_participants p WHERE p.meeting_id = m.id AND p.user_id = ?))", filter.OrganizerID, filter.ParticipantID)
	} else {
		if filter.OrganizerID != "" {
			w.add("m.organizer_id = ?", filter.OrganizerID)
		}
		if filter.ParticipantID != "" {
			w.add("EXISTS (SELECT 1 FROM meeting_participants p WHERE p.meeting_id = m.id AND p.user_id = ?)", filter.ParticipantID)
		}
	}
	if len(filter.Status) > 0 {
		w.add("m.status = ANY(?)", statusArray(filter.Status))
	}
	if filter.Type != "" {
		w.add("m.type = ?", filter.Type)
	}
	if filter.From != nil {
		w.add("m.end_time > ?", *filter.From)
	}
	if filter.To != nil {
		w.add("m.start_time < ?", *filter.To)
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM meetings m%s ORDER BY m.start_time ASC, m.id ASC LIMIT %d OFFSET %d", meetingColumns, w.clause(), limit, offset)
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, w.args...); err != nil {
		return nil, 0, fmt.Errorf("list meetings: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM meetings m"+w.clause(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("count meetings: %w", err)
	}
	return meetings, total, nil
}

// FindByID returns a meeting or sql.ErrNoRows.
func (r *MeetingRepository) FindByID(ctx context.Context, id string) (*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings m WHERE m.id = $1`
	var meeting models.Meeting
	if err := r.db.GetContext(ctx, &meeting, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find meeting: %w", err)
	}
	return &meeting, nil
}

// FindOverlapping returns active meetings in roomID intersecting [start, end), skipping excludeID.
func (r *MeetingRepository) FindOverlapping(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]models.Meeting, error) {
	var w whereBuilder
	w.add("m.room_id = ?", roomID)
	w.add("m.status = ANY(?)", statusArray(models.ActiveMeetingStatuses))
	w.add("m.start_time < ?", end)
	w.add("m.end_time > ?", start)
	if excludeID != "" {
		w.add("m.id <> ?", excludeID)
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings m` + w.clause() + ` ORDER BY m.start_time ASC`
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, w.args...); err != nil {
		return nil, fmt.Errorf("find overlapping meetings: %w", err)
	}
	return meetings, nil
}

// Create inserts one or more occurrences and invites participants to each, atomically.
// A lost race against another booking surfaces as ErrOverlap.
func (r *MeetingRepository) Create(ctx context.Context, meetings []*models.Meeting, participantIDs []string) error {
	now := time.Now().UTC()
	return withTx(ctx, r.db, "create meetings", func(tx *sqlx.Tx) error {
		for _, m := range meetings {
			if m.ID == "" {
				m.ID = uuid.NewString()
			}
			if m.Status == "" {
				m.Status = models.MeetingStatusScheduled
			}
			m.CreatedAt = now
			m.UpdatedAt = now
			if _, err := tx.NamedExecContext(ctx, insertMeeting, m); err != nil {
				return translate(err, "insert meeting")
			}
			if err := insertParticipants(ctx, tx, m.ID, participantIDs, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update persists editable fields of a meeting.
func (r *MeetingRepository) Update(ctx context.Context, m *models.Meeting) error {
	m.UpdatedAt = time.Now().UTC()
	const query = `UPDATE meetings SET title = :title, description = :description, room_id = :room_id, type = :type,
start_time = :start_time, end_time = :end_time, meeting_url = :meeting_url, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, m)
	if err != nil {
		return translate(err, "update meeting")
	}
	return expectAffected(res)
}

// UpdateStatus moves a meeting to status.
func (r *MeetingRepository) UpdateStatus(ctx context.Context, id string, status models.MeetingStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE meetings SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return translate(err, "update meeting status")
	}
	return expectAffected(res)
}

// ListParticipants returns invitees joined with their names.
func (r *MeetingRepository) ListParticipants(ctx context.Context, meetingID string) ([]models.Participant, error) {
	const query = `SELECT p.meeting_id, p.user_id, u.full_name, p.status, p.responded_at, p.created_at
FROM meeting_participants p JOIN users u ON u.id = p.user_id WHERE p.meeting_id = $1 ORDER BY u.full_name`
	var participants []models.Participant
	if err := r.db.SelectContext(ctx, &participants, query, meetingID); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}

// CountParticipants returns how many users are invited to the meeting.
func (r *MeetingRepository) CountParticipants(ctx context.Context, meetingID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM meeting_participants WHERE meeting_id = $1`, meetingID); err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

// AddParticipants invites users; existing invitations are left untouched.
func (r *MeetingRepository) AddParticipants(ctx context.Context, meetingID string, userIDs []string) error {
	return withTx(ctx, r.db, "add participants", func(tx *sqlx.Tx) error {
		return insertParticipants(ctx, tx, meetingID, userIDs, time.Now().UTC())
	})
}

// UpdateParticipantStatus records an RSVP.
func (r *MeetingRepository) UpdateParticipantStatus(ctx context.Context, meetingID, userID string, status models.ParticipantStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE meeting_participants SET status = $3, responded_at = $4 WHERE meeting_id = $1 AND user_id = $2`, meetingID, userID, status, at)
	if err != nil {
		return fmt.Errorf("update participant status: %w", err)
	}
	return expectAffected(res)
}

// RemoveParticipant deletes an invitation.
func (r *MeetingRepository) RemoveParticipant(ctx context.Context, meetingID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meeting_participants WHERE meeting_id = $1 AND user_id = $2`, meetingID, userID)
	if err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return expectAffected(res)
}

func insertParticipants(ctx context.Context, tx *sqlx.Tx, meetingID string, userIDs []string, now time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}
	const query = `INSERT INTO meeting_participants (meeting_id, user_id, status, created_at)
SELECT $1, unnest($2::text[]), $3, $4 ON CONFLICT (meeting_id, user_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, query, meetingID, pq.Array(userIDs), models.ParticipantInvited, now); err != nil {
		return translate(err, "insert participants")
	}
	return nil
}

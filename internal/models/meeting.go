package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MeetingType describes how a meeting takes place.
type MeetingType string

const (
	MeetingTypeOnline      MeetingType = "ONLINE"
	MeetingTypeInPerson    MeetingType = "IN_PERSON"
	MeetingTypeHybrid      MeetingType = "HYBRID"
	MeetingTypeClass       MeetingType = "CLASS"
	MeetingTypeExam        MeetingType = "EXAM"
	MeetingTypeOfficeHours MeetingType = "OFFICE_HOURS"
	MeetingTypeOther       MeetingType = "OTHER"
)

// Valid reports whether the meeting type is known.
func (t MeetingType) Valid() bool {
	switch t {
	case MeetingTypeOnline, MeetingTypeInPerson, MeetingTypeHybrid, MeetingTypeClass,
		MeetingTypeExam, MeetingTypeOfficeHours, MeetingTypeOther:
		return true
	default:
		return false
	}
}

// RequiresRoom reports whether the type cannot take place without a room.
func (t MeetingType) RequiresRoom() bool {
	return t == MeetingTypeInPerson || t == MeetingTypeClass || t == MeetingTypeExam
}

// MeetingStatus tracks the lifecycle of a booking.
type MeetingStatus string

const (
	MeetingStatusScheduled  MeetingStatus = "SCHEDULED"
	MeetingStatusInProgress MeetingStatus = "IN_PROGRESS"
	MeetingStatusCompleted  MeetingStatus = "COMPLETED"
	MeetingStatusCancelled  MeetingStatus = "CANCELLED"
)

// ActiveMeetingStatuses hold a room for their interval.
var ActiveMeetingStatuses = []MeetingStatus{MeetingStatusScheduled, MeetingStatusInProgress}

// Holds reports whether a meeting in this status blocks its room.
func (s MeetingStatus) Holds() bool {
	return s == MeetingStatusScheduled || s == MeetingStatusInProgress
}

// RecurrenceFrequency enumerates supported repeat cadences.
type RecurrenceFrequency string

const (
	RecurrenceDaily  RecurrenceFrequency = "DAILY"
	RecurrenceWeekly RecurrenceFrequency = "WEEKLY"
)

// RecurrenceRule describes how a meeting series repeats. Stored as JSONB.
type RecurrenceRule struct {
	Frequency RecurrenceFrequency `json:"frequency"`
	Interval  int                 `json:"interval,omitempty"`
	Weekdays  []string            `json:"weekdays,omitempty"`
	Until     *time.Time          `json:"until,omitempty"`
	Count     int                 `json:"count,omitempty"`
}

// Value marshals the rule to JSON for persistence.
func (r RecurrenceRule) Value() (driver.Value, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal recurrence rule: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the rule.
func (r *RecurrenceRule) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*r = RecurrenceRule{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for RecurrenceRule", value)
	}
	if len(data) == 0 {
		*r = RecurrenceRule{}
		return nil
	}
	if err := json.Unmarshal(data, r); err != nil {
		return fmt.Errorf("unmarshal recurrence rule: %w", err)
	}
	return nil
}

// Meeting is a time-boxed reservation of an organizer's time and optionally a room.
type Meeting struct {
	ID             string          `db:"id" json:"id"`
	Title          string          `db:"title" json:"title"`
	Description    string          `db:"description" json:"description"`
	OrganizerID    string          `db:"organizer_id" json:"organizer_id"`
	RoomID         *string         `db:"room_id" json:"room_id,omitempty"`
	Type           MeetingType     `db:"type" json:"type"`
	StartTime      time.Time       `db:"start_time" json:"start_time"`
	EndTime        time.Time       `db:"end_time" json:"end_time"`
	Status         MeetingStatus   `db:"status" json:"status"`
	MeetingURL     *string         `db:"meeting_url" json:"meeting_url,omitempty"`
	SeriesID       *string         `db:"series_id" json:"series_id,omitempty"`
	RecurrenceRule *RecurrenceRule `db:"recurrence_rule" json:"recurrence_rule,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// MeetingDetail is a meeting together with its participants.
type MeetingDetail struct {
	Meeting
	Participants []Participant `json:"participants"`
}

// MeetingFilter narrows meeting listings.
type MeetingFilter struct {
	RoomID        string
	OrganizerID   string
	ParticipantID string
	Status        []MeetingStatus
	Type          MeetingType
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}

// ParticipantStatus captures an invitee's response.
type ParticipantStatus string

const (
	ParticipantInvited  ParticipantStatus = "INVITED"
	ParticipantAccepted ParticipantStatus = "ACCEPTED"
	ParticipantDeclined ParticipantStatus = "DECLINED"
)

// Participant links a user to a meeting.
type Participant struct {
	MeetingID   string            `db:"meeting_id" json:"meeting_id"`
	UserID      string            `db:"user_id" json:"user_id"`
	FullName    string            `db:"full_name" json:"full_name,omitempty"`
	Status      ParticipantStatus `db:"status" json:"status"`
	RespondedAt *time.Time        `db:"responded_at" json:"responded_at,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}

// MeetingConflict describes an existing booking that blocks a request.
type MeetingConflict struct {
	MeetingID string        `json:"meeting_id"`
	Title     string        `json:"title"`
	RoomID    string        `json:"room_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Status    MeetingStatus `json:"status"`
}

// ConflictFromMeeting projects a meeting into its conflict description.
func ConflictFromMeeting(m Meeting) MeetingConflict {
	conflict := MeetingConflict{
		MeetingID: m.ID,
		Title:     m.Title,
		StartTime: m.StartTime,
		EndTime:   m.EndTime,
		Status:    m.Status,
	}
	if m.RoomID != nil {
		conflict.RoomID = *m.RoomID
	}
	return conflict
}

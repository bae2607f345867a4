package models

import "time"

// CalendarEntryKind distinguishes meeting and consultation rows in projections.
type CalendarEntryKind string

const (
	CalendarEntryMeeting      CalendarEntryKind = "MEETING"
	CalendarEntryConsultation CalendarEntryKind = "CONSULTATION"
)

// CalendarEntry is one row of a calendar projection after joining rooms and users.
type CalendarEntry struct {
	ID            string            `db:"id" json:"id"`
	Kind          CalendarEntryKind `db:"kind" json:"kind"`
	Title         string            `db:"title" json:"title"`
	Type          string            `db:"type" json:"type"`
	Status        string            `db:"status" json:"status"`
	StartTime     time.Time         `db:"start_time" json:"start_time"`
	EndTime       time.Time         `db:"end_time" json:"end_time"`
	RoomID        *string           `db:"room_id" json:"room_id,omitempty"`
	RoomName      *string           `db:"room_name" json:"room_name,omitempty"`
	Building      *string           `db:"building" json:"building,omitempty"`
	OrganizerID   string            `db:"organizer_id" json:"organizer_id"`
	OrganizerName string            `db:"organizer_name" json:"organizer_name"`
	Counterpart   *string           `db:"counterpart_name" json:"counterpart_name,omitempty"`
}

// CalendarFilter scopes a projection to a range and optionally a room or user.
type CalendarFilter struct {
	From   time.Time
	To     time.Time
	RoomID string
	UserID string
}

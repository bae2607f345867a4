package dto

import (
	"time"

	"github.com/noah-isme/unitutor-api/internal/models"
)

// CreateMeetingRequest is the payload of POST /meetings.
type CreateMeetingRequest struct {
	Title          string                 `json:"title" validate:"required,max=200"`
	Description    string                 `json:"description" validate:"max=4000"`
	RoomID         *string                `json:"room_id,omitempty"`
	Type           models.MeetingType     `json:"type" validate:"required"`
	StartTime      time.Time              `json:"start_time" validate:"required"`
	EndTime        time.Time              `json:"end_time" validate:"required"`
	MeetingURL     *string                `json:"meeting_url,omitempty" validate:"omitempty,url"`
	ParticipantIDs []string               `json:"participant_ids" validate:"omitempty,max=500,dive,required"`
	Recurrence     *models.RecurrenceRule `json:"recurrence,omitempty"`
}

// UpdateMeetingRequest patches a single meeting; omitted fields are left unchanged.
// ClearRoom detaches the room, which is how a meeting becomes ONLINE.
type UpdateMeetingRequest struct {
	Title       *string             `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=4000"`
	RoomID      *string             `json:"room_id,omitempty"`
	ClearRoom   bool                `json:"clear_room,omitempty"`
	Type        *models.MeetingType `json:"type,omitempty"`
	StartTime   *time.Time          `json:"start_time,omitempty"`
	EndTime     *time.Time          `json:"end_time,omitempty"`
	MeetingURL  *string             `json:"meeting_url,omitempty" validate:"omitempty,url"`
}

// UpdateStatusRequest carries a target lifecycle status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ParticipantsRequest invites users to a meeting.
type ParticipantsRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,max=500,dive,required"`
}

// RSVPRequest is a participant's answer to an invitation.
type RSVPRequest struct {
	Status models.ParticipantStatus `json:"status" validate:"required,oneof=ACCEPTED DECLINED"`
}

// ConflictCheckResponse reports the result of an overlap check.
type ConflictCheckResponse struct {
	Available bool                     `json:"available"`
	Conflicts []models.MeetingConflict `json:"conflicts"`
}

// CreateMeetingResponse returns every persisted occurrence.
type CreateMeetingResponse struct {
	SeriesID    *string                `json:"series_id,omitempty"`
	Occurrences int                    `json:"occurrences"`
	Meetings    []models.MeetingDetail `json:"meetings"`
}

package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionRoomCreate         = "ROOM_CREATE"
	AuditActionRoomUpdate         = "ROOM_UPDATE"
	AuditActionRoomDelete         = "ROOM_DELETE"
	AuditActionMeetingCreate      = "MEETING_CREATE"
	AuditActionMeetingUpdate      = "MEETING_UPDATE"
	AuditActionMeetingStatus      = "MEETING_STATUS"
	AuditActionParticipantChange  = "PARTICIPANT_CHANGE"
	AuditActionConsultationBook   = "CONSULTATION_BOOK"
	AuditActionConsultationStatus = "CONSULTATION_STATUS"
	AuditActionAvailabilityUpdate = "AVAILABILITY_UPDATE"
	AuditActionCalendarExport     = "CALENDAR_EXPORT"
	AuditActionCalendarDownload   = "CALENDAR_DOWNLOAD"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

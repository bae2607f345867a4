package models

import "time"

// ConsultationStatus tracks a consultation booking lifecycle.
type ConsultationStatus string

const (
	ConsultationPending   ConsultationStatus = "PENDING"
	ConsultationConfirmed ConsultationStatus = "CONFIRMED"
	ConsultationCompleted ConsultationStatus = "COMPLETED"
	ConsultationCancelled ConsultationStatus = "CANCELLED"
)

// ActiveConsultationStatuses hold a faculty slot.
var ActiveConsultationStatuses = []ConsultationStatus{ConsultationPending, ConsultationConfirmed}

// Valid reports whether the status is known.
func (s ConsultationStatus) Valid() bool {
	switch s {
	case ConsultationPending, ConsultationConfirmed, ConsultationCompleted, ConsultationCancelled:
		return true
	default:
		return false
	}
}

// ConsultationBooking is a student's reservation of a faculty consultation slot.
// StartTime and EndTime are "HH:MM" times of day on BookingDate.
type ConsultationBooking struct {
	ID          string             `db:"id" json:"id"`
	FacultyID   string             `db:"faculty_id" json:"faculty_id"`
	StudentID   string             `db:"student_id" json:"student_id"`
	BookingDate string             `db:"booking_date" json:"date"`
	StartTime   string             `db:"start_time" json:"start_time"`
	EndTime     string             `db:"end_time" json:"end_time"`
	Topic       string             `db:"topic" json:"topic"`
	Notes       *string            `db:"notes" json:"notes,omitempty"`
	Status      ConsultationStatus `db:"status" json:"status"`
	CancelledBy *string            `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}

// ConsultationFilter narrows consultation listings.
type ConsultationFilter struct {
	FacultyID string
	StudentID string
	Status    []ConsultationStatus
	DateFrom  string
	DateTo    string
	Page      int
	PageSize  int
}

// ConsultationConflict describes a booking that already occupies a slot.
type ConsultationConflict struct {
	BookingID string             `json:"booking_id"`
	Date      string             `json:"date"`
	StartTime string             `json:"start_time"`
	EndTime   string             `json:"end_time"`
	Status    ConsultationStatus `json:"status"`
}

// ConflictFromConsultation projects a booking into its conflict description.
func ConflictFromConsultation(b ConsultationBooking) ConsultationConflict {
	return ConsultationConflict{
		BookingID: b.ID,
		Date:      b.BookingDate,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Status:    b.Status,
	}
}

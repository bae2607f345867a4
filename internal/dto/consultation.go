package dto

import "github.com/noah-isme/unitutor-api/internal/models"

// BookConsultationRequest is the payload of POST /consultations.
type BookConsultationRequest struct {
	FacultyID string  `json:"faculty_id" validate:"required"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Topic     string  `json:"topic" validate:"required,max=300"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// AvailabilityQuery is GET /consultations/availability.
type AvailabilityQuery struct {
	FacultyID string `form:"faculty_id" validate:"required"`
	Date      string `form:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `form:"start_time"`
	EndTime   string `form:"end_time"`
}

// ConsultationWindow is a faculty's daily consultation window.
type ConsultationWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BookedSlot is an occupied interval on the requested date.
type BookedSlot struct {
	StartTime string                    `json:"start_time"`
	EndTime   string                    `json:"end_time"`
	Status    models.ConsultationStatus `json:"status"`
}

// AvailabilityResponse answers whether a faculty can be booked on a date (and optionally a slot).
type AvailabilityResponse struct {
	FacultyID        string                        `json:"faculty_id"`
	Date             string                        `json:"date"`
	Weekday          string                        `json:"weekday"`
	Available        bool                          `json:"available"`
	Reason           string                        `json:"reason,omitempty"`
	ConsultationDays []string                      `json:"consultation_days"`
	Window           *ConsultationWindow           `json:"window,omitempty"`
	BookedSlots      []BookedSlot                  `json:"booked_slots"`
	Conflicts        []models.ConsultationConflict `json:"conflicts,omitempty"`
}

// UpdateAvailabilityRequest replaces a faculty's consultation settings.
type UpdateAvailabilityRequest struct {
	Department       *string  `json:"department,omitempty" validate:"omitempty,max=120"`
	ConsultationDays []string `json:"consultation_days" validate:"max=7,dive,required"`
	StartTime        *string  `json:"start_time,omitempty"`
	EndTime          *string  `json:"end_time,omitempty"`
	Location         *string  `json:"location,omitempty" validate:"omitempty,max=200"`
}

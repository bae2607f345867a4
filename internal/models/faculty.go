package models

import (
	"time"

	"github.com/lib/pq"
)

// FacultyProfile carries a faculty member's weekly consultation availability.
type FacultyProfile struct {
	UserID               string         `db:"user_id" json:"user_id"`
	FullName             string         `db:"full_name" json:"full_name"`
	Email                string         `db:"email" json:"email"`
	Department           string         `db:"department" json:"department"`
	ConsultationDays     pq.StringArray `db:"consultation_days" json:"consultation_days"`
	ConsultationStart    *string        `db:"consultation_start" json:"consultation_start,omitempty"`
	ConsultationEnd      *string        `db:"consultation_end" json:"consultation_end,omitempty"`
	ConsultationLocation *string        `db:"consultation_location" json:"consultation_location,omitempty"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// HasWindow reports whether a daily consultation window is configured.
func (p FacultyProfile) HasWindow() bool {
	return p.ConsultationStart != nil && *p.ConsultationStart != "" &&
		p.ConsultationEnd != nil && *p.ConsultationEnd != ""
}

// FacultyFilter narrows faculty listings.
type FacultyFilter struct {
	Department string
	Day        string
	Search     string
	Page       int
	PageSize   int
}

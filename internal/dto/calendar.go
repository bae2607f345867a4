package dto

import "github.com/noah-isme/unitutor-api/internal/models"

// CalendarQuery selects a calendar projection.
type CalendarQuery struct {
	View   string `form:"view" json:"view"`
	Date   string `form:"date" json:"date"`
	RoomID string `form:"room_id" json:"room_id"`
	UserID string `form:"user_id" json:"user_id"`
}

// CalendarDay is one bucket of a projection.
type CalendarDay struct {
	Date    string                 `json:"date"`
	Weekday string                 `json:"weekday"`
	Entries []models.CalendarEntry `json:"entries"`
}

// CalendarView is a day, week or month projection.
type CalendarView struct {
	View     string        `json:"view"`
	Date     string        `json:"date"`
	From     string        `json:"from"`
	To       string        `json:"to"`
	Timezone string        `json:"timezone"`
	Days     []CalendarDay `json:"days"`
	Total    int           `json:"total"`
}

// CalendarExportRequest is the payload of POST /calendar/exports.
type CalendarExportRequest struct {
	View   string              `json:"view"`
	Date   string              `json:"date"`
	Format models.ExportFormat `json:"format" validate:"required"`
	RoomID string              `json:"room_id"`
	UserID string              `json:"user_id"`
}

// CalendarExportResponse reports export progress.
type CalendarExportResponse struct {
	ID           string              `json:"id"`
	Status       models.ExportStatus `json:"status"`
	Format       models.ExportFormat `json:"format"`
	DownloadURL  *string             `json:"download_url,omitempty"`
	ErrorMessage *string             `json:"error_message,omitempty"`
	CreatedAt    string              `json:"created_at"`
	FinishedAt   *string             `json:"finished_at,omitempty"`
}

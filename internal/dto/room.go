package dto

import "github.com/noah-isme/unitutor-api/internal/models"

// CreateRoomRequest is the payload of POST /admin/rooms.
type CreateRoomRequest struct {
	Name       string          `json:"name" validate:"required,max=120"`
	Building   string          `json:"building" validate:"required,max=120"`
	Floor      int             `json:"floor" validate:"min=-5,max=200"`
	Capacity   int             `json:"capacity" validate:"required,min=1,max=10000"`
	Type       models.RoomType `json:"type" validate:"required"`
	Facilities []string        `json:"facilities" validate:"omitempty,max=50,dive,max=60"`
	Active     *bool           `json:"active,omitempty"`
}

// UpdateRoomRequest patches a room; omitted fields are left unchanged.
type UpdateRoomRequest struct {
	Name       *string          `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Building   *string          `json:"building,omitempty" validate:"omitempty,min=1,max=120"`
	Floor      *int             `json:"floor,omitempty" validate:"omitempty,min=-5,max=200"`
	Capacity   *int             `json:"capacity,omitempty" validate:"omitempty,min=1,max=10000"`
	Type       *models.RoomType `json:"type,omitempty"`
	Facilities []string         `json:"facilities,omitempty" validate:"omitempty,max=50,dive,max=60"`
	Active     *bool            `json:"active,omitempty"`
}

// RoomScheduleResponse lists the bookings of one room in a range.
type RoomScheduleResponse struct {
	Room     models.Room      `json:"room"`
	From     string           `json:"from"`
	To       string           `json:"to"`
	Meetings []models.Meeting `json:"meetings"`
}

package models

import (
	"time"

	"github.com/lib/pq"
)

// RoomType classifies bookable spaces.
type RoomType string

const (
	RoomTypeClassroom   RoomType = "CLASSROOM"
	RoomTypeLab         RoomType = "LAB"
	RoomTypeLectureHall RoomType = "LECTURE_HALL"
	RoomTypeSeminarRoom RoomType = "SEMINAR_ROOM"
	RoomTypeMeetingRoom RoomType = "MEETING_ROOM"
	RoomTypeAuditorium  RoomType = "AUDITORIUM"
	RoomTypeOffice      RoomType = "OFFICE"
)

// Valid reports whether the type is one of the known room types.
func (t RoomType) Valid() bool {
	switch t {
	case RoomTypeClassroom, RoomTypeLab, RoomTypeLectureHall, RoomTypeSeminarRoom,
		RoomTypeMeetingRoom, RoomTypeAuditorium, RoomTypeOffice:
		return true
	default:
		return false
	}
}

// Room is a bookable physical space.
type Room struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	Building   string         `db:"building" json:"building"`
	Floor      int            `db:"floor" json:"floor"`
	Capacity   int            `db:"capacity" json:"capacity"`
	Type       RoomType       `db:"type" json:"type"`
	Facilities pq.StringArray `db:"facilities" json:"facilities"`
	Active     bool           `db:"active" json:"active"`
	CreatedBy  string         `db:"created_by" json:"created_by"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// RoomFilter narrows room listings.
type RoomFilter struct {
	Building    string
	Type        RoomType
	MinCapacity int
	Facility    string
	Active      *bool
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// RoomAvailabilityFilter selects rooms free for an interval.
type RoomAvailabilityFilter struct {
	Start       time.Time
	End         time.Time
	MinCapacity int
	Type        RoomType
	Building    string
}

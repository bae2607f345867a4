package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/models"
	"github.com/noah-isme/unitutor-api/internal/repository"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
)

const (
	maxScheduleSpan  = 92 * 24 * time.Hour
	schedulePageSize = 100
)

type roomRepository interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	GetByID(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) error
	CountMeetings(ctx context.Context, id string) (int, error)
	ListAvailable(ctx context.Context, filter models.RoomAvailabilityFilter) ([]models.Room, error)
}

type roomMeetingLister interface {
	List(ctx context.Context, filter models.MeetingFilter) ([]models.Meeting, int, error)
}

// RoomService manages the room registry.
type RoomService struct {
	repo      roomRepository
	meetings  roomMeetingLister
	cache     *CacheService
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomService constructs the service.
func NewRoomService(repo roomRepository, meetings roomMeetingLister, cache *CacheService, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{repo: repo, meetings: meetings, cache: cache, audit: audit, validator: defaultValidator(validate), logger: logger}
}

// List returns rooms with pagination metadata.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, nil, invalid("unknown room type")
	}
	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list rooms")
	}
	return rooms, models.NewPagination(filter.Page, filter.PageSize, 20, total), nil
}

// Get returns a room by id.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "room not found", "failed to load room")
	}
	return room, nil
}

// Create registers a new room.
func (s *RoomService) Create(ctx context.Context, actor models.Actor, req dto.CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailed(err, "invalid room payload")
	}
	if !req.Type.Valid() {
		return nil, invalid("unknown room type")
	}

	name, building := strings.TrimSpace(req.Name), strings.TrimSpace(req.Building)
	if name == "" {
		return nil, invalid("name is required")
	}
	if building == "" {
		return nil, invalid("building is required")
	}

	room := &models.Room{
		Name:       name,
		Building:   building,
		Floor:      req.Floor,
		Capacity:   req.Capacity,
		Type:       req.Type,
		Facilities: normalizeTags(req.Facilities),
		Active:     req.Active == nil || *req.Active,
		CreatedBy:  actor.UserID,
	}
	if err := s.repo.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a room with this name already exists")
		}
		return nil, appErrors.Internal(err, "failed to create room")
	}

	s.logger.Info("room created", zap.String("room_id", room.ID), zap.String("name", room.Name))
	s.audit.Record(ctx, actor, models.AuditActionRoomCreate, "room", room.ID, room)
	return room, nil
}

// Update applies a partial update to a room.
func (s *RoomService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailed(err, "invalid room payload")
	}
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		room.Name = strings.TrimSpace(*req.Name)
		if room.Name == "" {
			return nil, invalid("name is required")
		}
	}
	if req.Building != nil {
		room.Building = strings.TrimSpace(*req.Building)
		if room.Building == "" {
			return nil, invalid("building is required")
		}
	}
	if req.Floor != nil {
		room.Floor = *req.Floor
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, invalid("unknown room type")
		}
		room.Type = *req.Type
	}
	if req.Facilities != nil {
		room.Facilities = normalizeTags(req.Facilities)
	}
	if req.Active != nil {
		room.Active = *req.Active
	}

	if err := s.repo.Update(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a room with this name already exists")
		}
		return nil, lookupError(err, "room not found", "failed to update room")
	}

	s.cache.Invalidate(ctx, calendarCachePattern)
	s.audit.Record(ctx, actor, models.AuditActionRoomUpdate, "room", room.ID, req)
	return room, nil
}

// Delete removes a room that has never been booked. Booked rooms must be deactivated instead.
func (s *RoomService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountMeetings(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to check room bookings")
	}
	if count > 0 {
		return appErrors.WithDetails(appErrors.ErrConflict, "room has bookings and cannot be deleted; deactivate it instead", map[string]int{"meetings": count})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return appErrors.Clone(appErrors.ErrConflict, "room has bookings and cannot be deleted; deactivate it instead")
		}
		return lookupError(err, "room not found", "failed to delete room")
	}

	s.audit.Record(ctx, actor, models.AuditActionRoomDelete, "room", id, nil)
	return nil
}

// Available lists active rooms free for the whole of [Start, End).
func (s *RoomService) Available(ctx context.Context, filter models.RoomAvailabilityFilter) ([]models.Room, error) {
	if filter.Start.IsZero() || filter.End.IsZero() {
		return nil, invalid("start and end are required")
	}
	if !filter.End.After(filter.Start) {
		return nil, invalid("end must be after start")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, invalid("unknown room type")
	}
	rooms, err := s.repo.ListAvailable(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list available rooms")
	}
	return rooms, nil
}

// Schedule returns the non-cancelled meetings of a room intersecting [from, to).
func (s *RoomService) Schedule(ctx context.Context, id string, from, to time.Time) (*dto.RoomScheduleResponse, error) {
	if !to.After(from) {
		return nil, invalid("to must be after from")
	}
	if to.Sub(from) > maxScheduleSpan {
		return nil, invalid("schedule range must not exceed 92 days")
	}
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	filter := models.MeetingFilter{
		RoomID:   id,
		Status:   []models.MeetingStatus{models.MeetingStatusScheduled, models.MeetingStatusInProgress, models.MeetingStatusCompleted},
		From:     &from,
		To:       &to,
		PageSize: schedulePageSize,
	}
	meetings := []models.Meeting{}
	for filter.Page = 1; ; filter.Page++ {
		page, total, err := s.meetings.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load room schedule")
		}
		meetings = append(meetings, page...)
		if len(page) < schedulePageSize || len(meetings) >= total {
			break
		}
	}
	return &dto.RoomScheduleResponse{
		Room:     *room,
		From:     from.Format(time.RFC3339),
		To:       to.Format(time.RFC3339),
		Meetings: meetings,
	}, nil
}

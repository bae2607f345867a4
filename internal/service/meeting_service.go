package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/models"
	"github.com/noah-isme/unitutor-api/internal/repository"
	"github.com/noah-isme/unitutor-api/internal/scheduling"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
)

type meetingRepository interface {
	List(ctx context.Context, filter models.MeetingFilter) ([]models.Meeting, int, error)
	FindByID(ctx context.Context, id string) (*models.Meeting, error)
	FindOverlapping(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]models.Meeting, error)
	Create(ctx context.Context, meetings []*models.Meeting, participantIDs []string) error
	Update(ctx context.Context, m *models.Meeting) error
	UpdateStatus(ctx context.Context, id string, status models.MeetingStatus) error
	ListParticipants(ctx context.Context, meetingID string) ([]models.Participant, error)
	CountParticipants(ctx context.Context, meetingID string) (int, error)
	AddParticipants(ctx context.Context, meetingID string, userIDs []string) error
	UpdateParticipantStatus(ctx context.Context, meetingID, userID string, status models.ParticipantStatus, at time.Time) error
	RemoveParticipant(ctx context.Context, meetingID, userID string) error
}

type meetingRoomReader interface {
	GetByID(ctx context.Context, id string) (*models.Room, error)
}

type userLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// MeetingService books meetings and guards rooms against double booking.
type MeetingService struct {
	repo      meetingRepository
	rooms     meetingRoomReader
	users     userLookup
	cache     *CacheService
	metrics   *MetricsService
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// MeetingServiceDeps bundles the collaborators of MeetingService.
type MeetingServiceDeps struct {
	Repo      meetingRepository
	Rooms     meetingRoomReader
	Users     userLookup
	Cache     *CacheService
	Metrics   *MetricsService
	Audit     *AuditService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewMeetingService constructs the service.
func NewMeetingService(deps MeetingServiceDeps) *MeetingService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeetingService{
		repo:      deps.Repo,
		rooms:     deps.Rooms,
		users:     deps.Users,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		audit:     deps.Audit,
		validator: defaultValidator(deps.Validator),
		logger:    logger,
	}
}

// CheckConflicts returns the active meetings in roomID overlapping [start, end), ignoring excludeID.
func (s *MeetingService) CheckConflicts(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]models.MeetingConflict, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, invalid("room_id is required")
	}
	if start.IsZero() || end.IsZero() {
		return nil, invalid("start and end are required")
	}
	if !end.After(start) {
		return nil, invalid("end_time must be after start_time")
	}
	return s.findConflicts(ctx, roomID, []scheduling.Interval{{Start: start, End: end}}, excludeID)
}

// Create books a meeting or, when a recurrence is given, a whole series. A series is
// accepted only when none of its occurrences conflict.
func (s *MeetingService) Create(ctx context.Context, actor models.Actor, req dto.CreateMeetingRequest) (*dto.CreateMeetingResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailed(err, "invalid meeting payload")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if !req.Type.Valid() {
		return nil, invalid("unknown meeting type")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, invalid("end_time must be after start_time")
	}
	roomID := trimmedID(req.RoomID)
	if err := checkRoomRequirement(req.Type, roomID); err != nil {
		return nil, err
	}

	participants, err := s.resolveParticipants(ctx, req.ParticipantIDs, actor.UserID)
	if err != nil {
		return nil, err
	}

	var room *models.Room
	if roomID != nil {
		if room, err = s.bookableRoom(ctx, *roomID); err != nil {
			return nil, err
		}
		if len(participants) > room.Capacity {
			return nil, invalid(fmt.Sprintf("%d participants exceed the capacity of %s (%d)", len(participants), room.Name, room.Capacity))
		}
	}

	intervals, err := occurrences(req)
	if err != nil {
		return nil, err
	}

	if roomID != nil {
		conflicts, err := s.findConflicts(ctx, *roomID, intervals, "")
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			s.metrics.RecordBookingConflict("room", "check")
			return nil, roomConflictError(conflicts)
		}
	}

	var seriesID *string
	if req.Recurrence != nil {
		id := uuid.NewString()
		seriesID = &id
	}
	meetings := make([]*models.Meeting, 0, len(intervals))
	for _, iv := range intervals {
		meetings = append(meetings, &models.Meeting{
			Title:          title,
			Description:    strings.TrimSpace(req.Description),
			OrganizerID:    actor.UserID,
			RoomID:         roomID,
			Type:           req.Type,
			StartTime:      iv.Start.UTC(),
			EndTime:        iv.End.UTC(),
			Status:         models.MeetingStatusScheduled,
			MeetingURL:     trimmedID(req.MeetingURL),
			SeriesID:       seriesID,
			RecurrenceRule: req.Recurrence,
		})
	}

	participantIDs := userIDs(participants)
	if err := s.repo.Create(ctx, meetings, participantIDs); err != nil {
		if errors.Is(err, repository.ErrOverlap) && roomID != nil {
			return nil, s.lostRace(ctx, *roomID, intervals, "")
		}
		return nil, appErrors.Internal(err, "failed to create meeting")
	}

	s.metrics.RecordBookingCreated("meeting", len(meetings))
	s.cache.Invalidate(ctx, calendarCachePattern)
	s.logger.Info("meeting booked",
		zap.String("meeting_id", meetings[0].ID),
		zap.Int("occurrences", len(meetings)),
		zap.Stringp("room_id", roomID),
		zap.String("organizer_id", actor.UserID))
	s.audit.Record(ctx, actor, models.AuditActionMeetingCreate, "meeting", meetings[0].ID, map[string]interface{}{
		"title": title, "room_id": roomID, "occurrences": len(meetings), "series_id": seriesID,
	})

	resp := &dto.CreateMeetingResponse{SeriesID: seriesID, Occurrences: len(meetings), Meetings: make([]models.MeetingDetail, 0, len(meetings))}
	for _, m := range meetings {
		resp.Meetings = append(resp.Meetings, models.MeetingDetail{Meeting: *m, Participants: invitedParticipants(m, participants)})
	}
	return resp, nil
}

// List returns meetings visible to actor. Non-admins only see meetings they organise or attend.
func (s *MeetingService) List(ctx context.Context, actor models.Actor, filter models.MeetingFilter) ([]models.Meeting, *models.Pagination, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, nil, invalid("unknown meeting type")
	}
	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		return nil, nil, invalid("to must be after from")
	}
	if !actor.IsAdmin() {
		filter.OrganizerID = actor.UserID
		filter.ParticipantID = actor.UserID
	}
	meetings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list meetings")
	}
	return meetings, models.NewPagination(filter.Page, filter.PageSize, 20, total), nil
}

// Get returns a meeting with its participants.
func (s *MeetingService) Get(ctx context.Context, actor models.Actor, id string) (*models.MeetingDetail, error) {
	meeting, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	participants, err := s.repo.ListParticipants(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load participants")
	}
	if !actor.IsAdmin() && meeting.OrganizerID != actor.UserID && !hasParticipant(participants, actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not part of this meeting")
	}
	if participants == nil {
		participants = []models.Participant{}
	}
	return &models.MeetingDetail{Meeting: *meeting, Participants: participants}, nil
}

// Update edits a scheduled meeting, re-running the overlap check against the new slot.
func (s *MeetingService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateMeetingRequest) (*models.Meeting, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailed(err, "invalid meeting payload")
	}
	meeting, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canManage(actor, meeting); err != nil {
		return nil, err
	}
	if meeting.Status != models.MeetingStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only scheduled meetings can be edited")
	}

	updated := *meeting
	if req.Title != nil {
		updated.Title = strings.TrimSpace(*req.Title)
		if updated.Title == "" {
			return nil, invalid("title is required")
		}
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, invalid("unknown meeting type")
		}
		updated.Type = *req.Type
	}
	if req.ClearRoom {
		updated.RoomID = nil
	} else if req.RoomID != nil {
		updated.RoomID = trimmedID(req.RoomID)
	}
	if req.StartTime != nil {
		updated.StartTime = req.StartTime.UTC()
	}
	if req.EndTime != nil {
		updated.EndTime = req.EndTime.UTC()
	}
	if req.MeetingURL != nil {
		updated.MeetingURL = trimmedID(req.MeetingURL)
	}

	if !updated.EndTime.After(updated.StartTime) {
		return nil, invalid("end_time must be after start_time")
	}
	if err := checkRoomRequirement(updated.Type, updated.RoomID); err != nil {
		return nil, err
	}

	if updated.RoomID != nil {
		room, err := s.bookableRoom(ctx, *updated.RoomID)
		if err != nil {
			return nil, err
		}
		count, err := s.repo.CountParticipants(ctx, id)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to count participants")
		}
		if count > room.Capacity {
			return nil, invalid(fmt.Sprintf("%d participants exceed the capacity of %s (%d)", count, room.Name, room.Capacity))
		}
		slot := []scheduling.Interval{{Start: updated.StartTime, End: updated.EndTime}}
		conflicts, err := s.findConflicts(ctx, *updated.RoomID, slot, id)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			s.metrics.RecordBookingConflict("room", "check")
			return nil, roomConflictError(conflicts)
		}
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrOverlap) && updated.RoomID != nil {
			return nil, s.lostRace(ctx, *updated.RoomID, []scheduling.Interval{{Start: updated.StartTime, End: updated.EndTime}}, id)
		}
		return nil, lookupError(err, "meeting not found", "failed to update meeting")
	}

	s.cache.Invalidate(ctx, calendarCachePattern)
	s.audit.Record(ctx, actor, models.AuditActionMeetingUpdate, "meeting", id, req)
	return &updated, nil
}

// UpdateStatus applies a lifecycle transition. COMPLETED and CANCELLED are terminal.
func (s *MeetingService) UpdateStatus(ctx context.Context, actor models.Actor, id string, status models.MeetingStatus) (*models.Meeting, error) {
	switch status {
	case models.MeetingStatusScheduled, models.MeetingStatusInProgress, models.MeetingStatusCompleted, models.MeetingStatusCancelled:
	default:
		return nil, invalid("unknown meeting status")
	}
	meeting, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canManage(actor, meeting); err != nil {
		return nil, err
	}
	if !scheduling.CanTransitionMeeting(meeting.Status, status) {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move meeting from %s to %s", meeting.Status, status),
			map[string]models.MeetingStatus{"from": meeting.Status, "to": status})
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, lookupError(err, "meeting not found", "failed to update meeting status")
	}

	from := meeting.Status
	meeting.Status = status
	meeting.UpdatedAt = utcNow()
	s.cache.Invalidate(ctx, calendarCachePattern)
	s.audit.Record(ctx, actor, models.AuditActionMeetingStatus, "meeting", id, map[string]models.MeetingStatus{"from": from, "to": status})
	return meeting, nil
}

// AddParticipants invites users, keeping the meeting within its room capacity.
func (s *MeetingService) AddParticipants(ctx context.Context, actor models.Actor, id string, req dto.ParticipantsRequest) ([]models.Participant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailed(err, "invalid participants payload")
	}
	meeting, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canManage(actor, meeting); err != nil {
		return nil, err
	}
	if !meeting.Status.Holds() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "participants cannot be added to a finished meeting")
	}

	users, err := s.resolveParticipants(ctx, req.UserIDs, meeting.OrganizerID)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListParticipants(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load participants")
	}
	fresh := make([]string, 0, len(users))
	for _, u := range users {
		if !hasParticipant(existing, u.ID) {
			fresh = append(fresh, u.ID)
		}
	}
	if len(fresh) == 0 {
		return existing, nil
	}

	if meeting.RoomID != nil {
		room, err := s.rooms.GetByID(ctx, *meeting.RoomID)
		if err != nil {
			return nil, lookupError(err, "room not found", "failed to load room")
		}
		if total := len(existing) + len(fresh); total > room.Capacity {
			return nil, invalid(fmt.Sprintf("%d participants exceed the capacity of %s (%d)", total, room.Name, room.Capacity))
		}
	}

	if err := s.repo.AddParticipants(ctx, id, fresh); err != nil {
		return nil, appErrors.Internal(err, "failed to add participants")
	}
	s.cache.Invalidate(ctx, calendarCachePattern)
	s.audit.Record(ctx, actor, models.AuditActionParticipantChange, "meeting", id, map[string]interface{}{"added": fresh})

	participants, err := s.repo.ListParticipants(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load participants")
	}
	return participants, nil
}

// RemoveParticipant withdraws an invitation. Participants may remove themselves.
func (s *MeetingService) RemoveParticipant(ctx context.Context, actor models.Actor, id, userID string) error {
	meeting, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if actor.UserID != userID {
		if err := canManage(actor, meeting); err != nil {
			return err
		}
	}
	if err := s.repo.RemoveParticipant(ctx, id, userID); err != nil {
		return lookupError(err, "participant not found", "failed to remove participant")
	}
	s.cache.Invalidate(ctx, calendarCachePattern)
	s.audit.Record(ctx, actor, models.AuditActionParticipantChange, "meeting", id, map[string]string{"removed": userID})
	return nil
}

// Respond records the actor's RSVP to an invitation.
func (s *MeetingService) Respond(ctx context.Context, actor models.Actor, id string, req dto.RSVPRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationFailed(err, "status must be ACCEPTED or DECLINED")
	}
	meeting, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !meeting.Status.Holds() {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "cannot respond to a finished meeting")
	}
	if err := s.repo.UpdateParticipantStatus(ctx, id, actor.UserID, req.Status, utcNow()); err != nil {
		return lookupError(err, "you are not invited to this meeting", "failed to record response")
	}
	s.audit.Record(ctx, actor, models.AuditActionParticipantChange, "meeting", id, map[string]models.ParticipantStatus{"rsvp": req.Status})
	return nil
}

func (s *MeetingService) load(ctx context.Context, id string) (*models.Meeting, error) {
	meeting, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "meeting not found", "failed to load meeting")
	}
	return meeting, nil
}

func (s *MeetingService) bookableRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, lookupError(err, "room not found", "failed to load room")
	}
	if !room.Active {
		return nil, invalid(fmt.Sprintf("room %s is inactive and cannot be booked", room.Name))
	}
	return room, nil
}

func (s *MeetingService) findConflicts(ctx context.Context, roomID string, intervals []scheduling.Interval, excludeID string) ([]models.MeetingConflict, error) {
	var conflicts []models.MeetingConflict
	seen := make(map[string]bool)
	for _, iv := range intervals {
		existing, err := s.repo.FindOverlapping(ctx, roomID, iv.Start, iv.End, excludeID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check room availability")
		}
		for _, m := range existing {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			conflicts = append(conflicts, models.ConflictFromMeeting(m))
		}
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].StartTime.Before(conflicts[j].StartTime) })
	return conflicts, nil
}

// lostRace builds the 409 for a booking rejected by the exclusion constraint after passing the check.
func (s *MeetingService) lostRace(ctx context.Context, roomID string, intervals []scheduling.Interval, excludeID string) error {
	s.metrics.RecordBookingConflict("room", "constraint")
	conflicts, err := s.findConflicts(ctx, roomID, intervals, excludeID)
	if err != nil || len(conflicts) == 0 {
		return appErrors.Clone(appErrors.ErrRoomConflict, "")
	}
	return roomConflictError(conflicts)
}

func (s *MeetingService) resolveParticipants(ctx context.Context, ids []string, organizerID string) ([]models.User, error) {
	wanted := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == organizerID || seen[id] {
			continue
		}
		seen[id] = true
		wanted = append(wanted, id)
	}
	if len(wanted) == 0 {
		return nil, nil
	}
	users, err := s.users.FindByIDs(ctx, wanted)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load participants")
	}
	if len(users) != len(wanted) {
		found := make(map[string]bool, len(users))
		for _, u := range users {
			found[u.ID] = true
		}
		var missing []string
		for _, id := range wanted {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown or inactive participants", map[string][]string{"user_ids": missing})
	}
	return users, nil
}

func occurrences(req dto.CreateMeetingRequest) ([]scheduling.Interval, error) {
	if req.Recurrence == nil {
		return []scheduling.Interval{{Start: req.StartTime, End: req.EndTime}}, nil
	}
	intervals, err := scheduling.Expand(*req.Recurrence, req.StartTime, req.EndTime)
	if err != nil {
		return nil, validationFailed(err, err.Error())
	}
	if len(intervals) == 0 {
		return nil, invalid("recurrence produces no occurrences")
	}
	for i := range intervals {
		if idx := scheduling.FirstOverlap(intervals[i], intervals[i+1:]); idx >= 0 {
			return nil, invalid("recurring occurrences overlap each other")
		}
	}
	return intervals, nil
}

func checkRoomRequirement(t models.MeetingType, roomID *string) error {
	if t.RequiresRoom() && roomID == nil {
		return invalid(fmt.Sprintf("%s meetings require a room", t))
	}
	if t == models.MeetingTypeOnline && roomID != nil {
		return invalid("online meetings cannot hold a room")
	}
	return nil
}

func canManage(actor models.Actor, meeting *models.Meeting) error {
	if actor.IsAdmin() || meeting.OrganizerID == actor.UserID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only the organizer can change this meeting")
}

func roomConflictError(conflicts []models.MeetingConflict) error {
	first := conflicts[0]
	message := fmt.Sprintf("room is already booked by %q from %s to %s",
		first.Title, first.StartTime.Format(time.RFC3339), first.EndTime.Format(time.RFC3339))
	if len(conflicts) > 1 {
		message = fmt.Sprintf("%s (and %d more)", message, len(conflicts)-1)
	}
	return appErrors.WithDetails(appErrors.ErrRoomConflict, message, map[string]interface{}{"conflicts": conflicts})
}

func trimmedID(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func userIDs(users []models.User) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func hasParticipant(participants []models.Participant, userID string) bool {
	for _, p := range participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func invitedParticipants(m *models.Meeting, users []models.User) []models.Participant {
	out := make([]models.Participant, 0, len(users))
	for _, u := range users {
		out = append(out, models.Participant{
			MeetingID: m.ID,
			UserID:    u.ID,
			FullName:  u.FullName,
			Status:    models.ParticipantInvited,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}

package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/models"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
	"github.com/noah-isme/unitutor-api/pkg/response"
)

type meetingService interface {
	CheckConflicts(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]models.MeetingConflict, error)
	Create(ctx context.Context, actor models.Actor, req dto.CreateMeetingRequest) (*dto.CreateMeetingResponse, error)
	List(ctx context.Context, actor models.Actor, filter models.MeetingFilter) ([]models.Meeting, *models.Pagination, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.MeetingDetail, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateMeetingRequest) (*models.Meeting, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id string, status models.MeetingStatus) (*models.Meeting, error)
	AddParticipants(ctx context.Context, actor models.Actor, id string, req dto.ParticipantsRequest) ([]models.Participant, error)
	RemoveParticipant(ctx context.Context, actor models.Actor, id, userID string) error
	Respond(ctx context.Context, actor models.Actor, id string, req dto.RSVPRequest) error
}

// MeetingHandler exposes meeting booking endpoints.
type MeetingHandler struct {
	service meetingService
}

// NewMeetingHandler constructs the handler.
func NewMeetingHandler(svc meetingService) *MeetingHandler {
	return &MeetingHandler{service: svc}
}

// List godoc
// @Summary List meetings
// @Description Non-admin callers only see meetings they organise or attend.
// @Tags Meetings
// @Produce json
// @Param room_id query string false "Room"
// @Param organizer_id query string false "Organizer"
// @Param participant_id query string false "Participant"
// @Param status query string false "Comma separated statuses"
// @Param type query string false "Meeting type"
// @Param from query string false "Range start"
// @Param to query string false "Range end"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings [get]
func (h *MeetingHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	from, err := timeQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.MeetingFilter{
		RoomID:        c.Query("room_id"),
		OrganizerID:   c.Query("organizer_id"),
		ParticipantID: c.Query("participant_id"),
		Type:          models.MeetingType(strings.ToUpper(c.Query("type"))),
		From:          from,
		To:            to,
	}
	for _, status := range csvQuery(c, "status") {
		filter.Status = append(filter.Status, models.MeetingStatus(status))
	}
	filter.Page, filter.PageSize = paging(c)

	meetings, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meetings, pagination)
}

// Conflicts godoc
// @Summary Check a room for overlapping bookings
// @Tags Meetings
// @Produce json
// @Param room_id query string true "Room"
// @Param start query string true "Start (RFC3339)"
// @Param end query string true "End (RFC3339)"
// @Param exclude_id query string false "Meeting to ignore"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings/conflicts [get]
func (h *MeetingHandler) Conflicts(c *gin.Context) {
	start, err := timeQuery(c, "start")
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := timeQuery(c, "end")
	if err != nil {
		response.Error(c, err)
		return
	}
	if start == nil || end == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "start and end are required"))
		return
	}
	conflicts, err := h.service.CheckConflicts(c.Request.Context(), c.Query("room_id"), *start, *end, c.Query("exclude_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if conflicts == nil {
		conflicts = []models.MeetingConflict{}
	}
	response.JSON(c, http.StatusOK, dto.ConflictCheckResponse{Available: len(conflicts) == 0, Conflicts: conflicts}, nil)
}

// Create godoc
// @Summary Book a meeting
// @Description Recurring requests are validated as a whole; one conflicting occurrence rejects the series.
// @Tags Meetings
// @Accept json
// @Produce json
// @Param payload body dto.CreateMeetingRequest true "Meeting payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings [post]
func (h *MeetingHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get godoc
// @Summary Get meeting
// @Tags Meetings
// @Produce json
// @Param id path string true "Meeting ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings/{id} [get]
func (h *MeetingHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	meeting, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meeting, nil)
}

// Update godoc
// @Summary Update meeting
// @Tags Meetings
// @Accept json
// @Produce json
// @Param id path string true "Meeting ID"
// @Param payload body dto.UpdateMeetingRequest true "Meeting patch"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings/{id} [put]
func (h *MeetingHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	meeting, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meeting, nil)
}

// UpdateStatus godoc
// @Summary Change meeting status
// @Tags Meetings
// @Accept json
// @Produce json
// @Param id path string true "Meeting ID"
// @Param payload body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings/{id}/status [patch]
func (h *MeetingHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	status := models.MeetingStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	meeting, err := h.service.UpdateStatus(c.Request.Context(), actor, c.Param("id"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meeting, nil)
}

// AddParticipants godoc
// @Summary Invite participants
// @Tags Meetings
// @Accept json
// @Produce json
// @Param id path string true "Meeting ID"
// @Param payload body dto.ParticipantsRequest true "Users to invite"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings/{id}/participants [post]
func (h *MeetingHandler) AddParticipants(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	participants, err := h.service.AddParticipants(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, participants, nil)
}

// RemoveParticipant godoc
// @Summary Remove a participant
// @Tags Meetings
// @Param id path string true "Meeting ID"
// @Param userId path string true "User ID"
// @Success 204
// @Security BearerAuth
// @Router /meetings/{id}/participants/{userId} [delete]
func (h *MeetingHandler) RemoveParticipant(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.RemoveParticipant(c.Request.Context(), actor, c.Param("id"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Respond godoc
// @Summary Answer an invitation
// @Tags Meetings
// @Accept json
// @Param id path string true "Meeting ID"
// @Param payload body dto.RSVPRequest true "ACCEPTED or DECLINED"
// @Success 204
// @Security BearerAuth
// @Router /meetings/{id}/rsvp [post]
func (h *MeetingHandler) Respond(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	req.Status = models.ParticipantStatus(strings.ToUpper(string(req.Status)))
	if err := h.service.Respond(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

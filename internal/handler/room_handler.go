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

const defaultScheduleSpan = 7 * 24 * time.Hour

type roomService interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, actor models.Actor, req dto.CreateRoomRequest) (*models.Room, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateRoomRequest) (*models.Room, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Available(ctx context.Context, filter models.RoomAvailabilityFilter) ([]models.Room, error)
	Schedule(ctx context.Context, id string, from, to time.Time) (*dto.RoomScheduleResponse, error)
}

// RoomHandler exposes the room registry.
type RoomHandler struct {
	service roomService
}

// NewRoomHandler constructs the handler.
func NewRoomHandler(svc roomService) *RoomHandler {
	return &RoomHandler{service: svc}
}

// List godoc
// @Summary List rooms
// @Tags Rooms
// @Produce json
// @Param building query string false "Building"
// @Param type query string false "Room type"
// @Param min_capacity query int false "Minimum capacity"
// @Param facility query string false "Required facility"
// @Param active query bool false "Active flag"
// @Param search query string false "Search by name or building"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	minCapacity, err := intQuery(c, "min_capacity")
	if err != nil {
		response.Error(c, err)
		return
	}
	active, err := boolQuery(c, "active")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.RoomFilter{
		Building:    c.Query("building"),
		Type:        models.RoomType(strings.ToUpper(c.Query("type"))),
		MinCapacity: minCapacity,
		Facility:    c.Query("facility"),
		Active:      active,
		Search:      c.Query("search"),
		SortBy:      c.Query("sort"),
		SortOrder:   c.Query("order"),
	}
	filter.Page, filter.PageSize = paging(c)

	rooms, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, pagination)
}

// Get godoc
// @Summary Get room
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /rooms/{id} [get]
func (h *RoomHandler) Get(c *gin.Context) {
	room, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Available godoc
// @Summary Rooms free for an interval
// @Tags Rooms
// @Produce json
// @Param start query string true "Start (RFC3339)"
// @Param end query string true "End (RFC3339)"
// @Param capacity query int false "Minimum capacity"
// @Param type query string false "Room type"
// @Param building query string false "Building"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /rooms/available [get]
func (h *RoomHandler) Available(c *gin.Context) {
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
	capacity, err := intQuery(c, "capacity")
	if err != nil {
		response.Error(c, err)
		return
	}

	rooms, err := h.service.Available(c.Request.Context(), models.RoomAvailabilityFilter{
		Start:       *start,
		End:         *end,
		MinCapacity: capacity,
		Type:        models.RoomType(strings.ToUpper(c.Query("type"))),
		Building:    c.Query("building"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// Schedule godoc
// @Summary Room schedule
// @Description Defaults to the seven days starting today (UTC).
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Param from query string false "Range start (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Range end (RFC3339 or YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /rooms/{id}/schedule [get]
func (h *RoomHandler) Schedule(c *gin.Context) {
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
	if from == nil {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		from = &today
	}
	if to == nil {
		end := from.Add(defaultScheduleSpan)
		to = &end
	}

	schedule, err := h.service.Schedule(c.Request.Context(), c.Param("id"), *from, *to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Create godoc
// @Summary Create room
// @Tags Admin Rooms
// @Accept json
// @Produce json
// @Param payload body dto.CreateRoomRequest true "Room payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	room, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// Update godoc
// @Summary Update room
// @Tags Admin Rooms
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param payload body dto.UpdateRoomRequest true "Room patch"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/rooms/{id} [put]
func (h *RoomHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	room, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Delete godoc
// @Summary Delete room
// @Description Rooms referenced by meetings cannot be deleted; deactivate them instead.
// @Tags Admin Rooms
// @Param id path string true "Room ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/rooms/{id} [delete]
func (h *RoomHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

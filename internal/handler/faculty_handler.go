package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/models"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
	"github.com/noah-isme/unitutor-api/pkg/response"
)

type facultyService interface {
	List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyProfile, *models.Pagination, error)
	GetAvailability(ctx context.Context, facultyID string) (*models.FacultyProfile, error)
	UpdateAvailability(ctx context.Context, actor models.Actor, facultyID string, req dto.UpdateAvailabilityRequest) (*models.FacultyProfile, error)
}

// FacultyHandler exposes faculty consultation settings.
type FacultyHandler struct {
	service facultyService
}

// NewFacultyHandler constructs the handler.
func NewFacultyHandler(svc facultyService) *FacultyHandler {
	return &FacultyHandler{service: svc}
}

// List godoc
// @Summary List faculty with consultation availability
// @Tags Faculty
// @Produce json
// @Param department query string false "Department"
// @Param day query string false "Weekday the faculty holds consultations"
// @Param search query string false "Name search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /faculty [get]
func (h *FacultyHandler) List(c *gin.Context) {
	filter := models.FacultyFilter{
		Department: c.Query("department"),
		Day:        c.Query("day"),
		Search:     c.Query("search"),
	}
	filter.Page, filter.PageSize = paging(c)

	profiles, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profiles, pagination)
}

// GetAvailability godoc
// @Summary Get faculty availability
// @Tags Faculty
// @Produce json
// @Param id path string true "Faculty user ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /faculty/{id}/availability [get]
func (h *FacultyHandler) GetAvailability(c *gin.Context) {
	profile, err := h.service.GetAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateAvailability godoc
// @Summary Replace faculty availability
// @Tags Faculty
// @Accept json
// @Produce json
// @Param id path string true "Faculty user ID"
// @Param payload body dto.UpdateAvailabilityRequest true "Availability"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /faculty/{id}/availability [put]
func (h *FacultyHandler) UpdateAvailability(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	profile, err := h.service.UpdateAvailability(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

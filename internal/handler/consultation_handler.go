package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/models"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
	"github.com/noah-isme/unitutor-api/pkg/response"
)

type consultationService interface {
	Book(ctx context.Context, actor models.Actor, req dto.BookConsultationRequest) (*models.ConsultationBooking, error)
	CheckAvailability(ctx context.Context, q dto.AvailabilityQuery) (*dto.AvailabilityResponse, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id string, status models.ConsultationStatus) (*models.ConsultationBooking, error)
	List(ctx context.Context, actor models.Actor, filter models.ConsultationFilter) ([]models.ConsultationBooking, *models.Pagination, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.ConsultationBooking, error)
}

// ConsultationHandler exposes consultation booking endpoints.
type ConsultationHandler struct {
	service consultationService
}

// NewConsultationHandler constructs the handler.
func NewConsultationHandler(svc consultationService) *ConsultationHandler {
	return &ConsultationHandler{service: svc}
}

// Book godoc
// @Summary Book a consultation slot
// @Tags Consultations
// @Accept json
// @Produce json
// @Param payload body dto.BookConsultationRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /consultations [post]
func (h *ConsultationHandler) Book(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.BookConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	booking, err := h.service.Book(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// Availability godoc
// @Summary Check faculty availability
// @Tags Consultations
// @Produce json
// @Param faculty_id query string true "Faculty user ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param start_time query string false "Slot start (HH:MM)"
// @Param end_time query string false "Slot end (HH:MM)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /consultations/availability [get]
func (h *ConsultationHandler) Availability(c *gin.Context) {
	var q dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.service.CheckAvailability(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List consultations
// @Description Students see their own bookings, faculty the bookings made with them.
// @Tags Consultations
// @Produce json
// @Param faculty_id query string false "Faculty"
// @Param student_id query string false "Student"
// @Param status query string false "Comma separated statuses"
// @Param date_from query string false "From date (YYYY-MM-DD)"
// @Param date_to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /consultations [get]
func (h *ConsultationHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.ConsultationFilter{
		FacultyID: c.Query("faculty_id"),
		StudentID: c.Query("student_id"),
		DateFrom:  c.Query("date_from"),
		DateTo:    c.Query("date_to"),
	}
	for _, status := range csvQuery(c, "status") {
		filter.Status = append(filter.Status, models.ConsultationStatus(status))
	}
	filter.Page, filter.PageSize = paging(c)

	bookings, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// Get godoc
// @Summary Get consultation
// @Tags Consultations
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /consultations/{id} [get]
func (h *ConsultationHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	booking, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// UpdateStatus godoc
// @Summary Change consultation status
// @Tags Consultations
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /consultations/{id}/status [patch]
func (h *ConsultationHandler) UpdateStatus(c *gin.Context) {
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
	status := models.ConsultationStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	booking, err := h.service.UpdateStatus(c.Request.Context(), actor, c.Param("id"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/models"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
)

type consultationServiceMock struct {
	booking      *models.ConsultationBooking
	availability *dto.AvailabilityResponse
	err          error
	lastBook     dto.BookConsultationRequest
	lastQuery    dto.AvailabilityQuery
	lastFilter   models.ConsultationFilter
	lastStatus   models.ConsultationStatus
}

func (m *consultationServiceMock) Book(_ context.Context, _ models.Actor, req dto.BookConsultationRequest) (*models.ConsultationBooking, error) {
	m.lastBook = req
	return m.booking, m.err
}

func (m *consultationServiceMock) CheckAvailability(_ context.Context, q dto.AvailabilityQuery) (*dto.AvailabilityResponse, error) {
	m.lastQuery = q
	return m.availability, m.err
}

func (m *consultationServiceMock) UpdateStatus(_ context.Context, _ models.Actor, _ string, status models.ConsultationStatus) (*models.ConsultationBooking, error) {
	m.lastStatus = status
	return m.booking, m.err
}

func (m *consultationServiceMock) List(_ context.Context, _ models.Actor, filter models.ConsultationFilter) ([]models.ConsultationBooking, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.ConsultationBooking{}, models.NewPagination(1, 20, 20, 0), m.err
}

func (m *consultationServiceMock) Get(_ context.Context, _ models.Actor, _ string) (*models.ConsultationBooking, error) {
	return m.booking, m.err
}

type facultyServiceMock struct {
	profile    *models.FacultyProfile
	err        error
	lastFilter models.FacultyFilter
	lastID     string
}

func (m *facultyServiceMock) List(_ context.Context, filter models.FacultyFilter) ([]models.FacultyProfile, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.FacultyProfile{}, models.NewPagination(1, 20, 20, 0), m.err
}

func (m *facultyServiceMock) GetAvailability(_ context.Context, id string) (*models.FacultyProfile, error) {
	m.lastID = id
	return m.profile, m.err
}

func (m *facultyServiceMock) UpdateAvailability(_ context.Context, _ models.Actor, id string, _ dto.UpdateAvailabilityRequest) (*models.FacultyProfile, error) {
	m.lastID = id
	return m.profile, m.err
}

func TestConsultationHandlerBook(t *testing.T) {
	mock := &consultationServiceMock{booking: &models.ConsultationBooking{ID: "c-1", Status: models.ConsultationPending}}
	h := NewConsultationHandler(mock)

	body := mustJSON(t, dto.BookConsultationRequest{FacultyID: "fac-1", Date: "2026-03-02", StartTime: "09:00", EndTime: "09:30", Topic: "Thesis"})
	c, w := newGinContext(http.MethodPost, "/consultations", body)
	withClaims(c, studentClaims)
	h.Book(c)

	requireStatus(t, w, http.StatusCreated)
	assert.Equal(t, "fac-1", mock.lastBook.FacultyID)
	var booking models.ConsultationBooking
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &booking))
	assert.Equal(t, models.ConsultationPending, booking.Status)
}

func TestConsultationHandlerBookDayUnavailable(t *testing.T) {
	mock := &consultationServiceMock{err: appErrors.WithDetails(appErrors.ErrDayUnavailable, "", map[string]interface{}{"weekday": "Tuesday"})}
	h := NewConsultationHandler(mock)

	body := mustJSON(t, dto.BookConsultationRequest{FacultyID: "fac-1", Date: "2026-03-03", StartTime: "09:00", EndTime: "09:30", Topic: "Thesis"})
	c, w := newGinContext(http.MethodPost, "/consultations", body)
	withClaims(c, studentClaims)
	h.Book(c)

	requireStatus(t, w, http.StatusBadRequest)
	errBody := decode(t, w).Error
	assert.Equal(t, "DAY_UNAVAILABLE", errBody.Code)
	assert.Equal(t, "Tuesday", errBody.Details["weekday"])
}

func TestConsultationHandlerAvailabilityBindsQuery(t *testing.T) {
	mock := &consultationServiceMock{availability: &dto.AvailabilityResponse{FacultyID: "fac-1", Available: false, Reason: "faculty does not hold consultations on Tuesday"}}
	h := NewConsultationHandler(mock)

	c, w := newGinContext(http.MethodGet, "/consultations/availability?faculty_id=fac-1&date=2026-03-03&start_time=09:00&end_time=10:00", nil)
	withClaims(c, studentClaims)
	h.Availability(c)

	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, dto.AvailabilityQuery{FacultyID: "fac-1", Date: "2026-03-03", StartTime: "09:00", EndTime: "10:00"}, mock.lastQuery)
	var resp dto.AvailabilityResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.False(t, resp.Available)
}

func TestConsultationHandlerListAndStatus(t *testing.T) {
	mock := &consultationServiceMock{booking: &models.ConsultationBooking{ID: "c-1", Status: models.ConsultationConfirmed}}
	h := NewConsultationHandler(mock)

	c, w := newGinContext(http.MethodGet, "/consultations?status=pending,confirmed&date_from=2026-03-01", nil)
	withClaims(c, facultyClaims)
	h.List(c)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, []models.ConsultationStatus{models.ConsultationPending, models.ConsultationConfirmed}, mock.lastFilter.Status)
	assert.Equal(t, "2026-03-01", mock.lastFilter.DateFrom)

	c, w = newGinContext(http.MethodPatch, "/consultations/c-1/status", []byte(`{"status":"confirmed"}`))
	c.Params = gin.Params{{Key: "id", Value: "c-1"}}
	withClaims(c, facultyClaims)
	h.UpdateStatus(c)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, models.ConsultationConfirmed, mock.lastStatus)
}

func TestFacultyHandlerAvailability(t *testing.T) {
	mock := &facultyServiceMock{profile: &models.FacultyProfile{UserID: "fac-1"}}
	h := NewFacultyHandler(mock)

	c, w := newGinContext(http.MethodGet, "/faculty/fac-1/availability", nil)
	c.Params = gin.Params{{Key: "id", Value: "fac-1"}}
	h.GetAvailability(c)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "fac-1", mock.lastID)

	c, w = newGinContext(http.MethodPut, "/faculty/fac-1/availability", []byte(`{"consultation_days":["mon","wed"],"start_time":"09:00","end_time":"12:00"}`))
	c.Params = gin.Params{{Key: "id", Value: "fac-1"}}
	withClaims(c, facultyClaims)
	h.UpdateAvailability(c)
	requireStatus(t, w, http.StatusOK)

	c, w = newGinContext(http.MethodGet, "/faculty?day=monday&department=CS", nil)
	h.List(c)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "monday", mock.lastFilter.Day)
	assert.Equal(t, "CS", mock.lastFilter.Department)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/models"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
)

type meetingServiceMock struct {
	conflicts    []models.MeetingConflict
	createResp   *dto.CreateMeetingResponse
	meeting      *models.Meeting
	err          error
	lastFilter   models.MeetingFilter
	lastStatus   models.MeetingStatus
	lastRSVP     dto.RSVPRequest
	lastExclude  string
	removedUser  string
	lastActor    models.Actor
	conflictCall int
}

func (m *meetingServiceMock) CheckConflicts(_ context.Context, _ string, _, _ time.Time, excludeID string) ([]models.MeetingConflict, error) {
	m.conflictCall++
	m.lastExclude = excludeID
	return m.conflicts, m.err
}

func (m *meetingServiceMock) Create(_ context.Context, actor models.Actor, _ dto.CreateMeetingRequest) (*dto.CreateMeetingResponse, error) {
	m.lastActor = actor
	return m.createResp, m.err
}

func (m *meetingServiceMock) List(_ context.Context, _ models.Actor, filter models.MeetingFilter) ([]models.Meeting, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Meeting{}, models.NewPagination(1, 20, 20, 0), m.err
}

func (m *meetingServiceMock) Get(_ context.Context, _ models.Actor, _ string) (*models.MeetingDetail, error) {
	return nil, m.err
}

func (m *meetingServiceMock) Update(_ context.Context, _ models.Actor, _ string, _ dto.UpdateMeetingRequest) (*models.Meeting, error) {
	return m.meeting, m.err
}

func (m *meetingServiceMock) UpdateStatus(_ context.Context, _ models.Actor, _ string, status models.MeetingStatus) (*models.Meeting, error) {
	m.lastStatus = status
	return m.meeting, m.err
}

func (m *meetingServiceMock) AddParticipants(_ context.Context, _ models.Actor, _ string, _ dto.ParticipantsRequest) ([]models.Participant, error) {
	return []models.Participant{}, m.err
}

func (m *meetingServiceMock) RemoveParticipant(_ context.Context, _ models.Actor, _, userID string) error {
	m.removedUser = userID
	return m.err
}

func (m *meetingServiceMock) Respond(_ context.Context, _ models.Actor, _ string, req dto.RSVPRequest) error {
	m.lastRSVP = req
	return m.err
}

func TestMeetingHandlerCreateConflictCarriesDetails(t *testing.T) {
	conflict := models.MeetingConflict{MeetingID: "m-9", Title: "Thesis defense", RoomID: "r1"}
	mock := &meetingServiceMock{err: appErrors.WithDetails(appErrors.ErrRoomConflict, "room is already booked",
		map[string]interface{}{"conflicts": []models.MeetingConflict{conflict}})}
	h := NewMeetingHandler(mock)

	body := []byte(`{"title":"Algorithms","type":"CLASS","room_id":"r1","start_time":"2026-03-02T09:00:00Z","end_time":"2026-03-02T10:00:00Z"}`)
	c, w := newGinContext(http.MethodPost, "/meetings", body)
	withClaims(c, facultyClaims)
	h.Create(c)

	requireStatus(t, w, http.StatusConflict)
	errBody := decode(t, w).Error
	assert.Equal(t, "ROOM_CONFLICT", errBody.Code)
	conflicts, ok := errBody.Details["conflicts"].([]interface{})
	require.True(t, ok)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "m-9", conflicts[0].(map[string]interface{})["meeting_id"])
	assert.Equal(t, "fac-1", mock.lastActor.UserID)
}

func TestMeetingHandlerCreateSuccess(t *testing.T) {
	mock := &meetingServiceMock{createResp: &dto.CreateMeetingResponse{Occurrences: 1, Meetings: []models.MeetingDetail{}}}
	h := NewMeetingHandler(mock)

	c, w := newGinContext(http.MethodPost, "/meetings", []byte(`{"title":"Office hours","type":"ONLINE","start_time":"2026-03-02T09:00:00Z","end_time":"2026-03-02T10:00:00Z"}`))
	withClaims(c, facultyClaims)
	h.Create(c)

	requireStatus(t, w, http.StatusCreated)
	var resp dto.CreateMeetingResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.Equal(t, 1, resp.Occurrences)
}

func TestMeetingHandlerConflicts(t *testing.T) {
	mock := &meetingServiceMock{}
	h := NewMeetingHandler(mock)

	c, w := newGinContext(http.MethodGet, "/meetings/conflicts?room_id=r1&start=2026-03-02T09:00:00Z&end=2026-03-02T10:00:00Z&exclude_id=m-1", nil)
	withClaims(c, facultyClaims)
	h.Conflicts(c)

	requireStatus(t, w, http.StatusOK)
	var resp dto.ConflictCheckResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.True(t, resp.Available)
	assert.NotNil(t, resp.Conflicts)
	assert.Equal(t, "m-1", mock.lastExclude)

	c, w = newGinContext(http.MethodGet, "/meetings/conflicts?room_id=r1&start=yesterday&end=2026-03-02T10:00:00Z", nil)
	h.Conflicts(c)
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, 1, mock.conflictCall)
}

func TestMeetingHandlerListBuildsFilter(t *testing.T) {
	mock := &meetingServiceMock{}
	h := NewMeetingHandler(mock)

	c, w := newGinContext(http.MethodGet, "/meetings?status=scheduled,in_progress&type=class&from=2026-03-01&room_id=r1", nil)
	withClaims(c, studentClaims)
	h.List(c)

	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, []models.MeetingStatus{models.MeetingStatusScheduled, models.MeetingStatusInProgress}, mock.lastFilter.Status)
	assert.Equal(t, models.MeetingType("CLASS"), mock.lastFilter.Type)
	require.NotNil(t, mock.lastFilter.From)
	assert.Nil(t, mock.lastFilter.To)
	assert.Equal(t, "r1", mock.lastFilter.RoomID)
}

func TestMeetingHandlerUpdateStatusUppercases(t *testing.T) {
	mock := &meetingServiceMock{meeting: &models.Meeting{ID: "m-1", Status: models.MeetingStatusCancelled}}
	h := NewMeetingHandler(mock)

	c, w := newGinContext(http.MethodPatch, "/meetings/m-1/status", []byte(`{"status":" cancelled "}`))
	c.Params = gin.Params{{Key: "id", Value: "m-1"}}
	withClaims(c, facultyClaims)
	h.UpdateStatus(c)

	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, models.MeetingStatusCancelled, mock.lastStatus)

	mock.err = appErrors.Clone(appErrors.ErrInvalidTransition, "cannot leave CANCELLED")
	c, w = newGinContext(http.MethodPatch, "/meetings/m-1/status", []byte(`{"status":"SCHEDULED"}`))
	withClaims(c, facultyClaims)
	h.UpdateStatus(c)
	requireStatus(t, w, http.StatusConflict)
	assert.Equal(t, "INVALID_TRANSITION", decode(t, w).Error.Code)
}

func TestMeetingHandlerParticipants(t *testing.T) {
	mock := &meetingServiceMock{}
	h := NewMeetingHandler(mock)

	c, _ := newGinContext(http.MethodDelete, "/meetings/m-1/participants/stu-2", nil)
	c.Params = gin.Params{{Key: "id", Value: "m-1"}, {Key: "userId", Value: "stu-2"}}
	withClaims(c, facultyClaims)
	h.RemoveParticipant(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "stu-2", mock.removedUser)

	c, _ = newGinContext(http.MethodPost, "/meetings/m-1/rsvp", []byte(`{"status":"accepted"}`))
	c.Params = gin.Params{{Key: "id", Value: "m-1"}}
	withClaims(c, studentClaims)
	h.Respond(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, models.ParticipantStatus("ACCEPTED"), mock.lastRSVP.Status)
}

func TestMeetingHandlerRequiresClaims(t *testing.T) {
	h := NewMeetingHandler(&meetingServiceMock{})
	c, w := newGinContext(http.MethodGet, "/meetings", nil)
	h.List(c)
	requireStatus(t, w, http.StatusUnauthorized)
}

package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/middleware"
	"github.com/noah-isme/unitutor-api/internal/models"
	"github.com/noah-isme/unitutor-api/internal/service"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
	"github.com/noah-isme/unitutor-api/pkg/response"
)

type calendarViewer interface {
	View(ctx context.Context, actor models.Actor, q dto.CalendarQuery) (*dto.CalendarView, bool, error)
}

type calendarExporter interface {
	Request(ctx context.Context, actor models.Actor, req dto.CalendarExportRequest) (*dto.CalendarExportResponse, error)
	Get(ctx context.Context, actor models.Actor, id string) (*dto.CalendarExportResponse, error)
	Resolve(ctx context.Context, token string) (*service.ExportDownload, error)
}

// CalendarHandler serves calendar projections and their exports.
type CalendarHandler struct {
	calendar calendarViewer
	exports  calendarExporter
}

// NewCalendarHandler constructs the handler. exports may be nil when exports are disabled.
func NewCalendarHandler(calendar calendarViewer, exports calendarExporter) *CalendarHandler {
	return &CalendarHandler{calendar: calendar, exports: exports}
}

// View godoc
// @Summary Calendar projection
// @Description Meetings and consultations grouped per day. meta.cache_hit reports whether the view came from cache.
// @Tags Calendar
// @Produce json
// @Param view query string false "day, week or month" default(week)
// @Param date query string false "Anchor date (YYYY-MM-DD), defaults to today"
// @Param room_id query string false "Room"
// @Param user_id query string false "User (admins only for other users)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /calendar [get]
func (h *CalendarHandler) View(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var q dto.CalendarQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	view, hit, err := h.calendar.View(c.Request.Context(), actor, q)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

// RequestExport godoc
// @Summary Queue a calendar export
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body dto.CalendarExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /calendar/exports [post]
func (h *CalendarHandler) RequestExport(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "calendar exports are disabled"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CalendarExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.exports.Request(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, result)
}

// ExportStatus godoc
// @Summary Calendar export status
// @Tags Calendar
// @Produce json
// @Param id path string true "Export ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /calendar/exports/{id} [get]
func (h *CalendarHandler) ExportStatus(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "calendar exports are disabled"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.exports.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download a rendered calendar export
// @Description The signed token is the credential; no bearer token is needed.
// @Tags Calendar
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /calendar/exports/download [get]
func (h *CalendarHandler) Download(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "calendar exports are disabled"))
		return
	}
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.exports.Resolve(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck

	info, err := result.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read export file"))
		return
	}
	c.Set(middleware.AuditResourceKey, result.Filename)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), result.ContentType, result.File, nil)
}

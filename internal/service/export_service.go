package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/models"
	"github.com/noah-isme/unitutor-api/internal/repository"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
	"github.com/noah-isme/unitutor-api/pkg/export"
	"github.com/noah-isme/unitutor-api/pkg/jobs"
	"github.com/noah-isme/unitutor-api/pkg/storage"
)

// ExportJobType tags calendar export jobs on the queue.
const ExportJobType = "calendar_export"

type exportStore interface {
	Create(ctx context.Context, export *models.CalendarExport) error
	GetByID(ctx context.Context, id string) (*models.CalendarExport, error)
	Update(ctx context.Context, id string, params repository.UpdateExportParams) error
	ListQueued(ctx context.Context, limit int) ([]models.CalendarExport, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.CalendarExport, error)
}

type jobDispatcher interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	RemoveOlderThan(cutoff time.Time) ([]string, error)
}

type calendarProjector interface {
	Resolve(actor models.Actor, q dto.CalendarQuery) (dto.CalendarQuery, error)
	Project(ctx context.Context, q dto.CalendarQuery) (*dto.CalendarView, error)
	Location() *time.Location
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ExportDownload is a resolved, opened export file.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportService queues calendar exports, renders them in the background and
// serves the results through signed download tokens.
type ExportService struct {
	repo      exportStore
	queue     jobDispatcher
	storage   fileStorage
	signer    *storage.SignedURLSigner
	calendar  calendarProjector
	audit     *AuditService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// ExportServiceDeps bundles the collaborators of ExportService.
type ExportServiceDeps struct {
	Repo      exportStore
	Storage   fileStorage
	Signer    *storage.SignedURLSigner
	Calendar  calendarProjector
	Audit     *AuditService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    ExportConfig
}

// NewExportService constructs the service. AttachQueue must be called before Request.
func NewExportService(deps ExportServiceDeps) *ExportService {
	cfg := deps.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:      deps.Repo,
		storage:   deps.Storage,
		signer:    deps.Signer,
		calendar:  deps.Calendar,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		validator: defaultValidator(deps.Validator),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// AttachQueue sets the dispatcher jobs are sent to.
func (s *ExportService) AttachQueue(q jobDispatcher) {
	s.queue = q
}

// Request validates and persists an export, then queues it for rendering.
func (s *ExportService) Request(ctx context.Context, actor models.Actor, req dto.CalendarExportRequest) (*dto.CalendarExportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailed(err, "format is required")
	}
	format := models.ExportFormat(strings.ToLower(string(req.Format)))
	if !format.Valid() {
		return nil, invalid("format must be one of csv, pdf, ics")
	}
	q, err := s.calendar.Resolve(actor, dto.CalendarQuery{View: req.View, Date: req.Date, RoomID: req.RoomID, UserID: req.UserID})
	if err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, appErrors.Internal(errors.New("export queue not attached"), "calendar exports are unavailable")
	}

	record := &models.CalendarExport{
		Params:      models.ExportParams{View: q.View, Date: q.Date, Format: format, RoomID: q.RoomID, UserID: q.UserID},
		Status:      models.ExportStatusQueued,
		RequestedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Internal(err, "failed to create calendar export")
	}
	if err := s.queue.Enqueue(ctx, jobs.Job{ID: record.ID, Type: ExportJobType}); err != nil {
		s.fail(context.WithoutCancel(ctx), record.ID, "failed to enqueue export")
		return nil, appErrors.Internal(err, "failed to enqueue calendar export")
	}

	s.audit.Record(ctx, actor, models.AuditActionCalendarExport, "calendar_export", record.ID, record.Params)
	return exportResponse(record), nil
}

// Get reports the status of an export. Only the requester or an admin may see it.
func (s *ExportService) Get(ctx context.Context, actor models.Actor, id string) (*dto.CalendarExportResponse, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "export not found", "failed to load calendar export")
	}
	if !actor.IsAdmin() && record.RequestedBy != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export belongs to another user")
	}
	return exportResponse(record), nil
}

// Resolve validates a download token and opens the file it grants.
func (s *ExportService) Resolve(ctx context.Context, token string) (*ExportDownload, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link has expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	record, err := s.repo.GetByID(ctx, claims.ExportID)
	if err != nil {
		return nil, lookupError(err, "export not found", "failed to load calendar export")
	}
	if record.Status != models.ExportStatusCompleted || record.FilePath == nil || *record.FilePath != claims.Path {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file is no longer available")
	}
	file, err := s.storage.Open(claims.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file is no longer available")
		}
		return nil, appErrors.Internal(err, "failed to open export file")
	}
	renderer, err := export.ForFormat(string(record.Params.Format))
	if err != nil {
		file.Close()
		return nil, appErrors.Internal(err, "failed to resolve export format")
	}
	return &ExportDownload{
		File:        file,
		Filename:    filepath.Base(claims.Path),
		ContentType: renderer.ContentType(),
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}

// Handle renders and stores one export. It is the queue handler; a returned error
// triggers a retry until the queue's retry budget is spent.
func (s *ExportService) Handle(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("export vanished before processing", zap.String("export_id", job.ID))
			return nil
		}
		return err
	}
	if record.Status == models.ExportStatusCompleted || record.Status == models.ExportStatusFailed {
		return nil
	}

	processing := models.ExportStatusProcessing
	if err := s.repo.Update(ctx, record.ID, repository.UpdateExportParams{Status: &processing}); err != nil {
		return err
	}

	relPath, url, err := s.render(ctx, record)
	if err != nil {
		if job.Attempt >= s.cfg.MaxRetries {
			s.fail(ctx, record.ID, err.Error())
			s.metrics.RecordExport(string(record.Params.Format), models.ExportStatusFailed)
		} else {
			queued := models.ExportStatusQueued
			msg := err.Error()
			if uerr := s.repo.Update(ctx, record.ID, repository.UpdateExportParams{Status: &queued, ErrorMessage: &msg}); uerr != nil {
				s.logger.Warn("failed to requeue export", zap.String("export_id", record.ID), zap.Error(uerr))
			}
		}
		return err
	}

	completed := models.ExportStatusCompleted
	finished := s.now().UTC()
	noError := ""
	if err := s.repo.Update(ctx, record.ID, repository.UpdateExportParams{
		Status:       &completed,
		FilePath:     &relPath,
		ResultURL:    &url,
		ErrorMessage: &noError,
		FinishedAt:   &finished,
	}); err != nil {
		return err
	}
	s.metrics.RecordExport(string(record.Params.Format), models.ExportStatusCompleted)
	s.logger.Info("calendar export completed", zap.String("export_id", record.ID), zap.String("path", relPath))
	return nil
}

// RecoverPending requeues exports left QUEUED by a previous process.
func (s *ExportService) RecoverPending(ctx context.Context) {
	if s.queue == nil {
		return
	}
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued exports", zap.Error(err))
		return
	}
	for _, record := range pending {
		if err := s.queue.Enqueue(ctx, jobs.Job{ID: record.ID, Type: ExportJobType}); err != nil {
			s.logger.Warn("failed to requeue export", zap.String("export_id", record.ID), zap.Error(err))
		}
	}
	if len(pending) > 0 {
		s.logger.Info("recovered queued exports", zap.Int("count", len(pending)))
	}
}

// StartCleanup purges expired export files every CleanupInterval until ctx is done.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup(ctx)
			}
		}
	}()
}

// Cleanup deletes files of exports older than ResultTTL and returns how many rows it purged.
func (s *ExportService) Cleanup(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	purged := 0
	for {
		expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Warn("export cleanup list failed", zap.Error(err))
			break
		}
		for _, record := range expired {
			if record.FilePath != nil {
				if err := s.storage.Delete(*record.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
					s.logger.Warn("export cleanup delete failed", zap.String("export_id", record.ID), zap.Error(err))
				}
			}
			empty := ""
			if err := s.repo.Update(ctx, record.ID, repository.UpdateExportParams{FilePath: &empty, ResultURL: &empty}); err != nil {
				s.logger.Warn("export cleanup update failed", zap.String("export_id", record.ID), zap.Error(err))
				return purged
			}
			purged++
		}
		if len(expired) < 100 {
			break
		}
	}
	if removed, err := s.storage.RemoveOlderThan(cutoff); err != nil {
		s.logger.Warn("export filesystem cleanup failed", zap.Error(err))
	} else if len(removed) > 0 {
		s.logger.Info("removed orphaned export files", zap.Int("count", len(removed)))
	}
	return purged
}

func (s *ExportService) render(ctx context.Context, record *models.CalendarExport) (string, string, error) {
	params := record.Params
	view, err := s.calendar.Project(ctx, dto.CalendarQuery{View: params.View, Date: params.Date, RoomID: params.RoomID, UserID: params.UserID})
	if err != nil {
		return "", "", err
	}
	renderer, err := export.ForFormat(string(params.Format))
	if err != nil {
		return "", "", err
	}
	doc, err := calendarDocument(view, s.calendar.Location())
	if err != nil {
		return "", "", err
	}
	payload, err := renderer.Render(doc)
	if err != nil {
		return "", "", fmt.Errorf("render %s: %w", params.Format, err)
	}

	filename := fmt.Sprintf("calendar/calendar_%s_%s_%s.%s", params.View, params.Date, shortID(record.ID), renderer.Extension())
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return "", "", fmt.Errorf("store export: %w", err)
	}
	token, _, err := s.signer.Sign(record.ID, relPath)
	if err != nil {
		return "", "", fmt.Errorf("sign export: %w", err)
	}
	return relPath, s.downloadURL(token), nil
}

func (s *ExportService) downloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api"
	}
	return fmt.Sprintf("%s/calendar/exports/download?token=%s", prefix, token)
}

func (s *ExportService) fail(ctx context.Context, id, message string) {
	failed := models.ExportStatusFailed
	now := s.now().UTC()
	if err := s.repo.Update(ctx, id, repository.UpdateExportParams{Status: &failed, ErrorMessage: &message, FinishedAt: &now}); err != nil {
		s.logger.Warn("failed to mark export failed", zap.String("export_id", id), zap.Error(err))
	}
}

func calendarDocument(view *dto.CalendarView, loc *time.Location) (export.Document, error) {
	from, err := time.Parse(time.RFC3339, view.From)
	if err != nil {
		return export.Document{}, fmt.Errorf("parse projection start: %w", err)
	}
	to, err := time.Parse(time.RFC3339, view.To)
	if err != nil {
		return export.Document{}, fmt.Errorf("parse projection end: %w", err)
	}
	doc := export.Document{
		Title:    fmt.Sprintf("Calendar %s of %s", view.View, view.Date),
		From:     from,
		To:       to,
		Location: loc,
		Events:   make([]export.Event, 0, view.Total),
	}
	for _, day := range view.Days {
		for _, entry := range day.Entries {
			doc.Events = append(doc.Events, calendarEvent(entry))
		}
	}
	return doc, nil
}

func calendarEvent(entry models.CalendarEntry) export.Event {
	ev := export.Event{
		UID:       fmt.Sprintf("%s-%s@unitutor", strings.ToLower(string(entry.Kind)), entry.ID),
		Kind:      string(entry.Kind),
		Summary:   entry.Title,
		Organizer: entry.OrganizerName,
		Status:    entry.Status,
		Start:     entry.StartTime,
		End:       entry.EndTime,
	}
	if entry.RoomName != nil {
		ev.Location = *entry.RoomName
		if entry.Building != nil && *entry.Building != "" {
			ev.Location = fmt.Sprintf("%s, %s", *entry.RoomName, *entry.Building)
		}
	}
	if entry.Counterpart != nil {
		ev.Description = "With " + *entry.Counterpart
	}
	return ev
}

func exportResponse(record *models.CalendarExport) *dto.CalendarExportResponse {
	resp := &dto.CalendarExportResponse{
		ID:        record.ID,
		Status:    record.Status,
		Format:    record.Params.Format,
		CreatedAt: record.CreatedAt.UTC().Format(time.RFC3339),
	}
	if record.Status == models.ExportStatusCompleted && record.ResultURL != nil && *record.ResultURL != "" {
		resp.DownloadURL = record.ResultURL
	}
	if record.ErrorMessage != nil && *record.ErrorMessage != "" {
		resp.ErrorMessage = record.ErrorMessage
	}
	if record.FinishedAt != nil {
		finished := record.FinishedAt.UTC().Format(time.RFC3339)
		resp.FinishedAt = &finished
	}
	return resp
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

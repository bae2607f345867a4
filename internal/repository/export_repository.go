package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unitutor-api/internal/models"
)

// ExportRepository persists calendar export jobs.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs the repository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

const exportColumns = `id, params, status, file_path, result_url, requested_by, error_message, created_at, finished_at`

// Create inserts a QUEUED export row.
func (r *ExportRepository) Create(ctx context.Context, export *models.CalendarExport) error {
	if export.ID == "" {
		export.ID = uuid.NewString()
	}
	if export.Status == "" {
		export.Status = models.ExportStatusQueued
	}
	if export.CreatedAt.IsZero() {
		export.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO calendar_exports (id, params, status, file_path, result_url, requested_by, error_message, created_at, finished_at)
VALUES (:id, :params, :status, :file_path, :result_url, :requested_by, :error_message, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, export); err != nil {
		return translate(err, "create calendar export")
	}
	return nil
}

// GetByID returns an export or sql.ErrNoRows.
func (r *ExportRepository) GetByID(ctx context.Context, id string) (*models.CalendarExport, error) {
	query := `SELECT ` + exportColumns + ` FROM calendar_exports WHERE id = $1`
	var export models.CalendarExport
	if err := r.db.GetContext(ctx, &export, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get calendar export: %w", err)
	}
	return &export, nil
}

// UpdateExportParams lists the fields a worker may change.
type UpdateExportParams struct {
	Status       *models.ExportStatus
	FilePath     *string
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update applies the non-nil fields of params.
func (r *ExportRepository) Update(ctx context.Context, id string, params UpdateExportParams) error {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	column := func(name string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	if params.Status != nil {
		column("status", *params.Status)
	}
	if params.FilePath != nil {
		column("file_path", *params.FilePath)
	}
	if params.ResultURL != nil {
		column("result_url", *params.ResultURL)
	}
	if params.ErrorMessage != nil {
		column("error_message", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		column("finished_at", *params.FinishedAt)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE calendar_exports SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update calendar export: %w", err)
	}
	return nil
}

// ListQueued returns exports still waiting for a worker, oldest first.
func (r *ExportRepository) ListQueued(ctx context.Context, limit int) ([]models.CalendarExport, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + exportColumns + ` FROM calendar_exports WHERE status = $1 ORDER BY created_at ASC LIMIT $2`
	var exports []models.CalendarExport
	if err := r.db.SelectContext(ctx, &exports, query, models.ExportStatusQueued, limit); err != nil {
		return nil, fmt.Errorf("list queued calendar exports: %w", err)
	}
	return exports, nil
}

// ListFinishedBefore returns completed exports that finished before cutoff and still hold a file.
func (r *ExportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.CalendarExport, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + exportColumns + ` FROM calendar_exports WHERE status = $1 AND finished_at < $2 AND COALESCE(file_path, '') <> '' ORDER BY finished_at ASC LIMIT $3`
	var exports []models.CalendarExport
	if err := r.db.SelectContext(ctx, &exports, query, models.ExportStatusCompleted, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished calendar exports: %w", err)
	}
	return exports, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/models"
	"github.com/noah-isme/unitutor-api/internal/repository"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
	"github.com/noah-isme/unitutor-api/pkg/jobs"
	"github.com/noah-isme/unitutor-api/pkg/storage"
)

type fakeExportStore struct {
	records  map[string]*models.CalendarExport
	seq      int
	finished []models.CalendarExport
}

func newFakeExportStore() *fakeExportStore {
	return &fakeExportStore{records: make(map[string]*models.CalendarExport)}
}

func (f *fakeExportStore) Create(_ context.Context, export *models.CalendarExport) error {
	f.seq++
	export.ID = fmt.Sprintf("%08d-0000-4000-8000-000000000000", f.seq)
	export.CreatedAt = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	clone := *export
	f.records[export.ID] = &clone
	return nil
}

func (f *fakeExportStore) GetByID(_ context.Context, id string) (*models.CalendarExport, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (f *fakeExportStore) Update(_ context.Context, id string, params repository.UpdateExportParams) error {
	record, ok := f.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		record.Status = *params.Status
	}
	if params.FilePath != nil {
		record.FilePath = params.FilePath
	}
	if params.ResultURL != nil {
		record.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		record.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		record.FinishedAt = params.FinishedAt
	}
	return nil
}

func (f *fakeExportStore) ListQueued(_ context.Context, _ int) ([]models.CalendarExport, error) {
	var out []models.CalendarExport
	for _, record := range f.records {
		if record.Status == models.ExportStatusQueued {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (f *fakeExportStore) ListFinishedBefore(_ context.Context, cutoff time.Time, _ int) ([]models.CalendarExport, error) {
	var out []models.CalendarExport
	for _, record := range f.records {
		if record.Status == models.ExportStatusCompleted && record.FinishedAt != nil && record.FinishedAt.Before(cutoff) &&
			record.FilePath != nil && *record.FilePath != "" {
			out = append(out, *record)
		}
	}
	return out, nil
}

type recordingDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (d *recordingDispatcher) Enqueue(_ context.Context, job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type exportFixture struct {
	svc        *ExportService
	store      *fakeExportStore
	dispatcher *recordingDispatcher
	storage    *storage.LocalStorage
	calendar   *fakeCalendarRepo
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	calRepo := &fakeCalendarRepo{meetings: []models.CalendarEntry{{
		ID:            "m-1",
		Kind:          models.CalendarEntryMeeting,
		Title:         "Algorithms",
		Status:        string(models.MeetingStatusScheduled),
		StartTime:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		RoomName:      strPtr("Hall A"),
		Building:      strPtr("Engineering"),
		OrganizerName: "Dr. Rahma",
	}}}
	calendar, err := NewCalendarService(calRepo, nil, CalendarConfig{Timezone: "UTC"}, nil)
	require.NoError(t, err)

	f := &exportFixture{store: newFakeExportStore(), dispatcher: &recordingDispatcher{}, storage: local, calendar: calRepo}
	f.svc = NewExportService(ExportServiceDeps{
		Repo:     f.store,
		Storage:  local,
		Signer:   storage.NewSignedURLSigner("test-secret", time.Hour),
		Calendar: calendar,
		Audit:    NewAuditService(&memoryAuditRepo{}, zap.NewNop()),
		Metrics:  NewMetricsService(),
		Config:   ExportConfig{APIPrefix: "/api", ResultTTL: time.Hour, MaxRetries: 2},
	})
	f.svc.AttachQueue(f.dispatcher)
	return f
}

func TestExportRequestQueuesJob(t *testing.T) {
	f := newExportFixture(t)

	resp, err := f.svc.Request(context.Background(), facultyActor, dto.CalendarExportRequest{View: "week", Date: "2026-03-04", Format: "ICS"})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	assert.Equal(t, models.ExportFormatICS, resp.Format)
	require.Len(t, f.dispatcher.jobs, 1)
	assert.Equal(t, resp.ID, f.dispatcher.jobs[0].ID)
	assert.Equal(t, ExportJobType, f.dispatcher.jobs[0].Type)
	assert.Equal(t, "fac-1", f.store.records[resp.ID].Params.UserID)
}

func TestExportRequestValidation(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, facultyActor, dto.CalendarExportRequest{View: "week", Date: "2026-03-04", Format: "xlsx"})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.Request(ctx, facultyActor, dto.CalendarExportRequest{View: "year", Date: "2026-03-04", Format: "csv"})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.Request(ctx, studentActor, dto.CalendarExportRequest{Format: "csv", UserID: "fac-1"})
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Empty(t, f.dispatcher.jobs)
}

func TestExportRequestMarksFailedWhenQueueRejects(t *testing.T) {
	f := newExportFixture(t)
	f.dispatcher.err = jobs.ErrQueueClosed

	_, err := f.svc.Request(context.Background(), facultyActor, dto.CalendarExportRequest{Format: "csv", Date: "2026-03-02"})
	require.ErrorIs(t, err, appErrors.ErrInternal)
	for _, record := range f.store.records {
		assert.Equal(t, models.ExportStatusFailed, record.Status)
	}
}

func TestExportHandleRendersAndServesDownload(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	for _, format := range []models.ExportFormat{models.ExportFormatCSV, models.ExportFormatICS, models.ExportFormatPDF} {
		t.Run(string(format), func(t *testing.T) {
			resp, err := f.svc.Request(ctx, facultyActor, dto.CalendarExportRequest{View: "day", Date: "2026-03-02", Format: format})
			require.NoError(t, err)
			require.NoError(t, f.svc.Handle(ctx, jobs.Job{ID: resp.ID, Type: ExportJobType}))

			status, err := f.svc.Get(ctx, facultyActor, resp.ID)
			require.NoError(t, err)
			assert.Equal(t, models.ExportStatusCompleted, status.Status)
			require.NotNil(t, status.DownloadURL)
			assert.Contains(t, *status.DownloadURL, "/api/calendar/exports/download?token=")

			token := (*status.DownloadURL)[len("/api/calendar/exports/download?token="):]
			download, err := f.svc.Resolve(ctx, token)
			require.NoError(t, err)
			defer download.File.Close()
			body, err := io.ReadAll(download.File)
			require.NoError(t, err)
			assert.NotEmpty(t, body)
			assert.Contains(t, download.Filename, "."+string(format))
			if format == models.ExportFormatCSV {
				assert.Contains(t, string(body), "Algorithms")
				assert.Contains(t, string(body), "Hall A, Engineering")
				assert.Equal(t, "text/csv", download.ContentType)
			}
		})
	}
}

func TestExportHandleRetriesThenFails(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Request(ctx, facultyActor, dto.CalendarExportRequest{Date: "2026-03-02", Format: "csv"})
	require.NoError(t, err)
	f.store.records[resp.ID].Params.View = "year"

	err = f.svc.Handle(ctx, jobs.Job{ID: resp.ID, Attempt: 0})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusQueued, f.store.records[resp.ID].Status)

	err = f.svc.Handle(ctx, jobs.Job{ID: resp.ID, Attempt: 2})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusFailed, f.store.records[resp.ID].Status)
	require.NotNil(t, f.store.records[resp.ID].ErrorMessage)

	require.NoError(t, f.svc.Handle(ctx, jobs.Job{ID: resp.ID, Attempt: 3}))
	require.NoError(t, f.svc.Handle(ctx, jobs.Job{ID: "missing"}))
}

func TestExportGetOwnership(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Request(ctx, facultyActor, dto.CalendarExportRequest{Date: "2026-03-02", Format: "csv"})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, studentActor, resp.ID)
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = f.svc.Get(ctx, adminActor, resp.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, adminActor, "nope")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestExportResolveRejectsBadTokens(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	_, err := f.svc.Resolve(ctx, "garbage")
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	resp, err := f.svc.Request(ctx, facultyActor, dto.CalendarExportRequest{Date: "2026-03-02", Format: "csv"})
	require.NoError(t, err)
	token, _, err := storage.NewSignedURLSigner("test-secret", time.Hour).Sign(resp.ID, "calendar/other.csv")
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, token)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestExportCleanupPurgesExpiredFiles(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Request(ctx, facultyActor, dto.CalendarExportRequest{Date: "2026-03-02", Format: "csv"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Handle(ctx, jobs.Job{ID: resp.ID}))
	path := *f.store.records[resp.ID].FilePath

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 1, f.svc.Cleanup(ctx))
	assert.Equal(t, "", *f.store.records[resp.ID].FilePath)

	_, err = f.storage.Open(path)
	require.Error(t, err)
	assert.Zero(t, f.svc.Cleanup(ctx))
}

func TestExportRecoverPendingRequeues(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	_, err := f.svc.Request(ctx, facultyActor, dto.CalendarExportRequest{Date: "2026-03-02", Format: "csv"})
	require.NoError(t, err)

	f.svc.RecoverPending(ctx)
	assert.Len(t, f.dispatcher.jobs, 2)

	f.dispatcher.err = errors.New("full")
	f.svc.RecoverPending(ctx)
	assert.Len(t, f.dispatcher.jobs, 2)
}

package service

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/models"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
)

type fakeCalendarRepo struct {
	meetings          []models.CalendarEntry
	consultations     []models.CalendarEntry
	meetingCalls      int
	consultationCalls int
	lastFilter        models.CalendarFilter
	lastTimezone      string
}

func (f *fakeCalendarRepo) ListMeetings(_ context.Context, filter models.CalendarFilter) ([]models.CalendarEntry, error) {
	f.meetingCalls++
	f.lastFilter = filter
	return f.meetings, nil
}

func (f *fakeCalendarRepo) ListConsultations(_ context.Context, filter models.CalendarFilter, timezone string) ([]models.CalendarEntry, error) {
	f.consultationCalls++
	f.lastTimezone = timezone
	return f.consultations, nil
}

func calendarEntry(id string, kind models.CalendarEntryKind, start time.Time) models.CalendarEntry {
	return models.CalendarEntry{ID: id, Kind: kind, Title: id, StartTime: start, EndTime: start.Add(time.Hour)}
}

func newCalendarServiceForTest(t *testing.T, repo *fakeCalendarRepo, tz string) (*CalendarService, *memoryCacheRepo) {
	t.Helper()
	cacheRepo := &memoryCacheRepo{}
	svc, err := NewCalendarService(repo, NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true), CalendarConfig{Timezone: tz}, zap.NewNop())
	require.NoError(t, err)
	return svc, cacheRepo
}

func TestCalendarRanges(t *testing.T) {
	svc, _ := newCalendarServiceForTest(t, &fakeCalendarRepo{}, "UTC")

	from, to, err := svc.Range(ViewWeek, "2026-03-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), to)

	from, to, err = svc.Range(ViewMonth, "2026-02-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), to)

	from, to, err = svc.Range(ViewDay, "2026-03-08")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, to.Sub(from))

	_, _, err = svc.Range("year", "2026-03-08")
	assert.Error(t, err)
}

func TestCalendarViewMergesAndBuckets(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	repo := &fakeCalendarRepo{
		meetings: []models.CalendarEntry{
			calendarEntry("m-2", models.CalendarEntryMeeting, monday.Add(14*time.Hour)),
			calendarEntry("m-3", models.CalendarEntryMeeting, monday.AddDate(0, 0, 2).Add(9*time.Hour)),
		},
		consultations: []models.CalendarEntry{
			calendarEntry("c-1", models.CalendarEntryConsultation, monday.Add(10*time.Hour)),
		},
	}
	svc, _ := newCalendarServiceForTest(t, repo, "UTC")

	view, hit, err := svc.View(context.Background(), facultyActor, dto.CalendarQuery{View: "WEEK", Date: "2026-03-04"})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, ViewWeek, view.View)
	assert.Equal(t, 3, view.Total)
	require.Len(t, view.Days, 7)
	assert.Equal(t, "2026-03-02", view.Days[0].Date)
	assert.Equal(t, "Monday", view.Days[0].Weekday)
	require.Len(t, view.Days[0].Entries, 2)
	assert.Equal(t, "c-1", view.Days[0].Entries[0].ID)
	assert.Equal(t, "m-2", view.Days[0].Entries[1].ID)
	assert.Len(t, view.Days[2].Entries, 1)
	assert.NotNil(t, view.Days[6].Entries)
	assert.Equal(t, "fac-1", repo.lastFilter.UserID)
	assert.Equal(t, "UTC", repo.lastTimezone)
}

func TestCalendarViewServesFromCacheUntilInvalidated(t *testing.T) {
	repo := &fakeCalendarRepo{meetings: []models.CalendarEntry{calendarEntry("m-1", models.CalendarEntryMeeting, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))}}
	svc, cacheRepo := newCalendarServiceForTest(t, repo, "UTC")
	ctx := context.Background()
	q := dto.CalendarQuery{View: "day", Date: "2026-03-02"}

	_, hit, err := svc.View(ctx, facultyActor, q)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Contains(t, cacheRepo.store, "calendar:day:2026-03-02:room=:user=fac-1")

	cached, hit, err := svc.View(ctx, facultyActor, q)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, cached.Total)
	assert.Equal(t, 1, repo.meetingCalls)

	svc.cache.Invalidate(ctx, calendarCachePattern)
	_, hit, err = svc.View(ctx, facultyActor, q)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.meetingCalls)
}

func TestCalendarRoomViewSkipsConsultations(t *testing.T) {
	repo := &fakeCalendarRepo{}
	svc, _ := newCalendarServiceForTest(t, repo, "UTC")

	_, _, err := svc.View(context.Background(), studentActor, dto.CalendarQuery{View: "day", Date: "2026-03-02", RoomID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "r1", repo.lastFilter.RoomID)
	assert.Empty(t, repo.lastFilter.UserID)
	assert.Zero(t, repo.consultationCalls)
}

func TestCalendarViewAccessAndValidation(t *testing.T) {
	svc, _ := newCalendarServiceForTest(t, &fakeCalendarRepo{}, "UTC")
	ctx := context.Background()

	_, _, err := svc.View(ctx, studentActor, dto.CalendarQuery{UserID: "stu-2"})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, _, err = svc.View(ctx, adminActor, dto.CalendarQuery{UserID: "stu-2", Date: "2026-03-02"})
	require.NoError(t, err)

	_, _, err = svc.View(ctx, studentActor, dto.CalendarQuery{View: "fortnight", Date: "2026-03-02"})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = svc.View(ctx, studentActor, dto.CalendarQuery{Date: "03/02/2026"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCalendarBucketsInConfiguredTimezone(t *testing.T) {
	// 17:30 UTC on Monday is already Tuesday in Jakarta (UTC+7).
	repo := &fakeCalendarRepo{meetings: []models.CalendarEntry{calendarEntry("m-late", models.CalendarEntryMeeting, time.Date(2026, 3, 2, 17, 30, 0, 0, time.UTC))}}
	svc, _ := newCalendarServiceForTest(t, repo, "Asia/Jakarta")

	view, _, err := svc.View(context.Background(), facultyActor, dto.CalendarQuery{View: "week", Date: "2026-03-02"})
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", view.Timezone)
	assert.Empty(t, view.Days[0].Entries)
	require.Len(t, view.Days[1].Entries, 1)
	assert.Equal(t, "m-late", view.Days[1].Entries[0].ID)
}

func TestNewCalendarServiceRejectsUnknownTimezone(t *testing.T) {
	_, err := NewCalendarService(&fakeCalendarRepo{}, nil, CalendarConfig{Timezone: "Mars/Olympus"}, nil)
	assert.Error(t, err)
}

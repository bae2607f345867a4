package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/models"
	"github.com/noah-isme/unitutor-api/internal/scheduling"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
)

// Calendar views.
const (
	ViewDay   = "day"
	ViewWeek  = "week"
	ViewMonth = "month"
)

type calendarRepository interface {
	ListMeetings(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEntry, error)
	ListConsultations(ctx context.Context, filter models.CalendarFilter, timezone string) ([]models.CalendarEntry, error)
}

// CalendarConfig tunes calendar projections.
type CalendarConfig struct {
	Timezone string
	CacheTTL time.Duration
}

// CalendarService projects meetings and consultations into day, week and month views.
type CalendarService struct {
	repo     calendarRepository
	cache    *CacheService
	logger   *zap.Logger
	location *time.Location
	cfg      CalendarConfig
	now      func() time.Time
}

// NewCalendarService constructs the service. An unknown timezone is an error.
func NewCalendarService(repo calendarRepository, cache *CacheService, cfg CalendarConfig, logger *zap.Logger) (*CalendarService, error) {
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load calendar timezone: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{repo: repo, cache: cache, logger: logger, location: loc, cfg: cfg, now: time.Now}, nil
}

// Location returns the timezone calendar dates are interpreted in.
func (s *CalendarService) Location() *time.Location {
	return s.location
}

// View returns the projection requested by actor and whether it was served from cache.
func (s *CalendarService) View(ctx context.Context, actor models.Actor, q dto.CalendarQuery) (*dto.CalendarView, bool, error) {
	q, err := s.Resolve(actor, q)
	if err != nil {
		return nil, false, err
	}
	key := calendarCacheKey(q)
	var cached dto.CalendarView
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	view, err := s.Project(ctx, q)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(ctx, key, view, s.cfg.CacheTTL)
	return view, false, nil
}

// Project builds a projection without access checks or caching. q must come from Resolve.
func (s *CalendarService) Project(ctx context.Context, q dto.CalendarQuery) (*dto.CalendarView, error) {
	q, from, to, err := s.normalize(q)
	if err != nil {
		return nil, err
	}
	filter := models.CalendarFilter{From: from, To: to, RoomID: q.RoomID, UserID: q.UserID}

	meetings, err := s.repo.ListMeetings(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load calendar meetings")
	}
	var consultations []models.CalendarEntry
	if q.RoomID == "" {
		consultations, err = s.repo.ListConsultations(ctx, filter, s.location.String())
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load calendar consultations")
		}
	}

	entries := make([]models.CalendarEntry, 0, len(meetings)+len(consultations))
	entries = append(entries, meetings...)
	entries = append(entries, consultations...)
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].StartTime.Equal(entries[j].StartTime) {
			return entries[i].StartTime.Before(entries[j].StartTime)
		}
		return entries[i].ID < entries[j].ID
	})

	days := bucketByDay(entries, from, to, s.location)
	return &dto.CalendarView{
		View:     q.View,
		Date:     q.Date,
		From:     from.Format(time.RFC3339),
		To:       to.Format(time.RFC3339),
		Timezone: s.location.String(),
		Days:     days,
		Total:    len(entries),
	}, nil
}

// Range returns [from, to) of a view anchored on date, in the calendar timezone.
func (s *CalendarService) Range(view, date string) (time.Time, time.Time, error) {
	anchor, err := time.ParseInLocation(scheduling.DateLayout, date, s.location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	switch view {
	case ViewDay:
		return anchor, anchor.AddDate(0, 0, 1), nil
	case ViewWeek:
		start := scheduling.StartOfWeek(anchor)
		return start, start.AddDate(0, 0, 7), nil
	case ViewMonth:
		start := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, s.location)
		return start, start.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown calendar view %q", view)
	}
}

// Resolve applies view and date defaults, validates them and scopes q to what actor may see.
// Without room_id or user_id the actor's own calendar is shown; only admins may view other users.
func (s *CalendarService) Resolve(actor models.Actor, q dto.CalendarQuery) (dto.CalendarQuery, error) {
	q.RoomID = strings.TrimSpace(q.RoomID)
	q.UserID = strings.TrimSpace(q.UserID)
	if q.UserID != "" && q.UserID != actor.UserID && !actor.IsAdmin() {
		return q, appErrors.Clone(appErrors.ErrForbidden, "you can only view your own calendar")
	}
	if q.RoomID == "" && q.UserID == "" {
		q.UserID = actor.UserID
	}
	q, _, _, err := s.normalize(q)
	return q, err
}

func (s *CalendarService) normalize(q dto.CalendarQuery) (dto.CalendarQuery, time.Time, time.Time, error) {
	q.View = strings.ToLower(strings.TrimSpace(q.View))
	if q.View == "" {
		q.View = ViewWeek
	}
	q.Date = strings.TrimSpace(q.Date)
	if q.Date == "" {
		q.Date = s.now().In(s.location).Format(scheduling.DateLayout)
	}
	from, to, err := s.Range(q.View, q.Date)
	if err != nil {
		return q, time.Time{}, time.Time{}, validationFailed(err, err.Error())
	}
	return q, from, to, nil
}

func calendarCacheKey(q dto.CalendarQuery) string {
	return fmt.Sprintf("calendar:%s:%s:room=%s:user=%s", q.View, q.Date, q.RoomID, q.UserID)
}

func bucketByDay(entries []models.CalendarEntry, from, to time.Time, loc *time.Location) []dto.CalendarDay {
	var days []dto.CalendarDay
	index := make(map[string]int)
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		date := day.Format(scheduling.DateLayout)
		index[date] = len(days)
		days = append(days, dto.CalendarDay{Date: date, Weekday: day.Weekday().String(), Entries: []models.CalendarEntry{}})
	}
	for _, entry := range entries {
		start := entry.StartTime.In(loc)
		if start.Before(from) {
			start = from
		}
		if i, ok := index[start.Format(scheduling.DateLayout)]; ok {
			days[i].Entries = append(days[i].Entries, entry)
		}
	}
	return days
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/models"
	"github.com/noah-isme/unitutor-api/internal/repository"
	"github.com/noah-isme/unitutor-api/internal/scheduling"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
)

type consultationRepository interface {
	FindActiveByFacultyDate(ctx context.Context, facultyID, date string) ([]models.ConsultationBooking, error)
	Create(ctx context.Context, booking *models.ConsultationBooking) error
	FindByID(ctx context.Context, id string) (*models.ConsultationBooking, error)
	List(ctx context.Context, filter models.ConsultationFilter) ([]models.ConsultationBooking, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ConsultationStatus, cancelledBy *string) error
}

type facultyProfileReader interface {
	GetProfile(ctx context.Context, facultyID string) (*models.FacultyProfile, error)
}

// ConsultationService allocates faculty consultation slots to students.
type ConsultationService struct {
	repo      consultationRepository
	faculty   facultyProfileReader
	cache     *CacheService
	metrics   *MetricsService
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// ConsultationServiceDeps bundles the collaborators of ConsultationService.
// Location decides what "today" means for past-date checks.
type ConsultationServiceDeps struct {
	Repo      consultationRepository
	Faculty   facultyProfileReader
	Cache     *CacheService
	Metrics   *MetricsService
	Audit     *AuditService
	Validator *validator.Validate
	Logger    *zap.Logger
	Location  *time.Location
	Now       func() time.Time
}

// NewConsultationService constructs the service.
func NewConsultationService(deps ConsultationServiceDeps) *ConsultationService {
	svc := &ConsultationService{
		repo:      deps.Repo,
		faculty:   deps.Faculty,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		audit:     deps.Audit,
		validator: defaultValidator(deps.Validator),
		logger:    deps.Logger,
		location:  deps.Location,
		now:       deps.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.location == nil {
		svc.location = time.UTC
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Book reserves [StartTime, EndTime) on Date with a faculty member for the calling student.
func (s *ConsultationService) Book(ctx context.Context, actor models.Actor, req dto.BookConsultationRequest) (*models.ConsultationBooking, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can book consultations")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailed(err, "invalid consultation payload")
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, invalid("topic is required")
	}
	slot, err := scheduling.ParseClockRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, validationFailed(err, err.Error())
	}
	if err := s.checkNotPast(req.Date, slot); err != nil {
		return nil, err
	}

	profile, err := s.profile(ctx, req.FacultyID)
	if err != nil {
		return nil, err
	}
	if err := checkBookableDay(profile, req.Date); err != nil {
		return nil, err
	}
	if err := checkWithinWindow(profile, slot); err != nil {
		return nil, err
	}

	conflicts, err := s.conflicts(ctx, req.FacultyID, req.Date, slot)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		s.metrics.RecordBookingConflict("consultation", "check")
		return nil, slotConflictError(conflicts)
	}

	booking := &models.ConsultationBooking{
		FacultyID:   req.FacultyID,
		StudentID:   actor.UserID,
		BookingDate: req.Date,
		StartTime:   scheduling.FormatClock(slot.Start),
		EndTime:     scheduling.FormatClock(slot.End),
		Topic:       topic,
		Notes:       trimmedID(req.Notes),
		Status:      models.ConsultationPending,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrOverlap) {
			s.metrics.RecordBookingConflict("consultation", "constraint")
			if conflicts, cerr := s.conflicts(ctx, req.FacultyID, req.Date, slot); cerr == nil && len(conflicts) > 0 {
				return nil, slotConflictError(conflicts)
			}
			return nil, appErrors.Clone(appErrors.ErrSlotConflict, "")
		}
		return nil, appErrors.Internal(err, "failed to book consultation")
	}

	s.metrics.RecordBookingCreated("consultation", 1)
	s.cache.Invalidate(ctx, calendarCachePattern)
	s.logger.Info("consultation booked",
		zap.String("booking_id", booking.ID),
		zap.String("faculty_id", booking.FacultyID),
		zap.String("date", booking.BookingDate),
		zap.String("slot", slot.String()))
	s.audit.Record(ctx, actor, models.AuditActionConsultationBook, "consultation", booking.ID, booking)
	return booking, nil
}

// CheckAvailability reports whether the faculty holds consultations on the date and,
// when a slot is given, whether that slot is free.
func (s *ConsultationService) CheckAvailability(ctx context.Context, q dto.AvailabilityQuery) (*dto.AvailabilityResponse, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, validationFailed(err, "faculty_id and date (YYYY-MM-DD) are required")
	}
	if (q.StartTime == "") != (q.EndTime == "") {
		return nil, invalid("start_time and end_time must be given together")
	}
	var slot *scheduling.ClockRange
	if q.StartTime != "" {
		parsed, err := scheduling.ParseClockRange(q.StartTime, q.EndTime)
		if err != nil {
			return nil, validationFailed(err, err.Error())
		}
		slot = &parsed
	}

	profile, err := s.profile(ctx, q.FacultyID)
	if err != nil {
		return nil, err
	}
	weekday, err := scheduling.WeekdayName(q.Date)
	if err != nil {
		return nil, validationFailed(err, err.Error())
	}

	resp := &dto.AvailabilityResponse{
		FacultyID:        q.FacultyID,
		Date:             q.Date,
		Weekday:          weekday,
		ConsultationDays: []string(profile.ConsultationDays),
		BookedSlots:      []dto.BookedSlot{},
	}
	if resp.ConsultationDays == nil {
		resp.ConsultationDays = []string{}
	}
	if profile.HasWindow() {
		resp.Window = &dto.ConsultationWindow{Start: *profile.ConsultationStart, End: *profile.ConsultationEnd}
	}

	booked, err := s.repo.FindActiveByFacultyDate(ctx, q.FacultyID, q.Date)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load bookings")
	}
	for _, b := range booked {
		resp.BookedSlots = append(resp.BookedSlots, dto.BookedSlot{StartTime: b.StartTime, EndTime: b.EndTime, Status: b.Status})
	}

	allowed, _ := scheduling.DayAllowed(q.Date, profile.ConsultationDays)
	switch {
	case !allowed:
		resp.Reason = fmt.Sprintf("faculty does not hold consultations on %s", weekday)
	case s.checkNotPast(q.Date, clockOrDayEnd(slot)) != nil:
		resp.Reason = "date is in the past"
	case slot != nil && checkWithinWindow(profile, *slot) != nil:
		resp.Reason = "slot is outside the consultation window"
	case slot != nil:
		resp.Conflicts = overlappingBookings(booked, *slot)
		if len(resp.Conflicts) > 0 {
			resp.Reason = "slot overlaps an existing booking"
		} else {
			resp.Available = true
		}
	default:
		resp.Available = true
	}
	return resp, nil
}

// UpdateStatus moves a booking through its lifecycle. The owning faculty and admins may
// apply any allowed transition; the booking student may only cancel.
func (s *ConsultationService) UpdateStatus(ctx context.Context, actor models.Actor, id string, status models.ConsultationStatus) (*models.ConsultationBooking, error) {
	if !status.Valid() {
		return nil, invalid("unknown consultation status")
	}
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.IsAdmin(), actor.UserID == booking.FacultyID:
	case actor.UserID == booking.StudentID:
		if status != models.ConsultationCancelled {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only cancel their bookings")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not part of this consultation")
	}

	if !scheduling.CanTransitionConsultation(booking.Status, status) {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move consultation from %s to %s", booking.Status, status),
			map[string]models.ConsultationStatus{"from": booking.Status, "to": status})
	}

	var cancelledBy *string
	if status == models.ConsultationCancelled {
		by := actor.UserID
		cancelledBy = &by
	}
	if err := s.repo.UpdateStatus(ctx, id, status, cancelledBy); err != nil {
		return nil, lookupError(err, "consultation not found", "failed to update consultation status")
	}

	from := booking.Status
	booking.Status = status
	booking.CancelledBy = cancelledBy
	booking.UpdatedAt = utcNow()
	s.cache.Invalidate(ctx, calendarCachePattern)
	s.audit.Record(ctx, actor, models.AuditActionConsultationStatus, "consultation", id, map[string]models.ConsultationStatus{"from": from, "to": status})
	return booking, nil
}

// List returns bookings visible to actor: admins see all, faculty their own calendar,
// students their own bookings.
func (s *ConsultationService) List(ctx context.Context, actor models.Actor, filter models.ConsultationFilter) ([]models.ConsultationBooking, *models.Pagination, error) {
	for _, st := range filter.Status {
		if !st.Valid() {
			return nil, nil, invalid("unknown consultation status")
		}
	}
	for _, d := range []string{filter.DateFrom, filter.DateTo} {
		if d == "" {
			continue
		}
		if _, err := scheduling.ParseDate(d); err != nil {
			return nil, nil, validationFailed(err, err.Error())
		}
	}
	switch {
	case actor.IsAdmin():
	case actor.Role == models.RoleFaculty:
		filter.FacultyID = actor.UserID
	default:
		filter.StudentID = actor.UserID
	}
	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list consultations")
	}
	return bookings, models.NewPagination(filter.Page, filter.PageSize, 20, total), nil
}

// Get returns a booking visible to actor.
func (s *ConsultationService) Get(ctx context.Context, actor models.Actor, id string) (*models.ConsultationBooking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UserID != booking.FacultyID && actor.UserID != booking.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not part of this consultation")
	}
	return booking, nil
}

func (s *ConsultationService) load(ctx context.Context, id string) (*models.ConsultationBooking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "consultation not found", "failed to load consultation")
	}
	return booking, nil
}

func (s *ConsultationService) profile(ctx context.Context, facultyID string) (*models.FacultyProfile, error) {
	profile, err := s.faculty.GetProfile(ctx, facultyID)
	if err != nil {
		return nil, lookupError(err, "faculty not found", "failed to load faculty availability")
	}
	return profile, nil
}

func (s *ConsultationService) conflicts(ctx context.Context, facultyID, date string, slot scheduling.ClockRange) ([]models.ConsultationConflict, error) {
	existing, err := s.repo.FindActiveByFacultyDate(ctx, facultyID, date)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check consultation availability")
	}
	return overlappingBookings(existing, slot), nil
}

// checkNotPast rejects dates before today and, for today, slots that already started.
func (s *ConsultationService) checkNotPast(date string, slot scheduling.ClockRange) error {
	day, err := scheduling.ParseDate(date)
	if err != nil {
		return validationFailed(err, err.Error())
	}
	now := s.now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case day.Before(today):
		return invalid("date must not be in the past")
	case day.Equal(today) && slot.Start < now.Hour()*60+now.Minute():
		return invalid("start_time has already passed")
	}
	return nil
}

func checkBookableDay(profile *models.FacultyProfile, date string) error {
	allowed, err := scheduling.DayAllowed(date, profile.ConsultationDays)
	if err != nil {
		return validationFailed(err, err.Error())
	}
	if allowed {
		return nil
	}
	weekday, _ := scheduling.WeekdayName(date)
	days := []string(profile.ConsultationDays)
	if days == nil {
		days = []string{}
	}
	return appErrors.WithDetails(appErrors.ErrDayUnavailable,
		fmt.Sprintf("faculty does not hold consultations on %s", weekday),
		map[string]interface{}{"weekday": weekday, "consultation_days": days})
}

func checkWithinWindow(profile *models.FacultyProfile, slot scheduling.ClockRange) error {
	if !profile.HasWindow() {
		return nil
	}
	window, err := scheduling.ParseClockRange(*profile.ConsultationStart, *profile.ConsultationEnd)
	if err != nil {
		return nil
	}
	if window.Contains(slot) {
		return nil
	}
	return appErrors.WithDetails(appErrors.ErrValidation,
		fmt.Sprintf("slot %s is outside the consultation window %s", slot, window),
		map[string]string{"window_start": scheduling.FormatClock(window.Start), "window_end": scheduling.FormatClock(window.End)})
}

func overlappingBookings(existing []models.ConsultationBooking, slot scheduling.ClockRange) []models.ConsultationConflict {
	var conflicts []models.ConsultationConflict
	for _, b := range existing {
		booked, err := scheduling.ParseClockRange(b.StartTime, b.EndTime)
		if err != nil {
			continue
		}
		if slot.Overlaps(booked) {
			conflicts = append(conflicts, models.ConflictFromConsultation(b))
		}
	}
	return conflicts
}

func slotConflictError(conflicts []models.ConsultationConflict) error {
	first := conflicts[0]
	return appErrors.WithDetails(appErrors.ErrSlotConflict,
		fmt.Sprintf("slot overlaps an existing booking from %s to %s", first.StartTime, first.EndTime),
		map[string]interface{}{"conflicts": conflicts})
}

// clockOrDayEnd lets date-only availability checks treat today as bookable until midnight.
func clockOrDayEnd(slot *scheduling.ClockRange) scheduling.ClockRange {
	if slot != nil {
		return *slot
	}
	return scheduling.ClockRange{Start: 24*60 - 1, End: 24 * 60}
}

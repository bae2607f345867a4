package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unitutor-api/internal/dto"
	"github.com/noah-isme/unitutor-api/internal/models"
	"github.com/noah-isme/unitutor-api/internal/scheduling"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
)

type facultyRepository interface {
	GetProfile(ctx context.Context, facultyID string) (*models.FacultyProfile, error)
	List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyProfile, int, error)
	UpsertAvailability(ctx context.Context, profile *models.FacultyProfile) error
}

// FacultyService manages faculty consultation availability.
type FacultyService struct {
	repo      facultyRepository
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFacultyService constructs the service.
func NewFacultyService(repo facultyRepository, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *FacultyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacultyService{repo: repo, audit: audit, validator: defaultValidator(validate), logger: logger}
}

// List returns active faculty; Day filters to those consulting on that weekday.
func (s *FacultyService) List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyProfile, *models.Pagination, error) {
	if filter.Day != "" {
		day, err := scheduling.ParseWeekday(filter.Day)
		if err != nil {
			return nil, nil, validationFailed(err, err.Error())
		}
		filter.Day = day.String()
	}
	profiles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list faculty")
	}
	return profiles, models.NewPagination(filter.Page, filter.PageSize, 20, total), nil
}

// GetAvailability returns a faculty member's consultation settings.
func (s *FacultyService) GetAvailability(ctx context.Context, facultyID string) (*models.FacultyProfile, error) {
	profile, err := s.repo.GetProfile(ctx, facultyID)
	if err != nil {
		return nil, lookupError(err, "faculty not found", "failed to load faculty availability")
	}
	if profile.ConsultationDays == nil {
		profile.ConsultationDays = []string{}
	}
	return profile, nil
}

// UpdateAvailability replaces consultation days and window. Faculty may only edit their own.
func (s *FacultyService) UpdateAvailability(ctx context.Context, actor models.Actor, facultyID string, req dto.UpdateAvailabilityRequest) (*models.FacultyProfile, error) {
	if !actor.IsAdmin() && (actor.Role != models.RoleFaculty || actor.UserID != facultyID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "faculty can only manage their own availability")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailed(err, "invalid availability payload")
	}

	profile, err := s.GetAvailability(ctx, facultyID)
	if err != nil {
		return nil, err
	}

	days, err := scheduling.CanonicalWeekdays(req.ConsultationDays)
	if err != nil {
		return nil, validationFailed(err, err.Error())
	}
	profile.ConsultationDays = days

	start, end := trimmedID(req.StartTime), trimmedID(req.EndTime)
	switch {
	case start == nil && end == nil:
		profile.ConsultationStart, profile.ConsultationEnd = nil, nil
	case start == nil || end == nil:
		return nil, invalid("start_time and end_time must be set together")
	default:
		window, err := scheduling.ParseClockRange(*start, *end)
		if err != nil {
			return nil, validationFailed(err, err.Error())
		}
		from, to := scheduling.FormatClock(window.Start), scheduling.FormatClock(window.End)
		profile.ConsultationStart, profile.ConsultationEnd = &from, &to
	}
	if req.Department != nil {
		profile.Department = strings.TrimSpace(*req.Department)
	}
	if req.Location != nil {
		profile.ConsultationLocation = trimmedID(req.Location)
	}

	if err := s.repo.UpsertAvailability(ctx, profile); err != nil {
		return nil, appErrors.Internal(err, "failed to update availability")
	}
	s.logger.Info("consultation availability updated", zap.String("faculty_id", facultyID), zap.Strings("days", days))
	s.audit.Record(ctx, actor, models.AuditActionAvailabilityUpdate, "faculty", facultyID, req)
	return profile, nil
}

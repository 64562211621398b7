package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/halodent/clinic-api/internal/dto"
	"github.com/halodent/clinic-api/internal/models"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
)

type scheduleLookupRepository interface {
	FindWeekly(ctx context.Context, staffID string, weekday int) (*models.WeeklySchedule, error)
	FindOverride(ctx context.Context, staffID string, date time.Time) (*models.ScheduleOverride, error)
}

type absenceLookupRepository interface {
	ExistsForDate(ctx context.Context, staffID string, date time.Time) (bool, error)
}

type eventOverlapRepository interface {
	ExistsDoctorOverlap(ctx context.Context, doctorID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error)
	ExistsAssistantOverlap(ctx context.Context, assistantID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error)
	ExistsOfficeOverlap(ctx context.Context, officeID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error)
	ExistsPatientOverlap(ctx context.Context, patientID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error)
}

type staffLookupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	ListByRole(ctx context.Context, branchID string, role models.StaffRole) ([]models.Staff, error)
}

// AvailabilityService answers point queries about whether a resource is free
// for a time window on a date. All queries are read-only.
type AvailabilityService struct {
	schedules scheduleLookupRepository
	absences  absenceLookupRepository
	events    eventOverlapRepository
	staff     staffLookupRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(schedules scheduleLookupRepository, absences absenceLookupRepository, events eventOverlapRepository, staff staffLookupRepository, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{schedules: schedules, absences: absences, events: events, staff: staff, validator: validate, logger: logger}
}

// resolveWorkingHours returns the authoritative work window for a staff member
// on a date. An absence covering the date means the staff member does not work
// at all. Otherwise a schedule override for that exact date wins outright over
// the weekly entry; it is never merged with it. Nil means the staff member
// does not work that day.
func (s *AvailabilityService) resolveWorkingHours(ctx context.Context, staffID string, date time.Time) (*models.Interval, error) {
	absent, err := s.absences.ExistsForDate(ctx, staffID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check absences")
	}
	if absent {
		return nil, nil
	}

	override, err := s.schedules.FindOverride(ctx, staffID, date)
	switch {
	case err == nil:
		return &models.Interval{Start: override.StartMinute, End: override.EndMinute}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule override")
	}

	weekly, err := s.schedules.FindWeekly(ctx, staffID, models.WeekdayIndex(date))
	switch {
	case err == nil:
		return &models.Interval{Start: weekly.StartMinute, End: weekly.EndMinute}, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly schedule")
	}
}

// IsDoctorAvailable reports whether a doctor can take a booking for
// [startMinute, endMinute) on the date. False when no working hours resolve,
// when the window leaves the resolved hours, or when an existing booking for
// the doctor overlaps. excludeEventID skips one event during the conflict scan.
func (s *AvailabilityService) IsDoctorAvailable(ctx context.Context, doctorID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error) {
	return s.isStaffAvailable(ctx, doctorID, date, startMinute, endMinute, excludeEventID, s.events.ExistsDoctorOverlap)
}

// IsAssistantAvailable mirrors IsDoctorAvailable for the assistant dimension.
func (s *AvailabilityService) IsAssistantAvailable(ctx context.Context, assistantID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error) {
	return s.isStaffAvailable(ctx, assistantID, date, startMinute, endMinute, excludeEventID, s.events.ExistsAssistantOverlap)
}

type overlapQuery func(ctx context.Context, id string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error)

func (s *AvailabilityService) isStaffAvailable(ctx context.Context, staffID string, date time.Time, startMinute, endMinute int, excludeEventID string, overlaps overlapQuery) (bool, error) {
	hours, err := s.resolveWorkingHours(ctx, staffID, date)
	if err != nil {
		return false, err
	}
	if hours == nil {
		return false, nil
	}
	if startMinute < hours.Start || endMinute > hours.End {
		return false, nil
	}

	conflicting, err := overlaps(ctx, staffID, date, startMinute, endMinute, excludeEventID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan for conflicting events")
	}
	return !conflicting, nil
}

// IsOfficeAvailable reports whether the office is free of overlapping bookings
// on the date. Offices have no working-hours concept, and an empty office id
// is trivially available.
func (s *AvailabilityService) IsOfficeAvailable(ctx context.Context, officeID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error) {
	if officeID == "" {
		return true, nil
	}
	conflicting, err := s.events.ExistsOfficeOverlap(ctx, officeID, date, startMinute, endMinute, excludeEventID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan office bookings")
	}
	return !conflicting, nil
}

// IsPatientAvailable reports whether the patient has no overlapping booking on
// the date. An empty patient id is trivially available.
func (s *AvailabilityService) IsPatientAvailable(ctx context.Context, patientID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error) {
	if patientID == "" {
		return true, nil
	}
	conflicting, err := s.events.ExistsPatientOverlap(ctx, patientID, date, startMinute, endMinute, excludeEventID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan patient bookings")
	}
	return !conflicting, nil
}

// CheckRange checks every staff member against every date produced by the step
// over [start_date, end_date] and reports whether the time range is bookable.
// Unlike the booking path, every applicable conflict reason is collected per
// date instead of stopping at the first one.
func (s *AvailabilityService) CheckRange(ctx context.Context, branchID string, req dto.AvailabilityRequest) ([]models.AvailabilityResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	startMinute, endMinute, err := parseTimeRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	stepRaw := req.Step
	if stepRaw == "" {
		stepRaw = "1"
	}
	step, err := parseRecurrenceStep(stepRaw)
	if err != nil {
		return nil, err
	}

	var results []models.AvailabilityResult
	for _, staffID := range req.StaffIDs {
		member, err := s.staff.FindByID(ctx, staffID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found: "+staffID)
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
		}
		if member.BranchID != branchID {
			return nil, appErrors.Clone(appErrors.ErrCrossBranch, "staff member belongs to a different branch")
		}
		if !member.Role.Schedulable() {
			return nil, appErrors.Clone(appErrors.ErrRoleMismatch, "staff member cannot be scheduled")
		}

		overlaps := s.events.ExistsDoctorOverlap
		if member.Role == models.StaffRoleAssistant {
			overlaps = s.events.ExistsAssistantOverlap
		}

		for _, date := range expandDates(startDate, endDate, step) {
			result := models.AvailabilityResult{StaffID: staffID, Date: date, Available: true}

			hours, err := s.resolveWorkingHours(ctx, staffID, date)
			if err != nil {
				return nil, err
			}
			switch {
			case hours == nil:
				result.Conflicts = append(result.Conflicts, "no working hours on this date")
			case startMinute < hours.Start || endMinute > hours.End:
				result.Conflicts = append(result.Conflicts, "requested range is outside working hours")
			}

			if hours != nil {
				conflicting, err := overlaps(ctx, staffID, date, startMinute, endMinute, "")
				if err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan for conflicting events")
				}
				if conflicting {
					result.Conflicts = append(result.Conflicts, "overlapping booking exists")
				}
			}

			result.Available = len(result.Conflicts) == 0
			results = append(results, result)
		}
	}
	return results, nil
}

// ListAvailableAssistants scans every active assistant in the branch and
// returns the ids of those free for [startMinute, endMinute) on the date.
func (s *AvailabilityService) ListAvailableAssistants(ctx context.Context, branchID string, date time.Time, startMinute, endMinute int) ([]string, error) {
	if startMinute >= endMinute {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "end time must be after start time")
	}

	assistants, err := s.staff.ListByRole(ctx, branchID, models.StaffRoleAssistant)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assistants")
	}

	available := make([]string, 0, len(assistants))
	for _, assistant := range assistants {
		if !assistant.Active {
			continue
		}
		free, err := s.IsAssistantAvailable(ctx, assistant.ID, date, startMinute, endMinute, "")
		if err != nil {
			return nil, err
		}
		if free {
			available = append(available, assistant.ID)
		}
	}
	return available, nil
}

func parseDateRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := models.ParseDate(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid start_date, expected YYYY-MM-DD")
	}
	end, err := models.ParseDate(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid end_date, expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrInvalidRange, "start_date must be on or before end_date")
	}
	return start, end, nil
}

func parseTimeRange(startRaw, endRaw string) (int, int, error) {
	start, err := models.ParseMinuteOfDay(startRaw)
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "invalid start_time, expected HH:MM")
	}
	end, err := models.ParseMinuteOfDay(endRaw)
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "invalid end_time, expected HH:MM")
	}
	if start >= end {
		return 0, 0, appErrors.Clone(appErrors.ErrInvalidRange, "end time must be after start time")
	}
	return start, end, nil
}

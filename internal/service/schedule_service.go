package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/halodent/clinic-api/internal/models"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
)

type scheduleRepository interface {
	ListWeekly(ctx context.Context, staffID string) ([]models.WeeklySchedule, error)
	FindWeekly(ctx context.Context, staffID string, weekday int) (*models.WeeklySchedule, error)
	UpsertWeekly(ctx context.Context, entry *models.WeeklySchedule) error
	DeleteWeekly(ctx context.Context, staffID string, weekday int) error
	ListOverrides(ctx context.Context, staffID string, from, to time.Time) ([]models.ScheduleOverride, error)
	FindOverride(ctx context.Context, staffID string, date time.Time) (*models.ScheduleOverride, error)
	UpsertOverride(ctx context.Context, entry *models.ScheduleOverride) error
	DeleteOverride(ctx context.Context, staffID string, date time.Time) error
}

// WeeklyScheduleRequest sets the working window for one weekday.
type WeeklyScheduleRequest struct {
	Weekday   int    `json:"weekday" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// ScheduleOverrideRequest replaces the working window for one date. Equal
// start and end times mark the date as a day off.
type ScheduleOverrideRequest struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// ScheduleService manages weekly working hours and per-date overrides for
// staff members.
type ScheduleService struct {
	repo      scheduleRepository
	staff     staffLookupRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(repo scheduleRepository, staff staffLookupRepository, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, staff: staff, validator: validate, logger: logger}
}

// ListWeekly returns the weekly working hours of a staff member.
func (s *ScheduleService) ListWeekly(ctx context.Context, branchID, staffID string) ([]models.WeeklySchedule, error) {
	if err := s.ensureStaff(ctx, branchID, staffID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListWeekly(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list weekly schedule")
	}
	return entries, nil
}

// SetWeekly creates or replaces the working window for one weekday.
func (s *ScheduleService) SetWeekly(ctx context.Context, branchID, staffID string, req WeeklyScheduleRequest) (*models.WeeklySchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if err := s.ensureStaff(ctx, branchID, staffID); err != nil {
		return nil, err
	}
	start, end, err := parseTimeRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	entry := &models.WeeklySchedule{
		StaffID:     staffID,
		Weekday:     req.Weekday,
		StartMinute: start,
		EndMinute:   end,
	}
	if err := s.repo.UpsertWeekly(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save weekly schedule")
	}
	return entry, nil
}

// DeleteWeekly removes the working window for one weekday, making the staff
// member unavailable on that day.
func (s *ScheduleService) DeleteWeekly(ctx context.Context, branchID, staffID string, weekday int) error {
	if weekday < 0 || weekday > 6 {
		return appErrors.Clone(appErrors.ErrValidation, "weekday must be between 0 and 6")
	}
	if err := s.ensureStaff(ctx, branchID, staffID); err != nil {
		return err
	}
	if _, err := s.repo.FindWeekly(ctx, staffID, weekday); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "weekly schedule entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly schedule")
	}
	if err := s.repo.DeleteWeekly(ctx, staffID, weekday); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete weekly schedule")
	}
	return nil
}

// ListOverrides returns per-date overrides of a staff member inside a range.
func (s *ScheduleService) ListOverrides(ctx context.Context, branchID, staffID, fromRaw, toRaw string) ([]models.ScheduleOverride, error) {
	if err := s.ensureStaff(ctx, branchID, staffID); err != nil {
		return nil, err
	}
	from, to, err := parseDateRange(fromRaw, toRaw)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListOverrides(ctx, staffID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule overrides")
	}
	return entries, nil
}

// SetOverride creates or replaces the override for one date. The override wins
// outright over the weekly entry on that date.
func (s *ScheduleService) SetOverride(ctx context.Context, branchID, staffID string, req ScheduleOverrideRequest) (*models.ScheduleOverride, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}
	if err := s.ensureStaff(ctx, branchID, staffID); err != nil {
		return nil, err
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}

	start, parseErr := models.ParseMinuteOfDay(req.StartTime)
	if parseErr != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_time, expected HH:MM")
	}
	end, parseErr := models.ParseMinuteOfDay(req.EndTime)
	if parseErr != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_time, expected HH:MM")
	}
	// start == end encodes a day off; anything else must be a forward range.
	if end < start {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "end_time must not precede start_time")
	}

	entry := &models.ScheduleOverride{
		StaffID:     staffID,
		Date:        date,
		StartMinute: start,
		EndMinute:   end,
	}
	if err := s.repo.UpsertOverride(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule override")
	}
	return entry, nil
}

// DeleteOverride removes the override for one date, restoring the weekly
// schedule on that date.
func (s *ScheduleService) DeleteOverride(ctx context.Context, branchID, staffID, dateRaw string) error {
	if err := s.ensureStaff(ctx, branchID, staffID); err != nil {
		return err
	}
	date, err := models.ParseDate(dateRaw)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	if _, err := s.repo.FindOverride(ctx, staffID, date); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule override not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule override")
	}
	if err := s.repo.DeleteOverride(ctx, staffID, date); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule override")
	}
	return nil
}

func (s *ScheduleService) ensureStaff(ctx context.Context, branchID, staffID string) error {
	staff, err := s.staff.FindByID(ctx, staffID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	if staff.BranchID != branchID {
		return appErrors.Clone(appErrors.ErrCrossBranch, "staff member belongs to a different branch")
	}
	if !staff.Role.Schedulable() {
		return appErrors.Clone(appErrors.ErrRoleMismatch, "working hours apply to doctors and assistants only")
	}
	return nil
}

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

type eventOccupancyRepository interface {
	ListForDoctorRange(ctx context.Context, doctorID string, from, to time.Time) ([]models.Event, error)
	ListForOfficeRangeExcludingDoctor(ctx context.Context, officeID, doctorID string, from, to time.Time) ([]models.Event, error)
}

type officeLookupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Office, error)
}

// SlotService generates the free bookable slots of a doctor over a date range
// by subtracting occupied time from resolved working hours.
type SlotService struct {
	availability *AvailabilityService
	events       eventOccupancyRepository
	staff        staffLookupRepository
	offices      officeLookupRepository
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewSlotService constructs a SlotService.
func NewSlotService(availability *AvailabilityService, events eventOccupancyRepository, staff staffLookupRepository, offices officeLookupRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{availability: availability, events: events, staff: staff, offices: offices, metrics: metrics, validator: validate, logger: logger}
}

// TimeSlots validates the request and returns every free slot for the doctor
// across [start_date, end_date]. Only free slots are emitted; occupied time is
// implicit by its absence.
func (s *SlotService) TimeSlots(ctx context.Context, branchID string, req dto.TimeSlotRequest) ([]models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time-slot payload")
	}
	if req.IntervalMinutes <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "interval must be a positive number of minutes")
	}

	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	doctor, err := s.staff.FindByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	if doctor.Role != models.StaffRoleDoctor {
		return nil, appErrors.Clone(appErrors.ErrRoleMismatch, "time slots can only be generated for doctors")
	}
	if doctor.BranchID != branchID {
		return nil, appErrors.Clone(appErrors.ErrCrossBranch, "doctor belongs to a different branch")
	}

	officeID := ""
	if req.OfficeID != nil && *req.OfficeID != "" {
		office, err := s.offices.FindByID(ctx, *req.OfficeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "office not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load office")
		}
		if office.BranchID != branchID {
			return nil, appErrors.Clone(appErrors.ErrCrossBranch, "office belongs to a different branch")
		}
		officeID = office.ID
	}

	started := time.Now()
	slots, err := s.generate(ctx, doctor.ID, startDate, endDate, req.IntervalMinutes, officeID)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveSlotGeneration(time.Since(started), len(slots))
	}
	return slots, nil
}

func (s *SlotService) generate(ctx context.Context, doctorID string, startDate, endDate time.Time, intervalMinutes int, officeID string) ([]models.Slot, error) {
	own, err := s.events.ListForDoctorRange(ctx, doctorID, startDate, endDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor bookings")
	}
	ownByDate := groupIntervalsByDate(own)

	var otherByDate map[string][]models.Interval
	if officeID != "" {
		other, err := s.events.ListForOfficeRangeExcludingDoctor(ctx, officeID, doctorID, startDate, endDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load office bookings")
		}
		otherByDate = groupIntervalsByDate(other)
	}

	slots := make([]models.Slot, 0)
	for date := startDate; !date.After(endDate); date = date.AddDate(0, 0, 1) {
		hours, err := s.availability.resolveWorkingHours(ctx, doctorID, date)
		if err != nil {
			return nil, err
		}
		if hours == nil {
			continue
		}

		busy := busyForDate(ownByDate, otherByDate, date)
		free := subtractIntervals([]models.Interval{*hours}, busy)
		slots = append(slots, tileSlots(date, free, intervalMinutes)...)
	}
	return slots, nil
}

// busyForDate combines a doctor's own bookings with other doctors' bookings in
// the requested office. Own bookings never overlap each other (the booking
// path guarantees that), so they are merged only when office bookings force a
// second pass.
func busyForDate(ownByDate, otherByDate map[string][]models.Interval, date time.Time) []models.Interval {
	key := date.Format(models.DateLayout)
	own := ownByDate[key]
	other := otherByDate[key]
	if len(other) == 0 {
		return own
	}
	combined := make([]models.Interval, 0, len(own)+len(other))
	combined = append(combined, own...)
	combined = append(combined, mergeIntervals(other)...)
	return mergeIntervals(combined)
}

// tileSlots cuts each free interval into consecutive slots of exactly
// intervalMinutes. A trailing remainder shorter than the interval is dropped.
func tileSlots(date time.Time, free []models.Interval, intervalMinutes int) []models.Slot {
	var slots []models.Slot
	for _, iv := range free {
		for start := iv.Start; start+intervalMinutes <= iv.End; start += intervalMinutes {
			slots = append(slots, models.Slot{
				Start:  minuteOnDate(date, start),
				End:    minuteOnDate(date, start+intervalMinutes),
				Status: models.SlotFree,
			})
		}
	}
	return slots
}

func minuteOnDate(date time.Time, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), minute/60, minute%60, 0, 0, date.Location())
}

func groupIntervalsByDate(events []models.Event) map[string][]models.Interval {
	grouped := make(map[string][]models.Interval, len(events))
	for _, ev := range events {
		key := ev.Date.Format(models.DateLayout)
		grouped[key] = append(grouped[key], models.Interval{Start: ev.StartMinute, End: ev.EndMinute})
	}
	return grouped
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/halodent/clinic-api/internal/dto"
	"github.com/halodent/clinic-api/internal/models"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
	"github.com/halodent/clinic-api/pkg/export"
	"github.com/halodent/clinic-api/pkg/lock"
)

type eventRepository interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	ListForDoctorDate(ctx context.Context, doctorID string, date time.Time) ([]models.Event, error)
	CreateSeries(ctx context.Context, events []models.Event) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
}

type patientLookupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
}

type bookingLocker interface {
	Acquire(ctx context.Context, doctorID string, date time.Time) (*lock.Lease, error)
}

// EventService validates and persists appointments, orchestrating working
// hours, occupancy and recurrence. Creation of overlapping events for the same
// doctor and date is serialized through the booking locker so two concurrent
// requests cannot both pass the conflict check.
type EventService struct {
	repo         eventRepository
	availability *AvailabilityService
	staff        staffLookupRepository
	offices      officeLookupRepository
	patients     patientLookupRepository
	locker       bookingLocker
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewEventService constructs an EventService.
func NewEventService(repo eventRepository, availability *AvailabilityService, staff staffLookupRepository, offices officeLookupRepository, patients patientLookupRepository, locker bookingLocker, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		repo:         repo,
		availability: availability,
		staff:        staff,
		offices:      offices,
		patients:     patients,
		locker:       locker,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// bookingRequest is the validated, parsed form shared by create and update.
type bookingRequest struct {
	name        string
	doctorID    string
	date        time.Time
	startMinute int
	endMinute   int
	officeID    string
	assistantID string
	patientID   string
}

// Create validates and persists a new appointment. For repeating requests the
// whole batch of occurrence dates is conflict-checked before any row is
// written; a failing date rejects the entire request.
func (s *EventService) Create(ctx context.Context, branchID string, req dto.CreateEventRequest) ([]models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	booking, err := s.resolveBooking(ctx, branchID, req.Name, req.DoctorID, req.Date, req.StartTime, req.EndTime, req.OfficeID, req.AssistantID, req.PatientID)
	if err != nil {
		return nil, err
	}

	dates := []time.Time{booking.date}
	if req.IsRepeating {
		if req.EndDate == "" || req.Interval == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "repeating events require end_date and interval")
		}
		endDate, err := models.ParseDate(req.EndDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_date, expected YYYY-MM-DD")
		}
		if endDate.Before(booking.date) {
			return nil, appErrors.Clone(appErrors.ErrInvalidRange, "end_date must be on or after the start date")
		}
		step, err := parseRecurrenceStep(req.Interval)
		if err != nil {
			return nil, err
		}
		dates = expandDates(booking.date, endDate, step)
	}

	leases, err := s.acquireLocks(ctx, booking.doctorID, dates)
	if err != nil {
		return nil, err
	}
	defer s.releaseLocks(ctx, leases)

	for _, date := range dates {
		if err := s.checkConflicts(ctx, booking, date, ""); err != nil {
			if s.metrics != nil {
				s.metrics.IncBookingConflict(conflictDimension(err))
			}
			return nil, err
		}
	}

	events := make([]models.Event, 0, len(dates))
	for _, date := range dates {
		events = append(events, s.buildEvent(branchID, booking, date, req.IsRepeating))
	}

	created, err := s.repo.CreateSeries(ctx, events)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist events")
	}
	if s.metrics != nil {
		s.metrics.AddBookingsCreated(len(created))
	}
	return created, nil
}

// Update re-runs the full validation for an existing appointment, excluding
// the event itself from the conflict scan, and replaces its fields.
func (s *EventService) Update(ctx context.Context, branchID, id string, req dto.UpdateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if existing.BranchID != branchID {
		return nil, appErrors.Clone(appErrors.ErrCrossBranch, "event belongs to a different branch")
	}

	booking, err := s.resolveBooking(ctx, branchID, req.Name, req.DoctorID, req.Date, req.StartTime, req.EndTime, req.OfficeID, req.AssistantID, req.PatientID)
	if err != nil {
		return nil, err
	}

	leases, err := s.acquireLocks(ctx, booking.doctorID, []time.Time{booking.date})
	if err != nil {
		return nil, err
	}
	defer s.releaseLocks(ctx, leases)

	if err := s.checkConflicts(ctx, booking, booking.date, existing.ID); err != nil {
		if s.metrics != nil {
			s.metrics.IncBookingConflict(conflictDimension(err))
		}
		return nil, err
	}

	updated := s.buildEvent(branchID, booking, booking.date, existing.IsRepeating)
	updated.ID = existing.ID
	updated.RepetitionID = existing.RepetitionID
	updated.SequenceNumber = existing.SequenceNumber
	updated.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return &updated, nil
}

// Delete removes an appointment, freeing its slot immediately.
func (s *EventService) Delete(ctx context.Context, branchID, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if existing.BranchID != branchID {
		return appErrors.Clone(appErrors.ErrCrossBranch, "event belongs to a different branch")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	return nil
}

// Get returns an event by id, scoped to the branch.
func (s *EventService) Get(ctx context.Context, branchID, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.BranchID != branchID {
		return nil, appErrors.Clone(appErrors.ErrCrossBranch, "event belongs to a different branch")
	}
	return event, nil
}

// List returns events matching the filter with pagination metadata.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return events, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// DaySheet assembles a doctor's printable appointment list for one date.
func (s *EventService) DaySheet(ctx context.Context, branchID, doctorID string, date time.Time, clinicName string) (*export.DaySheet, error) {
	doctor, err := s.staff.FindByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	if doctor.BranchID != branchID {
		return nil, appErrors.Clone(appErrors.ErrCrossBranch, "doctor belongs to a different branch")
	}

	events, err := s.repo.ListForDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartMinute < events[j].StartMinute })

	sheet := &export.DaySheet{
		ClinicName: clinicName,
		DoctorName: fmt.Sprintf("%s %s", doctor.Name, doctor.Surname),
		Date:       date,
	}
	for _, ev := range events {
		row := export.DaySheetRow{
			Sequence:  ev.SequenceNumber,
			TimeRange: fmt.Sprintf("%s-%s", models.FormatMinuteOfDay(ev.StartMinute), models.FormatMinuteOfDay(ev.EndMinute)),
			Name:      ev.Name,
		}
		// A dangling reference leaves the cell blank; any other lookup
		// failure aborts the sheet.
		if ev.PatientID != nil {
			patient, err := s.patients.FindByID(ctx, *ev.PatientID)
			switch {
			case err == nil:
				row.Patient = fmt.Sprintf("%s %s", patient.Name, patient.Surname)
			case !errors.Is(err, sql.ErrNoRows):
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
			}
		}
		if ev.OfficeID != nil {
			office, err := s.offices.FindByID(ctx, *ev.OfficeID)
			switch {
			case err == nil:
				row.Office = office.Name
			case !errors.Is(err, sql.ErrNoRows):
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load office")
			}
		}
		if ev.AssistantID != nil {
			assistant, err := s.staff.FindByID(ctx, *ev.AssistantID)
			switch {
			case err == nil:
				row.Assistant = fmt.Sprintf("%s %s", assistant.Name, assistant.Surname)
			case !errors.Is(err, sql.ErrNoRows):
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assistant")
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

// resolveBooking validates referenced entities, roles, branch membership and
// the time range, returning the parsed booking.
func (s *EventService) resolveBooking(ctx context.Context, branchID, name, doctorID, dateRaw, startRaw, endRaw string, officeID, assistantID, patientID *string) (bookingRequest, error) {
	booking := bookingRequest{name: name}

	date, err := models.ParseDate(dateRaw)
	if err != nil {
		return booking, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	booking.date = date

	booking.startMinute, booking.endMinute, err = parseTimeRange(startRaw, endRaw)
	if err != nil {
		return booking, err
	}

	doctor, err := s.staff.FindByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return booking, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return booking, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	if doctor.Role != models.StaffRoleDoctor {
		return booking, appErrors.Clone(appErrors.ErrRoleMismatch, "events can only be booked for doctors")
	}
	if doctor.BranchID != branchID {
		return booking, appErrors.Clone(appErrors.ErrCrossBranch, "doctor belongs to a different branch")
	}
	booking.doctorID = doctor.ID

	if officeID != nil && *officeID != "" {
		office, err := s.offices.FindByID(ctx, *officeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return booking, appErrors.Clone(appErrors.ErrNotFound, "office not found")
			}
			return booking, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load office")
		}
		if office.BranchID != branchID {
			return booking, appErrors.Clone(appErrors.ErrCrossBranch, "office belongs to a different branch")
		}
		booking.officeID = office.ID
	}

	if assistantID != nil && *assistantID != "" {
		assistant, err := s.staff.FindByID(ctx, *assistantID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return booking, appErrors.Clone(appErrors.ErrNotFound, "assistant not found")
			}
			return booking, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assistant")
		}
		if assistant.Role != models.StaffRoleAssistant {
			return booking, appErrors.Clone(appErrors.ErrRoleMismatch, "referenced staff member is not an assistant")
		}
		if assistant.BranchID != branchID {
			return booking, appErrors.Clone(appErrors.ErrCrossBranch, "assistant belongs to a different branch")
		}
		booking.assistantID = assistant.ID
	}

	if patientID != nil && *patientID != "" {
		patient, err := s.patients.FindByID(ctx, *patientID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return booking, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
			}
			return booking, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
		}
		if patient.BranchID != branchID {
			return booking, appErrors.Clone(appErrors.ErrCrossBranch, "patient belongs to a different branch")
		}
		booking.patientID = patient.ID
	}

	return booking, nil
}

// checkConflicts runs the availability predicates in order: doctor first, then
// office, assistant and patient when present. The first failing predicate
// rejects the request with its dimension; the create path never aggregates.
func (s *EventService) checkConflicts(ctx context.Context, booking bookingRequest, date time.Time, excludeEventID string) error {
	free, err := s.availability.IsDoctorAvailable(ctx, booking.doctorID, date, booking.startMinute, booking.endMinute, excludeEventID)
	if err != nil {
		return err
	}
	if !free {
		return conflictError(models.ConflictDoctor, date, "doctor is not available in the requested time range")
	}

	if booking.officeID != "" {
		free, err := s.availability.IsOfficeAvailable(ctx, booking.officeID, date, booking.startMinute, booking.endMinute, excludeEventID)
		if err != nil {
			return err
		}
		if !free {
			return conflictError(models.ConflictOffice, date, "office is already booked in the requested time range")
		}
	}

	if booking.assistantID != "" {
		free, err := s.availability.IsAssistantAvailable(ctx, booking.assistantID, date, booking.startMinute, booking.endMinute, excludeEventID)
		if err != nil {
			return err
		}
		if !free {
			return conflictError(models.ConflictAssistant, date, "assistant is not available in the requested time range")
		}
	}

	if booking.patientID != "" {
		free, err := s.availability.IsPatientAvailable(ctx, booking.patientID, date, booking.startMinute, booking.endMinute, excludeEventID)
		if err != nil {
			return err
		}
		if !free {
			return conflictError(models.ConflictPatient, date, "patient already has a booking in the requested time range")
		}
	}

	return nil
}

func (s *EventService) buildEvent(branchID string, booking bookingRequest, date time.Time, repeating bool) models.Event {
	ev := models.Event{
		BranchID:    branchID,
		Name:        booking.name,
		DoctorID:    booking.doctorID,
		Date:        date,
		StartMinute: booking.startMinute,
		EndMinute:   booking.endMinute,
		IsRepeating: repeating,
	}
	if booking.officeID != "" {
		id := booking.officeID
		ev.OfficeID = &id
	}
	if booking.assistantID != "" {
		id := booking.assistantID
		ev.AssistantID = &id
	}
	if booking.patientID != "" {
		id := booking.patientID
		ev.PatientID = &id
	}
	return ev
}

// acquireLocks takes the per-(doctor,date) booking locks in date order so two
// overlapping series requests always contend on their first shared date.
func (s *EventService) acquireLocks(ctx context.Context, doctorID string, dates []time.Time) ([]*lock.Lease, error) {
	if s.locker == nil {
		return nil, nil
	}
	ordered := make([]time.Time, len(dates))
	copy(ordered, dates)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	leases := make([]*lock.Lease, 0, len(ordered))
	for _, date := range ordered {
		lease, err := s.locker.Acquire(ctx, doctorID, date)
		if err != nil {
			s.releaseLocks(ctx, leases)
			if errors.Is(err, lock.ErrNotAcquired) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "another booking for this doctor is in progress, retry shortly")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire booking lock")
		}
		leases = append(leases, lease)
	}
	return leases, nil
}

func (s *EventService) releaseLocks(ctx context.Context, leases []*lock.Lease) {
	for _, lease := range leases {
		if err := lease.Release(ctx); err != nil {
			s.logger.Warn("failed to release booking lock", zap.Error(err))
		}
	}
}

func conflictError(dimension models.ConflictDimension, date time.Time, message string) error {
	domainErr := &models.BookingConflictError{Dimension: dimension, Date: date, Message: message}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("booking conflict on %s: %s", date.Format(models.DateLayout), message))
}

func conflictDimension(err error) string {
	var domainErr *models.BookingConflictError
	if errors.As(err, &domainErr) {
		return string(domainErr.Dimension)
	}
	return "unknown"
}

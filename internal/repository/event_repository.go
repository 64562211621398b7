package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/halodent/clinic-api/internal/models"
)

const eventColumns = "id, branch_id, name, doctor_id, date, start_minute, end_minute, office_id, assistant_id, patient_id, is_repeating, repetition_id, sequence_number, created_at, updated_at"

// EventRepository manages persistence for appointments.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// FindByID fetches an event by ID.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE id = $1", eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns events matching filters along with total count.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	base := "FROM events WHERE branch_id = $1"
	args := []interface{}{filter.BranchID}

	if filter.DoctorID != "" {
		args = append(args, filter.DoctorID)
		base += fmt.Sprintf(" AND doctor_id = $%d", len(args))
	}
	if filter.OfficeID != "" {
		args = append(args, filter.OfficeID)
		base += fmt.Sprintf(" AND office_id = $%d", len(args))
	}
	if filter.PatientID != "" {
		args = append(args, filter.PatientID)
		base += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		base += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		base += fmt.Sprintf(" AND date <= $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY date, start_minute LIMIT %d OFFSET %d", eventColumns, base, size, offset)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	return events, total, nil
}

// ListForDoctorDate returns all events of a doctor on one date.
func (r *EventRepository) ListForDoctorDate(ctx context.Context, doctorID string, date time.Time) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE doctor_id = $1 AND date = $2 ORDER BY start_minute", eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("list doctor events: %w", err)
	}
	return events, nil
}

// ListForDoctorRange returns all events of a doctor within an inclusive date
// range.
func (r *EventRepository) ListForDoctorRange(ctx context.Context, doctorID string, from, to time.Time) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE doctor_id = $1 AND date >= $2 AND date <= $3 ORDER BY date, start_minute", eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, doctorID, from, to); err != nil {
		return nil, fmt.Errorf("list doctor events: %w", err)
	}
	return events, nil
}

// ListForOfficeRangeExcludingDoctor returns the bookings of other doctors in
// an office within an inclusive date range.
func (r *EventRepository) ListForOfficeRangeExcludingDoctor(ctx context.Context, officeID, doctorID string, from, to time.Time) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE office_id = $1 AND doctor_id <> $2 AND date >= $3 AND date <= $4 ORDER BY date, start_minute", eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, officeID, doctorID, from, to); err != nil {
		return nil, fmt.Errorf("list office events: %w", err)
	}
	return events, nil
}

// ExistsDoctorOverlap reports whether a doctor has a booking overlapping the
// half-open [startMinute, endMinute) range on a date.
func (r *EventRepository) ExistsDoctorOverlap(ctx context.Context, doctorID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error) {
	return r.existsOverlap(ctx, "doctor_id", doctorID, date, startMinute, endMinute, excludeEventID)
}

// ExistsAssistantOverlap reports whether an assistant has an overlapping
// booking on a date.
func (r *EventRepository) ExistsAssistantOverlap(ctx context.Context, assistantID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error) {
	return r.existsOverlap(ctx, "assistant_id", assistantID, date, startMinute, endMinute, excludeEventID)
}

// ExistsOfficeOverlap reports whether an office has an overlapping booking on
// a date.
func (r *EventRepository) ExistsOfficeOverlap(ctx context.Context, officeID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error) {
	return r.existsOverlap(ctx, "office_id", officeID, date, startMinute, endMinute, excludeEventID)
}

// ExistsPatientOverlap reports whether a patient has an overlapping booking on
// a date.
func (r *EventRepository) ExistsPatientOverlap(ctx context.Context, patientID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error) {
	return r.existsOverlap(ctx, "patient_id", patientID, date, startMinute, endMinute, excludeEventID)
}

// existsOverlap runs the open-interval overlap test: an existing booking
// collides when it starts before the requested end and ends after the
// requested start. Touching ranges do not collide.
func (r *EventRepository) existsOverlap(ctx context.Context, column, id string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM events WHERE %s = $1 AND date = $2 AND start_minute < $3 AND end_minute > $4", column)
	args := []interface{}{id, date, endMinute, startMinute}
	if excludeEventID != "" {
		args = append(args, excludeEventID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check %s overlap: %w", strings.TrimSuffix(column, "_id"), err)
	}
	return true, nil
}

// CreateSeries inserts a batch of events in one transaction. Repeating batches
// share a fresh repetition id, and every row gets the next zero-padded
// sequence number for its (branch, date).
func (r *EventRepository) CreateSeries(ctx context.Context, events []models.Event) ([]models.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var repetitionID *int64
	if len(events) > 1 || events[0].IsRepeating {
		var next int64
		if err := tx.GetContext(ctx, &next, "SELECT nextval('event_repetition_seq')"); err != nil {
			return nil, fmt.Errorf("next repetition id: %w", err)
		}
		repetitionID = &next
	}

	created := make([]models.Event, 0, len(events))
	now := time.Now().UTC()
	for _, event := range events {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		event.CreatedAt = now
		event.UpdatedAt = now
		if event.IsRepeating {
			event.RepetitionID = repetitionID
		}

		// Serialize per (branch, date) so concurrent creates for different
		// doctors cannot read the same MAX. Released at commit/rollback.
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))", event.BranchID, event.Date.Format(models.DateLayout)); err != nil {
			return nil, fmt.Errorf("lock sequence counter: %w", err)
		}
		var seq int
		if err := tx.GetContext(ctx, &seq, "SELECT COALESCE(MAX(CAST(sequence_number AS INTEGER)), 0) + 1 FROM events WHERE branch_id = $1 AND date = $2", event.BranchID, event.Date); err != nil {
			return nil, fmt.Errorf("next sequence number: %w", err)
		}
		event.SequenceNumber = fmt.Sprintf("%03d", seq)

		const query = `INSERT INTO events (id, branch_id, name, doctor_id, date, start_minute, end_minute, office_id, assistant_id, patient_id, is_repeating, repetition_id, sequence_number, created_at, updated_at)
			VALUES (:id, :branch_id, :name, :doctor_id, :date, :start_minute, :end_minute, :office_id, :assistant_id, :patient_id, :is_repeating, :repetition_id, :sequence_number, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
			return nil, fmt.Errorf("create event: %w", err)
		}
		created = append(created, event)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return created, nil
}

// Update modifies an existing event record.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET name = :name, doctor_id = :doctor_id, date = :date, start_minute = :start_minute, end_minute = :end_minute, office_id = :office_id, assistant_id = :assistant_id, patient_id = :patient_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes an event record.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

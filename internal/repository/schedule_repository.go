package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/halodent/clinic-api/internal/models"
)

// ScheduleRepository manages persistence for weekly schedules and per-date
// overrides.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListWeekly returns all weekly entries of a staff member ordered by weekday.
func (r *ScheduleRepository) ListWeekly(ctx context.Context, staffID string) ([]models.WeeklySchedule, error) {
	const query = `SELECT id, staff_id, weekday, start_minute, end_minute, created_at, updated_at FROM weekly_schedules WHERE staff_id = $1 ORDER BY weekday`
	var entries []models.WeeklySchedule
	if err := r.db.SelectContext(ctx, &entries, query, staffID); err != nil {
		return nil, fmt.Errorf("list weekly schedules: %w", err)
	}
	return entries, nil
}

// FindWeekly fetches the weekly entry for one weekday. Returns sql.ErrNoRows
// when the staff member does not work that day.
func (r *ScheduleRepository) FindWeekly(ctx context.Context, staffID string, weekday int) (*models.WeeklySchedule, error) {
	const query = `SELECT id, staff_id, weekday, start_minute, end_minute, created_at, updated_at FROM weekly_schedules WHERE staff_id = $1 AND weekday = $2`
	var entry models.WeeklySchedule
	if err := r.db.GetContext(ctx, &entry, query, staffID, weekday); err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpsertWeekly creates or replaces the entry for one (staff, weekday).
func (r *ScheduleRepository) UpsertWeekly(ctx context.Context, entry *models.WeeklySchedule) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	const query = `INSERT INTO weekly_schedules (id, staff_id, weekday, start_minute, end_minute, created_at, updated_at)
		VALUES (:id, :staff_id, :weekday, :start_minute, :end_minute, :created_at, :updated_at)
		ON CONFLICT (staff_id, weekday) DO UPDATE SET start_minute = EXCLUDED.start_minute, end_minute = EXCLUDED.end_minute, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("upsert weekly schedule: %w", err)
	}
	return nil
}

// DeleteWeekly removes the entry for one (staff, weekday).
func (r *ScheduleRepository) DeleteWeekly(ctx context.Context, staffID string, weekday int) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM weekly_schedules WHERE staff_id = $1 AND weekday = $2", staffID, weekday); err != nil {
		return fmt.Errorf("delete weekly schedule: %w", err)
	}
	return nil
}

// ListOverrides returns overrides of a staff member within an inclusive range.
func (r *ScheduleRepository) ListOverrides(ctx context.Context, staffID string, from, to time.Time) ([]models.ScheduleOverride, error) {
	const query = `SELECT id, staff_id, date, start_minute, end_minute, created_at, updated_at FROM schedule_overrides WHERE staff_id = $1 AND date >= $2 AND date <= $3 ORDER BY date`
	var entries []models.ScheduleOverride
	if err := r.db.SelectContext(ctx, &entries, query, staffID, from, to); err != nil {
		return nil, fmt.Errorf("list schedule overrides: %w", err)
	}
	return entries, nil
}

// FindOverride fetches the override for one date. Returns sql.ErrNoRows when
// no override exists.
func (r *ScheduleRepository) FindOverride(ctx context.Context, staffID string, date time.Time) (*models.ScheduleOverride, error) {
	const query = `SELECT id, staff_id, date, start_minute, end_minute, created_at, updated_at FROM schedule_overrides WHERE staff_id = $1 AND date = $2`
	var entry models.ScheduleOverride
	if err := r.db.GetContext(ctx, &entry, query, staffID, date); err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpsertOverride creates or replaces the override for one (staff, date).
func (r *ScheduleRepository) UpsertOverride(ctx context.Context, entry *models.ScheduleOverride) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	const query = `INSERT INTO schedule_overrides (id, staff_id, date, start_minute, end_minute, created_at, updated_at)
		VALUES (:id, :staff_id, :date, :start_minute, :end_minute, :created_at, :updated_at)
		ON CONFLICT (staff_id, date) DO UPDATE SET start_minute = EXCLUDED.start_minute, end_minute = EXCLUDED.end_minute, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("upsert schedule override: %w", err)
	}
	return nil
}

// DeleteOverride removes the override for one (staff, date).
func (r *ScheduleRepository) DeleteOverride(ctx context.Context, staffID string, date time.Time) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM schedule_overrides WHERE staff_id = $1 AND date = $2", staffID, date); err != nil {
		return fmt.Errorf("delete schedule override: %w", err)
	}
	return nil
}

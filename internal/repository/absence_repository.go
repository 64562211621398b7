package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/halodent/clinic-api/internal/models"
)

const absenceColumns = "id, staff_id, start_date, end_date, type, reason, created_at, updated_at"

// AbsenceRepository manages persistence for staff absences.
type AbsenceRepository struct {
	db *sqlx.DB
}

// NewAbsenceRepository constructs an AbsenceRepository.
func NewAbsenceRepository(db *sqlx.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

// Create inserts a new absence.
func (r *AbsenceRepository) Create(ctx context.Context, absence *models.Absence) error {
	if absence.ID == "" {
		absence.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	absence.CreatedAt = now
	absence.UpdatedAt = now

	const query = `INSERT INTO absences (id, staff_id, start_date, end_date, type, reason, created_at, updated_at)
		VALUES (:id, :staff_id, :start_date, :end_date, :type, :reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, absence); err != nil {
		return fmt.Errorf("create absence: %w", err)
	}
	return nil
}

// FindByID fetches an absence by ID.
func (r *AbsenceRepository) FindByID(ctx context.Context, id string) (*models.Absence, error) {
	query := fmt.Sprintf("SELECT %s FROM absences WHERE id = $1", absenceColumns)
	var absence models.Absence
	if err := r.db.GetContext(ctx, &absence, query, id); err != nil {
		return nil, err
	}
	return &absence, nil
}

// ListForStaff returns all absences of a staff member ordered by start date.
func (r *AbsenceRepository) ListForStaff(ctx context.Context, staffID string) ([]models.Absence, error) {
	query := fmt.Sprintf("SELECT %s FROM absences WHERE staff_id = $1 ORDER BY start_date", absenceColumns)
	var absences []models.Absence
	if err := r.db.SelectContext(ctx, &absences, query, staffID); err != nil {
		return nil, fmt.Errorf("list absences: %w", err)
	}
	return absences, nil
}

// ExistsForDate reports whether any absence of the staff member covers the
// date. Both range ends are inclusive.
func (r *AbsenceRepository) ExistsForDate(ctx context.Context, staffID string, date time.Time) (bool, error) {
	const query = "SELECT 1 FROM absences WHERE staff_id = $1 AND start_date <= $2 AND end_date >= $2 LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, staffID, date); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check absence: %w", err)
	}
	return true, nil
}

// Delete removes an absence.
func (r *AbsenceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM absences WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete absence: %w", err)
	}
	return nil
}

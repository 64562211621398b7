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

// OfficeRepository manages persistence for offices.
type OfficeRepository struct {
	db *sqlx.DB
}

// NewOfficeRepository constructs an OfficeRepository.
func NewOfficeRepository(db *sqlx.DB) *OfficeRepository {
	return &OfficeRepository{db: db}
}

// ListByBranch returns all offices of a branch ordered by name.
func (r *OfficeRepository) ListByBranch(ctx context.Context, branchID string) ([]models.Office, error) {
	const query = `SELECT id, branch_id, name, created_at, updated_at FROM offices WHERE branch_id = $1 ORDER BY name`
	var offices []models.Office
	if err := r.db.SelectContext(ctx, &offices, query, branchID); err != nil {
		return nil, fmt.Errorf("list offices: %w", err)
	}
	return offices, nil
}

// FindByID fetches an office by ID.
func (r *OfficeRepository) FindByID(ctx context.Context, id string) (*models.Office, error) {
	const query = `SELECT id, branch_id, name, created_at, updated_at FROM offices WHERE id = $1`
	var office models.Office
	if err := r.db.GetContext(ctx, &office, query, id); err != nil {
		return nil, err
	}
	return &office, nil
}

// Create inserts a new office record.
func (r *OfficeRepository) Create(ctx context.Context, office *models.Office) error {
	if office.ID == "" {
		office.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if office.CreatedAt.IsZero() {
		office.CreatedAt = now
	}
	office.UpdatedAt = now

	const query = `INSERT INTO offices (id, branch_id, name, created_at, updated_at)
		VALUES (:id, :branch_id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, office); err != nil {
		return fmt.Errorf("create office: %w", err)
	}
	return nil
}

// Update modifies an existing office record.
func (r *OfficeRepository) Update(ctx context.Context, office *models.Office) error {
	office.UpdatedAt = time.Now().UTC()
	const query = `UPDATE offices SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, office); err != nil {
		return fmt.Errorf("update office: %w", err)
	}
	return nil
}

// Delete removes an office record.
func (r *OfficeRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM offices WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete office: %w", err)
	}
	return nil
}

// HasFutureEvents reports whether any booking from today onward references the
// office.
func (r *OfficeRepository) HasFutureEvents(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 FROM events WHERE office_id = $1 AND date >= $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, id, time.Now().UTC().Truncate(24*time.Hour)); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check office events: %w", err)
	}
	return true, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/halodent/clinic-api/internal/models"
)

// PaymentRepository manages persistence for obligations and deposits.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListObligations returns obligations for a branch, optionally filtered by
// patient, newest first.
func (r *PaymentRepository) ListObligations(ctx context.Context, branchID, patientID string) ([]models.Obligation, error) {
	query := "SELECT id, branch_id, patient_id, amount, is_paid, paid_at, method, created_at, updated_at FROM obligations WHERE branch_id = $1"
	args := []interface{}{branchID}
	if patientID != "" {
		args = append(args, patientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	var obligations []models.Obligation
	if err := r.db.SelectContext(ctx, &obligations, query, args...); err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	return obligations, nil
}

// FindObligation fetches an obligation by ID.
func (r *PaymentRepository) FindObligation(ctx context.Context, id string) (*models.Obligation, error) {
	const query = `SELECT id, branch_id, patient_id, amount, is_paid, paid_at, method, created_at, updated_at FROM obligations WHERE id = $1`
	var obligation models.Obligation
	if err := r.db.GetContext(ctx, &obligation, query, id); err != nil {
		return nil, err
	}
	return &obligation, nil
}

// CreateObligation inserts a new obligation record.
func (r *PaymentRepository) CreateObligation(ctx context.Context, obligation *models.Obligation) error {
	if obligation.ID == "" {
		obligation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if obligation.CreatedAt.IsZero() {
		obligation.CreatedAt = now
	}
	obligation.UpdatedAt = now

	const query = `INSERT INTO obligations (id, branch_id, patient_id, amount, is_paid, paid_at, method, created_at, updated_at)
		VALUES (:id, :branch_id, :patient_id, :amount, :is_paid, :paid_at, :method, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, obligation); err != nil {
		return fmt.Errorf("create obligation: %w", err)
	}
	return nil
}

// MarkObligationPaid settles an obligation.
func (r *PaymentRepository) MarkObligationPaid(ctx context.Context, id, method string, paidAt time.Time) error {
	const query = `UPDATE obligations SET is_paid = TRUE, method = $2, paid_at = $3, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, method, paidAt); err != nil {
		return fmt.Errorf("settle obligation: %w", err)
	}
	return nil
}

// ListDeposits returns a patient's deposits, newest first.
func (r *PaymentRepository) ListDeposits(ctx context.Context, patientID string) ([]models.Deposit, error) {
	const query = `SELECT id, patient_id, amount, created_at FROM deposits WHERE patient_id = $1 ORDER BY created_at DESC`
	var deposits []models.Deposit
	if err := r.db.SelectContext(ctx, &deposits, query, patientID); err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	return deposits, nil
}

// CreateDeposit inserts a new deposit record.
func (r *PaymentRepository) CreateDeposit(ctx context.Context, deposit *models.Deposit) error {
	if deposit.ID == "" {
		deposit.ID = uuid.NewString()
	}
	if deposit.CreatedAt.IsZero() {
		deposit.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO deposits (id, patient_id, amount, created_at)
		VALUES (:id, :patient_id, :amount, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, deposit); err != nil {
		return fmt.Errorf("create deposit: %w", err)
	}
	return nil
}

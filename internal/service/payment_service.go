package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/halodent/clinic-api/internal/models"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
)

type paymentRepository interface {
	ListObligations(ctx context.Context, branchID, patientID string) ([]models.Obligation, error)
	FindObligation(ctx context.Context, id string) (*models.Obligation, error)
	CreateObligation(ctx context.Context, obligation *models.Obligation) error
	MarkObligationPaid(ctx context.Context, id, method string, paidAt time.Time) error
	ListDeposits(ctx context.Context, patientID string) ([]models.Deposit, error)
	CreateDeposit(ctx context.Context, deposit *models.Deposit) error
}

// CreateObligationRequest records an amount a patient owes.
type CreateObligationRequest struct {
	PatientID string  `json:"patient_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

// PayObligationRequest settles an open obligation.
type PayObligationRequest struct {
	Method string `json:"method" validate:"required,oneof=cash card transfer deposit"`
}

// CreateDepositRequest records an up-front payment for a patient.
type CreateDepositRequest struct {
	PatientID string  `json:"patient_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

// PaymentService manages patient obligations and deposits.
type PaymentService struct {
	repo      paymentRepository
	patients  patientLookupRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(repo paymentRepository, patients patientLookupRepository, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, patients: patients, validator: validate, logger: logger}
}

// ListObligations returns obligations for a branch, optionally filtered to one
// patient.
func (s *PaymentService) ListObligations(ctx context.Context, branchID, patientID string) ([]models.Obligation, error) {
	obligations, err := s.repo.ListObligations(ctx, branchID, patientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list obligations")
	}
	return obligations, nil
}

// CreateObligation records a new amount owed by a patient.
func (s *PaymentService) CreateObligation(ctx context.Context, branchID string, req CreateObligationRequest) (*models.Obligation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid obligation payload")
	}
	if err := s.ensurePatient(ctx, branchID, req.PatientID); err != nil {
		return nil, err
	}

	obligation := &models.Obligation{
		BranchID:  branchID,
		PatientID: req.PatientID,
		Amount:    req.Amount,
	}
	if err := s.repo.CreateObligation(ctx, obligation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create obligation")
	}
	return obligation, nil
}

// PayObligation marks an open obligation as settled.
func (s *PaymentService) PayObligation(ctx context.Context, branchID, id string, req PayObligationRequest) (*models.Obligation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	obligation, err := s.repo.FindObligation(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "obligation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load obligation")
	}
	if obligation.BranchID != branchID {
		return nil, appErrors.Clone(appErrors.ErrCrossBranch, "obligation belongs to a different branch")
	}
	if obligation.IsPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "obligation is already paid")
	}

	paidAt := time.Now().UTC()
	method := strings.TrimSpace(req.Method)
	if err := s.repo.MarkObligationPaid(ctx, id, method, paidAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle obligation")
	}
	obligation.IsPaid = true
	obligation.PaidAt = &paidAt
	obligation.Method = &method
	return obligation, nil
}

// ListDeposits returns a patient's deposits.
func (s *PaymentService) ListDeposits(ctx context.Context, branchID, patientID string) ([]models.Deposit, error) {
	if err := s.ensurePatient(ctx, branchID, patientID); err != nil {
		return nil, err
	}
	deposits, err := s.repo.ListDeposits(ctx, patientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deposits")
	}
	return deposits, nil
}

// CreateDeposit records an up-front payment for a patient.
func (s *PaymentService) CreateDeposit(ctx context.Context, branchID string, req CreateDepositRequest) (*models.Deposit, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid deposit payload")
	}
	if err := s.ensurePatient(ctx, branchID, req.PatientID); err != nil {
		return nil, err
	}

	deposit := &models.Deposit{PatientID: req.PatientID, Amount: req.Amount}
	if err := s.repo.CreateDeposit(ctx, deposit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create deposit")
	}
	return deposit, nil
}

func (s *PaymentService) ensurePatient(ctx context.Context, branchID, patientID string) error {
	patient, err := s.patients.FindByID(ctx, patientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	if patient.BranchID != branchID {
		return appErrors.Clone(appErrors.ErrCrossBranch, "patient belongs to a different branch")
	}
	return nil
}

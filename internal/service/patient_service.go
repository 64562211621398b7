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

type patientRepository interface {
	List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error)
	FindByID(ctx context.Context, id string) (*models.Patient, error)
	Create(ctx context.Context, patient *models.Patient) error
	Update(ctx context.Context, patient *models.Patient) error
	Delete(ctx context.Context, id string) error
}

// CreatePatientRequest represents payload for registering patients.
type CreatePatientRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Surname   string `json:"surname" validate:"required,max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty,max=50"`
	BirthDate string `json:"birth_date" validate:"omitempty"`
}

// UpdatePatientRequest represents payload for updating patients.
type UpdatePatientRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Surname   string `json:"surname" validate:"required,max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty,max=50"`
	BirthDate string `json:"birth_date" validate:"omitempty"`
}

// PatientService manages patient records within a branch.
type PatientService struct {
	repo      patientRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPatientService constructs a PatientService.
func NewPatientService(repo patientRepository, validate *validator.Validate, logger *zap.Logger) *PatientService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientService{repo: repo, validator: validate, logger: logger}
}

// List returns patients plus pagination data.
func (s *PatientService) List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, *models.Pagination, error) {
	patients, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list patients")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return patients, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a patient by id, scoped to the branch.
func (s *PatientService) Get(ctx context.Context, branchID, id string) (*models.Patient, error) {
	patient, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	if patient.BranchID != branchID {
		return nil, appErrors.Clone(appErrors.ErrCrossBranch, "patient belongs to a different branch")
	}
	return patient, nil
}

// Create registers a new patient in the branch.
func (s *PatientService) Create(ctx context.Context, branchID string, req CreatePatientRequest) (*models.Patient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid patient payload")
	}
	birthDate, err := parseOptionalDate(req.BirthDate)
	if err != nil {
		return nil, err
	}

	patient := &models.Patient{
		BranchID:  branchID,
		Name:      strings.TrimSpace(req.Name),
		Surname:   strings.TrimSpace(req.Surname),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		BirthDate: birthDate,
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create patient")
	}
	return patient, nil
}

// Update modifies an existing patient.
func (s *PatientService) Update(ctx context.Context, branchID, id string, req UpdatePatientRequest) (*models.Patient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid patient payload")
	}
	patient, err := s.Get(ctx, branchID, id)
	if err != nil {
		return nil, err
	}
	birthDate, err := parseOptionalDate(req.BirthDate)
	if err != nil {
		return nil, err
	}

	patient.Name = strings.TrimSpace(req.Name)
	patient.Surname = strings.TrimSpace(req.Surname)
	patient.Email = strings.TrimSpace(req.Email)
	patient.Phone = strings.TrimSpace(req.Phone)
	patient.BirthDate = birthDate

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update patient")
	}
	return patient, nil
}

// Delete removes a patient record.
func (s *PatientService) Delete(ctx context.Context, branchID, id string) error {
	if _, err := s.Get(ctx, branchID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete patient")
	}
	return nil
}

func parseOptionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	return &date, nil
}

package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/halodent/clinic-api/internal/models"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
)

type absenceRepository interface {
	Create(ctx context.Context, absence *models.Absence) error
	FindByID(ctx context.Context, id string) (*models.Absence, error)
	ListForStaff(ctx context.Context, staffID string) ([]models.Absence, error)
	Delete(ctx context.Context, id string) error
}

// AbsenceRequest registers a staff member as away for an inclusive date range.
type AbsenceRequest struct {
	StartDate string  `json:"start_date" validate:"required"`
	EndDate   string  `json:"end_date" validate:"required"`
	Type      string  `json:"type" validate:"required,oneof=sick vacation other"`
	Reason    *string `json:"reason"`
}

// AbsenceService manages sick leave, vacation and other absences for staff
// members. Dates covered by an absence resolve to no working hours.
type AbsenceService struct {
	repo      absenceRepository
	staff     staffLookupRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAbsenceService constructs an AbsenceService.
func NewAbsenceService(repo absenceRepository, staff staffLookupRepository, validate *validator.Validate, logger *zap.Logger) *AbsenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AbsenceService{repo: repo, staff: staff, validator: validate, logger: logger}
}

// List returns all absences of a staff member.
func (s *AbsenceService) List(ctx context.Context, branchID, staffID string) ([]models.Absence, error) {
	if err := s.ensureStaff(ctx, branchID, staffID); err != nil {
		return nil, err
	}
	absences, err := s.repo.ListForStaff(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list absences")
	}
	return absences, nil
}

// Create registers a new absence for a staff member.
func (s *AbsenceService) Create(ctx context.Context, branchID, staffID string, req AbsenceRequest) (*models.Absence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}
	if err := s.ensureStaff(ctx, branchID, staffID); err != nil {
		return nil, err
	}
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	absence := &models.Absence{
		StaffID:   staffID,
		StartDate: start,
		EndDate:   end,
		Type:      models.AbsenceType(req.Type),
		Reason:    req.Reason,
	}
	if err := s.repo.Create(ctx, absence); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save absence")
	}
	return absence, nil
}

// Delete removes an absence, restoring the regular schedule on its dates.
func (s *AbsenceService) Delete(ctx context.Context, branchID, staffID, absenceID string) error {
	if err := s.ensureStaff(ctx, branchID, staffID); err != nil {
		return err
	}
	absence, err := s.repo.FindByID(ctx, absenceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence")
	}
	if absence.StaffID != staffID {
		return appErrors.Clone(appErrors.ErrNotFound, "absence not found")
	}
	if err := s.repo.Delete(ctx, absenceID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete absence")
	}
	return nil
}

func (s *AbsenceService) ensureStaff(ctx context.Context, branchID, staffID string) error {
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
		return appErrors.Clone(appErrors.ErrRoleMismatch, "absences apply to doctors and assistants only")
	}
	return nil
}

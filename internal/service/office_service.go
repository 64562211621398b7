package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/halodent/clinic-api/internal/models"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
)

type officeRepository interface {
	ListByBranch(ctx context.Context, branchID string) ([]models.Office, error)
	FindByID(ctx context.Context, id string) (*models.Office, error)
	Create(ctx context.Context, office *models.Office) error
	Update(ctx context.Context, office *models.Office) error
	Delete(ctx context.Context, id string) error
	HasFutureEvents(ctx context.Context, id string) (bool, error)
}

// OfficeRequest represents payload for creating or renaming offices.
type OfficeRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// OfficeService manages the bookable treatment rooms of a branch.
type OfficeService struct {
	repo      officeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOfficeService constructs an OfficeService.
func NewOfficeService(repo officeRepository, validate *validator.Validate, logger *zap.Logger) *OfficeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfficeService{repo: repo, validator: validate, logger: logger}
}

// List returns all offices of a branch.
func (s *OfficeService) List(ctx context.Context, branchID string) ([]models.Office, error) {
	offices, err := s.repo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offices")
	}
	return offices, nil
}

// Get returns an office by id, scoped to the branch.
func (s *OfficeService) Get(ctx context.Context, branchID, id string) (*models.Office, error) {
	office, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "office not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load office")
	}
	if office.BranchID != branchID {
		return nil, appErrors.Clone(appErrors.ErrCrossBranch, "office belongs to a different branch")
	}
	return office, nil
}

// Create registers a new office in the branch.
func (s *OfficeService) Create(ctx context.Context, branchID string, req OfficeRequest) (*models.Office, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid office payload")
	}
	office := &models.Office{BranchID: branchID, Name: strings.TrimSpace(req.Name)}
	if err := s.repo.Create(ctx, office); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create office")
	}
	return office, nil
}

// Update renames an office.
func (s *OfficeService) Update(ctx context.Context, branchID, id string, req OfficeRequest) (*models.Office, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid office payload")
	}
	office, err := s.Get(ctx, branchID, id)
	if err != nil {
		return nil, err
	}
	office.Name = strings.TrimSpace(req.Name)
	if err := s.repo.Update(ctx, office); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update office")
	}
	return office, nil
}

// Delete removes an office. Offices with upcoming bookings cannot be removed.
func (s *OfficeService) Delete(ctx context.Context, branchID, id string) error {
	if _, err := s.Get(ctx, branchID, id); err != nil {
		return err
	}
	busy, err := s.repo.HasFutureEvents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check office bookings")
	}
	if busy {
		return appErrors.Clone(appErrors.ErrConflict, "office has upcoming bookings")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete office")
	}
	return nil
}

package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halodent/clinic-api/internal/models"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
)

func newAbsenceFixture(staff ...*models.Staff) (*AbsenceService, *fakeAbsenceRepo) {
	repo := newFakeAbsenceRepo()
	svc := NewAbsenceService(repo, newFakeStaffRepo(staff...), validator.New(), zap.NewNop())
	return svc, repo
}

func TestCreateAbsence(t *testing.T) {
	svc, repo := newAbsenceFixture(testDoctor())

	absence, err := svc.Create(context.Background(), "branch-1", "doc-1", AbsenceRequest{
		StartDate: mondayRaw,
		EndDate:   tuesdayRaw,
		Type:      "vacation",
		Reason:    strPtr("winter holidays"),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, absence.ID)
	assert.Equal(t, models.AbsenceTypeVacation, absence.Type)
	assert.Len(t, repo.absences, 1)
}

func TestCreateAbsenceRejectsUnknownType(t *testing.T) {
	svc, _ := newAbsenceFixture(testDoctor())

	_, err := svc.Create(context.Background(), "branch-1", "doc-1", AbsenceRequest{
		StartDate: mondayRaw,
		EndDate:   tuesdayRaw,
		Type:      "sabbatical",
	})

	assertErrorCode(t, err, appErrors.ErrValidation.Code)
}

func TestCreateAbsenceRejectsReversedRange(t *testing.T) {
	svc, _ := newAbsenceFixture(testDoctor())

	_, err := svc.Create(context.Background(), "branch-1", "doc-1", AbsenceRequest{
		StartDate: tuesdayRaw,
		EndDate:   mondayRaw,
		Type:      "sick",
	})

	assertErrorCode(t, err, appErrors.ErrInvalidRange.Code)
}

func TestCreateAbsenceRejectsCrossBranchStaff(t *testing.T) {
	doctor := testDoctor()
	doctor.BranchID = "branch-2"
	svc, _ := newAbsenceFixture(doctor)

	_, err := svc.Create(context.Background(), "branch-1", "doc-1", AbsenceRequest{
		StartDate: mondayRaw,
		EndDate:   mondayRaw,
		Type:      "sick",
	})

	assertErrorCode(t, err, appErrors.ErrCrossBranch.Code)
}

func TestCreateAbsenceRejectsNonSchedulableStaff(t *testing.T) {
	receptionist := &models.Staff{ID: "rec-1", BranchID: "branch-1", Role: models.StaffRoleReception, Active: true}
	svc, _ := newAbsenceFixture(receptionist)

	_, err := svc.Create(context.Background(), "branch-1", "rec-1", AbsenceRequest{
		StartDate: mondayRaw,
		EndDate:   mondayRaw,
		Type:      "other",
	})

	assertErrorCode(t, err, appErrors.ErrRoleMismatch.Code)
}

func TestListAbsencesScopedToStaff(t *testing.T) {
	svc, repo := newAbsenceFixture(testDoctor())
	repo.setAbsence("doc-1", date(mondayRaw), date(mondayRaw))
	repo.setAbsence("doc-2", date(mondayRaw), date(tuesdayRaw))

	absences, err := svc.List(context.Background(), "branch-1", "doc-1")

	require.NoError(t, err)
	require.Len(t, absences, 1)
	assert.Equal(t, "doc-1", absences[0].StaffID)
}

func TestDeleteAbsence(t *testing.T) {
	svc, repo := newAbsenceFixture(testDoctor())
	repo.setAbsence("doc-1", date(mondayRaw), date(mondayRaw))

	err := svc.Delete(context.Background(), "branch-1", "doc-1", repo.absences[0].ID)

	require.NoError(t, err)
	assert.Empty(t, repo.absences)
}

func TestDeleteAbsenceRejectsForeignStaff(t *testing.T) {
	svc, repo := newAbsenceFixture(testDoctor())
	repo.setAbsence("doc-2", date(mondayRaw), date(mondayRaw))

	err := svc.Delete(context.Background(), "branch-1", "doc-1", repo.absences[0].ID)

	assertErrorCode(t, err, appErrors.ErrNotFound.Code)
	assert.Len(t, repo.absences, 1)
}

func TestDeleteAbsenceNotFound(t *testing.T) {
	svc, _ := newAbsenceFixture(testDoctor())

	err := svc.Delete(context.Background(), "branch-1", "doc-1", "missing")

	assertErrorCode(t, err, appErrors.ErrNotFound.Code)
}

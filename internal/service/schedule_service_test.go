package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halodent/clinic-api/internal/models"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
)

type mockScheduleRepo struct {
	fakeScheduleRepo
	deletedWeekly   []int
	deletedOverride []string
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{fakeScheduleRepo: *newFakeScheduleRepo()}
}

func (r *mockScheduleRepo) ListWeekly(_ context.Context, staffID string) ([]models.WeeklySchedule, error) {
	var entries []models.WeeklySchedule
	for _, entry := range r.weekly {
		if entry.StaffID == staffID {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (r *mockScheduleRepo) UpsertWeekly(_ context.Context, entry *models.WeeklySchedule) error {
	r.setWeekly(entry.StaffID, entry.Weekday, entry.StartMinute, entry.EndMinute)
	return nil
}

func (r *mockScheduleRepo) DeleteWeekly(_ context.Context, staffID string, weekday int) error {
	r.deletedWeekly = append(r.deletedWeekly, weekday)
	return nil
}

func (r *mockScheduleRepo) ListOverrides(_ context.Context, staffID string, from, to time.Time) ([]models.ScheduleOverride, error) {
	var entries []models.ScheduleOverride
	for _, entry := range r.overrides {
		if entry.StaffID == staffID && !entry.Date.Before(from) && !entry.Date.After(to) {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (r *mockScheduleRepo) UpsertOverride(_ context.Context, entry *models.ScheduleOverride) error {
	r.setOverride(entry.StaffID, entry.Date, entry.StartMinute, entry.EndMinute)
	return nil
}

func (r *mockScheduleRepo) DeleteOverride(_ context.Context, staffID string, date time.Time) error {
	r.deletedOverride = append(r.deletedOverride, date.Format(models.DateLayout))
	return nil
}

func newScheduleFixture(staff ...*models.Staff) (*ScheduleService, *mockScheduleRepo) {
	repo := newMockScheduleRepo()
	svc := NewScheduleService(repo, newFakeStaffRepo(staff...), validator.New(), zap.NewNop())
	return svc, repo
}

func TestSetWeeklySchedule(t *testing.T) {
	svc, repo := newScheduleFixture(testDoctor())

	entry, err := svc.SetWeekly(context.Background(), "branch-1", "doc-1", WeeklyScheduleRequest{
		Weekday:   0,
		StartTime: "09:00",
		EndTime:   "17:00",
	})

	require.NoError(t, err)
	assert.Equal(t, 540, entry.StartMinute)
	assert.Equal(t, 1020, entry.EndMinute)

	stored, err := repo.FindWeekly(context.Background(), "doc-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 540, stored.StartMinute)
}

func TestSetWeeklyRejectsReversedRange(t *testing.T) {
	svc, _ := newScheduleFixture(testDoctor())

	_, err := svc.SetWeekly(context.Background(), "branch-1", "doc-1", WeeklyScheduleRequest{
		Weekday:   0,
		StartTime: "17:00",
		EndTime:   "09:00",
	})

	assertErrorCode(t, err, appErrors.ErrInvalidRange.Code)
}

func TestSetWeeklyRejectsUnschedulableRole(t *testing.T) {
	receptionist := &models.Staff{ID: "rec-1", BranchID: "branch-1", Role: models.StaffRoleReception, Active: true}
	svc, _ := newScheduleFixture(receptionist)

	_, err := svc.SetWeekly(context.Background(), "branch-1", "rec-1", WeeklyScheduleRequest{
		Weekday:   0,
		StartTime: "09:00",
		EndTime:   "17:00",
	})

	assertErrorCode(t, err, appErrors.ErrRoleMismatch.Code)
}

func TestSetWeeklyCrossBranchStaff(t *testing.T) {
	doctor := testDoctor()
	doctor.BranchID = "branch-2"
	svc, _ := newScheduleFixture(doctor)

	_, err := svc.SetWeekly(context.Background(), "branch-1", "doc-1", WeeklyScheduleRequest{
		Weekday:   0,
		StartTime: "09:00",
		EndTime:   "17:00",
	})

	assertErrorCode(t, err, appErrors.ErrCrossBranch.Code)
}

func TestSetOverride(t *testing.T) {
	svc, repo := newScheduleFixture(testDoctor())

	entry, err := svc.SetOverride(context.Background(), "branch-1", "doc-1", ScheduleOverrideRequest{
		Date:      mondayRaw,
		StartTime: "14:00",
		EndTime:   "16:00",
	})

	require.NoError(t, err)
	assert.Equal(t, 840, entry.StartMinute)
	assert.Equal(t, 960, entry.EndMinute)

	stored, err := repo.FindOverride(context.Background(), "doc-1", date(mondayRaw))
	require.NoError(t, err)
	assert.Equal(t, 840, stored.StartMinute)
}

func TestSetOverrideDayOff(t *testing.T) {
	svc, _ := newScheduleFixture(testDoctor())

	// Equal start and end times mark the whole date as a day off.
	entry, err := svc.SetOverride(context.Background(), "branch-1", "doc-1", ScheduleOverrideRequest{
		Date:      mondayRaw,
		StartTime: "00:00",
		EndTime:   "00:00",
	})

	require.NoError(t, err)
	assert.Equal(t, entry.StartMinute, entry.EndMinute)
}

func TestSetOverrideRejectsReversedRange(t *testing.T) {
	svc, _ := newScheduleFixture(testDoctor())

	_, err := svc.SetOverride(context.Background(), "branch-1", "doc-1", ScheduleOverrideRequest{
		Date:      mondayRaw,
		StartTime: "16:00",
		EndTime:   "14:00",
	})

	assertErrorCode(t, err, appErrors.ErrInvalidRange.Code)
}

func TestDeleteWeeklyUnknownEntry(t *testing.T) {
	svc, _ := newScheduleFixture(testDoctor())

	err := svc.DeleteWeekly(context.Background(), "branch-1", "doc-1", 3)

	assertErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestDeleteWeekly(t *testing.T) {
	svc, repo := newScheduleFixture(testDoctor())
	repo.setWeekly("doc-1", 3, 540, 1020)

	require.NoError(t, svc.DeleteWeekly(context.Background(), "branch-1", "doc-1", 3))
	assert.Equal(t, []int{3}, repo.deletedWeekly)
}

func TestDeleteWeeklyRejectsBadWeekday(t *testing.T) {
	svc, _ := newScheduleFixture(testDoctor())

	err := svc.DeleteWeekly(context.Background(), "branch-1", "doc-1", 7)

	assertErrorCode(t, err, appErrors.ErrValidation.Code)
}

func TestDeleteOverride(t *testing.T) {
	svc, repo := newScheduleFixture(testDoctor())
	repo.setOverride("doc-1", date(mondayRaw), 840, 960)

	require.NoError(t, svc.DeleteOverride(context.Background(), "branch-1", "doc-1", mondayRaw))
	assert.Equal(t, []string{mondayRaw}, repo.deletedOverride)
}

func TestListOverridesWithinRange(t *testing.T) {
	svc, repo := newScheduleFixture(testDoctor())
	repo.setOverride("doc-1", date(mondayRaw), 840, 960)
	repo.setOverride("doc-1", date("2024-02-05"), 540, 720)

	entries, err := svc.ListOverrides(context.Background(), "branch-1", "doc-1", "2024-01-01", "2024-01-31")

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, mondayRaw, entries[0].Date.Format(models.DateLayout))
}

func TestListWeeklyUnknownStaff(t *testing.T) {
	svc, _ := newScheduleFixture()

	_, err := svc.ListWeekly(context.Background(), "branch-1", "ghost")

	assertErrorCode(t, err, appErrors.ErrNotFound.Code)
}

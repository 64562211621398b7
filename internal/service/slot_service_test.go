package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halodent/clinic-api/internal/dto"
	"github.com/halodent/clinic-api/internal/models"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
)

func newSlotFixture(staff []*models.Staff, offices []*models.Office) (*SlotService, *fakeScheduleRepo, *fakeEventRepo) {
	schedules := newFakeScheduleRepo()
	events := newFakeEventRepo()
	staffRepo := newFakeStaffRepo(staff...)
	availability := NewAvailabilityService(schedules, newFakeAbsenceRepo(), events, staffRepo, validator.New(), zap.NewNop())
	svc := NewSlotService(availability, events, staffRepo, newFakeOfficeRepo(offices...), nil, validator.New(), zap.NewNop())
	return svc, schedules, events
}

func slotTimes(slots []models.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slot.Start.Format("2006-01-02 15:04")+"/"+slot.End.Format("15:04"))
	}
	return out
}

func TestTimeSlotsTilesWorkingHours(t *testing.T) {
	doctor := &models.Staff{ID: "doc-1", BranchID: "branch-1", Role: models.StaffRoleDoctor, Active: true}
	svc, schedules, _ := newSlotFixture([]*models.Staff{doctor}, nil)
	schedules.setWeekly("doc-1", 0, 540, 600)

	slots, err := svc.TimeSlots(context.Background(), "branch-1", dto.TimeSlotRequest{
		DoctorID:        "doc-1",
		StartDate:       mondayRaw,
		EndDate:         mondayRaw,
		IntervalMinutes: 30,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-01-01 09:00/09:30",
		"2024-01-01 09:30/10:00",
	}, slotTimes(slots))
	for _, slot := range slots {
		assert.Equal(t, models.SlotFree, slot.Status)
	}
}

func TestTimeSlotsMidWindowBookingLeavesNoFullSlot(t *testing.T) {
	doctor := &models.Staff{ID: "doc-1", BranchID: "branch-1", Role: models.StaffRoleDoctor, Active: true}
	svc, schedules, events := newSlotFixture([]*models.Staff{doctor}, nil)
	schedules.setWeekly("doc-1", 0, 540, 600)
	events.add(models.Event{DoctorID: "doc-1", Date: date(mondayRaw), StartMinute: 555, EndMinute: 585})

	slots, err := svc.TimeSlots(context.Background(), "branch-1", dto.TimeSlotRequest{
		DoctorID:        "doc-1",
		StartDate:       mondayRaw,
		EndDate:         mondayRaw,
		IntervalMinutes: 30,
	})

	// 09:00-09:15 and 09:45-10:00 remain, both shorter than the interval.
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestTimeSlotsDropsTrailingRemainder(t *testing.T) {
	doctor := &models.Staff{ID: "doc-1", BranchID: "branch-1", Role: models.StaffRoleDoctor, Active: true}
	svc, schedules, _ := newSlotFixture([]*models.Staff{doctor}, nil)
	schedules.setWeekly("doc-1", 0, 540, 615)

	slots, err := svc.TimeSlots(context.Background(), "branch-1", dto.TimeSlotRequest{
		DoctorID:        "doc-1",
		StartDate:       mondayRaw,
		EndDate:         mondayRaw,
		IntervalMinutes: 30,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-01-01 09:00/09:30",
		"2024-01-01 09:30/10:00",
	}, slotTimes(slots))
}

func TestTimeSlotsSkipsDaysWithoutWorkingHours(t *testing.T) {
	doctor := &models.Staff{ID: "doc-1", BranchID: "branch-1", Role: models.StaffRoleDoctor, Active: true}
	svc, schedules, _ := newSlotFixture([]*models.Staff{doctor}, nil)
	schedules.setWeekly("doc-1", 0, 540, 600)

	slots, err := svc.TimeSlots(context.Background(), "branch-1", dto.TimeSlotRequest{
		DoctorID:        "doc-1",
		StartDate:       mondayRaw,
		EndDate:         "2024-01-08",
		IntervalMinutes: 30,
	})

	require.NoError(t, err)
	// Only the two Mondays in range produce slots.
	assert.Equal(t, []string{
		"2024-01-01 09:00/09:30",
		"2024-01-01 09:30/10:00",
		"2024-01-08 09:00/09:30",
		"2024-01-08 09:30/10:00",
	}, slotTimes(slots))
}

func TestTimeSlotsOverrideReplacesWeeklyWindow(t *testing.T) {
	doctor := &models.Staff{ID: "doc-1", BranchID: "branch-1", Role: models.StaffRoleDoctor, Active: true}
	svc, schedules, _ := newSlotFixture([]*models.Staff{doctor}, nil)
	schedules.setWeekly("doc-1", 0, 540, 1020)
	schedules.setOverride("doc-1", date(mondayRaw), 840, 900)

	slots, err := svc.TimeSlots(context.Background(), "branch-1", dto.TimeSlotRequest{
		DoctorID:        "doc-1",
		StartDate:       mondayRaw,
		EndDate:         mondayRaw,
		IntervalMinutes: 30,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-01-01 14:00/14:30",
		"2024-01-01 14:30/15:00",
	}, slotTimes(slots))
}

func TestTimeSlotsOfficeOccupancyExcludesOwnDoctor(t *testing.T) {
	doctor := &models.Staff{ID: "doc-1", BranchID: "branch-1", Role: models.StaffRoleDoctor, Active: true}
	office := &models.Office{ID: "office-1", BranchID: "branch-1", Name: "Room 1"}
	svc, schedules, events := newSlotFixture([]*models.Staff{doctor}, []*models.Office{office})
	schedules.setWeekly("doc-1", 0, 540, 660)

	// Another doctor holds the office 09:00-10:00; doc-1's own booking in the
	// same office must not be counted twice.
	events.add(models.Event{DoctorID: "doc-2", OfficeID: strPtr("office-1"), Date: date(mondayRaw), StartMinute: 540, EndMinute: 600})
	events.add(models.Event{DoctorID: "doc-1", OfficeID: strPtr("office-1"), Date: date(mondayRaw), StartMinute: 600, EndMinute: 630})

	slots, err := svc.TimeSlots(context.Background(), "branch-1", dto.TimeSlotRequest{
		DoctorID:        "doc-1",
		StartDate:       mondayRaw,
		EndDate:         mondayRaw,
		IntervalMinutes: 30,
		OfficeID:        strPtr("office-1"),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01 10:30/11:00"}, slotTimes(slots))
}

func TestTimeSlotsWithoutOfficeIgnoresOtherDoctors(t *testing.T) {
	doctor := &models.Staff{ID: "doc-1", BranchID: "branch-1", Role: models.StaffRoleDoctor, Active: true}
	svc, schedules, events := newSlotFixture([]*models.Staff{doctor}, nil)
	schedules.setWeekly("doc-1", 0, 540, 600)
	events.add(models.Event{DoctorID: "doc-2", OfficeID: strPtr("office-1"), Date: date(mondayRaw), StartMinute: 540, EndMinute: 600})

	slots, err := svc.TimeSlots(context.Background(), "branch-1", dto.TimeSlotRequest{
		DoctorID:        "doc-1",
		StartDate:       mondayRaw,
		EndDate:         mondayRaw,
		IntervalMinutes: 30,
	})

	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestTimeSlotsUnknownDoctor(t *testing.T) {
	svc, _, _ := newSlotFixture(nil, nil)

	_, err := svc.TimeSlots(context.Background(), "branch-1", dto.TimeSlotRequest{
		DoctorID:        "ghost",
		StartDate:       mondayRaw,
		EndDate:         mondayRaw,
		IntervalMinutes: 30,
	})

	assertErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestTimeSlotsRejectsNonDoctor(t *testing.T) {
	assistant := &models.Staff{ID: "ast-1", BranchID: "branch-1", Role: models.StaffRoleAssistant, Active: true}
	svc, _, _ := newSlotFixture([]*models.Staff{assistant}, nil)

	_, err := svc.TimeSlots(context.Background(), "branch-1", dto.TimeSlotRequest{
		DoctorID:        "ast-1",
		StartDate:       mondayRaw,
		EndDate:         mondayRaw,
		IntervalMinutes: 30,
	})

	assertErrorCode(t, err, appErrors.ErrRoleMismatch.Code)
}

func TestTimeSlotsRejectsNonPositiveInterval(t *testing.T) {
	doctor := &models.Staff{ID: "doc-1", BranchID: "branch-1", Role: models.StaffRoleDoctor, Active: true}
	svc, _, _ := newSlotFixture([]*models.Staff{doctor}, nil)

	_, err := svc.TimeSlots(context.Background(), "branch-1", dto.TimeSlotRequest{
		DoctorID:  "doc-1",
		StartDate: mondayRaw,
		EndDate:   mondayRaw,
	})

	assertErrorCode(t, err, appErrors.ErrValidation.Code)
}

func TestTimeSlotsCrossBranchOffice(t *testing.T) {
	doctor := &models.Staff{ID: "doc-1", BranchID: "branch-1", Role: models.StaffRoleDoctor, Active: true}
	office := &models.Office{ID: "office-9", BranchID: "branch-2", Name: "Elsewhere"}
	svc, _, _ := newSlotFixture([]*models.Staff{doctor}, []*models.Office{office})

	_, err := svc.TimeSlots(context.Background(), "branch-1", dto.TimeSlotRequest{
		DoctorID:        "doc-1",
		StartDate:       mondayRaw,
		EndDate:         mondayRaw,
		IntervalMinutes: 30,
		OfficeID:        strPtr("office-9"),
	})

	assertErrorCode(t, err, appErrors.ErrCrossBranch.Code)
}

func TestBusyForDateMergesOfficeBookings(t *testing.T) {
	day := date(mondayRaw)
	own := map[string][]models.Interval{day.Format(models.DateLayout): {{Start: 600, End: 630}}}
	other := map[string][]models.Interval{day.Format(models.DateLayout): {
		{Start: 540, End: 570},
		{Start: 560, End: 600},
	}}

	busy := busyForDate(own, other, day)

	assert.Equal(t, []models.Interval{{Start: 540, End: 630}}, busy)
}

func TestBusyForDateOwnOnlyPassesThrough(t *testing.T) {
	day := date(mondayRaw)
	own := map[string][]models.Interval{day.Format(models.DateLayout): {
		{Start: 600, End: 630},
		{Start: 540, End: 570},
	}}

	busy := busyForDate(own, nil, day)

	// Without office bookings the doctor's own intervals are returned as-is.
	assert.Equal(t, []models.Interval{{Start: 600, End: 630}, {Start: 540, End: 570}}, busy)
}

func TestMinuteOnDate(t *testing.T) {
	at := minuteOnDate(date(mondayRaw), 615)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC), at)
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/halodent/clinic-api/internal/models"
)

// fakeScheduleRepo serves weekly schedules and overrides from in-memory maps.
type fakeScheduleRepo struct {
	weekly    map[string]*models.WeeklySchedule
	overrides map[string]*models.ScheduleOverride
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{
		weekly:    make(map[string]*models.WeeklySchedule),
		overrides: make(map[string]*models.ScheduleOverride),
	}
}

func (r *fakeScheduleRepo) setWeekly(staffID string, weekday, startMinute, endMinute int) {
	key := fmt.Sprintf("%s|%d", staffID, weekday)
	r.weekly[key] = &models.WeeklySchedule{StaffID: staffID, Weekday: weekday, StartMinute: startMinute, EndMinute: endMinute}
}

func (r *fakeScheduleRepo) setOverride(staffID string, date time.Time, startMinute, endMinute int) {
	key := staffID + "|" + date.Format(models.DateLayout)
	r.overrides[key] = &models.ScheduleOverride{StaffID: staffID, Date: date, StartMinute: startMinute, EndMinute: endMinute}
}

func (r *fakeScheduleRepo) FindWeekly(_ context.Context, staffID string, weekday int) (*models.WeeklySchedule, error) {
	if entry, ok := r.weekly[fmt.Sprintf("%s|%d", staffID, weekday)]; ok {
		return entry, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakeScheduleRepo) FindOverride(_ context.Context, staffID string, date time.Time) (*models.ScheduleOverride, error) {
	if entry, ok := r.overrides[staffID+"|"+date.Format(models.DateLayout)]; ok {
		return entry, nil
	}
	return nil, sql.ErrNoRows
}

// fakeAbsenceRepo keeps absences in a slice.
type fakeAbsenceRepo struct {
	absences []models.Absence
	nextID   int
}

func newFakeAbsenceRepo() *fakeAbsenceRepo {
	return &fakeAbsenceRepo{}
}

func (r *fakeAbsenceRepo) setAbsence(staffID string, start, end time.Time) {
	r.nextID++
	r.absences = append(r.absences, models.Absence{
		ID:        fmt.Sprintf("abs-%d", r.nextID),
		StaffID:   staffID,
		StartDate: start,
		EndDate:   end,
		Type:      models.AbsenceTypeOther,
	})
}

func (r *fakeAbsenceRepo) ExistsForDate(_ context.Context, staffID string, date time.Time) (bool, error) {
	for _, absence := range r.absences {
		if absence.StaffID == staffID && absence.Covers(date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAbsenceRepo) Create(_ context.Context, absence *models.Absence) error {
	r.nextID++
	absence.ID = fmt.Sprintf("abs-%d", r.nextID)
	r.absences = append(r.absences, *absence)
	return nil
}

func (r *fakeAbsenceRepo) FindByID(_ context.Context, id string) (*models.Absence, error) {
	for i := range r.absences {
		if r.absences[i].ID == id {
			found := r.absences[i]
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeAbsenceRepo) ListForStaff(_ context.Context, staffID string) ([]models.Absence, error) {
	var matched []models.Absence
	for _, absence := range r.absences {
		if absence.StaffID == staffID {
			matched = append(matched, absence)
		}
	}
	return matched, nil
}

func (r *fakeAbsenceRepo) Delete(_ context.Context, id string) error {
	for i := range r.absences {
		if r.absences[i].ID == id {
			r.absences = append(r.absences[:i], r.absences[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

// fakeEventRepo keeps events in a slice and evaluates overlap and occupancy
// queries against it.
type fakeEventRepo struct {
	events  []models.Event
	created [][]models.Event
	nextID  int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{}
}

func (r *fakeEventRepo) add(ev models.Event) {
	if ev.ID == "" {
		r.nextID++
		ev.ID = fmt.Sprintf("ev-%d", r.nextID)
	}
	r.events = append(r.events, ev)
}

func (r *fakeEventRepo) overlaps(date time.Time, startMinute, endMinute int, excludeEventID string, match func(models.Event) bool) bool {
	for _, ev := range r.events {
		if ev.ID == excludeEventID || !ev.Date.Equal(date) || !match(ev) {
			continue
		}
		if ev.StartMinute < endMinute && ev.EndMinute > startMinute {
			return true
		}
	}
	return false
}

func (r *fakeEventRepo) ExistsDoctorOverlap(_ context.Context, doctorID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error) {
	return r.overlaps(date, startMinute, endMinute, excludeEventID, func(ev models.Event) bool {
		return ev.DoctorID == doctorID
	}), nil
}

func (r *fakeEventRepo) ExistsAssistantOverlap(_ context.Context, assistantID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error) {
	return r.overlaps(date, startMinute, endMinute, excludeEventID, func(ev models.Event) bool {
		return ev.AssistantID != nil && *ev.AssistantID == assistantID
	}), nil
}

func (r *fakeEventRepo) ExistsOfficeOverlap(_ context.Context, officeID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error) {
	return r.overlaps(date, startMinute, endMinute, excludeEventID, func(ev models.Event) bool {
		return ev.OfficeID != nil && *ev.OfficeID == officeID
	}), nil
}

func (r *fakeEventRepo) ExistsPatientOverlap(_ context.Context, patientID string, date time.Time, startMinute, endMinute int, excludeEventID string) (bool, error) {
	return r.overlaps(date, startMinute, endMinute, excludeEventID, func(ev models.Event) bool {
		return ev.PatientID != nil && *ev.PatientID == patientID
	}), nil
}

func (r *fakeEventRepo) ListForDoctorRange(_ context.Context, doctorID string, from, to time.Time) ([]models.Event, error) {
	var matched []models.Event
	for _, ev := range r.events {
		if ev.DoctorID == doctorID && !ev.Date.Before(from) && !ev.Date.After(to) {
			matched = append(matched, ev)
		}
	}
	return matched, nil
}

func (r *fakeEventRepo) ListForOfficeRangeExcludingDoctor(_ context.Context, officeID, doctorID string, from, to time.Time) ([]models.Event, error) {
	var matched []models.Event
	for _, ev := range r.events {
		if ev.OfficeID == nil || *ev.OfficeID != officeID || ev.DoctorID == doctorID {
			continue
		}
		if !ev.Date.Before(from) && !ev.Date.After(to) {
			matched = append(matched, ev)
		}
	}
	return matched, nil
}

func (r *fakeEventRepo) FindByID(_ context.Context, id string) (*models.Event, error) {
	for i := range r.events {
		if r.events[i].ID == id {
			found := r.events[i]
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeEventRepo) List(_ context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	var matched []models.Event
	for _, ev := range r.events {
		if filter.BranchID != "" && ev.BranchID != filter.BranchID {
			continue
		}
		if filter.DoctorID != "" && ev.DoctorID != filter.DoctorID {
			continue
		}
		matched = append(matched, ev)
	}
	return matched, len(matched), nil
}

func (r *fakeEventRepo) ListForDoctorDate(_ context.Context, doctorID string, date time.Time) ([]models.Event, error) {
	var matched []models.Event
	for _, ev := range r.events {
		if ev.DoctorID == doctorID && ev.Date.Equal(date) {
			matched = append(matched, ev)
		}
	}
	return matched, nil
}

func (r *fakeEventRepo) CreateSeries(_ context.Context, events []models.Event) ([]models.Event, error) {
	var repetitionID *int64
	if len(events) > 1 || (len(events) > 0 && events[0].IsRepeating) {
		id := int64(len(r.created) + 1)
		repetitionID = &id
	}
	out := make([]models.Event, 0, len(events))
	for i, ev := range events {
		r.nextID++
		ev.ID = fmt.Sprintf("ev-%d", r.nextID)
		ev.RepetitionID = repetitionID
		ev.SequenceNumber = fmt.Sprintf("%03d", i+1)
		r.events = append(r.events, ev)
		out = append(out, ev)
	}
	r.created = append(r.created, out)
	return out, nil
}

func (r *fakeEventRepo) Update(_ context.Context, event *models.Event) error {
	for i := range r.events {
		if r.events[i].ID == event.ID {
			r.events[i] = *event
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *fakeEventRepo) Delete(_ context.Context, id string) error {
	for i := range r.events {
		if r.events[i].ID == id {
			r.events = append(r.events[:i], r.events[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeStaffRepo struct {
	members map[string]*models.Staff
}

func newFakeStaffRepo(members ...*models.Staff) *fakeStaffRepo {
	repo := &fakeStaffRepo{members: make(map[string]*models.Staff)}
	for _, m := range members {
		repo.members[m.ID] = m
	}
	return repo
}

func (r *fakeStaffRepo) FindByID(_ context.Context, id string) (*models.Staff, error) {
	if member, ok := r.members[id]; ok {
		return member, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakeStaffRepo) ListByRole(_ context.Context, branchID string, role models.StaffRole) ([]models.Staff, error) {
	var matched []models.Staff
	for _, member := range r.members {
		if member.BranchID == branchID && member.Role == role {
			matched = append(matched, *member)
		}
	}
	return matched, nil
}

type fakeOfficeRepo struct {
	offices map[string]*models.Office
}

func newFakeOfficeRepo(offices ...*models.Office) *fakeOfficeRepo {
	repo := &fakeOfficeRepo{offices: make(map[string]*models.Office)}
	for _, o := range offices {
		repo.offices[o.ID] = o
	}
	return repo
}

func (r *fakeOfficeRepo) FindByID(_ context.Context, id string) (*models.Office, error) {
	if office, ok := r.offices[id]; ok {
		return office, nil
	}
	return nil, sql.ErrNoRows
}

type fakePatientRepo struct {
	patients map[string]*models.Patient
}

func newFakePatientRepo(patients ...*models.Patient) *fakePatientRepo {
	repo := &fakePatientRepo{patients: make(map[string]*models.Patient)}
	for _, p := range patients {
		repo.patients[p.ID] = p
	}
	return repo
}

func (r *fakePatientRepo) FindByID(_ context.Context, id string) (*models.Patient, error) {
	if patient, ok := r.patients[id]; ok {
		return patient, nil
	}
	return nil, sql.ErrNoRows
}

func strPtr(s string) *string { return &s }

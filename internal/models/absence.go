package models

import "time"

// AbsenceType categorizes why a staff member is away.
type AbsenceType string

const (
	AbsenceTypeSick     AbsenceType = "sick"
	AbsenceTypeVacation AbsenceType = "vacation"
	AbsenceTypeOther    AbsenceType = "other"
)

// Valid reports whether the type is one of the known categories.
func (t AbsenceType) Valid() bool {
	switch t {
	case AbsenceTypeSick, AbsenceTypeVacation, AbsenceTypeOther:
		return true
	}
	return false
}

// Absence marks a staff member as away for an inclusive date range. Any date
// the range covers resolves to no working hours regardless of the weekly
// schedule or overrides on that date.
type Absence struct {
	ID        string      `db:"id" json:"id"`
	StaffID   string      `db:"staff_id" json:"staff_id"`
	StartDate time.Time   `db:"start_date" json:"start_date"`
	EndDate   time.Time   `db:"end_date" json:"end_date"`
	Type      AbsenceType `db:"type" json:"type"`
	Reason    *string     `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the absence spans the date. Both ends are inclusive.
func (a Absence) Covers(date time.Time) bool {
	return !date.Before(a.StartDate) && !date.After(a.EndDate)
}

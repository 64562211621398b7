package models

import "time"

// Event is a booked appointment on a doctor's calendar. Times are stored as
// minutes since midnight on the event date; the range is half-open
// [StartMinute, EndMinute).
type Event struct {
	ID             string    `db:"id" json:"id"`
	BranchID       string    `db:"branch_id" json:"branch_id"`
	Name           string    `db:"name" json:"name"`
	DoctorID       string    `db:"doctor_id" json:"doctor_id"`
	Date           time.Time `db:"date" json:"date"`
	StartMinute    int       `db:"start_minute" json:"start_minute"`
	EndMinute      int       `db:"end_minute" json:"end_minute"`
	OfficeID       *string   `db:"office_id" json:"office_id,omitempty"`
	AssistantID    *string   `db:"assistant_id" json:"assistant_id,omitempty"`
	PatientID      *string   `db:"patient_id" json:"patient_id,omitempty"`
	IsRepeating    bool      `db:"is_repeating" json:"is_repeating"`
	RepetitionID   *int64    `db:"repetition_id" json:"repetition_id,omitempty"`
	SequenceNumber string    `db:"sequence_number" json:"sequence_number"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// EventFilter captures query criteria for listing events.
type EventFilter struct {
	BranchID  string
	DoctorID  string
	OfficeID  string
	PatientID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// ConflictDimension names the resource whose availability check failed.
type ConflictDimension string

const (
	ConflictDoctor    ConflictDimension = "doctor"
	ConflictAssistant ConflictDimension = "assistant"
	ConflictOffice    ConflictDimension = "office"
	ConflictPatient   ConflictDimension = "patient"
)

// BookingConflictError is returned when an appointment collides with working
// hours or an existing booking on one of the checked dimensions.
type BookingConflictError struct {
	Dimension ConflictDimension `json:"dimension"`
	Date      time.Time         `json:"date"`
	Message   string            `json:"message"`
}

// Error implements the error interface for booking conflicts.
func (e *BookingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

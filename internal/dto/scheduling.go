package dto

// CreateEventRequest describes the payload for booking an appointment, either
// single or repeating. Dates use "YYYY-MM-DD" and times "HH:MM".
type CreateEventRequest struct {
	Name        string  `json:"name" validate:"required"`
	DoctorID    string  `json:"doctor_id" validate:"required"`
	Date        string  `json:"date" validate:"required"`
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	OfficeID    *string `json:"office_id"`
	AssistantID *string `json:"assistant_id"`
	PatientID   *string `json:"patient_id"`
	IsRepeating bool    `json:"is_repeating"`
	EndDate     string  `json:"end_date"`
	Interval    string  `json:"interval"`
}

// UpdateEventRequest re-validates and replaces a single appointment.
type UpdateEventRequest struct {
	Name        string  `json:"name" validate:"required"`
	DoctorID    string  `json:"doctor_id" validate:"required"`
	Date        string  `json:"date" validate:"required"`
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	OfficeID    *string `json:"office_id"`
	AssistantID *string `json:"assistant_id"`
	PatientID   *string `json:"patient_id"`
}

// TimeSlotRequest asks for the free bookable slots of a doctor over a date
// range, optionally constrained by an office's occupancy.
type TimeSlotRequest struct {
	DoctorID        string  `json:"doctor_id" validate:"required"`
	StartDate       string  `json:"start_date" validate:"required"`
	EndDate         string  `json:"end_date" validate:"required"`
	IntervalMinutes int     `json:"interval"`
	OfficeID        *string `json:"office_id"`
}

// AvailabilityRequest asks whether staff members are bookable for a time
// range across a (possibly stepped) date range. All applicable conflicts are
// reported per date rather than short-circuiting.
type AvailabilityRequest struct {
	StaffIDs  []string `json:"staff_ids" validate:"required,min=1"`
	StartDate string   `json:"start_date" validate:"required"`
	EndDate   string   `json:"end_date" validate:"required"`
	Step      string   `json:"step"`
	StartTime string   `json:"start_time" validate:"required"`
	EndTime   string   `json:"end_time" validate:"required"`
}

// ExportRequest queues an asynchronous day-sheet export.
type ExportRequest struct {
	DoctorID string `json:"doctor_id" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Format   string `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse reports export job state to clients.
type ExportJobResponse struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	ResultURL *string `json:"result_url,omitempty"`
	Error     *string `json:"error,omitempty"`
}

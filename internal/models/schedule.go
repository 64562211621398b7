package models

import (
	"fmt"
	"time"
)

// WeeklySchedule defines the recurring working window for a staff member on one
// weekday. At most one row exists per (staff, weekday); absence means the staff
// member does not work that day.
type WeeklySchedule struct {
	ID          string    `db:"id" json:"id"`
	StaffID     string    `db:"staff_id" json:"staff_id"`
	Weekday     int       `db:"weekday" json:"weekday"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleOverride replaces the weekly window for a staff member on a single
// date. The override wins outright over the weekly entry and is never merged
// with it. At most one row exists per (staff, date).
type ScheduleOverride struct {
	ID          string    `db:"id" json:"id"`
	StaffID     string    `db:"staff_id" json:"staff_id"`
	Date        time.Time `db:"date" json:"date"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// WeekdayIndex converts a calendar date to the schedule weekday convention,
// 0=Monday through 6=Sunday.
func WeekdayIndex(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// ParseMinuteOfDay converts an "HH:MM" string into minutes since midnight.
func ParseMinuteOfDay(raw string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time %q: %w", raw, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", raw)
	}
	return h*60 + m, nil
}

// FormatMinuteOfDay renders minutes since midnight as "HH:MM".
func FormatMinuteOfDay(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" string into a date-only time value.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, raw)
}

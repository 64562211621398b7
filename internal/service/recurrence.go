package service

import (
	"strconv"
	"time"

	appErrors "github.com/halodent/clinic-api/pkg/errors"
)

// RecurrenceStep is either a positive number of days or a calendar-month
// increment.
type RecurrenceStep struct {
	Days  int
	Month bool
}

func (s RecurrenceStep) valid() bool {
	return s.Month || s.Days > 0
}

// parseRecurrenceStep accepts a positive integer day count or the literal
// token "month".
func parseRecurrenceStep(raw string) (RecurrenceStep, error) {
	if raw == "month" {
		return RecurrenceStep{Month: true}, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return RecurrenceStep{}, appErrors.Clone(appErrors.ErrValidation, "interval must be a positive day count or \"month\"")
	}
	return RecurrenceStep{Days: days}, nil
}

// expandDates produces the ordered occurrence dates from start to end
// inclusive: start, start+step, ... A date equal to end is included. Month
// steps are anchored to the start date's day-of-month, clamped to the last
// valid day of the target month (Jan 31 -> Feb 29 -> Mar 31).
func expandDates(start, end time.Time, step RecurrenceStep) []time.Time {
	if !step.valid() || end.Before(start) {
		return nil
	}

	var dates []time.Time
	current := start
	months := 0
	for !current.After(end) {
		dates = append(dates, current)
		if step.Month {
			months++
			current = addMonthsClamped(start, months)
		} else {
			current = current.AddDate(0, 0, step.Days)
		}
	}
	return dates
}

func addMonthsClamped(start time.Time, months int) time.Time {
	y, m, d := start.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, start.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, start.Location())
}

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halodent/clinic-api/internal/models"
)

func date(value string) time.Time {
	parsed, err := time.Parse(models.DateLayout, value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestParseRecurrenceStepDays(t *testing.T) {
	step, err := parseRecurrenceStep("7")

	require.NoError(t, err)
	assert.Equal(t, RecurrenceStep{Days: 7}, step)
}

func TestParseRecurrenceStepMonth(t *testing.T) {
	step, err := parseRecurrenceStep("month")

	require.NoError(t, err)
	assert.True(t, step.Month)
}

func TestParseRecurrenceStepRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"", "0", "-3", "weekly", "1.5"} {
		_, err := parseRecurrenceStep(raw)
		assert.Error(t, err, raw)
	}
}

func TestExpandDatesIncludesEndDate(t *testing.T) {
	dates := expandDates(date("2024-01-01"), date("2024-01-10"), RecurrenceStep{Days: 3})

	assert.Equal(t, []time.Time{
		date("2024-01-01"),
		date("2024-01-04"),
		date("2024-01-07"),
		date("2024-01-10"),
	}, dates)
}

func TestExpandDatesEndBetweenOccurrences(t *testing.T) {
	dates := expandDates(date("2024-03-01"), date("2024-03-15"), RecurrenceStep{Days: 7})

	assert.Equal(t, []time.Time{
		date("2024-03-01"),
		date("2024-03-08"),
		date("2024-03-15"),
	}, dates)
}

func TestExpandDatesSingleDay(t *testing.T) {
	dates := expandDates(date("2024-05-02"), date("2024-05-02"), RecurrenceStep{Days: 1})

	assert.Equal(t, []time.Time{date("2024-05-02")}, dates)
}

func TestExpandDatesMonthClampsAndReanchors(t *testing.T) {
	dates := expandDates(date("2024-01-31"), date("2024-04-30"), RecurrenceStep{Month: true})

	assert.Equal(t, []time.Time{
		date("2024-01-31"),
		date("2024-02-29"),
		date("2024-03-31"),
		date("2024-04-30"),
	}, dates)
}

func TestExpandDatesMonthAnchoredToStartDay(t *testing.T) {
	// A clamped occurrence must not shift later occurrences off the anchor day.
	dates := expandDates(date("2023-01-30"), date("2023-03-31"), RecurrenceStep{Month: true})

	assert.Equal(t, []time.Time{
		date("2023-01-30"),
		date("2023-02-28"),
		date("2023-03-30"),
	}, dates)
}

func TestExpandDatesRejectsReversedRange(t *testing.T) {
	assert.Nil(t, expandDates(date("2024-02-10"), date("2024-02-01"), RecurrenceStep{Days: 1}))
}

func TestExpandDatesInvalidStep(t *testing.T) {
	assert.Nil(t, expandDates(date("2024-02-01"), date("2024-02-10"), RecurrenceStep{}))
}

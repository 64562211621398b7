package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halodent/clinic-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return sqlxDB, mock, func() { _ = sqlxDB.Close() }
}

func eventRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "branch_id", "name", "doctor_id", "date", "start_minute", "end_minute",
		"office_id", "assistant_id", "patient_id", "is_repeating", "repetition_id",
		"sequence_number", "created_at", "updated_at",
	})
}

func TestEventFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, branch_id, name, doctor_id, date, start_minute, end_minute, office_id, assistant_id, patient_id, is_repeating, repetition_id, sequence_number, created_at, updated_at FROM events WHERE id = $1")).
		WithArgs("ev-1").
		WillReturnRows(eventRows().AddRow("ev-1", "branch-1", "Checkup", "doc-1", day, 600, 660, nil, nil, nil, false, nil, "001", now, now))

	event, err := repo.FindByID(context.Background(), "ev-1")

	require.NoError(t, err)
	assert.Equal(t, "Checkup", event.Name)
	assert.Equal(t, 600, event.StartMinute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventExistsDoctorOverlap(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// Requested end goes into the start_minute comparison and vice versa.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM events WHERE doctor_id = $1 AND date = $2 AND start_minute < $3 AND end_minute > $4 LIMIT 1")).
		WithArgs("doc-1", day, 660, 600).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsDoctorOverlap(context.Background(), "doc-1", day, 600, 660, "")

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventExistsOverlapNoRowsMeansFree(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM events WHERE office_id = $1 AND date = $2 AND start_minute < $3 AND end_minute > $4 LIMIT 1")).
		WithArgs("office-1", day, 660, 600).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsOfficeOverlap(context.Background(), "office-1", day, 600, 660, "")

	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventExistsOverlapExcludesEvent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM events WHERE doctor_id = $1 AND date = $2 AND start_minute < $3 AND end_minute > $4 AND id <> $5 LIMIT 1")).
		WithArgs("doc-1", day, 690, 630, "ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsDoctorOverlap(context.Background(), "doc-1", day, 630, 690, "ev-1")

	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCreateSeriesSingle(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))")).
		WithArgs("branch-1", "2024-01-01").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(CAST(sequence_number AS INTEGER)), 0) + 1 FROM events WHERE branch_id = $1 AND date = $2")).
		WithArgs("branch-1", day).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(sqlmock.AnyArg(), "branch-1", "Checkup", "doc-1", day, 600, 660, nil, nil, nil, false, nil, "004", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := repo.CreateSeries(context.Background(), []models.Event{{
		BranchID:    "branch-1",
		Name:        "Checkup",
		DoctorID:    "doc-1",
		Date:        day,
		StartMinute: 600,
		EndMinute:   660,
	}})

	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "004", created[0].SequenceNumber)
	assert.NotEmpty(t, created[0].ID)
	assert.Nil(t, created[0].RepetitionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCreateSeriesRepeatingSharesRepetitionID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT nextval('event_repetition_seq')")).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))")).
		WithArgs("branch-1", "2024-01-01").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(CAST(sequence_number AS INTEGER)), 0) + 1 FROM events WHERE branch_id = $1 AND date = $2")).
		WithArgs("branch-1", first).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(sqlmock.AnyArg(), "branch-1", "Checkup", "doc-1", first, 600, 660, nil, nil, nil, true, int64(7), "001", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))")).
		WithArgs("branch-1", "2024-01-08").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(CAST(sequence_number AS INTEGER)), 0) + 1 FROM events WHERE branch_id = $1 AND date = $2")).
		WithArgs("branch-1", second).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(sqlmock.AnyArg(), "branch-1", "Checkup", "doc-1", second, 600, 660, nil, nil, nil, true, int64(7), "001", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := repo.CreateSeries(context.Background(), []models.Event{
		{BranchID: "branch-1", Name: "Checkup", DoctorID: "doc-1", Date: first, StartMinute: 600, EndMinute: 660, IsRepeating: true},
		{BranchID: "branch-1", Name: "Checkup", DoctorID: "doc-1", Date: second, StartMinute: 600, EndMinute: 660, IsRepeating: true},
	})

	require.NoError(t, err)
	require.Len(t, created, 2)
	require.NotNil(t, created[0].RepetitionID)
	require.NotNil(t, created[1].RepetitionID)
	assert.Equal(t, *created[0].RepetitionID, *created[1].RepetitionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCreateSeriesRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))")).
		WithArgs("branch-1", "2024-01-01").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(CAST(sequence_number AS INTEGER)), 0) + 1 FROM events WHERE branch_id = $1 AND date = $2")).
		WithArgs("branch-1", day).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.CreateSeries(context.Background(), []models.Event{{
		BranchID:    "branch-1",
		Name:        "Checkup",
		DoctorID:    "doc-1",
		Date:        day,
		StartMinute: 600,
		EndMinute:   660,
	}})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, branch_id, name, doctor_id, date, start_minute, end_minute, office_id, assistant_id, patient_id, is_repeating, repetition_id, sequence_number, created_at, updated_at FROM events WHERE branch_id = $1 AND doctor_id = $2 ORDER BY date, start_minute LIMIT 20 OFFSET 0")).
		WithArgs("branch-1", "doc-1").
		WillReturnRows(eventRows().AddRow("ev-1", "branch-1", "Checkup", "doc-1", day, 600, 660, nil, nil, nil, false, nil, "001", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM events WHERE branch_id = $1 AND doctor_id = $2")).
		WithArgs("branch-1", "doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	events, total, err := repo.List(context.Background(), models.EventFilter{BranchID: "branch-1", DoctorID: "doc-1"})

	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = $1")).
		WithArgs("ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "ev-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halodent/clinic-api/internal/models"
)

func staffRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "branch_id", "name", "surname", "email", "role", "active", "created_at", "updated_at"})
}

func TestStaffListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	role := models.StaffRoleDoctor
	active := true
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, branch_id, name, surname, email, role, active, created_at, updated_at FROM staff WHERE branch_id = $1 AND role = $2 AND active = $3 AND (LOWER(name) LIKE $4 OR LOWER(surname) LIKE $4 OR LOWER(email) LIKE $4) ORDER BY surname ASC LIMIT 20 OFFSET 0")).
		WithArgs("branch-1", role, active, "%holm%").
		WillReturnRows(staffRows().AddRow("stf-1", "branch-1", "Greta", "Holm", "greta@halodent.example", "doctor", true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM staff WHERE branch_id = $1 AND role = $2 AND active = $3")).
		WithArgs("branch-1", role, active, "%holm%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	staff, total, err := repo.List(context.Background(), models.StaffFilter{
		BranchID: "branch-1",
		Role:     &role,
		Active:   &active,
		Search:   "Holm",
	})

	require.NoError(t, err)
	assert.Len(t, staff, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffListByRole(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, branch_id, name, surname, email, role, active, created_at, updated_at FROM staff WHERE branch_id = $1 AND role = $2 ORDER BY surname, name")).
		WithArgs("branch-1", models.StaffRoleAssistant).
		WillReturnRows(staffRows().
			AddRow("ast-1", "branch-1", "Nora", "Berg", "nora@halodent.example", "assistant", true, now, now).
			AddRow("ast-2", "branch-1", "Pia", "Dahl", "pia@halodent.example", "assistant", false, now, now))

	staff, err := repo.ListByRole(context.Background(), "branch-1", models.StaffRoleAssistant)

	require.NoError(t, err)
	assert.Len(t, staff, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffExistsByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM staff WHERE LOWER(email) = LOWER($1) AND id <> $2 LIMIT 1")).
		WithArgs("greta@halodent.example", "stf-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsByEmail(context.Background(), "greta@halodent.example", "stf-1")

	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO staff")).
		WithArgs(sqlmock.AnyArg(), "branch-1", "Greta", "Holm", "greta@halodent.example", models.StaffRoleDoctor, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	staff := &models.Staff{
		BranchID: "branch-1",
		Name:     "Greta",
		Surname:  "Holm",
		Email:    "greta@halodent.example",
		Role:     models.StaffRoleDoctor,
		Active:   true,
	}
	require.NoError(t, repo.Create(context.Background(), staff))
	assert.NotEmpty(t, staff.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE staff SET active = FALSE, updated_at = $2 WHERE id = $1")).
		WithArgs("stf-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "stf-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

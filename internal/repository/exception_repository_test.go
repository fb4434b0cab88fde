package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiwidodo/classadmin-api/internal/models"
)

func TestExceptionRepositoryFindByScheduleAndDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExceptionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, schedule_id, date, start_time, end_time, cancelled, created_at FROM schedule_exceptions WHERE schedule_id = $1 AND date = $2")).
		WithArgs("s1", "2025-03-03").
		WillReturnRows(exceptionRows().AddRow("e1", "s1", "2025-03-03", "13:00", "14:00", false, time.Now()))

	exc, err := repo.FindByScheduleAndDate(context.Background(), "s1", "2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, "e1", exc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExceptionRepositoryFindByScheduleAndDateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExceptionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, schedule_id, date, start_time, end_time, cancelled, created_at FROM schedule_exceptions WHERE schedule_id = $1 AND date = $2")).
		WithArgs("s1", "2025-03-04").
		WillReturnRows(exceptionRows())

	_, err := repo.FindByScheduleAndDate(context.Background(), "s1", "2025-03-04")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExceptionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExceptionRepository(db)

	mock.ExpectExec("INSERT INTO schedule_exceptions").
		WithArgs(sqlmock.AnyArg(), "s1", "2025-03-03", "13:00", "14:00", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	exc := &models.ScheduleException{ScheduleID: "s1", Date: "2025-03-03", StartTime: "13:00", EndTime: "14:00"}
	require.NoError(t, repo.Create(context.Background(), exc))
	assert.NotEmpty(t, exc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExceptionRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExceptionRepository(db)

	mock.ExpectExec("INSERT INTO schedule_exceptions").
		WillReturnError(&pq.Error{Code: "23505"})

	exc := &models.ScheduleException{ScheduleID: "s1", Date: "2025-03-03", StartTime: "13:00", EndTime: "14:00"}
	err := repo.Create(context.Background(), exc)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExceptionRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExceptionRepository(db)

	mock.ExpectExec("INSERT INTO schedule_exceptions").
		WithArgs(sqlmock.AnyArg(), "s1", "2025-03-05", "09:00", "09:45", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	exc := &models.ScheduleException{ScheduleID: "s1", Date: "2025-03-05", StartTime: "09:00", EndTime: "09:45"}
	require.NoError(t, repo.Upsert(context.Background(), exc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExceptionRepositoryUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExceptionRepository(db)

	mock.ExpectExec("UPDATE schedule_exceptions SET").
		WithArgs("2025-03-03", "13:00", "14:00", false, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	exc := &models.ScheduleException{ID: "missing", Date: "2025-03-03", StartTime: "13:00", EndTime: "14:00"}
	err := repo.Update(context.Background(), exc)
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExceptionRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExceptionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_exceptions WHERE id = $1")).
		WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "e1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_exceptions WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), "missing"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(sql.ErrNoRows))
	assert.False(t, IsUniqueViolation(nil))
}

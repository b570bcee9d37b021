package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCurrentClearsOthersInOneTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_current = FALSE")).
		WithArgs(sqlmock.AnyArg(), "y2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_current = TRUE")).
		WithArgs("y2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetCurrent(context.Background(), "y2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCurrentRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("SET is_current = FALSE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET is_current = TRUE").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.SetCurrent(context.Background(), "y2")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCurrentUnknownYear(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("SET is_current = FALSE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET is_current = TRUE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetCurrent(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

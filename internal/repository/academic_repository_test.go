package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
)

func TestTermTotalsOrderedByTotal(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAcademicRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY m.student_id ORDER BY total DESC")).
		WithArgs("g1", "y1", "2").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "total", "average"}).
			AddRow("s2", "540", "90.00").
			AddRow("s1", "480", "80.00"))

	totals, err := repo.TermTotals(context.Background(), "g1", "y1", models.FeeTerm2)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "s2", totals[0].StudentID)
	assert.True(t, totals[1].Average.Equal(decimal.NewFromInt(80)))
}

func TestUpsertMarkUsesNaturalKey(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAcademicRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, subject_id, exam_id) DO UPDATE")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mark := &models.Mark{StudentID: "s1", SubjectID: "sub1", ExamID: "e1", MarksObtained: decimal.NewFromInt(72), Grade: "B"}
	require.NoError(t, repo.UpsertMark(context.Background(), mark))
	assert.NotEmpty(t, mark.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
)

func TestListBalancesOverdueImpliesUnpaid(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	today := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	due := today.AddDate(0, 0, -3)
	cols := append(append([]string{}, balanceRowColumns...), "admission_number", "student_name", "grade_name", "academic_year_name", "term")
	rows := sqlmock.NewRows(cols).
		AddRow("b1", "s1", "f1", "1000.00", "0", "1000.00", "200.00", "800.00", due, false, today, today, "ADM001", "Amina Otieno", "Grade 6", "2024", "1")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND b.is_paid = FALSE AND b.due_date < $1 ORDER BY b.due_date ASC LIMIT 10 OFFSET 0")).
		WithArgs(today).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM fee_balances b")).
		WithArgs(today).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	balances, total, err := repo.ListBalances(context.Background(), models.BalanceFilter{OverdueAt: &today, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "800.00", balances[0].Balance.StringFixed(2))
	assert.Equal(t, models.FeeTerm("1"), balances[0].Term)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStructureExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM fee_structures WHERE academic_year_id = $1 AND grade_id = $2 AND term = $3 AND id <> $4 LIMIT 1")).
		WithArgs("y1", "g1", "annual", "f9").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	exists, err := repo.StructureExists(context.Background(), "y1", "g1", models.FeeTermAnnual, "f9")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCollectedSince(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE payment_status = 'completed'")).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("1500.50"))

	total, err := repo.CollectedSince(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "1500.50", total.StringFixed(2))
}

func TestMethodBreakdown(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("GROUP BY payment_method").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"payment_method", "count", "total"}).
			AddRow("cash", 3, "900.00").
			AddRow("mobile_money", 1, "100.00"))

	rows, err := repo.MethodBreakdown(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.PaymentCash, rows[0].Method)
}

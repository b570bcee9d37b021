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

var studentRowColumns = []string{"id", "admission_number", "first_name", "middle_name", "last_name", "date_of_birth", "gender", "grade_id", "grade_name",
	"admission_date", "status", "scholarship_status", "scholarship_percentage", "scholarship_remarks", "email", "phone", "address",
	"guardian_name", "guardian_relationship", "guardian_phone", "guardian_email", "guardian_address",
	"blood_group", "allergies", "medical_conditions", "emergency_contact_name", "emergency_contact_phone",
	"birth_certificate", "previous_report_card", "transfer_certificate", "other_documents", "photo", "created_at", "updated_at"}

func studentRow(rows *sqlmock.Rows, id, admission, scholarship, pct string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, admission, "Amina", "", "Otieno", now.AddDate(-12, 0, 0), "F", "g1", "Grade 6",
		now, "active", scholarship, pct, "", "", "", "",
		"Grace", "mother", "0700", "", "",
		"O+", "", "", "", "",
		nil, nil, nil, nil, nil, now, now)
}

func TestStudentRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := studentRow(sqlmock.NewRows(studentRowColumns), "s1", "ADM001", "partial", "50.00")
	mock.ExpectQuery(regexp.QuoteMeta("FROM students s LEFT JOIN grades g ON g.id = s.grade_id WHERE 1=1 AND (LOWER(s.admission_number) LIKE $1 OR LOWER(s.first_name) LIKE $1 OR LOWER(s.last_name) LIKE $1 OR LOWER(s.guardian_name) LIKE $1) AND s.scholarship_status = $2 ORDER BY s.admission_number ASC LIMIT 20 OFFSET 0")).
		WithArgs("%amina%", "partial").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s LEFT JOIN grades g")).
		WithArgs("%amina%", "partial").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Search: "Amina", Scholarship: "partial"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "50.00", students[0].ScholarshipPercentage.StringFixed(2))
	assert.True(t, students[0].HasScholarship())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateDocumentRejectsUnknownColumn(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	err := repo.UpdateDocument(context.Background(), "s1", models.StudentDocument("password_hash"), "x")
	require.Error(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET photo = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("s1", "students/s1/photo.png", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateDocument(context.Background(), "s1", models.DocumentPhoto, "students/s1/photo.png"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryScholarshipStats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("FILTER \\(WHERE scholarship_status = 'full'\\)").
		WillReturnRows(sqlmock.NewRows([]string{"total", "full", "partial", "none"}).AddRow(10, 2, 3, 5))

	stats, err := repo.ScholarshipStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 3, stats.Partial)
}

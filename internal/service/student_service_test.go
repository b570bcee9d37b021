package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type mockStudentRepo struct {
	students   map[string]*models.Student
	lastFilter models.StudentFilter
	documents  map[string]string
}

func newMockStudentRepo(students ...models.Student) *mockStudentRepo {
	m := &mockStudentRepo{students: map[string]*models.Student{}, documents: map[string]string{}}
	for i := range students {
		s := students[i]
		m.students[s.ID] = &s
	}
	return m
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	m.lastFilter = filter
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *mockStudentRepo) ExistsByAdmissionNumber(ctx context.Context, number string, excludeID string) (bool, error) {
	for id, s := range m.students {
		if s.AdmissionNumber == number && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "generated"
	}
	cp := *student
	m.students[student.ID] = &cp
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	cp := *student
	m.students[student.ID] = &cp
	return nil
}

func (m *mockStudentRepo) UpdateScholarship(ctx context.Context, student *models.Student) error {
	return m.Update(ctx, student)
}

func (m *mockStudentRepo) UpdateDocument(ctx context.Context, id string, doc models.StudentDocument, path string) error {
	m.documents[id+"/"+string(doc)] = path
	return nil
}

func (m *mockStudentRepo) ScholarshipStats(ctx context.Context) (*models.ScholarshipStats, error) {
	stats := &models.ScholarshipStats{}
	for _, s := range m.students {
		stats.Total++
		switch s.ScholarshipStatus {
		case models.ScholarshipFull:
			stats.Full++
		case models.ScholarshipPartial:
			stats.Partial++
		default:
			stats.None++
		}
	}
	return stats, nil
}

type stubLedgerReader struct {
	balances []models.FeeBalanceView
	payments []models.FeePaymentView
	totals   models.LedgerTotals
}

func (s *stubLedgerReader) ListBalances(ctx context.Context, filter models.BalanceFilter) ([]models.FeeBalanceView, int, error) {
	return s.balances, len(s.balances), nil
}

func (s *stubLedgerReader) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.FeePaymentView, int, error) {
	return s.payments, len(s.payments), nil
}

func (s *stubLedgerReader) StudentTotals(ctx context.Context, studentID string) (*models.LedgerTotals, error) {
	totals := s.totals
	return &totals, nil
}

type recordingRecalculator struct {
	calls []string
}

func (r *recordingRecalculator) RecalculateStudentBalances(ctx context.Context, studentID string) ([]models.FeeBalance, error) {
	r.calls = append(r.calls, studentID)
	return []models.FeeBalance{{ID: "b1", StudentID: studentID}}, nil
}

func validStudentRequest(admission string) StudentRequest {
	return StudentRequest{
		AdmissionNumber: admission,
		FirstName:       "Amina",
		LastName:        "Odhiambo",
		DateOfBirth:     time.Date(2012, 4, 2, 0, 0, 0, 0, time.UTC),
		Gender:          "F",
		AdmissionDate:   time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		GuardianName:    "Joy Odhiambo",
		GuardianPhone:   "0700000000",
	}
}

func newTestStudentService(repo *mockStudentRepo) (*StudentService, *recordingRecalculator, *memoryBlobStore) {
	recalc := &recordingRecalculator{}
	blobs := &memoryBlobStore{}
	uploads := NewUploadService(blobs, UploadConfig{MaxFileSize: 1024}, nil)
	ledger := &stubLedgerReader{totals: models.LedgerTotals{Outstanding: decimal.NewFromInt(200)}}
	return NewStudentService(repo, ledger, recalc, uploads, nil, nil), recalc, blobs
}

func TestStudentServiceCreateDefaults(t *testing.T) {
	repo := newMockStudentRepo()
	svc, _, _ := newTestStudentService(repo)

	student, err := svc.Create(context.Background(), validStudentRequest(" ADM-1 "))
	require.NoError(t, err)
	assert.Equal(t, "ADM-1", student.AdmissionNumber)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.Equal(t, models.ScholarshipNone, student.ScholarshipStatus)
	assert.False(t, student.HasScholarship())
}

func TestStudentServiceCreateDuplicateAdmission(t *testing.T) {
	repo := newMockStudentRepo(models.Student{ID: "s1", AdmissionNumber: "ADM-1"})
	svc, _, _ := newTestStudentService(repo)

	_, err := svc.Create(context.Background(), validStudentRequest("ADM-1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Update(context.Background(), "s1", validStudentRequest("ADM-1"))
	require.NoError(t, err)
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc, _, _ := newTestStudentService(newMockStudentRepo())
	req := validStudentRequest("ADM-2")
	req.Gender = "X"

	_, err := svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestStudentServiceScholarshipRecalculatesOnRequest(t *testing.T) {
	repo := newMockStudentRepo(models.Student{ID: "s1", ScholarshipStatus: models.ScholarshipNone})
	svc, recalc, _ := newTestStudentService(repo)
	ctx := context.Background()

	res, err := svc.UpdateScholarship(ctx, "s1", ScholarshipRequest{Status: "partial", Percentage: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.Equal(t, "50", res.Student.ScholarshipPercentage.String())
	assert.Empty(t, recalc.calls)
	assert.Empty(t, res.Balances)

	res, err = svc.UpdateScholarship(ctx, "s1", ScholarshipRequest{Status: "full", Percentage: decimal.NewFromInt(10), Recalculate: true})
	require.NoError(t, err)
	assert.Equal(t, "100", res.Student.ScholarshipPercentage.String())
	assert.Equal(t, []string{"s1"}, recalc.calls)
	assert.Len(t, res.Balances, 1)
}

func TestStudentServiceScholarshipRejectsOutOfRange(t *testing.T) {
	repo := newMockStudentRepo(models.Student{ID: "s1"})
	svc, _, _ := newTestStudentService(repo)

	_, err := svc.UpdateScholarship(context.Background(), "s1", ScholarshipRequest{Status: "partial", Percentage: decimal.NewFromInt(120)})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.UpdateScholarship(context.Background(), "s1", ScholarshipRequest{Status: "gold"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestStudentServiceDetail(t *testing.T) {
	repo := newMockStudentRepo(models.Student{ID: "s1"})
	svc, _, _ := newTestStudentService(repo)

	detail, err := svc.Detail(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", detail.Student.ID)
	assert.Equal(t, "200", detail.Totals.Outstanding.String())

	_, err = svc.Detail(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceUploadDocumentReplacesPrevious(t *testing.T) {
	old := "students/2023/01/old.pdf"
	repo := newMockStudentRepo(models.Student{ID: "s1", BirthCertificate: &old})
	svc, _, blobs := newTestStudentService(repo)

	student, err := svc.UploadDocument(context.Background(), "s1", models.DocumentBirthCertificate, "cert.pdf", strings.NewReader("pdf"))
	require.NoError(t, err)
	require.NotNil(t, student.BirthCertificate)
	assert.True(t, strings.HasPrefix(*student.BirthCertificate, "students/"))
	assert.Equal(t, *student.BirthCertificate, repo.documents["s1/birth_certificate"])
	assert.Equal(t, []string{old}, blobs.deleted)

	_, err = svc.UploadDocument(context.Background(), "s1", "passport", "p.pdf", strings.NewReader("pdf"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestStudentServiceListRejectsUnknownScholarshipFilter(t *testing.T) {
	svc, _, _ := newTestStudentService(newMockStudentRepo())
	_, _, err := svc.List(context.Background(), models.StudentFilter{Scholarship: "gold"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/export"
)

type fakeYearRepo struct {
	years  map[string]*models.AcademicYear
	grades map[string]*models.Grade
}

func newFakeYearRepo() *fakeYearRepo {
	return &fakeYearRepo{
		years: map[string]*models.AcademicYear{
			"y1": {ID: "y1", Name: "2024", IsCurrent: true},
			"y0": {ID: "y0", Name: "2023"},
		},
		grades: map[string]*models.Grade{"g1": {ID: "g1", Name: "Grade 1", Level: 1}},
	}
}

func (f *fakeYearRepo) List(ctx context.Context) ([]models.AcademicYear, error) {
	out := make([]models.AcademicYear, 0, len(f.years))
	for _, y := range f.years {
		out = append(out, *y)
	}
	return out, nil
}

func (f *fakeYearRepo) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	y, ok := f.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *y
	return &cp, nil
}

func (f *fakeYearRepo) FindCurrent(ctx context.Context) (*models.AcademicYear, error) {
	for _, y := range f.years {
		if y.IsCurrent {
			cp := *y
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeYearRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	for _, y := range f.years {
		if y.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeYearRepo) Create(ctx context.Context, year *models.AcademicYear) error {
	year.ID = "y-" + year.Name
	cp := *year
	f.years[year.ID] = &cp
	return nil
}

func (f *fakeYearRepo) SetCurrent(ctx context.Context, id string) error {
	for key, y := range f.years {
		y.IsCurrent = key == id
	}
	return nil
}

func (f *fakeYearRepo) ListGrades(ctx context.Context) ([]models.Grade, error) {
	out := make([]models.Grade, 0, len(f.grades))
	for _, g := range f.grades {
		out = append(out, *g)
	}
	return out, nil
}

func (f *fakeYearRepo) FindGrade(ctx context.Context, id string) (*models.Grade, error) {
	g, ok := f.grades[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return g, nil
}

func (f *fakeYearRepo) CreateGrade(ctx context.Context, grade *models.Grade) error {
	grade.ID = "g-" + grade.Name
	f.grades[grade.ID] = grade
	return nil
}

type fakeFeeRepo struct {
	structures  map[string]*models.FeeStructure
	payment     *models.FeePaymentView
	lastBalance models.BalanceFilter
	listedYear  string
}

func (f *fakeFeeRepo) ListStructures(ctx context.Context, academicYearID string) ([]models.FeeStructure, error) {
	f.listedYear = academicYearID
	var out []models.FeeStructure
	for _, fs := range f.structures {
		if fs.AcademicYearID == academicYearID {
			out = append(out, *fs)
		}
	}
	return out, nil
}

func (f *fakeFeeRepo) FindStructure(ctx context.Context, id string) (*models.FeeStructure, error) {
	fs, ok := f.structures[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *fs
	return &cp, nil
}

func (f *fakeFeeRepo) StructureExists(ctx context.Context, academicYearID, gradeID string, term models.FeeTerm, excludeID string) (bool, error) {
	for id, fs := range f.structures {
		if id != excludeID && fs.AcademicYearID == academicYearID && fs.GradeID == gradeID && fs.Term == term {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFeeRepo) CreateStructure(ctx context.Context, structure *models.FeeStructure) error {
	structure.ID = "fs-new"
	cp := *structure
	f.structures[structure.ID] = &cp
	return nil
}

func (f *fakeFeeRepo) UpdateStructure(ctx context.Context, structure *models.FeeStructure) error {
	cp := *structure
	f.structures[structure.ID] = &cp
	return nil
}

func (f *fakeFeeRepo) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.FeePaymentView, int, error) {
	return nil, 0, nil
}

func (f *fakeFeeRepo) FindPayment(ctx context.Context, id string) (*models.FeePaymentView, error) {
	if f.payment == nil || f.payment.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.payment, nil
}

func (f *fakeFeeRepo) ListBalances(ctx context.Context, filter models.BalanceFilter) ([]models.FeeBalanceView, int, error) {
	f.lastBalance = filter
	return nil, 0, nil
}

type capturingRenderer struct {
	doc export.Document
}

func (c *capturingRenderer) RenderDocument(doc export.Document) ([]byte, error) {
	c.doc = doc
	return []byte("%PDF"), nil
}

func newTestFeeService() (*FeeService, *fakeYearRepo, *fakeFeeRepo, *capturingRenderer) {
	years := newFakeYearRepo()
	fees := &fakeFeeRepo{structures: map[string]*models.FeeStructure{
		"fs1": {ID: "fs1", AcademicYearID: "y1", GradeID: "g1", Term: models.FeeTerm1, TuitionFee: decimal.NewFromInt(800), IsActive: true},
	}}
	pdf := &capturingRenderer{}
	svc := NewFeeService(years, fees, pdf, "KES", nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return svc, years, fees, pdf
}

func TestFeeServiceSetCurrentYearIsExclusive(t *testing.T) {
	svc, years, _, _ := newTestFeeService()

	year, err := svc.SetCurrentYear(context.Background(), "y0")
	require.NoError(t, err)
	assert.True(t, year.IsCurrent)
	assert.True(t, years.years["y0"].IsCurrent)
	assert.False(t, years.years["y1"].IsCurrent)

	_, err = svc.SetCurrentYear(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestFeeServiceCreateYear(t *testing.T) {
	svc, years, _, _ := newTestFeeService()
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	year, err := svc.CreateYear(context.Background(), AcademicYearRequest{Name: "2025", StartDate: start, EndDate: start.AddDate(0, 11, 0), IsCurrent: true})
	require.NoError(t, err)
	assert.True(t, year.IsCurrent)
	assert.False(t, years.years["y1"].IsCurrent)

	_, err = svc.CreateYear(context.Background(), AcademicYearRequest{Name: "2024", StartDate: start, EndDate: start.AddDate(1, 0, 0)})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.CreateYear(context.Background(), AcademicYearRequest{Name: "2026", StartDate: start, EndDate: start})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestFeeServiceStructureUniqueness(t *testing.T) {
	svc, _, fees, _ := newTestFeeService()
	ctx := context.Background()
	req := FeeStructureRequest{AcademicYearID: "y1", GradeID: "g1", Term: models.FeeTerm1, TuitionFee: decimal.NewFromInt(900)}

	_, err := svc.CreateStructure(ctx, req)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	req.Term = models.FeeTerm2
	req.LibraryFee = decimal.RequireFromString("100.005")
	created, err := svc.CreateStructure(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "1000.01", created.TotalFee.StringFixed(2))
	assert.True(t, fees.structures["fs-new"].IsActive)

	req.Term = models.FeeTerm1
	updated, err := svc.UpdateStructure(ctx, "fs1", req)
	require.NoError(t, err, "updating a structure keeps its own triple")
	assert.Equal(t, "900", updated.TuitionFee.String())
}

func TestFeeServiceStructureValidation(t *testing.T) {
	svc, _, _, _ := newTestFeeService()
	ctx := context.Background()

	_, err := svc.CreateStructure(ctx, FeeStructureRequest{AcademicYearID: "y1", GradeID: "g1", Term: "4"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateStructure(ctx, FeeStructureRequest{AcademicYearID: "y1", GradeID: "g1", Term: models.FeeTerm3, TuitionFee: decimal.NewFromInt(-1)})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateStructure(ctx, FeeStructureRequest{AcademicYearID: "nope", GradeID: "g1", Term: models.FeeTerm3})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestFeeServiceListStructuresDefaultsToCurrentYear(t *testing.T) {
	svc, _, fees, _ := newTestFeeService()

	items, err := svc.ListStructures(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "y1", fees.listedYear)
	require.Len(t, items, 1)
	assert.Equal(t, "800", items[0].TotalFee.String())
}

func TestFeeServiceDefaultersFilter(t *testing.T) {
	svc, _, fees, _ := newTestFeeService()

	_, _, err := svc.Defaulters(context.Background(), models.BalanceFilter{GradeID: "g1"})
	require.NoError(t, err)
	assert.True(t, fees.lastBalance.UnpaidOnly)
	require.NotNil(t, fees.lastBalance.OverdueAt)
	assert.Equal(t, 2024, fees.lastBalance.OverdueAt.Year())
	assert.Equal(t, "g1", fees.lastBalance.GradeID)
}

func TestFeeServiceReceipt(t *testing.T) {
	svc, _, fees, pdf := newTestFeeService()
	fees.payment = &models.FeePaymentView{
		FeePayment: models.FeePayment{ID: "p1", ReceiptNumber: "R-001", AmountPaid: decimal.NewFromInt(300), PaymentMethod: models.PaymentCash, PaymentStatus: models.PaymentCompleted},
		StudentName: "Amina Odhiambo",
		Term:        models.FeeTerm1,
	}

	content, name, err := svc.Receipt(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "receipt-R-001.pdf", name)
	assert.Equal(t, []byte("%PDF"), content)
	assert.Contains(t, pdf.doc.Fields, export.Field{Label: "Amount", Value: "KES 300.00"})
	assert.Contains(t, pdf.doc.Fields, export.Field{Label: "Term", Value: "Term 1"})

	_, _, err = svc.Receipt(context.Background(), "p2")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/export"
	"github.com/noah-isme/school-admin-api/pkg/money"
)

type academicYearRepository interface {
	List(ctx context.Context) ([]models.AcademicYear, error)
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	FindCurrent(ctx context.Context) (*models.AcademicYear, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	SetCurrent(ctx context.Context, id string) error
	ListGrades(ctx context.Context) ([]models.Grade, error)
	FindGrade(ctx context.Context, id string) (*models.Grade, error)
	CreateGrade(ctx context.Context, grade *models.Grade) error
}

type feeRepository interface {
	ListStructures(ctx context.Context, academicYearID string) ([]models.FeeStructure, error)
	FindStructure(ctx context.Context, id string) (*models.FeeStructure, error)
	StructureExists(ctx context.Context, academicYearID, gradeID string, term models.FeeTerm, excludeID string) (bool, error)
	CreateStructure(ctx context.Context, structure *models.FeeStructure) error
	UpdateStructure(ctx context.Context, structure *models.FeeStructure) error
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.FeePaymentView, int, error)
	FindPayment(ctx context.Context, id string) (*models.FeePaymentView, error)
	ListBalances(ctx context.Context, filter models.BalanceFilter) ([]models.FeeBalanceView, int, error)
}

type documentRenderer interface {
	RenderDocument(doc export.Document) ([]byte, error)
}

// AcademicYearRequest creates an academic year.
type AcademicYearRequest struct {
	Name      string    `json:"name" validate:"required,max=20"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	IsCurrent bool      `json:"is_current"`
}

// GradeRequest creates a grade.
type GradeRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Level       int    `json:"level" validate:"required,min=1"`
	Description string `json:"description"`
}

// FeeStructureRequest creates or updates a fee structure. Missing components
// default to zero.
type FeeStructureRequest struct {
	AcademicYearID  string          `json:"academic_year_id" validate:"required"`
	GradeID         string          `json:"grade_id" validate:"required"`
	Term            models.FeeTerm  `json:"term" validate:"required"`
	TuitionFee      decimal.Decimal `json:"tuition_fee"`
	RegistrationFee decimal.Decimal `json:"registration_fee"`
	LibraryFee      decimal.Decimal `json:"library_fee"`
	SportsFee       decimal.Decimal `json:"sports_fee"`
	LabFee          decimal.Decimal `json:"lab_fee"`
	TransportFee    decimal.Decimal `json:"transport_fee"`
	UniformFee      decimal.Decimal `json:"uniform_fee"`
	ExamFee         decimal.Decimal `json:"exam_fee"`
	OtherFee        decimal.Decimal `json:"other_fee"`
	Description     string          `json:"description"`
	IsActive        *bool           `json:"is_active"`
}

// FeeStructureView adds the derived total to a structure.
type FeeStructureView struct {
	models.FeeStructure
	TotalFee decimal.Decimal `json:"total_fee"`
}

// FeeService manages academic years, grades, fee structures and ledger reads.
type FeeService struct {
	years     academicYearRepository
	fees      feeRepository
	pdf       documentRenderer
	currency  string
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewFeeService constructs the fee administration service.
func NewFeeService(years academicYearRepository, fees feeRepository, pdf documentRenderer, currency string, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &FeeService{years: years, fees: fees, pdf: pdf, currency: currency, validator: validate, logger: logger, now: time.Now}
}

// ListYears returns all academic years, newest first.
func (s *FeeService) ListYears(ctx context.Context) ([]models.AcademicYear, error) {
	years, err := s.years.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list academic years")
	}
	return years, nil
}

// CurrentYear returns the flagged current year.
func (s *FeeService) CurrentYear(ctx context.Context) (*models.AcademicYear, error) {
	year, err := s.years.FindCurrent(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no current academic year")
		}
		return nil, appErrors.Internal(err, "failed to load current academic year")
	}
	return year, nil
}

// CreateYear adds an academic year, optionally making it current.
func (s *FeeService) CreateYear(ctx context.Context, req AcademicYearRequest) (*models.AcademicYear, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid academic year payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	exists, err := s.years.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to validate academic year")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "academic year already exists")
	}
	year := &models.AcademicYear{Name: req.Name, StartDate: req.StartDate, EndDate: req.EndDate}
	if err := s.years.Create(ctx, year); err != nil {
		return nil, appErrors.Internal(err, "failed to create academic year")
	}
	if req.IsCurrent {
		return s.SetCurrentYear(ctx, year.ID)
	}
	return year, nil
}

// SetCurrentYear flags id as the only current academic year.
func (s *FeeService) SetCurrentYear(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, err := s.years.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Internal(err, "failed to load academic year")
	}
	if err := s.years.SetCurrent(ctx, id); err != nil {
		return nil, appErrors.Internal(err, "failed to set current academic year")
	}
	year.IsCurrent = true
	s.logger.Info("current academic year changed", zap.String("academic_year_id", id), zap.String("name", year.Name))
	return year, nil
}

// ListGrades returns grades ordered by level.
func (s *FeeService) ListGrades(ctx context.Context) ([]models.Grade, error) {
	grades, err := s.years.ListGrades(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list grades")
	}
	return grades, nil
}

// CreateGrade adds a grade.
func (s *FeeService) CreateGrade(ctx context.Context, req GradeRequest) (*models.Grade, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid grade payload")
	}
	grade := &models.Grade{Name: req.Name, Level: req.Level, Description: req.Description}
	if err := s.years.CreateGrade(ctx, grade); err != nil {
		return nil, appErrors.Internal(err, "failed to create grade")
	}
	return grade, nil
}

// ListStructures returns fee structures for a year, or the current year when
// yearID is empty.
func (s *FeeService) ListStructures(ctx context.Context, yearID string) ([]FeeStructureView, error) {
	if yearID == "" {
		year, err := s.years.FindCurrent(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to load current academic year")
		}
		if year != nil {
			yearID = year.ID
		}
	}
	structures, err := s.fees.ListStructures(ctx, yearID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list fee structures")
	}
	out := make([]FeeStructureView, 0, len(structures))
	for _, fs := range structures {
		out = append(out, FeeStructureView{FeeStructure: fs, TotalFee: fs.TotalFee()})
	}
	return out, nil
}

// GetStructure returns one fee structure with its total.
func (s *FeeService) GetStructure(ctx context.Context, id string) (*FeeStructureView, error) {
	fs, err := s.fees.FindStructure(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee structure not found")
		}
		return nil, appErrors.Internal(err, "failed to load fee structure")
	}
	return &FeeStructureView{FeeStructure: *fs, TotalFee: fs.TotalFee()}, nil
}

// CreateStructure adds a fee structure. A (year, grade, term) triple may only
// have one structure.
func (s *FeeService) CreateStructure(ctx context.Context, req FeeStructureRequest) (*FeeStructureView, error) {
	if err := s.validateStructure(ctx, req, ""); err != nil {
		return nil, err
	}
	fs := &models.FeeStructure{IsActive: true}
	applyStructureRequest(fs, req)
	if err := s.fees.CreateStructure(ctx, fs); err != nil {
		return nil, appErrors.Internal(err, "failed to create fee structure")
	}
	return &FeeStructureView{FeeStructure: *fs, TotalFee: fs.TotalFee()}, nil
}

// UpdateStructure edits a fee structure. Existing balances keep their
// snapshot totals until synced.
func (s *FeeService) UpdateStructure(ctx context.Context, id string, req FeeStructureRequest) (*FeeStructureView, error) {
	current, err := s.GetStructure(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateStructure(ctx, req, id); err != nil {
		return nil, err
	}
	fs := current.FeeStructure
	applyStructureRequest(&fs, req)
	if err := s.fees.UpdateStructure(ctx, &fs); err != nil {
		return nil, appErrors.Internal(err, "failed to update fee structure")
	}
	return &FeeStructureView{FeeStructure: fs, TotalFee: fs.TotalFee()}, nil
}

// ListPayments returns payments with pagination metadata.
func (s *FeeService) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.FeePaymentView, *models.Pagination, error) {
	payments, total, err := s.fees.ListPayments(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list payments")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return payments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetPayment returns one payment.
func (s *FeeService) GetPayment(ctx context.Context, id string) (*models.FeePaymentView, error) {
	payment, err := s.fees.FindPayment(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Internal(err, "failed to load payment")
	}
	return payment, nil
}

// Receipt renders a payment receipt as PDF.
func (s *FeeService) Receipt(ctx context.Context, id string) ([]byte, string, error) {
	payment, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, "", err
	}
	receivedBy := "-"
	if payment.ReceivedByName != nil {
		receivedBy = *payment.ReceivedByName
	}
	doc := export.Document{
		Title:    "Payment Receipt",
		Subtitle: "Receipt No. " + payment.ReceiptNumber,
		Fields: []export.Field{
			{Label: "Student", Value: payment.StudentName},
			{Label: "Admission No.", Value: payment.AdmissionNumber},
			{Label: "Academic Year", Value: payment.AcademicYearName},
			{Label: "Term", Value: payment.Term.Label()},
			{Label: "Amount", Value: strings.TrimSpace(s.currency + " " + money.Format(payment.AmountPaid))},
			{Label: "Method", Value: string(payment.PaymentMethod)},
			{Label: "Status", Value: string(payment.PaymentStatus)},
			{Label: "Date", Value: payment.PaymentDate.Format("2006-01-02")},
			{Label: "Received By", Value: receivedBy},
		},
	}
	if payment.TransactionReference != "" {
		doc.Fields = append(doc.Fields, export.Field{Label: "Reference", Value: payment.TransactionReference})
	}
	if payment.Remarks != "" {
		doc.Notes = []string{payment.Remarks}
	}
	content, err := s.pdf.RenderDocument(doc)
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to render receipt")
	}
	return content, "receipt-" + payment.ReceiptNumber + ".pdf", nil
}

// ListBalances returns balances with pagination metadata.
func (s *FeeService) ListBalances(ctx context.Context, filter models.BalanceFilter) ([]models.FeeBalanceView, *models.Pagination, error) {
	balances, total, err := s.fees.ListBalances(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list balances")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return balances, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Defaulters lists unpaid balances whose due date has passed.
func (s *FeeService) Defaulters(ctx context.Context, filter models.BalanceFilter) ([]models.FeeBalanceView, *models.Pagination, error) {
	now := s.now().UTC()
	filter.UnpaidOnly = true
	filter.OverdueAt = &now
	return s.ListBalances(ctx, filter)
}

func (s *FeeService) validateStructure(ctx context.Context, req FeeStructureRequest, excludeID string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid fee structure payload")
	}
	if !req.Term.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown term")
	}
	for _, amount := range structureComponents(req) {
		if amount.IsNegative() {
			return appErrors.Clone(appErrors.ErrValidation, "fee components cannot be negative")
		}
	}
	if _, err := s.years.FindByID(ctx, req.AcademicYearID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "academic year not found")
		}
		return appErrors.Internal(err, "failed to load academic year")
	}
	if _, err := s.years.FindGrade(ctx, req.GradeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "grade not found")
		}
		return appErrors.Internal(err, "failed to load grade")
	}
	exists, err := s.fees.StructureExists(ctx, req.AcademicYearID, req.GradeID, req.Term, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate fee structure")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "fee structure already exists for this year, grade and term")
	}
	return nil
}

func structureComponents(req FeeStructureRequest) []decimal.Decimal {
	return []decimal.Decimal{req.TuitionFee, req.RegistrationFee, req.LibraryFee, req.SportsFee, req.LabFee,
		req.TransportFee, req.UniformFee, req.ExamFee, req.OtherFee}
}

func applyStructureRequest(fs *models.FeeStructure, req FeeStructureRequest) {
	fs.AcademicYearID = req.AcademicYearID
	fs.GradeID = req.GradeID
	fs.Term = req.Term
	fs.TuitionFee = money.Round(req.TuitionFee)
	fs.RegistrationFee = money.Round(req.RegistrationFee)
	fs.LibraryFee = money.Round(req.LibraryFee)
	fs.SportsFee = money.Round(req.SportsFee)
	fs.LabFee = money.Round(req.LabFee)
	fs.TransportFee = money.Round(req.TransportFee)
	fs.UniformFee = money.Round(req.UniformFee)
	fs.ExamFee = money.Round(req.ExamFee)
	fs.OtherFee = money.Round(req.OtherFee)
	fs.Description = req.Description
	if req.IsActive != nil {
		fs.IsActive = *req.IsActive
	}
}

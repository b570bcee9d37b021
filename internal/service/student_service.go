package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByAdmissionNumber(ctx context.Context, number string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	UpdateScholarship(ctx context.Context, student *models.Student) error
	UpdateDocument(ctx context.Context, id string, doc models.StudentDocument, path string) error
	ScholarshipStats(ctx context.Context) (*models.ScholarshipStats, error)
}

type studentLedgerReader interface {
	ListBalances(ctx context.Context, filter models.BalanceFilter) ([]models.FeeBalanceView, int, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.FeePaymentView, int, error)
	StudentTotals(ctx context.Context, studentID string) (*models.LedgerTotals, error)
}

type balanceRecalculator interface {
	RecalculateStudentBalances(ctx context.Context, studentID string) ([]models.FeeBalance, error)
}

// StudentRequest holds the payload for creating or updating students.
type StudentRequest struct {
	AdmissionNumber       string               `json:"admission_number" validate:"required,max=20"`
	FirstName             string               `json:"first_name" validate:"required,max=100"`
	MiddleName            string               `json:"middle_name" validate:"max=100"`
	LastName              string               `json:"last_name" validate:"required,max=100"`
	DateOfBirth           time.Time            `json:"date_of_birth" validate:"required"`
	Gender                string               `json:"gender" validate:"required,oneof=M F"`
	GradeID               *string              `json:"grade_id"`
	AdmissionDate         time.Time            `json:"admission_date" validate:"required"`
	Status                models.StudentStatus `json:"status" validate:"omitempty,oneof=active graduated transferred suspended expelled"`
	Email                 string               `json:"email" validate:"omitempty,email"`
	Phone                 string               `json:"phone"`
	Address               string               `json:"address"`
	GuardianName          string               `json:"guardian_name" validate:"required"`
	GuardianRelationship  string               `json:"guardian_relationship"`
	GuardianPhone         string               `json:"guardian_phone" validate:"required"`
	GuardianEmail         string               `json:"guardian_email" validate:"omitempty,email"`
	GuardianAddress       string               `json:"guardian_address"`
	BloodGroup            string               `json:"blood_group"`
	Allergies             string               `json:"allergies"`
	MedicalConditions     string               `json:"medical_conditions"`
	EmergencyContactName  string               `json:"emergency_contact_name"`
	EmergencyContactPhone string               `json:"emergency_contact_phone"`
}

// ScholarshipRequest changes a student's scholarship. Recalculate asks for the
// student's balances to be recomputed in the same call.
type ScholarshipRequest struct {
	Status      string          `json:"scholarship_status" validate:"required"`
	Percentage  decimal.Decimal `json:"scholarship_percentage"`
	Remarks     string          `json:"scholarship_remarks"`
	Recalculate bool            `json:"recalculate_balances"`
}

// StudentDetail is the student page: profile plus the fee ledger.
type StudentDetail struct {
	Student  *models.Student         `json:"student"`
	Balances []models.FeeBalanceView `json:"balances"`
	Payments []models.FeePaymentView `json:"payments"`
	Totals   *models.LedgerTotals    `json:"totals"`
}

// ScholarshipResult reports the updated student and any recomputed balances.
type ScholarshipResult struct {
	Student  *models.Student     `json:"student"`
	Balances []models.FeeBalance `json:"balances,omitempty"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	ledger    studentLedgerReader
	balances  balanceRecalculator
	uploads   documentStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, ledger studentLedgerReader, balances balanceRecalculator, uploads documentStore, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, ledger: ledger, balances: balances, uploads: uploads, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Scholarship != "" {
		if _, err := models.ParseScholarshipStatus(filter.Scholarship); err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ScholarshipStats counts active students per scholarship status.
func (s *StudentService) ScholarshipStats(ctx context.Context) (*models.ScholarshipStats, error) {
	stats, err := s.repo.ScholarshipStats(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load scholarship stats")
	}
	return stats, nil
}

// Get returns a student without ledger data.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

// Detail returns the student with balances, payments and totals.
func (s *StudentService) Detail(ctx context.Context, id string) (*StudentDetail, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	balances, _, err := s.ledger.ListBalances(ctx, models.BalanceFilter{StudentID: id, PageSize: 100})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load balances")
	}
	payments, _, err := s.ledger.ListPayments(ctx, models.PaymentFilter{StudentID: id, PageSize: 100})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load payments")
	}
	totals, err := s.ledger.StudentTotals(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load totals")
	}
	return &StudentDetail{Student: student, Balances: balances, Payments: payments, Totals: totals}, nil
}

// Create registers a new student without a scholarship.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	req.AdmissionNumber = strings.TrimSpace(req.AdmissionNumber)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	if err := s.ensureAdmissionNumber(ctx, req.AdmissionNumber, ""); err != nil {
		return nil, err
	}
	student := &models.Student{ScholarshipStatus: models.ScholarshipNone, ScholarshipPercentage: decimal.Zero}
	applyStudentRequest(student, req)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to create student")
	}
	return student, nil
}

// Update modifies identity, contact, guardian and medical fields.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	req.AdmissionNumber = strings.TrimSpace(req.AdmissionNumber)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAdmissionNumber(ctx, req.AdmissionNumber, id); err != nil {
		return nil, err
	}
	applyStudentRequest(student, req)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to update student")
	}
	return student, nil
}

// UpdateScholarship changes scholarship fields. Balances are only recomputed
// when the caller asks for it.
func (s *StudentService) UpdateScholarship(ctx context.Context, id string, req ScholarshipRequest) (*ScholarshipResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid scholarship payload")
	}
	status, err := models.ParseScholarshipStatus(req.Status)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	pct := req.Percentage
	if pct.IsNegative() || pct.GreaterThan(hundredPercent) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scholarship percentage must be between 0 and 100")
	}
	switch status {
	case models.ScholarshipNone:
		pct = decimal.Zero
	case models.ScholarshipFull:
		pct = hundredPercent
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student.ScholarshipStatus = status
	student.ScholarshipPercentage = pct.Round(2)
	student.ScholarshipRemarks = req.Remarks
	if err := s.repo.UpdateScholarship(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to update scholarship")
	}

	result := &ScholarshipResult{Student: student}
	if req.Recalculate {
		balances, err := s.balances.RecalculateStudentBalances(ctx, id)
		if err != nil {
			return nil, err
		}
		result.Balances = balances
		s.logger.Info("student balances recalculated", zap.String("student_id", id), zap.Int("balances", len(balances)))
	}
	return result, nil
}

// UploadDocument stores a file into one of the student's document slots.
func (s *StudentService) UploadDocument(ctx context.Context, id string, doc models.StudentDocument, filename string, content io.Reader) (*models.Student, error) {
	if !doc.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown document type")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	stored, err := s.uploads.Store(UploadStudents, filename, content)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateDocument(ctx, id, doc, stored); err != nil {
		s.uploads.Remove(stored)
		return nil, appErrors.Internal(err, "failed to save student document")
	}
	previous := documentSlot(student, doc)
	if previous != nil && *previous != "" {
		s.uploads.Remove(*previous)
	}
	*slotPointer(student, doc) = &stored
	return student, nil
}

func (s *StudentService) ensureAdmissionNumber(ctx context.Context, number, excludeID string) error {
	exists, err := s.repo.ExistsByAdmissionNumber(ctx, number, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate admission number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "admission number already used")
	}
	return nil
}

func applyStudentRequest(student *models.Student, req StudentRequest) {
	student.AdmissionNumber = req.AdmissionNumber
	student.FirstName = strings.TrimSpace(req.FirstName)
	student.MiddleName = strings.TrimSpace(req.MiddleName)
	student.LastName = strings.TrimSpace(req.LastName)
	student.DateOfBirth = req.DateOfBirth
	student.Gender = req.Gender
	student.GradeID = req.GradeID
	student.AdmissionDate = req.AdmissionDate
	student.Status = req.Status
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}
	student.Email = req.Email
	student.Phone = req.Phone
	student.Address = req.Address
	student.GuardianName = req.GuardianName
	student.GuardianRelationship = req.GuardianRelationship
	student.GuardianPhone = req.GuardianPhone
	student.GuardianEmail = req.GuardianEmail
	student.GuardianAddress = req.GuardianAddress
	student.BloodGroup = req.BloodGroup
	student.Allergies = req.Allergies
	student.MedicalConditions = req.MedicalConditions
	student.EmergencyContactName = req.EmergencyContactName
	student.EmergencyContactPhone = req.EmergencyContactPhone
}

func documentSlot(student *models.Student, doc models.StudentDocument) *string {
	return *slotPointer(student, doc)
}

func slotPointer(student *models.Student, doc models.StudentDocument) **string {
	switch doc {
	case models.DocumentBirthCertificate:
		return &student.BirthCertificate
	case models.DocumentPreviousReportCard:
		return &student.PreviousReportCard
	case models.DocumentTransferCertificate:
		return &student.TransferCertificate
	case models.DocumentPhoto:
		return &student.Photo
	default:
		return &student.OtherDocuments
	}
}

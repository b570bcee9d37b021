package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeTerm identifies the billing period of a fee structure.
type FeeTerm string

const (
	FeeTerm1      FeeTerm = "1"
	FeeTerm2      FeeTerm = "2"
	FeeTerm3      FeeTerm = "3"
	FeeTermAnnual FeeTerm = "annual"
)

// Valid reports whether t is a known term.
func (t FeeTerm) Valid() bool {
	switch t {
	case FeeTerm1, FeeTerm2, FeeTerm3, FeeTermAnnual:
		return true
	default:
		return false
	}
}

// Label is the display name of the term.
func (t FeeTerm) Label() string {
	if t == FeeTermAnnual {
		return "Annual"
	}
	return "Term " + string(t)
}

// FeeStructure is the bundle of fee components billed for a (year, grade, term).
type FeeStructure struct {
	ID               string          `db:"id" json:"id"`
	AcademicYearID   string          `db:"academic_year_id" json:"academic_year_id"`
	AcademicYearName string          `db:"academic_year_name" json:"academic_year_name,omitempty"`
	GradeID          string          `db:"grade_id" json:"grade_id"`
	GradeName        string          `db:"grade_name" json:"grade_name,omitempty"`
	Term             FeeTerm         `db:"term" json:"term"`
	TuitionFee       decimal.Decimal `db:"tuition_fee" json:"tuition_fee"`
	RegistrationFee  decimal.Decimal `db:"registration_fee" json:"registration_fee"`
	LibraryFee       decimal.Decimal `db:"library_fee" json:"library_fee"`
	SportsFee        decimal.Decimal `db:"sports_fee" json:"sports_fee"`
	LabFee           decimal.Decimal `db:"lab_fee" json:"lab_fee"`
	TransportFee     decimal.Decimal `db:"transport_fee" json:"transport_fee"`
	UniformFee       decimal.Decimal `db:"uniform_fee" json:"uniform_fee"`
	ExamFee          decimal.Decimal `db:"exam_fee" json:"exam_fee"`
	OtherFee         decimal.Decimal `db:"other_fee" json:"other_fee"`
	Description      string          `db:"description" json:"description"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// TotalFee sums every component. It is derived and never stored.
func (f FeeStructure) TotalFee() decimal.Decimal {
	return f.TuitionFee.
		Add(f.RegistrationFee).
		Add(f.LibraryFee).
		Add(f.SportsFee).
		Add(f.LabFee).
		Add(f.TransportFee).
		Add(f.UniformFee).
		Add(f.ExamFee).
		Add(f.OtherFee).
		Round(2)
}

// FeeBalance is the ledger row for one (student, fee structure) pair.
// TotalFee is a snapshot taken when the row is created.
type FeeBalance struct {
	ID                     string          `db:"id" json:"id"`
	StudentID              string          `db:"student_id" json:"student_id"`
	FeeStructureID         string          `db:"fee_structure_id" json:"fee_structure_id"`
	TotalFee               decimal.Decimal `db:"total_fee" json:"total_fee"`
	ScholarshipDiscount    decimal.Decimal `db:"scholarship_discount" json:"scholarship_discount"`
	AmountAfterScholarship decimal.Decimal `db:"amount_after_scholarship" json:"amount_after_scholarship"`
	AmountPaid             decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	Balance                decimal.Decimal `db:"balance" json:"balance"`
	DueDate                *time.Time      `db:"due_date" json:"due_date,omitempty"`
	IsPaid                 bool            `db:"is_paid" json:"is_paid"`
	CreatedAt              time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time       `db:"updated_at" json:"updated_at"`
}

// FeeBalanceView joins a balance with its student and structure labels.
type FeeBalanceView struct {
	FeeBalance
	AdmissionNumber  string  `db:"admission_number" json:"admission_number"`
	StudentName      string  `db:"student_name" json:"student_name"`
	GradeName        *string `db:"grade_name" json:"grade_name,omitempty"`
	AcademicYearName string  `db:"academic_year_name" json:"academic_year_name"`
	Term             FeeTerm `db:"term" json:"term"`
}

// PaymentMethod is how a payment was tendered.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCheque       PaymentMethod = "cheque"
	PaymentMobileMoney  PaymentMethod = "mobile_money"
	PaymentCard         PaymentMethod = "card"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentBankTransfer, PaymentCheque, PaymentMobileMoney, PaymentCard:
		return true
	default:
		return false
	}
}

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	default:
		return false
	}
}

// CanTransition encodes the allowed status moves. A completed payment may only
// be refunded; failed and refunded payments are terminal.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	switch s {
	case PaymentPending:
		return to == PaymentCompleted || to == PaymentFailed
	case PaymentCompleted:
		return to == PaymentRefunded
	default:
		return false
	}
}

// FeePayment records money received against a fee structure.
type FeePayment struct {
	ID                   string          `db:"id" json:"id"`
	StudentID            string          `db:"student_id" json:"student_id"`
	FeeStructureID       string          `db:"fee_structure_id" json:"fee_structure_id"`
	ReceiptNumber        string          `db:"receipt_number" json:"receipt_number"`
	AmountPaid           decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	PaymentDate          time.Time       `db:"payment_date" json:"payment_date"`
	PaymentMethod        PaymentMethod   `db:"payment_method" json:"payment_method"`
	PaymentStatus        PaymentStatus   `db:"payment_status" json:"payment_status"`
	TransactionReference string          `db:"transaction_reference" json:"transaction_reference"`
	Remarks              string          `db:"remarks" json:"remarks"`
	ReceivedBy           *string         `db:"received_by" json:"received_by,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// FeePaymentView joins a payment with student and structure labels.
type FeePaymentView struct {
	FeePayment
	AdmissionNumber  string  `db:"admission_number" json:"admission_number"`
	StudentName      string  `db:"student_name" json:"student_name"`
	AcademicYearName string  `db:"academic_year_name" json:"academic_year_name"`
	Term             FeeTerm `db:"term" json:"term"`
	ReceivedByName   *string `db:"received_by_name" json:"received_by_name,omitempty"`
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	StudentID string
	Status    string
	Method    string
	From      *time.Time
	To        *time.Time
	Search    string
	Page      int
	PageSize  int
}

// BalanceFilter narrows balance listings.
type BalanceFilter struct {
	StudentID      string
	AcademicYearID string
	GradeID        string
	UnpaidOnly     bool
	OverdueAt      *time.Time
	Page           int
	PageSize       int
}

// MethodTotal is one row of the payment-method breakdown.
type MethodTotal struct {
	Method PaymentMethod   `db:"payment_method" json:"payment_method"`
	Count  int             `db:"count" json:"count"`
	Total  decimal.Decimal `db:"total" json:"total"`
}

// LedgerTotals aggregates balances for dashboards and student detail.
type LedgerTotals struct {
	Expected    decimal.Decimal `db:"expected" json:"expected"`
	Discount    decimal.Decimal `db:"discount" json:"discount"`
	Collected   decimal.Decimal `db:"collected" json:"collected"`
	Outstanding decimal.Decimal `db:"outstanding" json:"outstanding"`
}

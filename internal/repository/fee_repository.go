package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const structureColumns = `id, academic_year_id, grade_id, term, tuition_fee, registration_fee, library_fee, sports_fee, lab_fee, transport_fee, uniform_fee, exam_fee, other_fee, description, is_active, created_at`

const balanceViewSelect = `SELECT b.id, b.student_id, b.fee_structure_id, b.total_fee, b.scholarship_discount, b.amount_after_scholarship, b.amount_paid, b.balance, b.due_date, b.is_paid, b.created_at, b.updated_at,
s.admission_number, TRIM(s.first_name || ' ' || s.last_name) AS student_name, g.name AS grade_name, y.name AS academic_year_name, f.term
FROM fee_balances b
JOIN students s ON s.id = b.student_id
JOIN fee_structures f ON f.id = b.fee_structure_id
JOIN academic_years y ON y.id = f.academic_year_id
LEFT JOIN grades g ON g.id = f.grade_id`

const paymentViewSelect = `SELECT p.id, p.student_id, p.fee_structure_id, p.receipt_number, p.amount_paid, p.payment_date, p.payment_method, p.payment_status, p.transaction_reference, p.remarks, p.received_by, p.created_at, p.updated_at,
s.admission_number, TRIM(s.first_name || ' ' || s.last_name) AS student_name, y.name AS academic_year_name, f.term,
NULLIF(TRIM(u.first_name || ' ' || u.last_name), '') AS received_by_name
FROM fee_payments p
JOIN students s ON s.id = p.student_id
JOIN fee_structures f ON f.id = p.fee_structure_id
JOIN academic_years y ON y.id = f.academic_year_id
LEFT JOIN users u ON u.id = p.received_by`

// FeeRepository serves fee structures and read models over payments and
// balances. Ledger mutations go through LedgerRepository.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs the repository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// ListStructures returns fee structures, optionally for one academic year.
func (r *FeeRepository) ListStructures(ctx context.Context, academicYearID string) ([]models.FeeStructure, error) {
	query := `SELECT f.id, f.academic_year_id, y.name AS academic_year_name, f.grade_id, g.name AS grade_name, f.term, f.tuition_fee, f.registration_fee, f.library_fee, f.sports_fee, f.lab_fee, f.transport_fee, f.uniform_fee, f.exam_fee, f.other_fee, f.description, f.is_active, f.created_at
FROM fee_structures f JOIN academic_years y ON y.id = f.academic_year_id JOIN grades g ON g.id = f.grade_id`
	var args []interface{}
	if academicYearID != "" {
		query += ` WHERE f.academic_year_id = $1`
		args = append(args, academicYearID)
	}
	query += ` ORDER BY y.start_date DESC, g.level ASC, f.term ASC`

	var structures []models.FeeStructure
	if err := r.db.SelectContext(ctx, &structures, query, args...); err != nil {
		return nil, fmt.Errorf("list fee structures: %w", err)
	}
	return structures, nil
}

// FindStructure loads a fee structure.
func (r *FeeRepository) FindStructure(ctx context.Context, id string) (*models.FeeStructure, error) {
	var structure models.FeeStructure
	if err := r.db.GetContext(ctx, &structure, `SELECT `+structureColumns+` FROM fee_structures WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &structure, nil
}

// StructureExists checks the (year, grade, term) uniqueness.
func (r *FeeRepository) StructureExists(ctx context.Context, academicYearID, gradeID string, term models.FeeTerm, excludeID string) (bool, error) {
	query := `SELECT 1 FROM fee_structures WHERE academic_year_id = $1 AND grade_id = $2 AND term = $3`
	args := []interface{}{academicYearID, gradeID, term}
	if excludeID != "" {
		query += ` AND id <> $4`
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check fee structure uniqueness: %w", err)
	}
	return true, nil
}

// CreateStructure inserts a fee structure.
func (r *FeeRepository) CreateStructure(ctx context.Context, structure *models.FeeStructure) error {
	if structure.ID == "" {
		structure.ID = uuid.NewString()
	}
	if structure.CreatedAt.IsZero() {
		structure.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO fee_structures (id, academic_year_id, grade_id, term, tuition_fee, registration_fee, library_fee, sports_fee, lab_fee, transport_fee, uniform_fee, exam_fee, other_fee, description, is_active, created_at)
VALUES (:id, :academic_year_id, :grade_id, :term, :tuition_fee, :registration_fee, :library_fee, :sports_fee, :lab_fee, :transport_fee, :uniform_fee, :exam_fee, :other_fee, :description, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, structure); err != nil {
		return fmt.Errorf("create fee structure: %w", err)
	}
	return nil
}

// UpdateStructure rewrites the fee components. Existing balances keep their
// snapshot of the previous total.
func (r *FeeRepository) UpdateStructure(ctx context.Context, structure *models.FeeStructure) error {
	const query = `UPDATE fee_structures SET tuition_fee = :tuition_fee, registration_fee = :registration_fee, library_fee = :library_fee, sports_fee = :sports_fee, lab_fee = :lab_fee,
transport_fee = :transport_fee, uniform_fee = :uniform_fee, exam_fee = :exam_fee, other_fee = :other_fee, description = :description, is_active = :is_active WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, structure); err != nil {
		return fmt.Errorf("update fee structure: %w", err)
	}
	return nil
}

// ListPayments returns payments matching the filter, newest first.
func (r *FeeRepository) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.FeePaymentView, int, error) {
	where, args := paymentConditions(filter)
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY p.payment_date DESC, p.created_at DESC LIMIT %d OFFSET %d", paymentViewSelect, where, size, offset)
	var payments []models.FeePaymentView
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fee payments: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM fee_payments p JOIN students s ON s.id = p.student_id" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fee payments: %w", err)
	}
	return payments, total, nil
}

// ListPaymentsForReport returns every payment matching the filter without
// pagination, oldest first.
func (r *FeeRepository) ListPaymentsForReport(ctx context.Context, filter models.PaymentFilter) ([]models.FeePaymentView, error) {
	where, args := paymentConditions(filter)
	var payments []models.FeePaymentView
	if err := r.db.SelectContext(ctx, &payments, paymentViewSelect+where+" ORDER BY p.payment_date ASC, p.receipt_number ASC", args...); err != nil {
		return nil, fmt.Errorf("list report payments: %w", err)
	}
	return payments, nil
}

func paymentConditions(filter models.PaymentFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("p.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("p.payment_status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Method != "" {
		conditions = append(conditions, fmt.Sprintf("p.payment_method = $%d", len(args)+1))
		args = append(args, filter.Method)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("p.payment_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("p.payment_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Search != "" {
		pos := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.receipt_number) LIKE $%d OR LOWER(s.admission_number) LIKE $%d OR LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d)", pos, pos, pos, pos))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// FindPayment loads one payment with labels.
func (r *FeeRepository) FindPayment(ctx context.Context, id string) (*models.FeePaymentView, error) {
	var payment models.FeePaymentView
	if err := r.db.GetContext(ctx, &payment, paymentViewSelect+" WHERE p.id = $1", id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// RecentPayments returns the latest payments regardless of status.
func (r *FeeRepository) RecentPayments(ctx context.Context, limit int) ([]models.FeePaymentView, error) {
	if limit <= 0 {
		limit = 10
	}
	var payments []models.FeePaymentView
	if err := r.db.SelectContext(ctx, &payments, paymentViewSelect+" ORDER BY p.payment_date DESC, p.created_at DESC LIMIT $1", limit); err != nil {
		return nil, fmt.Errorf("recent fee payments: %w", err)
	}
	return payments, nil
}

// ListBalances returns balances matching the filter. Overdue listings are
// ordered by due date, the rest by admission number.
func (r *FeeRepository) ListBalances(ctx context.Context, filter models.BalanceFilter) ([]models.FeeBalanceView, int, error) {
	where, args := balanceConditions(filter)
	order := "s.admission_number ASC, y.start_date DESC, f.term ASC"
	if filter.OverdueAt != nil {
		order = "b.due_date ASC"
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", balanceViewSelect, where, order, size, offset)
	var balances []models.FeeBalanceView
	if err := r.db.SelectContext(ctx, &balances, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fee balances: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM fee_balances b JOIN students s ON s.id = b.student_id JOIN fee_structures f ON f.id = b.fee_structure_id" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fee balances: %w", err)
	}
	return balances, total, nil
}

// ListBalancesForReport returns every balance matching the filter.
func (r *FeeRepository) ListBalancesForReport(ctx context.Context, filter models.BalanceFilter) ([]models.FeeBalanceView, error) {
	where, args := balanceConditions(filter)
	var balances []models.FeeBalanceView
	if err := r.db.SelectContext(ctx, &balances, balanceViewSelect+where+" ORDER BY g.level ASC, s.admission_number ASC", args...); err != nil {
		return nil, fmt.Errorf("list report balances: %w", err)
	}
	return balances, nil
}

func balanceConditions(filter models.BalanceFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("b.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("f.academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.GradeID != "" {
		conditions = append(conditions, fmt.Sprintf("f.grade_id = $%d", len(args)+1))
		args = append(args, filter.GradeID)
	}
	if filter.UnpaidOnly || filter.OverdueAt != nil {
		conditions = append(conditions, "b.is_paid = FALSE")
	}
	if filter.OverdueAt != nil {
		conditions = append(conditions, fmt.Sprintf("b.due_date < $%d", len(args)+1))
		args = append(args, *filter.OverdueAt)
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// BalanceIDsForStudent lists the balance rows of a student.
func (r *FeeRepository) BalanceIDsForStudent(ctx context.Context, studentID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM fee_balances WHERE student_id = $1 ORDER BY created_at ASC`, studentID); err != nil {
		return nil, fmt.Errorf("list student balance ids: %w", err)
	}
	return ids, nil
}

// StudentTotals sums the balances of one student.
func (r *FeeRepository) StudentTotals(ctx context.Context, studentID string) (*models.LedgerTotals, error) {
	const query = `SELECT COALESCE(SUM(amount_after_scholarship), 0) AS expected, COALESCE(SUM(scholarship_discount), 0) AS discount,
COALESCE(SUM(amount_paid), 0) AS collected, COALESCE(SUM(balance), 0) AS outstanding FROM fee_balances WHERE student_id = $1`
	var totals models.LedgerTotals
	if err := r.db.GetContext(ctx, &totals, query, studentID); err != nil {
		return nil, fmt.Errorf("student fee totals: %w", err)
	}
	return &totals, nil
}

// ExpectedForYear sums the amount due after scholarship for a year.
func (r *FeeRepository) ExpectedForYear(ctx context.Context, academicYearID string) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(b.amount_after_scholarship), 0) FROM fee_balances b JOIN fee_structures f ON f.id = b.fee_structure_id WHERE f.academic_year_id = $1`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, academicYearID); err != nil {
		return decimal.Zero, fmt.Errorf("expected fees for year: %w", err)
	}
	return total, nil
}

// CollectedSince sums completed payments dated on or after since. A nil
// since sums every completed payment.
func (r *FeeRepository) CollectedSince(ctx context.Context, since *time.Time) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount_paid), 0) FROM fee_payments WHERE payment_status = 'completed'`
	var args []interface{}
	if since != nil {
		query += ` AND payment_date >= $1`
		args = append(args, *since)
	}
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return decimal.Zero, fmt.Errorf("sum collected fees: %w", err)
	}
	return total, nil
}

// TotalOutstanding sums unpaid balances.
func (r *FeeRepository) TotalOutstanding(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(balance), 0) FROM fee_balances WHERE is_paid = FALSE`); err != nil {
		return decimal.Zero, fmt.Errorf("sum outstanding fees: %w", err)
	}
	return total, nil
}

// CountPaymentsByStatus counts payments in a status.
func (r *FeeRepository) CountPaymentsByStatus(ctx context.Context, status models.PaymentStatus) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM fee_payments WHERE payment_status = $1`, status); err != nil {
		return 0, fmt.Errorf("count payments by status: %w", err)
	}
	return total, nil
}

// MethodBreakdown groups completed payments since a date by method.
func (r *FeeRepository) MethodBreakdown(ctx context.Context, since time.Time) ([]models.MethodTotal, error) {
	const query = `SELECT payment_method, COUNT(*) AS count, COALESCE(SUM(amount_paid), 0) AS total FROM fee_payments
WHERE payment_status = 'completed' AND payment_date >= $1 GROUP BY payment_method ORDER BY total DESC`
	var rows []models.MethodTotal
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("payment method breakdown: %w", err)
	}
	return rows, nil
}

// CountScholarshipStudents counts active students holding a scholarship.
func (r *FeeRepository) CountScholarshipStudents(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students WHERE status = 'active' AND scholarship_status IN ('partial', 'full')`); err != nil {
		return 0, fmt.Errorf("count scholarship students: %w", err)
	}
	return total, nil
}

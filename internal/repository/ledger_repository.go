package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/database"
)

const balanceColumns = `id, student_id, fee_structure_id, total_fee, scholarship_discount, amount_after_scholarship, amount_paid, balance, due_date, is_paid, created_at, updated_at`

const paymentColumns = `id, student_id, fee_structure_id, receipt_number, amount_paid, payment_date, payment_method, payment_status, transaction_reference, remarks, received_by, created_at, updated_at`

// LedgerTx is the set of ledger statements that run inside one transaction.
// Balance reads take a row lock so concurrent payments against the same
// balance serialize.
type LedgerTx interface {
	LockBalance(ctx context.Context, id string) (*models.FeeBalance, error)
	LockBalanceFor(ctx context.Context, studentID, feeStructureID string) (*models.FeeBalance, error)
	CreateBalance(ctx context.Context, balance *models.FeeBalance) error
	SaveBalance(ctx context.Context, balance *models.FeeBalance) error
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	GetFeeStructure(ctx context.Context, id string) (*models.FeeStructure, error)
	SumCompletedPayments(ctx context.Context, studentID, feeStructureID string) (decimal.Decimal, error)
	ReceiptExists(ctx context.Context, receiptNumber string) (bool, error)
	InsertPayment(ctx context.Context, payment *models.FeePayment) error
	LockPayment(ctx context.Context, id string) (*models.FeePayment, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus, updatedAt time.Time) error
}

// LedgerRepository opens ledger transactions.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs the repository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// RunInTx executes fn in a read-committed transaction, committing when fn
// returns nil.
func (r *LedgerRepository) RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	return database.WithTx(ctx, r.db, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sqlx.Tx) error {
		return fn(&ledgerTx{tx: tx})
	})
}

type ledgerTx struct {
	tx *sqlx.Tx
}

func (l *ledgerTx) LockBalance(ctx context.Context, id string) (*models.FeeBalance, error) {
	var balance models.FeeBalance
	if err := l.tx.GetContext(ctx, &balance, `SELECT `+balanceColumns+` FROM fee_balances WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock fee balance: %w", err)
	}
	return &balance, nil
}

func (l *ledgerTx) LockBalanceFor(ctx context.Context, studentID, feeStructureID string) (*models.FeeBalance, error) {
	var balance models.FeeBalance
	query := `SELECT ` + balanceColumns + ` FROM fee_balances WHERE student_id = $1 AND fee_structure_id = $2 FOR UPDATE`
	if err := l.tx.GetContext(ctx, &balance, query, studentID, feeStructureID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock fee balance for student: %w", err)
	}
	return &balance, nil
}

// CreateBalance is a no-op when another transaction created the row first;
// callers lock the row afterwards either way.
func (l *ledgerTx) CreateBalance(ctx context.Context, balance *models.FeeBalance) error {
	if balance.ID == "" {
		balance.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if balance.CreatedAt.IsZero() {
		balance.CreatedAt = now
	}
	balance.UpdatedAt = now
	const query = `INSERT INTO fee_balances (id, student_id, fee_structure_id, total_fee, scholarship_discount, amount_after_scholarship, amount_paid, balance, due_date, is_paid, created_at, updated_at)
VALUES (:id, :student_id, :fee_structure_id, :total_fee, :scholarship_discount, :amount_after_scholarship, :amount_paid, :balance, :due_date, :is_paid, :created_at, :updated_at)
ON CONFLICT (student_id, fee_structure_id) DO NOTHING`
	if _, err := l.tx.NamedExecContext(ctx, query, balance); err != nil {
		return fmt.Errorf("create fee balance: %w", err)
	}
	return nil
}

func (l *ledgerTx) SaveBalance(ctx context.Context, balance *models.FeeBalance) error {
	balance.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fee_balances SET total_fee = :total_fee, scholarship_discount = :scholarship_discount, amount_after_scholarship = :amount_after_scholarship,
amount_paid = :amount_paid, balance = :balance, is_paid = :is_paid, updated_at = :updated_at WHERE id = :id`
	if _, err := l.tx.NamedExecContext(ctx, query, balance); err != nil {
		return fmt.Errorf("save fee balance: %w", err)
	}
	return nil
}

func (l *ledgerTx) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, admission_number, first_name, middle_name, last_name, status, scholarship_status, scholarship_percentage FROM students WHERE id = $1`
	var student models.Student
	if err := l.tx.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load ledger student: %w", err)
	}
	return &student, nil
}

func (l *ledgerTx) GetFeeStructure(ctx context.Context, id string) (*models.FeeStructure, error) {
	var structure models.FeeStructure
	if err := l.tx.GetContext(ctx, &structure, `SELECT `+structureColumns+` FROM fee_structures WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load ledger fee structure: %w", err)
	}
	return &structure, nil
}

func (l *ledgerTx) SumCompletedPayments(ctx context.Context, studentID, feeStructureID string) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount_paid), 0) FROM fee_payments WHERE student_id = $1 AND fee_structure_id = $2 AND payment_status = 'completed'`
	var total decimal.Decimal
	if err := l.tx.GetContext(ctx, &total, query, studentID, feeStructureID); err != nil {
		return decimal.Zero, fmt.Errorf("sum completed payments: %w", err)
	}
	return total, nil
}

func (l *ledgerTx) ReceiptExists(ctx context.Context, receiptNumber string) (bool, error) {
	var exists int
	if err := l.tx.GetContext(ctx, &exists, `SELECT 1 FROM fee_payments WHERE receipt_number = $1 LIMIT 1`, receiptNumber); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check receipt number: %w", err)
	}
	return true, nil
}

func (l *ledgerTx) InsertPayment(ctx context.Context, payment *models.FeePayment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	const query = `INSERT INTO fee_payments (id, student_id, fee_structure_id, receipt_number, amount_paid, payment_date, payment_method, payment_status, transaction_reference, remarks, received_by, created_at, updated_at)
VALUES (:id, :student_id, :fee_structure_id, :receipt_number, :amount_paid, :payment_date, :payment_method, :payment_status, :transaction_reference, :remarks, :received_by, :created_at, :updated_at)`
	if _, err := l.tx.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("insert fee payment: %w", err)
	}
	return nil
}

func (l *ledgerTx) LockPayment(ctx context.Context, id string) (*models.FeePayment, error) {
	var payment models.FeePayment
	if err := l.tx.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM fee_payments WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock fee payment: %w", err)
	}
	return &payment, nil
}

func (l *ledgerTx) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus, updatedAt time.Time) error {
	if _, err := l.tx.ExecContext(ctx, `UPDATE fee_payments SET payment_status = $2, updated_at = $3 WHERE id = $1`, id, status, updatedAt); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

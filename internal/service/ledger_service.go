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
	"github.com/noah-isme/school-admin-api/internal/repository"
	"github.com/noah-isme/school-admin-api/pkg/database"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/money"
)

const receiptConstraint = "fee_payments_receipt_number_key"

var (
	minimumPayment = decimal.RequireFromString("0.01")
	hundredPercent = decimal.NewFromInt(100)
)

type ledgerStore interface {
	RunInTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error
}

type studentBalanceLister interface {
	BalanceIDsForStudent(ctx context.Context, studentID string) ([]string, error)
}

// ComputeBalance derives the scholarship discount, the amount due and the
// outstanding balance from the snapshot total and the completed payments.
// The amount due is rounded and the discount is whatever remains, so the two
// always add back to the total. TotalFee is never refreshed here.
func ComputeBalance(balance models.FeeBalance, student models.Student, completedPaid decimal.Decimal) models.FeeBalance {
	total := money.Round(balance.TotalFee)
	after := total
	if student.HasScholarship() {
		after = money.Round(total.Sub(total.Mul(student.ScholarshipPercentage).Div(hundredPercent)))
	}
	balance.AmountAfterScholarship = after
	balance.ScholarshipDiscount = total.Sub(after)
	balance.AmountPaid = money.Round(completedPaid)
	balance.Balance = money.Round(balance.AmountAfterScholarship.Sub(balance.AmountPaid))
	balance.IsPaid = !balance.Balance.IsPositive()
	return balance
}

// RecordPaymentRequest is the payload for recording a fee payment.
type RecordPaymentRequest struct {
	StudentID            string               `json:"student_id" validate:"required"`
	FeeStructureID       string               `json:"fee_structure_id" validate:"required"`
	ReceiptNumber        string               `json:"receipt_number" validate:"required,max=50"`
	AmountPaid           decimal.Decimal      `json:"amount_paid"`
	PaymentDate          time.Time            `json:"payment_date"`
	PaymentMethod        models.PaymentMethod `json:"payment_method" validate:"required"`
	PaymentStatus        models.PaymentStatus `json:"payment_status"`
	TransactionReference string               `json:"transaction_reference" validate:"max=100"`
	Remarks              string               `json:"remarks"`
}

// PaymentResult pairs a stored payment with the balance it affected.
type PaymentResult struct {
	Payment *models.FeePayment `json:"payment"`
	Balance *models.FeeBalance `json:"balance"`
}

// LedgerConfig tunes balance creation.
type LedgerConfig struct {
	DefaultDueDays int
}

// LedgerService owns every write to fee balances and payments. Each operation
// runs in one transaction holding the balance row lock.
type LedgerService struct {
	store     ledgerStore
	balances  studentBalanceLister
	validator *validator.Validate
	logger    *zap.Logger
	cfg       LedgerConfig
	metrics   *MetricsService
	now       func() time.Time
}

// NewLedgerService constructs the ledger service.
func NewLedgerService(store ledgerStore, balances studentBalanceLister, validate *validator.Validate, logger *zap.Logger, cfg LedgerConfig) *LedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultDueDays <= 0 {
		cfg.DefaultDueDays = 30
	}
	return &LedgerService{store: store, balances: balances, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// SetMetrics attaches the collector counting recorded payments.
func (s *LedgerService) SetMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// UpdateBalance recomputes a balance from its snapshot total and the
// completed payments, then persists it.
func (s *LedgerService) UpdateBalance(ctx context.Context, balanceID string) (*models.FeeBalance, error) {
	var result *models.FeeBalance
	err := s.store.RunInTx(ctx, func(tx repository.LedgerTx) error {
		balance, err := tx.LockBalance(ctx, balanceID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "fee balance not found")
			}
			return err
		}
		result, err = s.recompute(ctx, tx, balance)
		return err
	})
	if err != nil {
		return nil, ledgerError(err, "failed to update fee balance")
	}
	return result, nil
}

// RecalculateBalance is the explicit trigger used after a scholarship change.
func (s *LedgerService) RecalculateBalance(ctx context.Context, balanceID string) (*models.FeeBalance, error) {
	return s.UpdateBalance(ctx, balanceID)
}

// RecalculateStudentBalances recomputes every balance of a student. Each
// balance commits in its own transaction, so on error the balances already
// recomputed stay saved and are returned alongside the error.
func (s *LedgerService) RecalculateStudentBalances(ctx context.Context, studentID string) ([]models.FeeBalance, error) {
	ids, err := s.balances.BalanceIDsForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list student balances")
	}
	updated := make([]models.FeeBalance, 0, len(ids))
	for _, id := range ids {
		balance, err := s.UpdateBalance(ctx, id)
		if err != nil {
			s.logger.Warn("student balance recalculation stopped",
				zap.String("student_id", studentID),
				zap.String("balance_id", id),
				zap.Int("committed", len(updated)),
				zap.Error(err))
			return updated, err
		}
		updated = append(updated, *balance)
	}
	s.logger.Info("student balances recalculated", zap.String("student_id", studentID), zap.Int("count", len(updated)))
	return updated, nil
}

// SyncBalanceTotal refreshes a balance's snapshot total from its live fee
// structure and recomputes it.
func (s *LedgerService) SyncBalanceTotal(ctx context.Context, balanceID string) (*models.FeeBalance, error) {
	var result *models.FeeBalance
	err := s.store.RunInTx(ctx, func(tx repository.LedgerTx) error {
		balance, err := tx.LockBalance(ctx, balanceID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "fee balance not found")
			}
			return err
		}
		structure, err := tx.GetFeeStructure(ctx, balance.FeeStructureID)
		if err != nil {
			return err
		}
		previous := balance.TotalFee
		balance.TotalFee = structure.TotalFee()
		result, err = s.recompute(ctx, tx, balance)
		if err == nil && !previous.Equal(balance.TotalFee) {
			s.logger.Info("fee balance total refreshed",
				zap.String("balance_id", balanceID),
				zap.String("previous", money.Format(previous)),
				zap.String("current", money.Format(balance.TotalFee)))
		}
		return err
	})
	if err != nil {
		return nil, ledgerError(err, "failed to sync fee balance total")
	}
	return result, nil
}

// RecordPayment stores a payment and updates the matching balance, creating
// the balance on first payment.
func (s *LedgerService) RecordPayment(ctx context.Context, req RecordPaymentRequest, receivedBy string) (*PaymentResult, error) {
	req.ReceiptNumber = strings.TrimSpace(req.ReceiptNumber)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid payment payload")
	}
	if req.AmountPaid.LessThan(minimumPayment) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount_paid must be at least 0.01")
	}
	if !req.PaymentMethod.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment method")
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = models.PaymentCompleted
	}
	if !req.PaymentStatus.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment status")
	}
	if req.PaymentDate.IsZero() {
		req.PaymentDate = s.now().UTC()
	}

	payment := &models.FeePayment{
		StudentID:            req.StudentID,
		FeeStructureID:       req.FeeStructureID,
		ReceiptNumber:        req.ReceiptNumber,
		AmountPaid:           money.Round(req.AmountPaid),
		PaymentDate:          req.PaymentDate,
		PaymentMethod:        req.PaymentMethod,
		PaymentStatus:        req.PaymentStatus,
		TransactionReference: req.TransactionReference,
		Remarks:              req.Remarks,
	}
	if receivedBy != "" {
		payment.ReceivedBy = &receivedBy
	}

	var balance *models.FeeBalance
	err := s.store.RunInTx(ctx, func(tx repository.LedgerTx) error {
		exists, err := tx.ReceiptExists(ctx, payment.ReceiptNumber)
		if err != nil {
			return err
		}
		if exists {
			return appErrors.Clone(appErrors.ErrDuplicateReceipt, "receipt number "+payment.ReceiptNumber+" already exists")
		}
		student, err := tx.GetStudent(ctx, payment.StudentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return err
		}
		structure, err := tx.GetFeeStructure(ctx, payment.FeeStructureID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "fee structure not found")
			}
			return err
		}
		current, err := s.lockOrCreateBalance(ctx, tx, student.ID, structure)
		if err != nil {
			return err
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			if database.IsUniqueViolation(err, receiptConstraint) {
				return appErrors.Clone(appErrors.ErrDuplicateReceipt, "receipt number "+payment.ReceiptNumber+" already exists")
			}
			return err
		}
		balance, err = s.recomputeFor(ctx, tx, current, student)
		return err
	})
	if err != nil {
		return nil, ledgerError(err, "failed to record payment")
	}

	s.logger.Info("fee payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("receipt_number", payment.ReceiptNumber),
		zap.String("student_id", payment.StudentID),
		zap.String("amount", money.Format(payment.AmountPaid)),
		zap.String("balance", money.Format(balance.Balance)))
	s.metrics.RecordPayment(payment.PaymentMethod, payment.PaymentStatus)
	return &PaymentResult{Payment: payment, Balance: balance}, nil
}

// UpdatePaymentStatus moves a payment through its lifecycle and recomputes the
// affected balance. Completed payments may only be refunded.
func (s *LedgerService) UpdatePaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus) (*PaymentResult, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment status")
	}
	var result PaymentResult
	err := s.store.RunInTx(ctx, func(tx repository.LedgerTx) error {
		payment, err := tx.LockPayment(ctx, paymentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "payment not found")
			}
			return err
		}
		if !payment.PaymentStatus.CanTransition(status) {
			if payment.PaymentStatus == models.PaymentCompleted {
				return appErrors.ErrPaymentImmutable
			}
			return appErrors.Clone(appErrors.ErrConflict, "payment cannot move from "+string(payment.PaymentStatus)+" to "+string(status))
		}
		now := s.now().UTC()
		if err := tx.UpdatePaymentStatus(ctx, payment.ID, status, now); err != nil {
			return err
		}
		payment.PaymentStatus = status
		payment.UpdatedAt = now

		student, err := tx.GetStudent(ctx, payment.StudentID)
		if err != nil {
			return err
		}
		structure, err := tx.GetFeeStructure(ctx, payment.FeeStructureID)
		if err != nil {
			return err
		}
		current, err := s.lockOrCreateBalance(ctx, tx, student.ID, structure)
		if err != nil {
			return err
		}
		result.Payment = payment
		result.Balance, err = s.recomputeFor(ctx, tx, current, student)
		return err
	})
	if err != nil {
		return nil, ledgerError(err, "failed to update payment status")
	}
	s.logger.Info("fee payment status changed", zap.String("payment_id", paymentID), zap.String("status", string(status)))
	return &result, nil
}

func (s *LedgerService) lockOrCreateBalance(ctx context.Context, tx repository.LedgerTx, studentID string, structure *models.FeeStructure) (*models.FeeBalance, error) {
	balance, err := tx.LockBalanceFor(ctx, studentID, structure.ID)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	due := s.now().UTC().AddDate(0, 0, s.cfg.DefaultDueDays)
	total := structure.TotalFee()
	fresh := &models.FeeBalance{
		StudentID:              studentID,
		FeeStructureID:         structure.ID,
		TotalFee:               total,
		AmountAfterScholarship: total,
		Balance:                total,
		DueDate:                &due,
	}
	if err := tx.CreateBalance(ctx, fresh); err != nil {
		return nil, err
	}
	return tx.LockBalanceFor(ctx, studentID, structure.ID)
}

func (s *LedgerService) recompute(ctx context.Context, tx repository.LedgerTx, balance *models.FeeBalance) (*models.FeeBalance, error) {
	student, err := tx.GetStudent(ctx, balance.StudentID)
	if err != nil {
		return nil, err
	}
	return s.recomputeFor(ctx, tx, balance, student)
}

func (s *LedgerService) recomputeFor(ctx context.Context, tx repository.LedgerTx, balance *models.FeeBalance, student *models.Student) (*models.FeeBalance, error) {
	paid, err := tx.SumCompletedPayments(ctx, balance.StudentID, balance.FeeStructureID)
	if err != nil {
		return nil, err
	}
	updated := ComputeBalance(*balance, *student, paid)
	if err := tx.SaveBalance(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func ledgerError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, message)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type ledgerService interface {
	RecordPayment(ctx context.Context, req service.RecordPaymentRequest, receivedBy string) (*service.PaymentResult, error)
	UpdatePaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus) (*service.PaymentResult, error)
	RecalculateBalance(ctx context.Context, balanceID string) (*models.FeeBalance, error)
	RecalculateStudentBalances(ctx context.Context, studentID string) ([]models.FeeBalance, error)
	SyncBalanceTotal(ctx context.Context, balanceID string) (*models.FeeBalance, error)
}

// LedgerHandler exposes the write side of the fee ledger.
type LedgerHandler struct {
	service ledgerService
}

// NewLedgerHandler constructs the handler.
func NewLedgerHandler(svc ledgerService) *LedgerHandler {
	return &LedgerHandler{service: svc}
}

// RecordPayment godoc
// @Summary Record fee payment
// @Description Stores the payment and recomputes the student's balance in one transaction
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.RecordPaymentRequest true "Payment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments [post]
func (h *LedgerHandler) RecordPayment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payment payload"))
		return
	}
	result, err := h.service.RecordPayment(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// UpdatePaymentStatus godoc
// @Summary Change payment status
// @Description Pending payments may complete or fail; completed payments may only be refunded
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body map[string]string true "Status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments/{id}/status [put]
func (h *LedgerHandler) UpdatePaymentStatus(c *gin.Context) {
	var payload struct {
		Status models.PaymentStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, bindError(err, "status required"))
		return
	}
	result, err := h.service.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), payload.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RecalculateBalance godoc
// @Summary Recalculate a balance
// @Tags Balances
// @Produce json
// @Param id path string true "Balance ID"
// @Success 200 {object} response.Envelope
// @Router /balances/{id}/recalculate [post]
func (h *LedgerHandler) RecalculateBalance(c *gin.Context) {
	balance, err := h.service.RecalculateBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}

// SyncBalanceTotal godoc
// @Summary Refresh a balance's total from its fee structure
// @Tags Balances
// @Produce json
// @Param id path string true "Balance ID"
// @Success 200 {object} response.Envelope
// @Router /balances/{id}/sync-total [post]
func (h *LedgerHandler) SyncBalanceTotal(c *gin.Context) {
	balance, err := h.service.SyncBalanceTotal(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}

// RecalculateStudent godoc
// @Summary Recalculate all balances of a student
// @Tags Balances
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/balances/recalculate [post]
func (h *LedgerHandler) RecalculateStudent(c *gin.Context) {
	balances, err := h.service.RecalculateStudentBalances(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balances, nil)
}

package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type feeService interface {
	ListYears(ctx context.Context) ([]models.AcademicYear, error)
	CreateYear(ctx context.Context, req service.AcademicYearRequest) (*models.AcademicYear, error)
	SetCurrentYear(ctx context.Context, id string) (*models.AcademicYear, error)
	ListGrades(ctx context.Context) ([]models.Grade, error)
	CreateGrade(ctx context.Context, req service.GradeRequest) (*models.Grade, error)
	ListStructures(ctx context.Context, yearID string) ([]service.FeeStructureView, error)
	GetStructure(ctx context.Context, id string) (*service.FeeStructureView, error)
	CreateStructure(ctx context.Context, req service.FeeStructureRequest) (*service.FeeStructureView, error)
	UpdateStructure(ctx context.Context, id string, req service.FeeStructureRequest) (*service.FeeStructureView, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.FeePaymentView, *models.Pagination, error)
	GetPayment(ctx context.Context, id string) (*models.FeePaymentView, error)
	Receipt(ctx context.Context, id string) ([]byte, string, error)
	ListBalances(ctx context.Context, filter models.BalanceFilter) ([]models.FeeBalanceView, *models.Pagination, error)
	Defaulters(ctx context.Context, filter models.BalanceFilter) ([]models.FeeBalanceView, *models.Pagination, error)
}

// FeeHandler exposes fee administration: academic years, grades, fee
// structures and the read side of payments and balances.
type FeeHandler struct {
	service feeService
}

// NewFeeHandler constructs the handler.
func NewFeeHandler(svc feeService) *FeeHandler {
	return &FeeHandler{service: svc}
}

// ListYears godoc
// @Summary List academic years
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/academic-years [get]
func (h *FeeHandler) ListYears(c *gin.Context) {
	years, err := h.service.ListYears(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// CreateYear godoc
// @Summary Create academic year
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.AcademicYearRequest true "Academic year"
// @Success 201 {object} response.Envelope
// @Router /fees/academic-years [post]
func (h *FeeHandler) CreateYear(c *gin.Context) {
	var req service.AcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid academic year payload"))
		return
	}
	year, err := h.service.CreateYear(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// SetCurrentYear godoc
// @Summary Mark academic year as current
// @Tags Fees
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /fees/academic-years/{id}/current [post]
func (h *FeeHandler) SetCurrentYear(c *gin.Context) {
	year, err := h.service.SetCurrentYear(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// ListGrades godoc
// @Summary List grades
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/grades [get]
func (h *FeeHandler) ListGrades(c *gin.Context) {
	grades, err := h.service.ListGrades(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// CreateGrade godoc
// @Summary Create grade
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.GradeRequest true "Grade"
// @Success 201 {object} response.Envelope
// @Router /fees/grades [post]
func (h *FeeHandler) CreateGrade(c *gin.Context) {
	var req service.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid grade payload"))
		return
	}
	grade, err := h.service.CreateGrade(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

// ListStructures godoc
// @Summary List fee structures
// @Description Defaults to the current academic year
// @Tags Fees
// @Produce json
// @Param academic_year_id query string false "Academic year"
// @Success 200 {object} response.Envelope
// @Router /fees/structures [get]
func (h *FeeHandler) ListStructures(c *gin.Context) {
	structures, err := h.service.ListStructures(c.Request.Context(), c.Query("academic_year_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structures, nil)
}

// GetStructure godoc
// @Summary Fee structure detail
// @Tags Fees
// @Produce json
// @Param id path string true "Fee structure ID"
// @Success 200 {object} response.Envelope
// @Router /fees/structures/{id} [get]
func (h *FeeHandler) GetStructure(c *gin.Context) {
	structure, err := h.service.GetStructure(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structure, nil)
}

// CreateStructure godoc
// @Summary Create fee structure
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.FeeStructureRequest true "Fee structure"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/structures [post]
func (h *FeeHandler) CreateStructure(c *gin.Context) {
	var req service.FeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid fee structure payload"))
		return
	}
	structure, err := h.service.CreateStructure(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, structure)
}

// UpdateStructure godoc
// @Summary Update fee structure
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Fee structure ID"
// @Param payload body service.FeeStructureRequest true "Fee structure"
// @Success 200 {object} response.Envelope
// @Router /fees/structures/{id} [put]
func (h *FeeHandler) UpdateStructure(c *gin.Context) {
	var req service.FeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid fee structure payload"))
		return
	}
	structure, err := h.service.UpdateStructure(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structure, nil)
}

// ListPayments godoc
// @Summary List payments
// @Tags Payments
// @Produce json
// @Param student_id query string false "Student"
// @Param status query string false "Payment status"
// @Param method query string false "Payment method"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param search query string false "Receipt, reference or student"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *FeeHandler) ListPayments(c *gin.Context) {
	filter := models.PaymentFilter{
		StudentID: c.Query("student_id"),
		Status:    c.Query("status"),
		Method:    c.Query("method"),
		Search:    c.Query("search"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	var err error
	if filter.From, err = optionalDate(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.To, err = optionalDate(c, "to"); err != nil {
		response.Error(c, err)
		return
	}

	payments, pagination, err := h.service.ListPayments(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// GetPayment godoc
// @Summary Payment detail
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /payments/{id} [get]
func (h *FeeHandler) GetPayment(c *gin.Context) {
	payment, err := h.service.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Receipt godoc
// @Summary Payment receipt PDF
// @Tags Payments
// @Produce application/pdf
// @Param id path string true "Payment ID"
// @Success 200 {file} binary
// @Router /payments/{id}/receipt [get]
func (h *FeeHandler) Receipt(c *gin.Context) {
	content, filename, err := h.service.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, "application/pdf", content)
}

// ListBalances godoc
// @Summary List fee balances
// @Tags Balances
// @Produce json
// @Param student_id query string false "Student"
// @Param academic_year_id query string false "Academic year"
// @Param grade_id query string false "Grade"
// @Param unpaid query bool false "Only unpaid balances"
// @Success 200 {object} response.Envelope
// @Router /balances [get]
func (h *FeeHandler) ListBalances(c *gin.Context) {
	filter := balanceFilter(c)
	if raw := c.Query("unpaid"); raw != "" {
		filter.UnpaidOnly, _ = strconv.ParseBool(raw)
	}
	balances, pagination, err := h.service.ListBalances(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balances, pagination)
}

// Defaulters godoc
// @Summary List fee defaulters
// @Description Unpaid balances whose due date has passed
// @Tags Balances
// @Produce json
// @Param academic_year_id query string false "Academic year"
// @Param grade_id query string false "Grade"
// @Success 200 {object} response.Envelope
// @Router /balances/defaulters [get]
func (h *FeeHandler) Defaulters(c *gin.Context) {
	balances, pagination, err := h.service.Defaulters(c.Request.Context(), balanceFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balances, pagination)
}

func balanceFilter(c *gin.Context) models.BalanceFilter {
	filter := models.BalanceFilter{
		StudentID:      c.Query("student_id"),
		AcademicYearID: c.Query("academic_year_id"),
		GradeID:        c.Query("grade_id"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	return filter
}

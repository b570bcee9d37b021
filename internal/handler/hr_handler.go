package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type leaveService interface {
	Types(ctx context.Context) ([]models.LeaveType, error)
	CreateType(ctx context.Context, req service.LeaveTypeRequest) (*models.LeaveType, error)
	List(ctx context.Context, status models.LeaveStatus, employeeID string, page, size int) ([]models.LeaveRequest, *models.Pagination, error)
	Apply(ctx context.Context, applicantUserID string, req service.ApplyLeaveRequest) (*models.LeaveRequest, error)
	Decide(ctx context.Context, id, approverUserID string, req service.LeaveDecisionRequest) (*models.LeaveRequest, error)
}

type performanceService interface {
	List(ctx context.Context, employeeID string) ([]models.PerformanceReview, error)
	Create(ctx context.Context, reviewerUserID string, req service.PerformanceReviewRequest) (*models.PerformanceReview, error)
}

type staffAttendanceService interface {
	Record(ctx context.Context, req service.AttendanceRequest) (*models.StaffAttendance, error)
	Day(ctx context.Context, day time.Time) ([]models.StaffAttendance, error)
	MonthlySummary(ctx context.Context, employeeID string, month time.Time) (*models.AttendanceSummary, []models.StaffAttendance, error)
}

// HRHandler covers leave, performance reviews and staff attendance.
type HRHandler struct {
	leaves     leaveService
	reviews    performanceService
	attendance staffAttendanceService
	now        func() time.Time
}

// NewHRHandler constructs the handler.
func NewHRHandler(leaves leaveService, reviews performanceService, attendance staffAttendanceService) *HRHandler {
	return &HRHandler{leaves: leaves, reviews: reviews, attendance: attendance, now: time.Now}
}

// LeaveTypes godoc
// @Summary List leave types
// @Tags HR
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leave/types [get]
func (h *HRHandler) LeaveTypes(c *gin.Context) {
	types, err := h.leaves.Types(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// CreateLeaveType godoc
// @Summary Create leave type
// @Tags HR
// @Accept json
// @Produce json
// @Param payload body service.LeaveTypeRequest true "Leave type"
// @Success 201 {object} response.Envelope
// @Router /leave/types [post]
func (h *HRHandler) CreateLeaveType(c *gin.Context) {
	var req service.LeaveTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid leave type payload"))
		return
	}
	leaveType, err := h.leaves.CreateType(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leaveType)
}

// ListLeave godoc
// @Summary List leave requests
// @Tags HR
// @Produce json
// @Param status query string false "pending (default), approved, rejected or cancelled"
// @Param employee_id query string false "Employee"
// @Success 200 {object} response.Envelope
// @Router /leave [get]
func (h *HRHandler) ListLeave(c *gin.Context) {
	status := models.LeaveStatus(strings.TrimSpace(c.DefaultQuery("status", string(models.LeavePending))))
	page, size := pageParams(c)
	requests, pagination, err := h.leaves.List(c.Request.Context(), status, c.Query("employee_id"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// ApplyLeave godoc
// @Summary Apply for leave
// @Description employee_id defaults to the caller's own employee record
// @Tags HR
// @Accept json
// @Produce json
// @Param payload body service.ApplyLeaveRequest true "Leave request"
// @Success 201 {object} response.Envelope
// @Router /leave [post]
func (h *HRHandler) ApplyLeave(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ApplyLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid leave payload"))
		return
	}
	request, err := h.leaves.Apply(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// DecideLeave godoc
// @Summary Approve or reject leave
// @Tags HR
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Param payload body service.LeaveDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /leave/{id}/decision [post]
func (h *HRHandler) DecideLeave(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.LeaveDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid decision payload"))
		return
	}
	request, err := h.leaves.Decide(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// ListReviews godoc
// @Summary List performance reviews
// @Tags HR
// @Produce json
// @Param employee_id query string false "Employee"
// @Success 200 {object} response.Envelope
// @Router /performance-reviews [get]
func (h *HRHandler) ListReviews(c *gin.Context) {
	reviews, err := h.reviews.List(c.Request.Context(), c.Query("employee_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, nil)
}

// CreateReview godoc
// @Summary Create performance review
// @Tags HR
// @Accept json
// @Produce json
// @Param payload body service.PerformanceReviewRequest true "Review"
// @Success 201 {object} response.Envelope
// @Router /performance-reviews [post]
func (h *HRHandler) CreateReview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.PerformanceReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid review payload"))
		return
	}
	review, err := h.reviews.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// RecordAttendance godoc
// @Summary Record staff attendance
// @Description Creates or replaces the record for (employee, date)
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.AttendanceRequest true "Attendance"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *HRHandler) RecordAttendance(c *gin.Context) {
	var req service.AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid attendance payload"))
		return
	}
	record, err := h.attendance.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// DayAttendance godoc
// @Summary Staff attendance for a day
// @Tags Attendance
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *HRHandler) DayAttendance(c *gin.Context) {
	day, err := optionalDate(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	if day == nil {
		today := h.now().UTC()
		day = &today
	}
	records, err := h.attendance.Day(c.Request.Context(), *day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// MonthlyAttendance godoc
// @Summary Monthly attendance summary
// @Tags Attendance
// @Produce json
// @Param id path string true "Employee ID"
// @Param month query string false "Month (YYYY-MM). Defaults to the current month"
// @Success 200 {object} response.Envelope
// @Router /employees/{id}/attendance [get]
func (h *HRHandler) MonthlyAttendance(c *gin.Context) {
	month := h.now().UTC()
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid month, expected YYYY-MM"))
			return
		}
		month = parsed
	}
	summary, records, err := h.attendance.MonthlySummary(c.Request.Context(), c.Param("id"), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"summary": summary, "records": records}, nil)
}

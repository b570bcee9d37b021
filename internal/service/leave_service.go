package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type leaveRepository interface {
	ListTypes(ctx context.Context) ([]models.LeaveType, error)
	FindType(ctx context.Context, id string) (*models.LeaveType, error)
	CreateType(ctx context.Context, lt *models.LeaveType) error
	List(ctx context.Context, status models.LeaveStatus, employeeID string, page, size int) ([]models.LeaveRequest, int, error)
	FindByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	Create(ctx context.Context, request *models.LeaveRequest) error
	Decide(ctx context.Context, id string, status models.LeaveStatus, approverID string, at time.Time) (bool, error)
	DaysTaken(ctx context.Context, employeeID, leaveTypeID string, year int) (int, error)
}

type employeeLookup interface {
	FindByID(ctx context.Context, id string) (*models.Employee, error)
	FindByUserID(ctx context.Context, userID string) (*models.Employee, error)
}

// ApplyLeaveRequest is a leave application. EmployeeID defaults to the
// applicant's own employee record.
type ApplyLeaveRequest struct {
	EmployeeID  string    `json:"employee_id"`
	LeaveTypeID string    `json:"leave_type_id" validate:"required"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
	Reason      string    `json:"reason" validate:"required"`
}

// LeaveTypeRequest creates a leave type.
type LeaveTypeRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	DaysAllowed int    `json:"days_allowed" validate:"min=0"`
	Description string `json:"description"`
}

// LeaveDecisionRequest approves or rejects a pending request.
type LeaveDecisionRequest struct {
	Action models.LeaveStatus `json:"action" validate:"required,oneof=approved rejected"`
}

// LeaveService handles leave applications and decisions.
type LeaveService struct {
	repo      leaveRepository
	employees employeeLookup
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLeaveService constructs the leave service.
func NewLeaveService(repo leaveRepository, employees employeeLookup, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{repo: repo, employees: employees, validator: validate, logger: logger, now: time.Now}
}

// Types lists leave types.
func (s *LeaveService) Types(ctx context.Context) ([]models.LeaveType, error) {
	types, err := s.repo.ListTypes(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list leave types")
	}
	return types, nil
}

// CreateType adds a leave type.
func (s *LeaveService) CreateType(ctx context.Context, req LeaveTypeRequest) (*models.LeaveType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid leave type payload")
	}
	lt := &models.LeaveType{Name: req.Name, DaysAllowed: req.DaysAllowed, Description: req.Description}
	if err := s.repo.CreateType(ctx, lt); err != nil {
		return nil, appErrors.Internal(err, "failed to create leave type")
	}
	return lt, nil
}

// List returns leave requests in a status, newest first.
func (s *LeaveService) List(ctx context.Context, status models.LeaveStatus, employeeID string, page, size int) ([]models.LeaveRequest, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, status, employeeID, page, size)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list leave requests")
	}
	page, size = models.NormalizePage(page, size)
	return requests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Apply files a pending leave request. Requests that would exceed the
// type's yearly allowance are refused; zero allowance means unlimited.
func (s *LeaveService) Apply(ctx context.Context, applicantUserID string, req ApplyLeaveRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid leave payload")
	}
	start := truncateDay(req.StartDate)
	end := truncateDay(req.EndDate)
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date cannot be before start date")
	}

	employee, err := loadEmployee(ctx, s.employees, applicantUserID, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	leaveType, err := s.repo.FindType(ctx, req.LeaveTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "leave type not found")
		}
		return nil, appErrors.Internal(err, "failed to load leave type")
	}

	request := &models.LeaveRequest{
		EmployeeID:  employee.ID,
		LeaveTypeID: leaveType.ID,
		StartDate:   start,
		EndDate:     end,
		Reason:      req.Reason,
		Status:      models.LeavePending,
		AppliedOn:   s.now().UTC(),
	}
	if leaveType.DaysAllowed > 0 {
		taken, err := s.repo.DaysTaken(ctx, employee.ID, leaveType.ID, start.Year())
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check leave allowance")
		}
		if taken+request.Duration() > leaveType.DaysAllowed {
			return nil, appErrors.Clone(appErrors.ErrValidation, "leave allowance exceeded for "+leaveType.Name)
		}
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Internal(err, "failed to create leave request")
	}
	request.EmployeeName = employee.FullName
	request.LeaveTypeName = leaveType.Name
	return request, nil
}

// Decide approves or rejects a pending request.
func (s *LeaveService) Decide(ctx context.Context, id, approverUserID string, req LeaveDecisionRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid leave decision")
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Internal(err, "failed to load leave request")
	}
	at := s.now().UTC()
	updated, err := s.repo.Decide(ctx, id, req.Action, approverUserID, at)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to decide leave request")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrConflict, "leave request is no longer pending")
	}
	request.Status = req.Action
	request.ApprovedBy = &approverUserID
	request.ApprovedOn = &at
	s.logger.Info("leave request decided", zap.String("leave_id", id), zap.String("status", string(req.Action)), zap.String("approver", approverUserID))
	return request, nil
}

// loadEmployee prefers an explicit employee id over the user's own record.
func loadEmployee(ctx context.Context, lookup employeeLookup, userID, employeeID string) (*models.Employee, error) {
	var (
		employee *models.Employee
		err      error
	)
	if employeeID != "" {
		employee, err = lookup.FindByID(ctx, employeeID)
	} else {
		employee, err = lookup.FindByUserID(ctx, userID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee record not found")
		}
		return nil, appErrors.Internal(err, "failed to load employee")
	}
	return employee, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

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
)

// employeeSearchLimit caps the quick search result list.
const employeeSearchLimit = 10

type employeeRepository interface {
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error)
	Search(ctx context.Context, term string, limit int) ([]models.EmployeeSearchResult, error)
	FindByID(ctx context.Context, id string) (*models.Employee, error)
	FindByUserID(ctx context.Context, userID string) (*models.Employee, error)
	ExistsByEmployeeID(ctx context.Context, employeeID, excludeID string) (bool, error)
	Create(ctx context.Context, employee *models.Employee) error
	Update(ctx context.Context, employee *models.Employee) error
	ListDepartments(ctx context.Context) ([]models.Department, error)
	CreateDepartment(ctx context.Context, department *models.Department) error
	ListPositions(ctx context.Context, departmentID string) ([]models.Position, error)
	CreatePosition(ctx context.Context, position *models.Position) error
}

// EmployeeRequest holds the payload for creating or updating employees.
type EmployeeRequest struct {
	UserID           string                  `json:"user_id" validate:"required"`
	EmployeeID       string                  `json:"employee_id" validate:"required,max=20"`
	DepartmentID     *string                 `json:"department_id"`
	PositionID       *string                 `json:"position_id"`
	HireDate         time.Time               `json:"hire_date" validate:"required"`
	EmploymentType   models.EmploymentType   `json:"employment_type" validate:"required,oneof=full_time part_time contract intern"`
	EmploymentStatus models.EmploymentStatus `json:"employment_status" validate:"omitempty,oneof=active on_leave terminated retired"`
	Salary           *decimal.Decimal        `json:"salary"`
	DateOfBirth      *time.Time              `json:"date_of_birth"`
	Phone            string                  `json:"phone"`
	EmergencyContact string                  `json:"emergency_contact"`
	EmergencyPhone   string                  `json:"emergency_phone"`
	Address          string                  `json:"address"`
}

// DepartmentRequest creates a department.
type DepartmentRequest struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description string           `json:"description"`
	ManagerID   *string          `json:"manager_id"`
	Budget      *decimal.Decimal `json:"budget"`
}

// PositionRequest creates a position.
type PositionRequest struct {
	Title        string           `json:"title" validate:"required,max=100"`
	DepartmentID string           `json:"department_id" validate:"required"`
	Description  string           `json:"description"`
	MinSalary    *decimal.Decimal `json:"min_salary"`
	MaxSalary    *decimal.Decimal `json:"max_salary"`
}

// EmployeeService manages employee records, departments and positions.
type EmployeeService struct {
	repo      employeeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEmployeeService constructs the employee service.
func NewEmployeeService(repo employeeRepository, validate *validator.Validate, logger *zap.Logger) *EmployeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeService{repo: repo, validator: validate, logger: logger}
}

// List returns employees with pagination metadata.
func (s *EmployeeService) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, *models.Pagination, error) {
	employees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list employees")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return employees, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Search returns the first matches for a quick lookup. An empty term yields
// an empty list.
func (s *EmployeeService) Search(ctx context.Context, term string) ([]models.EmployeeSearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.EmployeeSearchResult{}, nil
	}
	results, err := s.repo.Search(ctx, term, employeeSearchLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to search employees")
	}
	if results == nil {
		results = []models.EmployeeSearchResult{}
	}
	return results, nil
}

// Get returns one employee.
func (s *EmployeeService) Get(ctx context.Context, id string) (*models.Employee, error) {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Internal(err, "failed to load employee")
	}
	return employee, nil
}

// ForUser returns the employee record attached to a user account.
func (s *EmployeeService) ForUser(ctx context.Context, userID string) (*models.Employee, error) {
	employee, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no employee record for this account")
		}
		return nil, appErrors.Internal(err, "failed to load employee")
	}
	return employee, nil
}

// Create adds an employee record for an existing user.
func (s *EmployeeService) Create(ctx context.Context, req EmployeeRequest) (*models.Employee, error) {
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid employee payload")
	}
	if err := s.ensureEmployeeID(ctx, req.EmployeeID, ""); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByUserID(ctx, req.UserID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already has an employee record")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check employee user")
	}
	employee := &models.Employee{}
	applyEmployeeRequest(employee, req)
	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, appErrors.Internal(err, "failed to create employee")
	}
	return employee, nil
}

// Update edits an employee record.
func (s *EmployeeService) Update(ctx context.Context, id string, req EmployeeRequest) (*models.Employee, error) {
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid employee payload")
	}
	employee, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmployeeID(ctx, req.EmployeeID, id); err != nil {
		return nil, err
	}
	req.UserID = employee.UserID
	applyEmployeeRequest(employee, req)
	if err := s.repo.Update(ctx, employee); err != nil {
		return nil, appErrors.Internal(err, "failed to update employee")
	}
	return employee, nil
}

// Departments lists departments with head counts.
func (s *EmployeeService) Departments(ctx context.Context) ([]models.Department, error) {
	departments, err := s.repo.ListDepartments(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list departments")
	}
	return departments, nil
}

// CreateDepartment adds a department.
func (s *EmployeeService) CreateDepartment(ctx context.Context, req DepartmentRequest) (*models.Department, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid department payload")
	}
	department := &models.Department{Name: req.Name, Description: req.Description, ManagerID: req.ManagerID, Budget: req.Budget}
	if err := s.repo.CreateDepartment(ctx, department); err != nil {
		return nil, appErrors.Internal(err, "failed to create department")
	}
	return department, nil
}

// Positions lists positions, optionally within one department.
func (s *EmployeeService) Positions(ctx context.Context, departmentID string) ([]models.Position, error) {
	positions, err := s.repo.ListPositions(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list positions")
	}
	return positions, nil
}

// CreatePosition adds a position. The salary band must not be inverted.
func (s *EmployeeService) CreatePosition(ctx context.Context, req PositionRequest) (*models.Position, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid position payload")
	}
	if req.MinSalary != nil && req.MaxSalary != nil && req.MinSalary.GreaterThan(*req.MaxSalary) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "minimum salary exceeds maximum salary")
	}
	position := &models.Position{Title: req.Title, DepartmentID: req.DepartmentID, Description: req.Description, MinSalary: req.MinSalary, MaxSalary: req.MaxSalary}
	if err := s.repo.CreatePosition(ctx, position); err != nil {
		return nil, appErrors.Internal(err, "failed to create position")
	}
	return position, nil
}

func (s *EmployeeService) ensureEmployeeID(ctx context.Context, employeeID, excludeID string) error {
	exists, err := s.repo.ExistsByEmployeeID(ctx, employeeID, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate employee id")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "employee id already used")
	}
	return nil
}

func applyEmployeeRequest(employee *models.Employee, req EmployeeRequest) {
	employee.UserID = req.UserID
	employee.EmployeeID = req.EmployeeID
	employee.DepartmentID = req.DepartmentID
	employee.PositionID = req.PositionID
	employee.HireDate = req.HireDate
	employee.EmploymentType = req.EmploymentType
	employee.EmploymentStatus = req.EmploymentStatus
	if employee.EmploymentStatus == "" {
		employee.EmploymentStatus = models.EmploymentActive
	}
	employee.Salary = req.Salary
	employee.DateOfBirth = req.DateOfBirth
	employee.Phone = req.Phone
	employee.EmergencyContact = req.EmergencyContact
	employee.EmergencyPhone = req.EmergencyPhone
	employee.Address = req.Address
}

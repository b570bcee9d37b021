package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type employeeService interface {
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, *models.Pagination, error)
	Search(ctx context.Context, term string) ([]models.EmployeeSearchResult, error)
	Get(ctx context.Context, id string) (*models.Employee, error)
	Create(ctx context.Context, req service.EmployeeRequest) (*models.Employee, error)
	Update(ctx context.Context, id string, req service.EmployeeRequest) (*models.Employee, error)
	Departments(ctx context.Context) ([]models.Department, error)
	CreateDepartment(ctx context.Context, req service.DepartmentRequest) (*models.Department, error)
	Positions(ctx context.Context, departmentID string) ([]models.Position, error)
	CreatePosition(ctx context.Context, req service.PositionRequest) (*models.Position, error)
}

// EmployeeHandler exposes employee records, departments and positions.
type EmployeeHandler struct {
	service employeeService
}

// NewEmployeeHandler constructs the handler.
func NewEmployeeHandler(svc employeeService) *EmployeeHandler {
	return &EmployeeHandler{service: svc}
}

// List godoc
// @Summary List employees
// @Tags Employees
// @Produce json
// @Param search query string false "Name or employee ID"
// @Param department_id query string false "Department"
// @Param status query string false "Employment status"
// @Success 200 {object} response.Envelope
// @Router /employees [get]
func (h *EmployeeHandler) List(c *gin.Context) {
	filter := models.EmployeeFilter{
		Search:       c.Query("search"),
		DepartmentID: c.Query("department_id"),
		Status:       c.Query("status"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	employees, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employees, pagination)
}

// Search godoc
// @Summary Quick employee search
// @Description Returns {"results": [...]} with at most ten matches, outside the usual envelope
// @Tags Employees
// @Produce json
// @Param q query string true "Search term"
// @Success 200 {object} map[string][]models.EmployeeSearchResult
// @Router /employees/search [get]
func (h *EmployeeHandler) Search(c *gin.Context) {
	results, err := h.service.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if results == nil {
		results = []models.EmployeeSearchResult{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Get godoc
// @Summary Employee detail
// @Tags Employees
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id} [get]
func (h *EmployeeHandler) Get(c *gin.Context) {
	employee, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employee, nil)
}

// Create godoc
// @Summary Create employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param payload body service.EmployeeRequest true "Employee"
// @Success 201 {object} response.Envelope
// @Router /employees [post]
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req service.EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid employee payload"))
		return
	}
	employee, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, employee)
}

// Update godoc
// @Summary Update employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param payload body service.EmployeeRequest true "Employee"
// @Success 200 {object} response.Envelope
// @Router /employees/{id} [put]
func (h *EmployeeHandler) Update(c *gin.Context) {
	var req service.EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid employee payload"))
		return
	}
	employee, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employee, nil)
}

// Departments godoc
// @Summary List departments
// @Tags Employees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *EmployeeHandler) Departments(c *gin.Context) {
	departments, err := h.service.Departments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, departments, nil)
}

// CreateDepartment godoc
// @Summary Create department
// @Tags Employees
// @Accept json
// @Produce json
// @Param payload body service.DepartmentRequest true "Department"
// @Success 201 {object} response.Envelope
// @Router /departments [post]
func (h *EmployeeHandler) CreateDepartment(c *gin.Context) {
	var req service.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid department payload"))
		return
	}
	department, err := h.service.CreateDepartment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, department)
}

// Positions godoc
// @Summary List positions
// @Tags Employees
// @Produce json
// @Param department_id query string false "Department"
// @Success 200 {object} response.Envelope
// @Router /positions [get]
func (h *EmployeeHandler) Positions(c *gin.Context) {
	positions, err := h.service.Positions(c.Request.Context(), c.Query("department_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, positions, nil)
}

// CreatePosition godoc
// @Summary Create position
// @Tags Employees
// @Accept json
// @Produce json
// @Param payload body service.PositionRequest true "Position"
// @Success 201 {object} response.Envelope
// @Router /positions [post]
func (h *EmployeeHandler) CreatePosition(c *gin.Context) {
	var req service.PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid position payload"))
		return
	}
	position, err := h.service.CreatePosition(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, position)
}

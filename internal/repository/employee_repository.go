package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/dto"
	"github.com/noah-isme/school-admin-api/internal/models"
)

const employeeSelect = `SELECT e.id, e.user_id, e.employee_id, e.department_id, e.position_id, e.hire_date, e.employment_type, e.employment_status, e.salary,
e.date_of_birth, e.phone, e.emergency_contact, e.emergency_phone, e.address, e.profile_picture, e.created_at, e.updated_at,
TRIM(u.first_name || ' ' || u.last_name) AS full_name, u.email, d.name AS department_name, p.title AS position_title
FROM employees e
JOIN users u ON u.id = e.user_id
LEFT JOIN departments d ON d.id = e.department_id
LEFT JOIN positions p ON p.id = e.position_id`

// EmployeeRepository persists employees, departments and positions.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// List returns employees matching the filter.
func (r *EmployeeRepository) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.Search != "" {
		pos := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.first_name) LIKE $%d OR LOWER(u.last_name) LIKE $%d OR LOWER(e.employee_id) LIKE $%d)", pos, pos, pos))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.employment_status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size
	query := fmt.Sprintf("%s%s ORDER BY e.employee_id ASC LIMIT %d OFFSET %d", employeeSelect, where, size, offset)

	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM employees e JOIN users u ON u.id = e.user_id"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}
	return employees, total, nil
}

// Search returns up to limit substring matches on name or employee number.
func (r *EmployeeRepository) Search(ctx context.Context, term string, limit int) ([]models.EmployeeSearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT e.id, TRIM(u.first_name || ' ' || u.last_name) AS name, e.employee_id,
COALESCE(d.name, '') AS department, COALESCE(p.title, '') AS position
FROM employees e
JOIN users u ON u.id = e.user_id
LEFT JOIN departments d ON d.id = e.department_id
LEFT JOIN positions p ON p.id = e.position_id
WHERE LOWER(u.first_name) LIKE $1 OR LOWER(u.last_name) LIKE $1 OR LOWER(e.employee_id) LIKE $1
ORDER BY e.employee_id ASC LIMIT $2`
	results := []models.EmployeeSearchResult{}
	if err := r.db.SelectContext(ctx, &results, query, "%"+strings.ToLower(term)+"%", limit); err != nil {
		return nil, fmt.Errorf("search employees: %w", err)
	}
	return results, nil
}

// FindByID loads one employee with joined labels.
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, employeeSelect+" WHERE e.id = $1", id); err != nil {
		return nil, err
	}
	return &employee, nil
}

// FindByUserID loads the employee record of an account.
func (r *EmployeeRepository) FindByUserID(ctx context.Context, userID string) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, employeeSelect+" WHERE e.user_id = $1", userID); err != nil {
		return nil, err
	}
	return &employee, nil
}

// ExistsByEmployeeID checks the unique employee number.
func (r *EmployeeRepository) ExistsByEmployeeID(ctx context.Context, employeeID, excludeID string) (bool, error) {
	query := `SELECT 1 FROM employees WHERE employee_id = $1`
	args := []interface{}{employeeID}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check employee id: %w", err)
	}
	return true, nil
}

// Create inserts an employee.
func (r *EmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = now
	}
	employee.UpdatedAt = now
	const query = `INSERT INTO employees (id, user_id, employee_id, department_id, position_id, hire_date, employment_type, employment_status, salary, date_of_birth, phone, emergency_contact, emergency_phone, address, profile_picture, created_at, updated_at)
VALUES (:id, :user_id, :employee_id, :department_id, :position_id, :hire_date, :employment_type, :employment_status, :salary, :date_of_birth, :phone, :emergency_contact, :emergency_phone, :address, :profile_picture, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, employee); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

// Update modifies an employee.
func (r *EmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	employee.UpdatedAt = time.Now().UTC()
	const query = `UPDATE employees SET department_id = :department_id, position_id = :position_id, hire_date = :hire_date, employment_type = :employment_type,
employment_status = :employment_status, salary = :salary, date_of_birth = :date_of_birth, phone = :phone, emergency_contact = :emergency_contact,
emergency_phone = :emergency_phone, address = :address, profile_picture = :profile_picture, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, employee); err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	return nil
}

// CountByStatus counts employees in an employment status.
func (r *EmployeeRepository) CountByStatus(ctx context.Context, status models.EmploymentStatus) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM employees WHERE employment_status = $1`, status); err != nil {
		return 0, fmt.Errorf("count employees by status: %w", err)
	}
	return total, nil
}

// CountHiredSince counts employees hired on or after since.
func (r *EmployeeRepository) CountHiredSince(ctx context.Context, since time.Time) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM employees WHERE hire_date >= $1`, since); err != nil {
		return 0, fmt.Errorf("count recent hires: %w", err)
	}
	return total, nil
}

// Recent returns the latest created employees.
func (r *EmployeeRepository) Recent(ctx context.Context, limit int) ([]models.Employee, error) {
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, employeeSelect+" ORDER BY e.created_at DESC LIMIT $1", limit); err != nil {
		return nil, fmt.Errorf("recent employees: %w", err)
	}
	return employees, nil
}

// ListDepartments returns departments with their active headcount.
func (r *EmployeeRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT d.id, d.name, d.description, d.manager_id, d.budget, d.created_at,
COUNT(e.id) FILTER (WHERE e.employment_status = 'active') AS employee_count
FROM departments d LEFT JOIN employees e ON e.department_id = d.id
GROUP BY d.id ORDER BY d.name ASC`
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// DepartmentHeadcounts is the HR dashboard variant of ListDepartments.
func (r *EmployeeRepository) DepartmentHeadcounts(ctx context.Context) ([]dto.DepartmentHeadcount, error) {
	const query = `SELECT d.id, d.name, COUNT(e.id) FILTER (WHERE e.employment_status = 'active') AS employee_count
FROM departments d LEFT JOIN employees e ON e.department_id = d.id GROUP BY d.id ORDER BY d.name ASC`
	var rows []dto.DepartmentHeadcount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("department headcounts: %w", err)
	}
	return rows, nil
}

// CountDepartments returns the number of departments.
func (r *EmployeeRepository) CountDepartments(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM departments`); err != nil {
		return 0, fmt.Errorf("count departments: %w", err)
	}
	return total, nil
}

// CreateDepartment inserts a department.
func (r *EmployeeRepository) CreateDepartment(ctx context.Context, department *models.Department) error {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	if department.CreatedAt.IsZero() {
		department.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO departments (id, name, description, manager_id, budget, created_at) VALUES (:id, :name, :description, :manager_id, :budget, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// ListPositions returns positions, optionally for one department.
func (r *EmployeeRepository) ListPositions(ctx context.Context, departmentID string) ([]models.Position, error) {
	query := `SELECT p.id, p.title, p.department_id, d.name AS department_name, p.description, p.min_salary, p.max_salary FROM positions p JOIN departments d ON d.id = p.department_id`
	var args []interface{}
	if departmentID != "" {
		query += ` WHERE p.department_id = $1`
		args = append(args, departmentID)
	}
	query += ` ORDER BY d.name ASC, p.title ASC`
	var positions []models.Position
	if err := r.db.SelectContext(ctx, &positions, query, args...); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return positions, nil
}

// CreatePosition inserts a position.
func (r *EmployeeRepository) CreatePosition(ctx context.Context, position *models.Position) error {
	if position.ID == "" {
		position.ID = uuid.NewString()
	}
	const query = `INSERT INTO positions (id, title, department_id, description, min_salary, max_salary) VALUES (:id, :title, :department_id, :description, :min_salary, :max_salary)`
	if _, err := r.db.NamedExecContext(ctx, query, position); err != nil {
		return fmt.Errorf("create position: %w", err)
	}
	return nil
}

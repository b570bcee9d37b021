package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Department groups employees and positions.
type Department struct {
	ID            string           `db:"id" json:"id"`
	Name          string           `db:"name" json:"name"`
	Description   string           `db:"description" json:"description"`
	ManagerID     *string          `db:"manager_id" json:"manager_id,omitempty"`
	Budget        *decimal.Decimal `db:"budget" json:"budget,omitempty"`
	EmployeeCount int              `db:"employee_count" json:"employee_count"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// Position is a job title inside a department.
type Position struct {
	ID             string           `db:"id" json:"id"`
	Title          string           `db:"title" json:"title"`
	DepartmentID   string           `db:"department_id" json:"department_id"`
	DepartmentName string           `db:"department_name" json:"department_name,omitempty"`
	Description    string           `db:"description" json:"description"`
	MinSalary      *decimal.Decimal `db:"min_salary" json:"min_salary,omitempty"`
	MaxSalary      *decimal.Decimal `db:"max_salary" json:"max_salary,omitempty"`
}

// EmploymentType is the contract kind.
type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "full_time"
	EmploymentPartTime EmploymentType = "part_time"
	EmploymentContract EmploymentType = "contract"
	EmploymentIntern   EmploymentType = "intern"
)

// EmploymentStatus is the current standing of an employee.
type EmploymentStatus string

const (
	EmploymentActive     EmploymentStatus = "active"
	EmploymentOnLeave    EmploymentStatus = "on_leave"
	EmploymentTerminated EmploymentStatus = "terminated"
	EmploymentRetired    EmploymentStatus = "retired"
)

// Employee is the HR record attached to a user account.
type Employee struct {
	ID               string           `db:"id" json:"id"`
	UserID           string           `db:"user_id" json:"user_id"`
	EmployeeID       string           `db:"employee_id" json:"employee_id"`
	DepartmentID     *string          `db:"department_id" json:"department_id,omitempty"`
	PositionID       *string          `db:"position_id" json:"position_id,omitempty"`
	HireDate         time.Time        `db:"hire_date" json:"hire_date"`
	EmploymentType   EmploymentType   `db:"employment_type" json:"employment_type"`
	EmploymentStatus EmploymentStatus `db:"employment_status" json:"employment_status"`
	Salary           *decimal.Decimal `db:"salary" json:"salary,omitempty"`
	DateOfBirth      *time.Time       `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Phone            string           `db:"phone" json:"phone"`
	EmergencyContact string           `db:"emergency_contact" json:"emergency_contact"`
	EmergencyPhone   string           `db:"emergency_phone" json:"emergency_phone"`
	Address          string           `db:"address" json:"address"`
	ProfilePicture   *string          `db:"profile_picture" json:"profile_picture,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`

	FullName       string  `db:"full_name" json:"full_name"`
	Email          string  `db:"email" json:"email"`
	DepartmentName *string `db:"department_name" json:"department_name,omitempty"`
	PositionTitle  *string `db:"position_title" json:"position_title,omitempty"`
}

// YearsOfService counts whole 365-day years since hire.
func (e Employee) YearsOfService(at time.Time) int {
	if at.Before(e.HireDate) {
		return 0
	}
	return int(at.Sub(e.HireDate).Hours() / 24 / 365)
}

// EmployeeFilter narrows employee listings.
type EmployeeFilter struct {
	Search       string
	DepartmentID string
	Status       string
	Page         int
	PageSize     int
}

// EmployeeSearchResult is one item of the quick search endpoint.
type EmployeeSearchResult struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	EmployeeID string `db:"employee_id" json:"employee_id"`
	Department string `db:"department" json:"department"`
	Position   string `db:"position" json:"position"`
}

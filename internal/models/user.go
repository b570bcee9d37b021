package models

import (
	"strings"
	"time"
)

// User represents an account identity stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	IsSuperuser  bool       `db:"is_superuser" json:"is_superuser"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// UserProfile carries the organisational role of a user. IsSuperuser,
// Username and FullName are read from the owning users row.
type UserProfile struct {
	ID               string     `db:"id" json:"id"`
	UserID           string     `db:"user_id" json:"user_id"`
	EmployeeID       string     `db:"employee_id" json:"employee_id"`
	DepartmentID     *string    `db:"department_id" json:"department_id,omitempty"`
	Role             Role       `db:"role" json:"role"`
	Phone            string     `db:"phone" json:"phone"`
	Address          string     `db:"address" json:"address"`
	HireDate         *time.Time `db:"hire_date" json:"hire_date,omitempty"`
	IsActiveEmployee bool       `db:"is_active_employee" json:"is_active_employee"`
	ClassName        *string    `db:"class_name" json:"class_name,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`

	Username    string `db:"username" json:"username"`
	FullName    string `db:"full_name" json:"full_name"`
	Email       string `db:"email" json:"email"`
	IsSuperuser bool   `db:"is_superuser" json:"is_superuser"`
}

// HasClass reports whether a class name is assigned.
func (p UserProfile) HasClass() bool {
	return p.ClassName != nil && strings.TrimSpace(*p.ClassName) != ""
}

// ProfileFilter narrows profile listings.
type ProfileFilter struct {
	Role     *Role
	Search   string
	Page     int
	PageSize int
}

// LoginLog records a login attempt outcome.
type LoginLog struct {
	ID        string    `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Username  string    `db:"username" json:"username"`
	Success   bool      `db:"success" json:"success"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NormalizePage clamps page and size the way every list endpoint does.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}

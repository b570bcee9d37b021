package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-admin-api/internal/models"
)

// DashboardRoute tells the client which role dashboard to open.
type DashboardRoute struct {
	Role      models.Role `json:"role"`
	Dashboard string      `json:"dashboard"`
}

// MainDashboard is shown to roles without a dedicated dashboard.
type MainDashboard struct {
	Profile          models.UserProfile `json:"profile"`
	Route            string             `json:"route"`
	TotalEmployees   int                `json:"total_employees"`
	TotalDepartments int                `json:"total_departments"`
	TotalStudents    *int               `json:"total_students,omitempty"`
	PendingPayments  *int               `json:"pending_payments,omitempty"`
	ActiveEmployees  *int               `json:"active_employees,omitempty"`
	PendingLeaves    *int               `json:"pending_leaves,omitempty"`
}

// SubmissionCounts summarises submissions for a teacher or reviewer.
type SubmissionCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
}

// TeacherDashboard lists the teacher's own submissions.
type TeacherDashboard struct {
	ClassName       *string                 `json:"class_name,omitempty"`
	SubmittedToName *string                 `json:"submitted_to_name,omitempty"`
	Counts          SubmissionCounts        `json:"counts"`
	Submissions     []models.WorkSubmission `json:"submissions"`
}

// DirectorDashboard lists work waiting on the director.
type DirectorDashboard struct {
	TotalTeachers      int                     `json:"total_teachers"`
	TotalHeadsOfClass  int                     `json:"total_heads_of_class"`
	Counts             SubmissionCounts        `json:"counts"`
	PendingSubmissions []models.WorkSubmission `json:"pending_submissions"`
}

// HeadOfClassDashboard combines the review queue with the class roster.
type HeadOfClassDashboard struct {
	ClassName          *string                 `json:"class_name,omitempty"`
	ClassTeachers      []models.UserProfile    `json:"class_teachers"`
	Counts             SubmissionCounts        `json:"counts"`
	PendingSubmissions []models.WorkSubmission `json:"pending_submissions"`
	MySubmissions      []models.WorkSubmission `json:"my_submissions"`
	MyPending          int                     `json:"my_pending"`
}

// SecurityDashboard shows today's staff attendance.
type SecurityDashboard struct {
	Date    string                   `json:"date"`
	Records []models.StaffAttendance `json:"records"`
	Present int                      `json:"present"`
	Late    int                      `json:"late"`
}

// BursarDashboard aggregates fee collection statistics.
type BursarDashboard struct {
	CurrentYear         *models.AcademicYear    `json:"current_year,omitempty"`
	TotalStudents       int                     `json:"total_students"`
	TotalExpected       decimal.Decimal         `json:"total_expected"`
	TotalCollected      decimal.Decimal         `json:"total_collected"`
	TotalOutstanding    decimal.Decimal         `json:"total_outstanding"`
	CollectionRate      decimal.Decimal         `json:"collection_rate"`
	TodayCollections    decimal.Decimal         `json:"today_collections"`
	MonthCollections    decimal.Decimal         `json:"month_collections"`
	ScholarshipStudents int                     `json:"scholarship_students"`
	PendingBalances     int                     `json:"pending_balances"`
	PaymentMethods      []models.MethodTotal    `json:"payment_methods"`
	RecentPayments      []models.FeePaymentView `json:"recent_payments"`
	Defaulters          []models.FeeBalanceView `json:"defaulters"`
}

// DepartmentHeadcount is one row of the HR department breakdown.
type DepartmentHeadcount struct {
	ID            string `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	EmployeeCount int    `db:"employee_count" json:"employee_count"`
}

// HRDashboard aggregates HR statistics.
type HRDashboard struct {
	TotalEmployees   int                   `json:"total_employees"`
	TotalDepartments int                   `json:"total_departments"`
	RecentHires      int                   `json:"recent_hires"`
	PendingLeaves    int                   `json:"pending_leaves"`
	Departments      []DepartmentHeadcount `json:"departments"`
	RecentEmployees  []models.Employee     `json:"recent_employees"`
	RecentLeaves     []models.LeaveRequest `json:"recent_leaves"`
}

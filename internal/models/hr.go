package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeaveType is a category of leave with an annual allowance.
type LeaveType struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	DaysAllowed int    `db:"days_allowed" json:"days_allowed"`
	Description string `db:"description" json:"description"`
}

// LeaveStatus is the decision state of a leave request.
type LeaveStatus string

const (
	LeavePending   LeaveStatus = "pending"
	LeaveApproved  LeaveStatus = "approved"
	LeaveRejected  LeaveStatus = "rejected"
	LeaveCancelled LeaveStatus = "cancelled"
)

// LeaveRequest is an employee's application for leave.
type LeaveRequest struct {
	ID            string      `db:"id" json:"id"`
	EmployeeID    string      `db:"employee_id" json:"employee_id"`
	LeaveTypeID   string      `db:"leave_type_id" json:"leave_type_id"`
	StartDate     time.Time   `db:"start_date" json:"start_date"`
	EndDate       time.Time   `db:"end_date" json:"end_date"`
	Reason        string      `db:"reason" json:"reason"`
	Status        LeaveStatus `db:"status" json:"status"`
	ApprovedBy    *string     `db:"approved_by" json:"approved_by,omitempty"`
	AppliedOn     time.Time   `db:"applied_on" json:"applied_on"`
	ApprovedOn    *time.Time  `db:"approved_on" json:"approved_on,omitempty"`
	EmployeeName  string      `db:"employee_name" json:"employee_name,omitempty"`
	LeaveTypeName string      `db:"leave_type_name" json:"leave_type_name,omitempty"`
}

// Duration is the inclusive number of calendar days requested.
func (l LeaveRequest) Duration() int {
	return int(l.EndDate.Sub(l.StartDate).Hours()/24) + 1
}

// PerformanceReview holds five 1-5 ratings for a review period.
type PerformanceReview struct {
	ID                string    `db:"id" json:"id"`
	EmployeeID        string    `db:"employee_id" json:"employee_id"`
	ReviewerID        string    `db:"reviewer_id" json:"reviewer_id"`
	ReviewPeriodStart time.Time `db:"review_period_start" json:"review_period_start"`
	ReviewPeriodEnd   time.Time `db:"review_period_end" json:"review_period_end"`
	OverallRating     int       `db:"overall_rating" json:"overall_rating"`
	GoalsAchievement  int       `db:"goals_achievement" json:"goals_achievement"`
	Communication     int       `db:"communication" json:"communication"`
	Teamwork          int       `db:"teamwork" json:"teamwork"`
	TechnicalSkills   int       `db:"technical_skills" json:"technical_skills"`
	Comments          string    `db:"comments" json:"comments"`
	Recommendations   string    `db:"recommendations" json:"recommendations"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	EmployeeName      string    `db:"employee_name" json:"employee_name,omitempty"`
}

// AverageRating is the mean of the five ratings.
func (r PerformanceReview) AverageRating() decimal.Decimal {
	sum := r.OverallRating + r.GoalsAchievement + r.Communication + r.Teamwork + r.TechnicalSkills
	return decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(5)).Round(2)
}

// StaffAttendance is one employee's attendance for a day. Times are stored as
// full timestamps on that date.
type StaffAttendance struct {
	ID           string     `db:"id" json:"id"`
	EmployeeID   string     `db:"employee_id" json:"employee_id"`
	Date         time.Time  `db:"date" json:"date"`
	CheckIn      *time.Time `db:"check_in" json:"check_in,omitempty"`
	CheckOut     *time.Time `db:"check_out" json:"check_out,omitempty"`
	BreakStart   *time.Time `db:"break_start" json:"break_start,omitempty"`
	BreakEnd     *time.Time `db:"break_end" json:"break_end,omitempty"`
	IsPresent    bool       `db:"is_present" json:"is_present"`
	IsLate       bool       `db:"is_late" json:"is_late"`
	Notes        string     `db:"notes" json:"notes"`
	EmployeeName string     `db:"employee_name" json:"employee_name,omitempty"`
}

// HoursWorked is (check out - check in) minus the break, or zero when either
// end of the shift is missing.
func (a StaffAttendance) HoursWorked() decimal.Decimal {
	if a.CheckIn == nil || a.CheckOut == nil {
		return decimal.Zero
	}
	worked := a.CheckOut.Sub(*a.CheckIn)
	if a.BreakStart != nil && a.BreakEnd != nil {
		worked -= a.BreakEnd.Sub(*a.BreakStart)
	}
	return decimal.NewFromFloat(worked.Hours()).Round(2)
}

// AttendanceSummary aggregates a month of attendance for one employee.
type AttendanceSummary struct {
	EmployeeID  string          `json:"employee_id"`
	Month       string          `json:"month"`
	DaysPresent int             `json:"days_present"`
	DaysAbsent  int             `json:"days_absent"`
	DaysLate    int             `json:"days_late"`
	TotalHours  decimal.Decimal `json:"total_hours"`
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const leaveSelect = `SELECT l.id, l.employee_id, l.leave_type_id, l.start_date, l.end_date, l.reason, l.status, l.approved_by, l.applied_on, l.approved_on,
TRIM(u.first_name || ' ' || u.last_name) AS employee_name, t.name AS leave_type_name
FROM leave_requests l
JOIN employees e ON e.id = l.employee_id
JOIN users u ON u.id = e.user_id
JOIN leave_types t ON t.id = l.leave_type_id`

// LeaveRepository persists leave types and requests.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// ListTypes returns the configured leave types.
func (r *LeaveRepository) ListTypes(ctx context.Context) ([]models.LeaveType, error) {
	var types []models.LeaveType
	if err := r.db.SelectContext(ctx, &types, `SELECT id, name, days_allowed, description FROM leave_types ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list leave types: %w", err)
	}
	return types, nil
}

// FindType loads a leave type.
func (r *LeaveRepository) FindType(ctx context.Context, id string) (*models.LeaveType, error) {
	var lt models.LeaveType
	if err := r.db.GetContext(ctx, &lt, `SELECT id, name, days_allowed, description FROM leave_types WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &lt, nil
}

// CreateType inserts a leave type.
func (r *LeaveRepository) CreateType(ctx context.Context, lt *models.LeaveType) error {
	if lt.ID == "" {
		lt.ID = uuid.NewString()
	}
	if _, err := r.db.NamedExecContext(ctx, `INSERT INTO leave_types (id, name, days_allowed, description) VALUES (:id, :name, :days_allowed, :description)`, lt); err != nil {
		return fmt.Errorf("create leave type: %w", err)
	}
	return nil
}

// List returns leave requests, optionally filtered by status and employee.
func (r *LeaveRepository) List(ctx context.Context, status models.LeaveStatus, employeeID string, page, size int) ([]models.LeaveRequest, int, error) {
	where := " WHERE 1=1"
	var args []interface{}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(" AND l.status = $%d", len(args))
	}
	if employeeID != "" {
		args = append(args, employeeID)
		where += fmt.Sprintf(" AND l.employee_id = $%d", len(args))
	}
	page, size = models.NormalizePage(page, size)
	query := fmt.Sprintf("%s%s ORDER BY l.applied_on DESC LIMIT %d OFFSET %d", leaveSelect, where, size, (page-1)*size)

	var requests []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM leave_requests l"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}
	return requests, total, nil
}

// FindByID loads a leave request.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	var request models.LeaveRequest
	if err := r.db.GetContext(ctx, &request, leaveSelect+" WHERE l.id = $1", id); err != nil {
		return nil, err
	}
	return &request, nil
}

// Create inserts a leave request.
func (r *LeaveRepository) Create(ctx context.Context, request *models.LeaveRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.AppliedOn.IsZero() {
		request.AppliedOn = time.Now().UTC()
	}
	if request.Status == "" {
		request.Status = models.LeavePending
	}
	const query = `INSERT INTO leave_requests (id, employee_id, leave_type_id, start_date, end_date, reason, status, applied_on) VALUES (:id, :employee_id, :leave_type_id, :start_date, :end_date, :reason, :status, :applied_on)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// Decide records an approval or rejection. Only pending requests change; the
// boolean reports whether a row was updated.
func (r *LeaveRepository) Decide(ctx context.Context, id string, status models.LeaveStatus, approverID string, at time.Time) (bool, error) {
	const query = `UPDATE leave_requests SET status = $2, approved_by = $3, approved_on = $4 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, status, approverID, at)
	if err != nil {
		return false, fmt.Errorf("decide leave request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decide leave request: %w", err)
	}
	return affected > 0, nil
}

// CountByStatus counts leave requests in a status.
func (r *LeaveRepository) CountByStatus(ctx context.Context, status models.LeaveStatus) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM leave_requests WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("count leave requests: %w", err)
	}
	return total, nil
}

// DaysTaken sums approved leave days of a type for an employee within a year.
func (r *LeaveRepository) DaysTaken(ctx context.Context, employeeID, leaveTypeID string, year int) (int, error) {
	const query = `SELECT COALESCE(SUM(end_date - start_date + 1), 0) FROM leave_requests
WHERE employee_id = $1 AND leave_type_id = $2 AND status = 'approved' AND EXTRACT(YEAR FROM start_date) = $3`
	var days int
	if err := r.db.GetContext(ctx, &days, query, employeeID, leaveTypeID, year); err != nil {
		return 0, fmt.Errorf("sum leave days: %w", err)
	}
	return days, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const staffAttendanceSelect = `SELECT a.id, a.employee_id, a.date, a.check_in, a.check_out, a.break_start, a.break_end, a.is_present, a.is_late, a.notes,
TRIM(u.first_name || ' ' || u.last_name) AS employee_name
FROM staff_attendance a JOIN employees e ON e.id = a.employee_id JOIN users u ON u.id = e.user_id`

// StaffAttendanceRepository persists daily staff attendance.
type StaffAttendanceRepository struct {
	db *sqlx.DB
}

// NewStaffAttendanceRepository constructs the repository.
func NewStaffAttendanceRepository(db *sqlx.DB) *StaffAttendanceRepository {
	return &StaffAttendanceRepository{db: db}
}

// Upsert records attendance for (employee, date), replacing an earlier entry
// for the same day.
func (r *StaffAttendanceRepository) Upsert(ctx context.Context, record *models.StaffAttendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	const query = `INSERT INTO staff_attendance (id, employee_id, date, check_in, check_out, break_start, break_end, is_present, is_late, notes)
VALUES (:id, :employee_id, :date, :check_in, :check_out, :break_start, :break_end, :is_present, :is_late, :notes)
ON CONFLICT (employee_id, date) DO UPDATE SET check_in = EXCLUDED.check_in, check_out = EXCLUDED.check_out, break_start = EXCLUDED.break_start,
break_end = EXCLUDED.break_end, is_present = EXCLUDED.is_present, is_late = EXCLUDED.is_late, notes = EXCLUDED.notes
RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("upsert staff attendance: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&record.ID); err != nil {
			return fmt.Errorf("scan staff attendance id: %w", err)
		}
	}
	return rows.Err()
}

// ListByDate returns attendance recorded on a day.
func (r *StaffAttendanceRepository) ListByDate(ctx context.Context, day time.Time) ([]models.StaffAttendance, error) {
	var records []models.StaffAttendance
	if err := r.db.SelectContext(ctx, &records, staffAttendanceSelect+" WHERE a.date = $1 ORDER BY employee_name ASC", day); err != nil {
		return nil, fmt.Errorf("list staff attendance: %w", err)
	}
	return records, nil
}

// ListForEmployee returns attendance of one employee within [from, to).
func (r *StaffAttendanceRepository) ListForEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]models.StaffAttendance, error) {
	var records []models.StaffAttendance
	query := staffAttendanceSelect + " WHERE a.employee_id = $1 AND a.date >= $2 AND a.date < $3 ORDER BY a.date ASC"
	if err := r.db.SelectContext(ctx, &records, query, employeeID, from, to); err != nil {
		return nil, fmt.Errorf("list employee attendance: %w", err)
	}
	return records, nil
}

package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

const defaultWorkdayStart = 8 * time.Hour

type staffAttendanceRepository interface {
	Upsert(ctx context.Context, record *models.StaffAttendance) error
	ListByDate(ctx context.Context, day time.Time) ([]models.StaffAttendance, error)
	ListForEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]models.StaffAttendance, error)
}

// AttendanceRequest records a day for one employee. Times are "HH:MM" on Date.
// IsLate is derived from check-in when omitted.
type AttendanceRequest struct {
	EmployeeID string    `json:"employee_id" validate:"required"`
	Date       time.Time `json:"date" validate:"required"`
	CheckIn    string    `json:"check_in" validate:"omitempty,datetime=15:04"`
	CheckOut   string    `json:"check_out" validate:"omitempty,datetime=15:04"`
	BreakStart string    `json:"break_start" validate:"omitempty,datetime=15:04"`
	BreakEnd   string    `json:"break_end" validate:"omitempty,datetime=15:04"`
	IsPresent  *bool     `json:"is_present"`
	IsLate     *bool     `json:"is_late"`
	Notes      string    `json:"notes"`
}

// StaffAttendanceService records staff check-ins and summarises months.
type StaffAttendanceService struct {
	repo         staffAttendanceRepository
	employees    employeeLookup
	workdayStart time.Duration
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewStaffAttendanceService constructs the service. workdayStart is the
// offset from midnight after which a check-in counts as late.
func NewStaffAttendanceService(repo staffAttendanceRepository, employees employeeLookup, workdayStart time.Duration, validate *validator.Validate, logger *zap.Logger) *StaffAttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if workdayStart <= 0 {
		workdayStart = defaultWorkdayStart
	}
	return &StaffAttendanceService{repo: repo, employees: employees, workdayStart: workdayStart, validator: validate, logger: logger}
}

// Record stores attendance for (employee, date), replacing an earlier entry.
func (s *StaffAttendanceService) Record(ctx context.Context, req AttendanceRequest) (*models.StaffAttendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid attendance payload")
	}
	employee, err := loadEmployee(ctx, s.employees, "", req.EmployeeID)
	if err != nil {
		return nil, err
	}
	day := truncateDay(req.Date)
	record := &models.StaffAttendance{
		EmployeeID:   employee.ID,
		Date:         day,
		CheckIn:      clockOn(day, req.CheckIn),
		CheckOut:     clockOn(day, req.CheckOut),
		BreakStart:   clockOn(day, req.BreakStart),
		BreakEnd:     clockOn(day, req.BreakEnd),
		Notes:        req.Notes,
		EmployeeName: employee.FullName,
	}
	if record.CheckIn != nil && record.CheckOut != nil && record.CheckOut.Before(*record.CheckIn) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "check out cannot be before check in")
	}
	if record.BreakStart != nil && record.BreakEnd != nil && record.BreakEnd.Before(*record.BreakStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "break end cannot be before break start")
	}

	record.IsPresent = record.CheckIn != nil
	if req.IsPresent != nil {
		record.IsPresent = *req.IsPresent
	}
	if req.IsLate != nil {
		record.IsLate = *req.IsLate
	} else if record.CheckIn != nil {
		record.IsLate = record.CheckIn.After(day.Add(s.workdayStart))
	}

	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, appErrors.Internal(err, "failed to record attendance")
	}
	return record, nil
}

// Day returns attendance recorded on one date.
func (s *StaffAttendanceService) Day(ctx context.Context, day time.Time) ([]models.StaffAttendance, error) {
	records, err := s.repo.ListByDate(ctx, truncateDay(day))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	if records == nil {
		records = []models.StaffAttendance{}
	}
	return records, nil
}

// MonthlySummary counts present, absent and late days and sums hours worked
// for the calendar month containing month.
func (s *StaffAttendanceService) MonthlySummary(ctx context.Context, employeeID string, month time.Time) (*models.AttendanceSummary, []models.StaffAttendance, error) {
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	records, err := s.repo.ListForEmployee(ctx, employeeID, from, to)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to load attendance")
	}
	summary := SummariseAttendance(employeeID, from, records)
	if records == nil {
		records = []models.StaffAttendance{}
	}
	return &summary, records, nil
}

// SummariseAttendance folds attendance records into a monthly summary.
func SummariseAttendance(employeeID string, month time.Time, records []models.StaffAttendance) models.AttendanceSummary {
	summary := models.AttendanceSummary{EmployeeID: employeeID, Month: month.Format("2006-01"), TotalHours: decimal.Zero}
	for _, rec := range records {
		if rec.IsPresent {
			summary.DaysPresent++
		} else {
			summary.DaysAbsent++
		}
		if rec.IsLate {
			summary.DaysLate++
		}
		summary.TotalHours = summary.TotalHours.Add(rec.HoursWorked())
	}
	return summary
}

func clockOn(day time.Time, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		return nil
	}
	v := day.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute)
	return &v
}

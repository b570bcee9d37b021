package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/dto"
	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/money"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

const (
	dashboardListLimit   = 10
	dashboardRecentLimit = 5
	hrRecentHireWindow   = 30 * 24 * time.Hour
	directorOfStudies    = "Director of Studies"
)

type dashboardProfiles interface {
	FirstActiveByRole(ctx context.Context, role models.Role, className string) (*models.UserProfile, error)
	ListActiveByRole(ctx context.Context, role models.Role, className string) ([]models.UserProfile, error)
	CountActiveByRole(ctx context.Context, role models.Role) (int, error)
}

type dashboardSubmissions interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.WorkSubmission, int, error)
	Count(ctx context.Context, teacherID, submittedTo string, status models.SubmissionStatus) (int, error)
}

type dashboardUsers interface {
	CountActive(ctx context.Context) (int, error)
}

type dashboardStudents interface {
	CountActive(ctx context.Context) (int, error)
}

type dashboardEmployees interface {
	CountByStatus(ctx context.Context, status models.EmploymentStatus) (int, error)
	CountHiredSince(ctx context.Context, since time.Time) (int, error)
	CountDepartments(ctx context.Context) (int, error)
	DepartmentHeadcounts(ctx context.Context) ([]dto.DepartmentHeadcount, error)
	Recent(ctx context.Context, limit int) ([]models.Employee, error)
}

type dashboardLeaves interface {
	CountByStatus(ctx context.Context, status models.LeaveStatus) (int, error)
	List(ctx context.Context, status models.LeaveStatus, employeeID string, page, size int) ([]models.LeaveRequest, int, error)
}

type dashboardFees interface {
	ExpectedForYear(ctx context.Context, academicYearID string) (decimal.Decimal, error)
	CollectedSince(ctx context.Context, since *time.Time) (decimal.Decimal, error)
	TotalOutstanding(ctx context.Context) (decimal.Decimal, error)
	CountPaymentsByStatus(ctx context.Context, status models.PaymentStatus) (int, error)
	CountScholarshipStudents(ctx context.Context) (int, error)
	MethodBreakdown(ctx context.Context, since time.Time) ([]models.MethodTotal, error)
	RecentPayments(ctx context.Context, limit int) ([]models.FeePaymentView, error)
	ListBalances(ctx context.Context, filter models.BalanceFilter) ([]models.FeeBalanceView, int, error)
}

type dashboardYears interface {
	FindCurrent(ctx context.Context) (*models.AcademicYear, error)
}

type dashboardAttendance interface {
	ListByDate(ctx context.Context, day time.Time) ([]models.StaffAttendance, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the role dashboards. Aggregate dashboards are
// cached; submission queues are always read live.
type DashboardService struct {
	profiles    dashboardProfiles
	submissions dashboardSubmissions
	users       dashboardUsers
	students    dashboardStudents
	employees   dashboardEmployees
	leaves      dashboardLeaves
	fees        dashboardFees
	years       dashboardYears
	attendance  dashboardAttendance
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Profiles    dashboardProfiles
	Submissions dashboardSubmissions
	Users       dashboardUsers
	Students    dashboardStudents
	Employees   dashboardEmployees
	Leaves      dashboardLeaves
	Fees        dashboardFees
	Years       dashboardYears
	Attendance  dashboardAttendance
	Cache       *CacheService
	Logger      *zap.Logger
	Config      DashboardServiceConfig
}

// NewDashboardService constructs the dashboard orchestrator.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 60 * time.Second
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		profiles:    params.Profiles,
		submissions: params.Submissions,
		users:       params.Users,
		students:    params.Students,
		employees:   params.Employees,
		leaves:      params.Leaves,
		fees:        params.Fees,
		years:       params.Years,
		attendance:  params.Attendance,
		cache:       params.Cache,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// mainCounts is cached once for every caller; role gating happens after.
type mainCounts struct {
	TotalEmployees   int `json:"total_employees"`
	TotalDepartments int `json:"total_departments"`
	TotalStudents    int `json:"total_students"`
	PendingPayments  int `json:"pending_payments"`
	ActiveEmployees  int `json:"active_employees"`
	PendingLeaves    int `json:"pending_leaves"`
}

// Main returns the general dashboard with the role route hint. Fee and HR
// counters are only included for roles allowed to see them.
func (s *DashboardService) Main(ctx context.Context, profile models.UserProfile) (*dto.MainDashboard, bool, error) {
	counts, hit, err := Remember(ctx, s.cache, "dash:main", s.cfg.CacheTTL, s.composeMainCounts)
	if err != nil {
		return nil, false, err
	}
	out := &dto.MainDashboard{
		Profile:          profile,
		Route:            DashboardFor(profile.Role),
		TotalEmployees:   counts.TotalEmployees,
		TotalDepartments: counts.TotalDepartments,
	}
	if profile.Role.CanManageFees() || profile.IsSuperuser {
		out.TotalStudents = intPtr(counts.TotalStudents)
		out.PendingPayments = intPtr(counts.PendingPayments)
	}
	if profile.Role.CanManageEmployees() || profile.IsSuperuser {
		out.ActiveEmployees = intPtr(counts.ActiveEmployees)
		out.PendingLeaves = intPtr(counts.PendingLeaves)
	}
	return out, hit, nil
}

func (s *DashboardService) composeMainCounts(ctx context.Context) (*mainCounts, error) {
	var (
		counts mainCounts
		err    error
	)
	if counts.TotalEmployees, err = s.users.CountActive(ctx); err != nil {
		return nil, appErrors.Internal(err, "failed to count users")
	}
	if counts.TotalDepartments, err = s.employees.CountDepartments(ctx); err != nil {
		return nil, appErrors.Internal(err, "failed to count departments")
	}
	if counts.TotalStudents, err = s.students.CountActive(ctx); err != nil {
		return nil, appErrors.Internal(err, "failed to count students")
	}
	if counts.PendingPayments, err = s.fees.CountPaymentsByStatus(ctx, models.PaymentPending); err != nil {
		return nil, appErrors.Internal(err, "failed to count pending payments")
	}
	if counts.ActiveEmployees, err = s.employees.CountByStatus(ctx, models.EmploymentActive); err != nil {
		return nil, appErrors.Internal(err, "failed to count employees")
	}
	if counts.PendingLeaves, err = s.leaves.CountByStatus(ctx, models.LeavePending); err != nil {
		return nil, appErrors.Internal(err, "failed to count leave requests")
	}
	return &counts, nil
}

// Teacher lists the caller's own submissions and who they go to.
func (s *DashboardService) Teacher(ctx context.Context, profile models.UserProfile) (*dto.TeacherDashboard, error) {
	if profile.Role != models.RoleTeacher {
		return nil, deniedDashboard("Access denied. Teachers only.")
	}
	counts, err := s.authoredCounts(ctx, profile.UserID)
	if err != nil {
		return nil, err
	}
	items, _, err := s.submissions.List(ctx, models.SubmissionFilter{TeacherID: profile.UserID, PageSize: dashboardListLimit})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list submissions")
	}
	recipient := directorOfStudies
	if profile.HasClass() {
		head, err := firstActive(ctx, s.profiles, models.RoleHeadOfClass, strings.TrimSpace(*profile.ClassName))
		if err != nil {
			return nil, appErrors.Internal(err, "failed to resolve head of class")
		}
		if head != nil {
			recipient = fmt.Sprintf("Head of Class (%s)", head.FullName)
		}
	}
	return &dto.TeacherDashboard{
		ClassName:       profile.ClassName,
		SubmittedToName: &recipient,
		Counts:          *counts,
		Submissions:     nonNilSubmissions(items),
	}, nil
}

// Director lists pending work addressed to the director with staff totals.
func (s *DashboardService) Director(ctx context.Context, profile models.UserProfile) (*dto.DirectorDashboard, error) {
	if profile.Role != models.RoleDirector {
		return nil, deniedDashboard("Access denied. Directors only.")
	}
	teachers, err := s.profiles.CountActiveByRole(ctx, models.RoleTeacher)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count teachers")
	}
	heads, err := s.profiles.CountActiveByRole(ctx, models.RoleHeadOfClass)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count heads of class")
	}
	counts, pending, err := s.reviewQueue(ctx, profile.UserID)
	if err != nil {
		return nil, err
	}
	return &dto.DirectorDashboard{
		TotalTeachers:      teachers,
		TotalHeadsOfClass:  heads,
		Counts:             *counts,
		PendingSubmissions: pending,
	}, nil
}

// HeadOfClass combines the review queue, the class roster and the caller's
// own submissions to the director.
func (s *DashboardService) HeadOfClass(ctx context.Context, profile models.UserProfile) (*dto.HeadOfClassDashboard, error) {
	if profile.Role != models.RoleHeadOfClass {
		return nil, deniedDashboard("Access denied. Heads of Class only.")
	}
	counts, pending, err := s.reviewQueue(ctx, profile.UserID)
	if err != nil {
		return nil, err
	}
	teachers := []models.UserProfile{}
	if profile.HasClass() {
		teachers, err = s.profiles.ListActiveByRole(ctx, models.RoleTeacher, strings.TrimSpace(*profile.ClassName))
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list class teachers")
		}
	}
	mine, _, err := s.submissions.List(ctx, models.SubmissionFilter{TeacherID: profile.UserID, PageSize: dashboardRecentLimit})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list own submissions")
	}
	myPending, err := s.submissions.Count(ctx, profile.UserID, "", models.SubmissionPending)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count own submissions")
	}
	if teachers == nil {
		teachers = []models.UserProfile{}
	}
	return &dto.HeadOfClassDashboard{
		ClassName:          profile.ClassName,
		ClassTeachers:      teachers,
		Counts:             *counts,
		PendingSubmissions: pending,
		MySubmissions:      nonNilSubmissions(mine),
		MyPending:          myPending,
	}, nil
}

// Security shows today's staff attendance.
func (s *DashboardService) Security(ctx context.Context, profile models.UserProfile) (*dto.SecurityDashboard, bool, error) {
	if profile.Role != models.RoleSecurity {
		return nil, false, deniedDashboard("Access denied. Security only.")
	}
	today := truncateDay(s.now())
	key := "dash:security:" + today.Format("2006-01-02")
	return Remember(ctx, s.cache, key, s.cfg.CacheTTL, func(ctx context.Context) (*dto.SecurityDashboard, error) {
		records, err := s.attendance.ListByDate(ctx, today)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load attendance")
		}
		out := &dto.SecurityDashboard{Date: today.Format("2006-01-02"), Records: records}
		if out.Records == nil {
			out.Records = []models.StaffAttendance{}
		}
		for _, rec := range records {
			if rec.IsPresent {
				out.Present++
			}
			if rec.IsLate {
				out.Late++
			}
		}
		return out, nil
	})
}

// Bursar aggregates fee collection statistics for fee managers.
func (s *DashboardService) Bursar(ctx context.Context, profile models.UserProfile) (*dto.BursarDashboard, bool, error) {
	if !profile.Role.CanManageFees() && !profile.IsSuperuser {
		return nil, false, deniedDashboard("Access denied. Bursar only.")
	}
	today := truncateDay(s.now())
	key := "dash:bursar:" + today.Format("2006-01-02")
	return Remember(ctx, s.cache, key, s.cfg.CacheTTL, func(ctx context.Context) (*dto.BursarDashboard, error) {
		return s.composeBursar(ctx, today)
	})
}

func (s *DashboardService) composeBursar(ctx context.Context, today time.Time) (*dto.BursarDashboard, error) {
	out := &dto.BursarDashboard{
		TotalExpected: decimal.Zero,
	}
	year, err := s.years.FindCurrent(ctx)
	switch {
	case err == nil:
		out.CurrentYear = year
		if out.TotalExpected, err = s.fees.ExpectedForYear(ctx, year.ID); err != nil {
			return nil, appErrors.Internal(err, "failed to sum expected fees")
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, appErrors.Internal(err, "failed to load current academic year")
	}

	if out.TotalStudents, err = s.students.CountActive(ctx); err != nil {
		return nil, appErrors.Internal(err, "failed to count students")
	}
	if out.TotalCollected, err = s.fees.CollectedSince(ctx, nil); err != nil {
		return nil, appErrors.Internal(err, "failed to sum collections")
	}
	if out.TotalOutstanding, err = s.fees.TotalOutstanding(ctx); err != nil {
		return nil, appErrors.Internal(err, "failed to sum outstanding fees")
	}
	out.CollectionRate = money.Ratio(out.TotalCollected, out.TotalExpected)

	if out.TodayCollections, err = s.fees.CollectedSince(ctx, &today); err != nil {
		return nil, appErrors.Internal(err, "failed to sum today's collections")
	}
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	if out.MonthCollections, err = s.fees.CollectedSince(ctx, &monthStart); err != nil {
		return nil, appErrors.Internal(err, "failed to sum month collections")
	}
	if out.ScholarshipStudents, err = s.fees.CountScholarshipStudents(ctx); err != nil {
		return nil, appErrors.Internal(err, "failed to count scholarship students")
	}
	if out.PaymentMethods, err = s.fees.MethodBreakdown(ctx, monthStart); err != nil {
		return nil, appErrors.Internal(err, "failed to load payment methods")
	}
	if out.RecentPayments, err = s.fees.RecentPayments(ctx, dashboardListLimit); err != nil {
		return nil, appErrors.Internal(err, "failed to load recent payments")
	}
	if _, out.PendingBalances, err = s.fees.ListBalances(ctx, models.BalanceFilter{UnpaidOnly: true, PageSize: 1}); err != nil {
		return nil, appErrors.Internal(err, "failed to count unpaid balances")
	}
	if out.Defaulters, _, err = s.fees.ListBalances(ctx, models.BalanceFilter{OverdueAt: &today, PageSize: dashboardListLimit}); err != nil {
		return nil, appErrors.Internal(err, "failed to load defaulters")
	}
	if out.PaymentMethods == nil {
		out.PaymentMethods = []models.MethodTotal{}
	}
	if out.RecentPayments == nil {
		out.RecentPayments = []models.FeePaymentView{}
	}
	if out.Defaulters == nil {
		out.Defaulters = []models.FeeBalanceView{}
	}
	return out, nil
}

// HR aggregates headcount and leave statistics for employee managers.
func (s *DashboardService) HR(ctx context.Context, profile models.UserProfile) (*dto.HRDashboard, bool, error) {
	if !profile.Role.CanManageEmployees() && !profile.IsSuperuser {
		return nil, false, appErrors.Clone(appErrors.ErrPermissionDenied, "You do not have permission to access this page.")
	}
	return Remember(ctx, s.cache, "dash:hr", s.cfg.CacheTTL, s.composeHR)
}

func (s *DashboardService) composeHR(ctx context.Context) (*dto.HRDashboard, error) {
	out := &dto.HRDashboard{}
	var err error
	if out.TotalEmployees, err = s.employees.CountByStatus(ctx, models.EmploymentActive); err != nil {
		return nil, appErrors.Internal(err, "failed to count employees")
	}
	if out.TotalDepartments, err = s.employees.CountDepartments(ctx); err != nil {
		return nil, appErrors.Internal(err, "failed to count departments")
	}
	since := truncateDay(s.now().Add(-hrRecentHireWindow))
	if out.RecentHires, err = s.employees.CountHiredSince(ctx, since); err != nil {
		return nil, appErrors.Internal(err, "failed to count recent hires")
	}
	if out.PendingLeaves, err = s.leaves.CountByStatus(ctx, models.LeavePending); err != nil {
		return nil, appErrors.Internal(err, "failed to count leave requests")
	}
	departments, err := s.employees.DepartmentHeadcounts(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load departments")
	}
	out.Departments = topDepartments(departments, dashboardRecentLimit)
	if out.RecentEmployees, err = s.employees.Recent(ctx, dashboardRecentLimit); err != nil {
		return nil, appErrors.Internal(err, "failed to load recent employees")
	}
	if out.RecentLeaves, _, err = s.leaves.List(ctx, "", "", 1, dashboardRecentLimit); err != nil {
		return nil, appErrors.Internal(err, "failed to load recent leave requests")
	}
	if out.RecentEmployees == nil {
		out.RecentEmployees = []models.Employee{}
	}
	if out.RecentLeaves == nil {
		out.RecentLeaves = []models.LeaveRequest{}
	}
	return out, nil
}

func (s *DashboardService) authoredCounts(ctx context.Context, userID string) (*dto.SubmissionCounts, error) {
	var (
		counts dto.SubmissionCounts
		err    error
	)
	if counts.Total, err = s.submissions.Count(ctx, userID, "", ""); err != nil {
		return nil, appErrors.Internal(err, "failed to count submissions")
	}
	if counts.Pending, err = s.submissions.Count(ctx, userID, "", models.SubmissionPending); err != nil {
		return nil, appErrors.Internal(err, "failed to count submissions")
	}
	if counts.Approved, err = s.submissions.Count(ctx, userID, "", models.SubmissionApproved); err != nil {
		return nil, appErrors.Internal(err, "failed to count submissions")
	}
	return &counts, nil
}

func (s *DashboardService) reviewQueue(ctx context.Context, reviewerID string) (*dto.SubmissionCounts, []models.WorkSubmission, error) {
	var (
		counts dto.SubmissionCounts
		err    error
	)
	if counts.Total, err = s.submissions.Count(ctx, "", reviewerID, ""); err != nil {
		return nil, nil, appErrors.Internal(err, "failed to count submissions")
	}
	if counts.Pending, err = s.submissions.Count(ctx, "", reviewerID, models.SubmissionPending); err != nil {
		return nil, nil, appErrors.Internal(err, "failed to count submissions")
	}
	if counts.Approved, err = s.submissions.Count(ctx, "", reviewerID, models.SubmissionApproved); err != nil {
		return nil, nil, appErrors.Internal(err, "failed to count submissions")
	}
	pending, _, err := s.submissions.List(ctx, models.SubmissionFilter{
		SubmittedTo: reviewerID,
		Status:      models.SubmissionPending,
		PageSize:    dashboardListLimit,
	})
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list pending submissions")
	}
	return &counts, nonNilSubmissions(pending), nil
}

func deniedDashboard(message string) error {
	return response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, message), RedirectDashboard)
}

func topDepartments(rows []dto.DepartmentHeadcount, limit int) []dto.DepartmentHeadcount {
	sorted := append([]dto.DepartmentHeadcount(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EmployeeCount > sorted[j].EmployeeCount
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	if sorted == nil {
		sorted = []dto.DepartmentHeadcount{}
	}
	return sorted
}

func nonNilSubmissions(items []models.WorkSubmission) []models.WorkSubmission {
	if items == nil {
		return []models.WorkSubmission{}
	}
	return items
}

func intPtr(v int) *int {
	return &v
}

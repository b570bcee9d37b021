package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/dto"
	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

func (f *fakeSubmissionRepo) Count(ctx context.Context, teacherID, submittedTo string, status models.SubmissionStatus) (int, error) {
	items, _, err := f.List(ctx, models.SubmissionFilter{TeacherID: teacherID, SubmittedTo: submittedTo, Status: status})
	return len(items), err
}

type countStub int

func (c countStub) CountActive(context.Context) (int, error) { return int(c), nil }

type stubEmployeeStats struct {
	active      int
	departments []dto.DepartmentHeadcount
	recent      []models.Employee
	hiredSince  time.Time
}

func (s *stubEmployeeStats) CountByStatus(context.Context, models.EmploymentStatus) (int, error) {
	return s.active, nil
}

func (s *stubEmployeeStats) CountHiredSince(_ context.Context, since time.Time) (int, error) {
	s.hiredSince = since
	return 2, nil
}

func (s *stubEmployeeStats) CountDepartments(context.Context) (int, error) {
	return len(s.departments), nil
}

func (s *stubEmployeeStats) DepartmentHeadcounts(context.Context) ([]dto.DepartmentHeadcount, error) {
	return s.departments, nil
}

func (s *stubEmployeeStats) Recent(context.Context, int) ([]models.Employee, error) {
	return s.recent, nil
}

type stubLeaveStats struct{ pending int }

func (s stubLeaveStats) CountByStatus(context.Context, models.LeaveStatus) (int, error) {
	return s.pending, nil
}

func (s stubLeaveStats) List(context.Context, models.LeaveStatus, string, int, int) ([]models.LeaveRequest, int, error) {
	return nil, 0, nil
}

type stubFeeStats struct {
	expected    decimal.Decimal
	collected   map[string]decimal.Decimal
	outstanding decimal.Decimal
	unpaid      int
	overdue     []models.FeeBalanceView
	calls       int
}

func (s *stubFeeStats) ExpectedForYear(context.Context, string) (decimal.Decimal, error) {
	s.calls++
	return s.expected, nil
}

func (s *stubFeeStats) CollectedSince(_ context.Context, since *time.Time) (decimal.Decimal, error) {
	key := "all"
	if since != nil {
		key = since.Format("2006-01-02")
	}
	return s.collected[key], nil
}

func (s *stubFeeStats) TotalOutstanding(context.Context) (decimal.Decimal, error) {
	return s.outstanding, nil
}

func (s *stubFeeStats) CountPaymentsByStatus(context.Context, models.PaymentStatus) (int, error) {
	return 3, nil
}

func (s *stubFeeStats) CountScholarshipStudents(context.Context) (int, error) { return 4, nil }

func (s *stubFeeStats) MethodBreakdown(context.Context, time.Time) ([]models.MethodTotal, error) {
	return nil, nil
}

func (s *stubFeeStats) RecentPayments(context.Context, int) ([]models.FeePaymentView, error) {
	return nil, nil
}

func (s *stubFeeStats) ListBalances(_ context.Context, filter models.BalanceFilter) ([]models.FeeBalanceView, int, error) {
	if filter.OverdueAt != nil {
		return s.overdue, len(s.overdue), nil
	}
	return nil, s.unpaid, nil
}

type dashboardFixture struct {
	svc         *DashboardService
	profiles    *fakeProfileRepo
	submissions *fakeSubmissionRepo
	fees        *stubFeeStats
	employees   *stubEmployeeStats
	cache       *memoryCacheRepo
}

func newDashboardFixture(t *testing.T) *dashboardFixture {
	t.Helper()
	profiles := newFakeProfileRepo()
	profiles.add(models.UserProfile{UserID: "dir", Role: models.RoleDirector, IsActiveEmployee: true, FullName: "Dana Director"})
	profiles.add(models.UserProfile{UserID: "head-1a", Role: models.RoleHeadOfClass, IsActiveEmployee: true, ClassName: strPtr("Grade 1A"), FullName: "Hana Head"})
	profiles.add(models.UserProfile{UserID: "t1", Role: models.RoleTeacher, IsActiveEmployee: true, ClassName: strPtr("Grade 1A")})
	profiles.add(models.UserProfile{UserID: "t2", Role: models.RoleTeacher, IsActiveEmployee: true, ClassName: strPtr("Grade 2B")})

	years := newFakeYearRepo()
	fees := &stubFeeStats{
		expected:    decimal.NewFromInt(1000),
		outstanding: decimal.NewFromInt(750),
		unpaid:      6,
		collected: map[string]decimal.Decimal{
			"all":        decimal.NewFromInt(250),
			"2024-03-15": decimal.NewFromInt(50),
			"2024-03-01": decimal.NewFromInt(120),
		},
		overdue: []models.FeeBalanceView{{}},
	}
	employees := &stubEmployeeStats{
		active: 7,
		departments: []dto.DepartmentHeadcount{
			{ID: "a", Name: "Admin", EmployeeCount: 1},
			{ID: "b", Name: "Bursary", EmployeeCount: 3},
			{ID: "c", Name: "Cleaning", EmployeeCount: 0},
			{ID: "d", Name: "Drama", EmployeeCount: 2},
			{ID: "e", Name: "English", EmployeeCount: 5},
			{ID: "f", Name: "French", EmployeeCount: 4},
		},
	}
	cacheRepo := newMemoryCacheRepo()
	svc := NewDashboardService(DashboardServiceParams{
		Profiles:    profiles,
		Submissions: newFakeSubmissionRepo(),
		Users:       countStub(12),
		Students:    countStub(40),
		Employees:   employees,
		Leaves:      stubLeaveStats{pending: 2},
		Fees:        fees,
		Years:       years,
		Attendance:  &fakeAttendanceRepo{},
		Cache:       NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true),
		Config:      DashboardServiceConfig{CacheTTL: 30 * time.Second},
	})
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	return &dashboardFixture{
		svc:         svc,
		profiles:    profiles,
		submissions: svc.submissions.(*fakeSubmissionRepo),
		fees:        fees,
		employees:   employees,
		cache:       cacheRepo,
	}
}

func TestDashboardMainHidesCountersByRole(t *testing.T) {
	f := newDashboardFixture(t)

	out, hit, err := f.svc.Main(context.Background(), models.UserProfile{UserID: "s", Role: models.RoleStaff})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, DashboardMain, out.Route)
	assert.Equal(t, 12, out.TotalEmployees)
	assert.Equal(t, 6, out.TotalDepartments)
	assert.Nil(t, out.TotalStudents)
	assert.Nil(t, out.PendingLeaves)

	out, hit, err = f.svc.Main(context.Background(), models.UserProfile{UserID: "a", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, hit)
	require.NotNil(t, out.TotalStudents)
	assert.Equal(t, 40, *out.TotalStudents)
	assert.Equal(t, 3, *out.PendingPayments)
	assert.Equal(t, 7, *out.ActiveEmployees)
	assert.Equal(t, 2, *out.PendingLeaves)
	assert.Equal(t, 30*time.Second, f.cache.ttls["dash:main"])
}

func TestDashboardMainRoutesDedicatedRoles(t *testing.T) {
	f := newDashboardFixture(t)
	out, _, err := f.svc.Main(context.Background(), models.UserProfile{Role: models.RoleAccountant})
	require.NoError(t, err)
	assert.Equal(t, DashboardBursar, out.Route)
	require.NotNil(t, out.TotalStudents)
	assert.Nil(t, out.ActiveEmployees)
}

func TestTeacherDashboardNamesHeadOfClass(t *testing.T) {
	f := newDashboardFixture(t)
	ctx := context.Background()
	require.NoError(t, f.submissions.Create(ctx, &models.WorkSubmission{TeacherID: "t1", Status: models.SubmissionPending}))
	require.NoError(t, f.submissions.Create(ctx, &models.WorkSubmission{TeacherID: "t1", Status: models.SubmissionApproved}))
	require.NoError(t, f.submissions.Create(ctx, &models.WorkSubmission{TeacherID: "t2", Status: models.SubmissionPending}))

	t1, _ := f.profiles.FindByUserID(ctx, "t1")
	out, err := f.svc.Teacher(ctx, *t1)
	require.NoError(t, err)
	assert.Equal(t, dto.SubmissionCounts{Total: 2, Pending: 1, Approved: 1}, out.Counts)
	assert.Len(t, out.Submissions, 2)
	assert.Equal(t, "Head of Class (Hana Head)", *out.SubmittedToName)

	t2, _ := f.profiles.FindByUserID(ctx, "t2")
	out, err = f.svc.Teacher(ctx, *t2)
	require.NoError(t, err)
	assert.Equal(t, "Director of Studies", *out.SubmittedToName)
}

func TestRoleDashboardsRejectOtherRoles(t *testing.T) {
	f := newDashboardFixture(t)
	ctx := context.Background()
	teacher := models.UserProfile{UserID: "t1", Role: models.RoleTeacher}

	_, err := f.svc.Director(ctx, teacher)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
	assert.Equal(t, RedirectDashboard, response.RedirectOf(err))

	_, err = f.svc.Teacher(ctx, models.UserProfile{Role: models.RoleDirector})
	assert.Equal(t, RedirectDashboard, response.RedirectOf(err))

	_, _, err = f.svc.Bursar(ctx, teacher)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	_, _, err = f.svc.Security(ctx, teacher)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
}

func TestHeadOfClassDashboardCombinesQueueAndRoster(t *testing.T) {
	f := newDashboardFixture(t)
	ctx := context.Background()
	require.NoError(t, f.submissions.Create(ctx, &models.WorkSubmission{TeacherID: "t1", SubmittedTo: strPtr("head-1a"), Status: models.SubmissionPending}))
	require.NoError(t, f.submissions.Create(ctx, &models.WorkSubmission{TeacherID: "t1", SubmittedTo: strPtr("head-1a"), Status: models.SubmissionApproved}))
	require.NoError(t, f.submissions.Create(ctx, &models.WorkSubmission{TeacherID: "head-1a", SubmittedTo: strPtr("dir"), Status: models.SubmissionPending}))

	head, _ := f.profiles.FindByUserID(ctx, "head-1a")
	out, err := f.svc.HeadOfClass(ctx, *head)
	require.NoError(t, err)
	assert.Equal(t, dto.SubmissionCounts{Total: 2, Pending: 1, Approved: 1}, out.Counts)
	assert.Len(t, out.PendingSubmissions, 1)
	require.Len(t, out.ClassTeachers, 1)
	assert.Equal(t, "t1", out.ClassTeachers[0].UserID)
	assert.Len(t, out.MySubmissions, 1)
	assert.Equal(t, 1, out.MyPending)

	dir, _ := f.profiles.FindByUserID(ctx, "dir")
	dirOut, err := f.svc.Director(ctx, *dir)
	require.NoError(t, err)
	assert.Equal(t, 2, dirOut.TotalTeachers)
	assert.Equal(t, 1, dirOut.TotalHeadsOfClass)
	assert.Equal(t, 1, dirOut.Counts.Pending)
}

func TestBursarDashboardAggregatesCollections(t *testing.T) {
	f := newDashboardFixture(t)
	out, hit, err := f.svc.Bursar(context.Background(), models.UserProfile{Role: models.RoleBursar})
	require.NoError(t, err)
	assert.False(t, hit)
	require.NotNil(t, out.CurrentYear)
	assert.Equal(t, 40, out.TotalStudents)
	assert.True(t, out.TotalExpected.Equal(decimal.NewFromInt(1000)))
	assert.True(t, out.TotalCollected.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "25.00", out.CollectionRate.StringFixed(2))
	assert.True(t, out.TodayCollections.Equal(decimal.NewFromInt(50)))
	assert.True(t, out.MonthCollections.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, 4, out.ScholarshipStudents)
	assert.Equal(t, 6, out.PendingBalances)
	assert.Len(t, out.Defaulters, 1)
	assert.NotNil(t, out.PaymentMethods)
	assert.NotNil(t, out.RecentPayments)

	_, hit, err = f.svc.Bursar(context.Background(), models.UserProfile{Role: models.RoleAccountant})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, f.fees.calls)
}

func TestBursarDashboardWithoutCurrentYear(t *testing.T) {
	f := newDashboardFixture(t)
	f.svc.years = emptyYears{}
	out, _, err := f.svc.Bursar(context.Background(), models.UserProfile{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Nil(t, out.CurrentYear)
	assert.True(t, out.TotalExpected.IsZero())
	assert.True(t, out.CollectionRate.IsZero())
}

type emptyYears struct{}

func (emptyYears) FindCurrent(context.Context) (*models.AcademicYear, error) {
	return nil, sql.ErrNoRows
}

func TestSecurityDashboardCountsToday(t *testing.T) {
	f := newDashboardFixture(t)
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	repo := f.svc.attendance.(*fakeAttendanceRepo)
	require.NoError(t, repo.Upsert(context.Background(), &models.StaffAttendance{EmployeeID: "e1", Date: day, IsPresent: true, IsLate: true}))
	require.NoError(t, repo.Upsert(context.Background(), &models.StaffAttendance{EmployeeID: "e2", Date: day, IsPresent: true}))
	require.NoError(t, repo.Upsert(context.Background(), &models.StaffAttendance{EmployeeID: "e3", Date: day.AddDate(0, 0, -1), IsPresent: true}))

	out, _, err := f.svc.Security(context.Background(), models.UserProfile{Role: models.RoleSecurity})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", out.Date)
	assert.Len(t, out.Records, 2)
	assert.Equal(t, 2, out.Present)
	assert.Equal(t, 1, out.Late)
}

func TestHRDashboardTopDepartments(t *testing.T) {
	f := newDashboardFixture(t)
	out, _, err := f.svc.HR(context.Background(), models.UserProfile{Role: models.RoleHRManager})
	require.NoError(t, err)
	assert.Equal(t, 7, out.TotalEmployees)
	assert.Equal(t, 6, out.TotalDepartments)
	assert.Equal(t, 2, out.RecentHires)
	assert.Equal(t, 2, out.PendingLeaves)
	require.Len(t, out.Departments, 5)
	assert.Equal(t, "English", out.Departments[0].Name)
	assert.Equal(t, "French", out.Departments[1].Name)
	assert.Equal(t, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), f.employees.hiredSince)
	assert.NotNil(t, out.RecentEmployees)
	assert.NotNil(t, out.RecentLeaves)

	_, _, err = f.svc.HR(context.Background(), models.UserProfile{Role: models.RoleTeacher})
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
}

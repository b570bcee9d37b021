package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

func newUserServiceFixture() (*UserService, *fakeProfileRepo, *fakeUserStore) {
	repo := newFakeProfileRepo()
	users := &fakeUserStore{repo: repo}
	repo.add(models.UserProfile{UserID: "root", Role: models.RoleAdmin, IsSuperuser: true, IsActiveEmployee: true})
	repo.add(models.UserProfile{UserID: "dir", Role: models.RoleDirector, IsActiveEmployee: true})
	repo.add(models.UserProfile{UserID: "dir2", Role: models.RoleDirector, IsActiveEmployee: true})
	repo.add(models.UserProfile{UserID: "hr", Role: models.RoleHRManager, IsActiveEmployee: true})
	repo.add(models.UserProfile{UserID: "teach", Role: models.RoleTeacher, IsActiveEmployee: true})
	profiles := NewProfileService(repo, users, nil, nil)
	return NewUserService(users, repo, profiles, nil, nil), repo, users
}

func TestUserServiceDeleteRules(t *testing.T) {
	svc, repo, users := newUserServiceFixture()
	director := *repo.byUser["dir"]

	err := svc.Delete(context.Background(), director, "dir2", models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrPermissionDenied))
	var redirect *response.RedirectError
	require.True(t, errors.As(err, &redirect))
	assert.Equal(t, RedirectManageUsers, redirect.Location)

	require.NoError(t, svc.Delete(context.Background(), director, "teach", models.RequestMeta{IP: "127.0.0.1"}))
	assert.Equal(t, []string{"teach"}, users.deleted)
	require.Len(t, users.audits, 1)
	assert.Equal(t, models.AuditActionUserDelete, users.audits[0].Action)
}

func TestUserServiceRefusesSelfDeletion(t *testing.T) {
	svc, repo, users := newUserServiceFixture()
	root := *repo.byUser["root"]

	err := svc.Delete(context.Background(), root, "root", models.RequestMeta{})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "own account")
	assert.Empty(t, users.deleted)
}

func TestUserServiceDeleteMissingTarget(t *testing.T) {
	svc, repo, _ := newUserServiceFixture()
	err := svc.Delete(context.Background(), *repo.byUser["root"], "ghost", models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUserServiceChangeRole(t *testing.T) {
	svc, repo, _ := newUserServiceFixture()
	hr := *repo.byUser["hr"]

	_, err := svc.ChangeRole(context.Background(), hr, "teach", ChangeRoleRequest{Role: "admin"}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrPermissionDenied))

	_, err = svc.ChangeRole(context.Background(), hr, "teach", ChangeRoleRequest{Role: "wizard"}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrUnknownRole))

	updated, err := svc.ChangeRole(context.Background(), hr, "teach", ChangeRoleRequest{Role: "Head_Of_Class"}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleHeadOfClass, updated.Role)
	assert.Equal(t, models.RoleHeadOfClass, repo.byUser["teach"].Role)
}

func TestUserServiceListManageable(t *testing.T) {
	svc, repo, _ := newUserServiceFixture()

	list, page, err := svc.ListManageable(context.Background(), *repo.byUser["dir"], models.ProfileFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	ids := []string{list[0].UserID, list[1].UserID}
	assert.ElementsMatch(t, []string{"hr", "teach"}, ids)

	_, _, err = svc.ListManageable(context.Background(), *repo.byUser["teach"], models.ProfileFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrPermissionDenied))
}

func TestUserServiceCreateStaff(t *testing.T) {
	svc, repo, users := newUserServiceFixture()
	root := *repo.byUser["root"]

	profile, err := svc.CreateStaff(context.Background(), root, CreateStaffRequest{
		Username: "mteacher", Password: "supersecret", FirstName: "Mary", LastName: "Teacher", Role: "teacher", ClassName: "Grade 1A",
	}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, profile.Role)
	require.NotNil(t, profile.ClassName)
	assert.Equal(t, "Grade 1A", *profile.ClassName)
	assert.Equal(t, "EMP0001", profile.EmployeeID)
	require.Len(t, users.audits, 1)

	_, err = svc.CreateStaff(context.Background(), root, CreateStaffRequest{
		Username: "mteacher", Password: "supersecret", FirstName: "M", LastName: "T", Role: "teacher",
	}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestUserServiceCreateStaffRespectsRoleHierarchy(t *testing.T) {
	svc, repo, users := newUserServiceFixture()
	hr := *repo.byUser["hr"]
	director := *repo.byUser["dir"]
	staff := func(username, role string, superuser bool) CreateStaffRequest {
		return CreateStaffRequest{Username: username, Password: "supersecret", FirstName: "F", LastName: "L", Role: role, IsSuperuser: superuser}
	}

	cases := []struct {
		name  string
		actor models.UserProfile
		req   CreateStaffRequest
	}{
		{"hr creates superuser director", hr, staff("boss", "director", true)},
		{"hr creates director", hr, staff("boss", "director", false)},
		{"hr creates admin", hr, staff("adm", "admin", false)},
		{"hr creates hr manager", hr, staff("hr2", "hr_manager", false)},
		{"hr creates superuser teacher", hr, staff("t2", "teacher", true)},
		{"director creates director", director, staff("dir3", "director", false)},
		{"director creates superuser", director, staff("su", "staff", true)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateStaff(context.Background(), tc.actor, tc.req, models.RequestMeta{})
			assert.True(t, errors.Is(err, appErrors.ErrPermissionDenied))
			var redirect *response.RedirectError
			require.True(t, errors.As(err, &redirect))
			assert.Equal(t, RedirectManageUsers, redirect.Location)
			_, created := repo.users["u-"+tc.req.Username]
			assert.False(t, created)
		})
	}
	assert.Empty(t, users.audits)

	profile, err := svc.CreateStaff(context.Background(), director, staff("newteach", "teacher", false), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, profile.Role)
	assert.False(t, repo.users["u-newteach"].IsSuperuser)

	profile, err = svc.CreateStaff(context.Background(), hr, staff("bursar1", "bursar", false), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleBursar, profile.Role)

	profile, err = svc.CreateStaff(context.Background(), *repo.byUser["root"], staff("root2", "director", true), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleDirector, profile.Role)
	assert.True(t, repo.users["u-root2"].IsSuperuser)
	require.Len(t, users.audits, 3)
	require.NotNil(t, users.audits[2].UserID)
	assert.Equal(t, "root", *users.audits[2].UserID)
}

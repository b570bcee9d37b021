package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/school-admin-api/internal/models"
)

func mkProfile(userID string, role models.Role, superuser bool) models.UserProfile {
	return models.UserProfile{ID: "p-" + userID, UserID: userID, Role: role, IsSuperuser: superuser}
}

func TestCanDeleteUser(t *testing.T) {
	director := mkProfile("d1", models.RoleDirector, false)
	hr := mkProfile("h1", models.RoleHRManager, false)
	root := mkProfile("root", models.RoleAdmin, true)

	cases := []struct {
		name   string
		actor  models.UserProfile
		target models.UserProfile
		want   bool
	}{
		{"superuser deletes superuser", root, mkProfile("r2", models.RoleAdmin, true), true},
		{"director on director", director, mkProfile("d2", models.RoleDirector, false), false},
		{"director on teacher", director, mkProfile("t1", models.RoleTeacher, false), true},
		{"director on admin", director, mkProfile("a1", models.RoleAdmin, false), true},
		{"director on superuser", director, root, false},
		{"hr on teacher", hr, mkProfile("t1", models.RoleTeacher, false), true},
		{"hr on admin", hr, mkProfile("a1", models.RoleAdmin, false), false},
		{"hr on hr", hr, mkProfile("h2", models.RoleHRManager, false), false},
		{"hr on superuser staff", hr, mkProfile("s1", models.RoleStaff, true), false},
		{"teacher on staff", mkProfile("t1", models.RoleTeacher, false), mkProfile("s1", models.RoleStaff, false), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanDeleteUser(tc.actor, tc.target))
		})
	}
}

func TestCanChangeRole(t *testing.T) {
	director := mkProfile("d1", models.RoleDirector, false)
	hr := mkProfile("h1", models.RoleHRManager, false)
	teacher := mkProfile("t1", models.RoleTeacher, false)

	assert.False(t, CanChangeRole(hr, teacher, models.RoleAdmin))
	assert.False(t, CanChangeRole(hr, teacher, models.RoleHRManager))
	assert.True(t, CanChangeRole(hr, teacher, models.RoleHeadOfClass))
	assert.False(t, CanChangeRole(hr, mkProfile("d2", models.RoleDirector, false), models.RoleStaff))

	assert.False(t, CanChangeRole(director, teacher, models.RoleDirector))
	assert.True(t, CanChangeRole(director, teacher, models.RoleAdmin))
	assert.True(t, CanChangeRole(director, mkProfile("d2", models.RoleDirector, false), models.RoleStaff))
	assert.True(t, CanChangeRole(director, mkProfile("d2", models.RoleDirector, false), models.RoleDirector))
	assert.False(t, CanChangeRole(director, mkProfile("root", models.RoleAdmin, true), models.RoleStaff))

	assert.False(t, CanChangeRole(teacher, mkProfile("s1", models.RoleStaff, false), models.RoleTeacher))
	assert.True(t, CanChangeRole(mkProfile("root", models.RoleStaff, true), teacher, models.RoleDirector))
}

func TestCanAssignRole(t *testing.T) {
	director := mkProfile("d1", models.RoleDirector, false)
	hr := mkProfile("h1", models.RoleHRManager, false)
	root := mkProfile("root", models.RoleStaff, true)

	for _, role := range []models.Role{models.RoleAdmin, models.RoleDirector, models.RoleHRManager} {
		assert.False(t, CanAssignRole(hr, role), role)
		assert.True(t, CanAssignRole(root, role), role)
	}
	assert.True(t, CanAssignRole(hr, models.RoleTeacher))
	assert.True(t, CanAssignRole(hr, models.RoleBursar))

	assert.False(t, CanAssignRole(director, models.RoleDirector))
	assert.True(t, CanAssignRole(director, models.RoleAdmin))
	assert.True(t, CanAssignRole(director, models.RoleHRManager))

	assert.False(t, CanAssignRole(mkProfile("t1", models.RoleTeacher, false), models.RoleStaff))
}

func TestManageableScopeFor(t *testing.T) {
	director := mkProfile("d1", models.RoleDirector, false)
	scope := ManageableScopeFor(director)

	assert.False(t, scope.Allows(mkProfile("root", models.RoleAdmin, true)))
	assert.False(t, scope.Allows(mkProfile("d2", models.RoleDirector, false)))
	assert.False(t, scope.Allows(director))
	assert.True(t, scope.Allows(mkProfile("a1", models.RoleAdmin, false)))

	hrScope := ManageableScopeFor(mkProfile("h1", models.RoleHRManager, false))
	assert.False(t, hrScope.Allows(mkProfile("h2", models.RoleHRManager, false)))
	assert.False(t, hrScope.Allows(mkProfile("a1", models.RoleAdmin, false)))
	assert.True(t, hrScope.Allows(mkProfile("n1", models.RoleNurse, false)))

	assert.True(t, ManageableScopeFor(mkProfile("root", models.RoleStaff, true)).All)
	assert.True(t, ManageableScopeFor(mkProfile("t1", models.RoleTeacher, false)).Empty())
}

func TestAvailableRoles(t *testing.T) {
	hrRoles := AvailableRoles(mkProfile("h1", models.RoleHRManager, false), mkProfile("t1", models.RoleTeacher, false))
	assert.NotContains(t, hrRoles, models.RoleAdmin)
	assert.NotContains(t, hrRoles, models.RoleDirector)
	assert.Contains(t, hrRoles, models.RoleLibrarian)
	assert.Len(t, hrRoles, len(models.AllRoles())-3)

	directorRoles := AvailableRoles(mkProfile("d1", models.RoleDirector, false), mkProfile("t1", models.RoleTeacher, false))
	assert.NotContains(t, directorRoles, models.RoleDirector)
	assert.Contains(t, directorRoles, models.RoleAdmin)

	assert.Empty(t, AvailableRoles(mkProfile("n1", models.RoleNurse, false), mkProfile("t1", models.RoleTeacher, false)))
}

func TestDashboardFor(t *testing.T) {
	assert.Equal(t, DashboardTeacher, DashboardFor(models.RoleTeacher))
	assert.Equal(t, DashboardBursar, DashboardFor(models.RoleAccountant))
	assert.Equal(t, DashboardBursar, DashboardFor(models.RoleBursar))
	assert.Equal(t, DashboardMain, DashboardFor(models.RoleHRManager))
	assert.Equal(t, DashboardSecurity, DashboardRoute(mkProfile("s", models.RoleSecurity, false)).Dashboard)
}

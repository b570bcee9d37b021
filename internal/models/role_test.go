package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" HR_Manager ")
	require.NoError(t, err)
	assert.Equal(t, RoleHRManager, role)

	_, err = ParseRole("janitor")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestAllRolesAreValidAndLabelled(t *testing.T) {
	roles := AllRoles()
	assert.Len(t, roles, 14)
	for _, r := range roles {
		assert.True(t, r.Valid(), r)
		assert.NotEqual(t, string(r), r.Label(), r)
	}
}

func TestCapabilities(t *testing.T) {
	assert.True(t, RoleBursar.CanManageFees())
	assert.False(t, RoleHRManager.CanManageFees())
	assert.True(t, RoleHRManager.CanManageEmployees())
	assert.False(t, RoleBursar.CanManageEmployees())
	assert.True(t, RoleAccountant.CanViewReports())
	assert.False(t, RoleTeacher.CanViewReports())
	assert.True(t, RoleHeadOfClass.CanSubmitWork())
	assert.False(t, RoleDirector.CanSubmitWork())
}

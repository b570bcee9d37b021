package service

import (
	"github.com/noah-isme/school-admin-api/internal/dto"
	"github.com/noah-isme/school-admin-api/internal/models"
)

// protectedRoles may only be managed by a superuser or a director.
var protectedRoles = []models.Role{models.RoleAdmin, models.RoleDirector, models.RoleHRManager}

func isProtected(role models.Role) bool {
	for _, r := range protectedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// CanDeleteUser decides whether actor may delete target. Self deletion is
// checked separately by the caller.
func CanDeleteUser(actor, target models.UserProfile) bool {
	if actor.IsSuperuser {
		return true
	}
	switch actor.Role {
	case models.RoleDirector:
		return !target.IsSuperuser && target.Role != models.RoleDirector
	case models.RoleHRManager:
		return !target.IsSuperuser && !isProtected(target.Role)
	default:
		return false
	}
}

// CanAssignRole reports whether actor may hand role to an account, either
// when creating it or when re-roling it.
func CanAssignRole(actor models.UserProfile, role models.Role) bool {
	if actor.IsSuperuser {
		return true
	}
	switch actor.Role {
	case models.RoleDirector:
		return role != models.RoleDirector
	case models.RoleHRManager:
		return !isProtected(role)
	default:
		return false
	}
}

// CanChangeRole decides whether actor may move target to newRole. A director
// may demote another director but never promote anyone to director.
func CanChangeRole(actor, target models.UserProfile, newRole models.Role) bool {
	if actor.IsSuperuser {
		return true
	}
	switch actor.Role {
	case models.RoleDirector:
		if target.IsSuperuser {
			return false
		}
		return target.Role == models.RoleDirector || CanAssignRole(actor, newRole)
	case models.RoleHRManager:
		if target.IsSuperuser || isProtected(target.Role) {
			return false
		}
		return CanAssignRole(actor, newRole)
	default:
		return false
	}
}

// ManageableScopeFor returns the set of profiles actor may manage.
func ManageableScopeFor(actor models.UserProfile) models.ManageableScope {
	if actor.IsSuperuser {
		return models.ManageableScope{All: true}
	}
	switch actor.Role {
	case models.RoleDirector:
		return models.ManageableScope{
			ExcludeSuperusers: true,
			ExcludeRoles:      []models.Role{models.RoleDirector},
			ExcludeUserID:     actor.UserID,
		}
	case models.RoleHRManager:
		return models.ManageableScope{
			ExcludeSuperusers: true,
			ExcludeRoles:      append([]models.Role(nil), protectedRoles...),
		}
	default:
		return models.ManageableScope{}
	}
}

// CanManageUsers reports whether actor may open user management at all.
func CanManageUsers(actor models.UserProfile) bool {
	return actor.IsSuperuser || actor.Role == models.RoleDirector || actor.Role == models.RoleHRManager
}

// AvailableRoles lists the roles actor may offer when re-roling target.
func AvailableRoles(actor, target models.UserProfile) []models.Role {
	roles := make([]models.Role, 0, len(models.AllRoles()))
	for _, role := range models.AllRoles() {
		if CanChangeRole(actor, target, role) {
			roles = append(roles, role)
		}
	}
	return roles
}

// Dashboard names used by DashboardFor.
const (
	DashboardMain        = "main"
	DashboardTeacher     = "teacher"
	DashboardDirector    = "director"
	DashboardHeadOfClass = "head_of_class"
	DashboardSecurity    = "security"
	DashboardBursar      = "bursar"
)

// DashboardFor maps a role to its dashboard.
func DashboardFor(role models.Role) string {
	switch role {
	case models.RoleTeacher:
		return DashboardTeacher
	case models.RoleDirector:
		return DashboardDirector
	case models.RoleHeadOfClass:
		return DashboardHeadOfClass
	case models.RoleSecurity:
		return DashboardSecurity
	case models.RoleBursar, models.RoleAccountant:
		return DashboardBursar
	default:
		return DashboardMain
	}
}

// DashboardRoute builds the routing hint returned to clients.
func DashboardRoute(profile models.UserProfile) dto.DashboardRoute {
	return dto.DashboardRoute{Role: profile.Role, Dashboard: DashboardFor(profile.Role)}
}

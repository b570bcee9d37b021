package models

import (
	"fmt"
	"strings"
)

// Role is the organisational role carried by a user profile.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDirector     Role = "director"
	RoleHeadOfClass  Role = "head_of_class"
	RoleTeacher      Role = "teacher"
	RoleSecurity     Role = "security"
	RoleBursar       Role = "bursar"
	RoleAccountant   Role = "accountant"
	RoleHRManager    Role = "hr_manager"
	RoleReceptionist Role = "receptionist"
	RoleLibrarian    Role = "librarian"
	RoleNurse        Role = "nurse"
	RoleParent       Role = "parent"
	RoleStudent      Role = "student"
	RoleStaff        Role = "staff"
)

var allRoles = []Role{
	RoleAdmin,
	RoleDirector,
	RoleHeadOfClass,
	RoleTeacher,
	RoleSecurity,
	RoleBursar,
	RoleAccountant,
	RoleHRManager,
	RoleReceptionist,
	RoleLibrarian,
	RoleNurse,
	RoleParent,
	RoleStudent,
	RoleStaff,
}

// AllRoles returns every role in display order.
func AllRoles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole converts raw into a Role, rejecting anything outside the set.
func ParseRole(raw string) (Role, error) {
	candidate := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !candidate.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return candidate, nil
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDirector, RoleHeadOfClass, RoleTeacher, RoleSecurity,
		RoleBursar, RoleAccountant, RoleHRManager, RoleReceptionist, RoleLibrarian,
		RoleNurse, RoleParent, RoleStudent, RoleStaff:
		return true
	default:
		return false
	}
}

// Label is the human readable role name.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleDirector:
		return "Director"
	case RoleHeadOfClass:
		return "Head of Class"
	case RoleTeacher:
		return "Teacher"
	case RoleSecurity:
		return "Security Personnel"
	case RoleBursar:
		return "Bursar"
	case RoleAccountant:
		return "Accountant"
	case RoleHRManager:
		return "HR Manager"
	case RoleReceptionist:
		return "Receptionist"
	case RoleLibrarian:
		return "Librarian"
	case RoleNurse:
		return "School Nurse"
	case RoleParent:
		return "Parent"
	case RoleStudent:
		return "Student"
	case RoleStaff:
		return "General Staff"
	default:
		return string(r)
	}
}

// CanManageFees covers fee structures, payments and balances.
func (r Role) CanManageFees() bool {
	switch r {
	case RoleAdmin, RoleDirector, RoleBursar, RoleAccountant:
		return true
	default:
		return false
	}
}

// CanManageEmployees covers employee records, leave and reviews.
func (r Role) CanManageEmployees() bool {
	switch r {
	case RoleAdmin, RoleDirector, RoleHRManager:
		return true
	default:
		return false
	}
}

// CanViewReports covers report generation and download.
func (r Role) CanViewReports() bool {
	switch r {
	case RoleAdmin, RoleDirector, RoleAccountant, RoleHRManager:
		return true
	default:
		return false
	}
}

// CanSubmitWork reports whether the role may create work submissions.
func (r Role) CanSubmitWork() bool {
	return r == RoleTeacher || r == RoleHeadOfClass
}

// CanReviewWork reports whether the role receives work submissions.
func (r Role) CanReviewWork() bool {
	return r == RoleDirector || r == RoleHeadOfClass
}

package models

// ManageableScope describes which profiles an actor may manage. The zero
// value manages nothing.
type ManageableScope struct {
	All               bool
	ExcludeSuperusers bool
	ExcludeRoles      []Role
	ExcludeUserID     string
}

// Empty reports whether the scope admits no profile at all.
func (s ManageableScope) Empty() bool {
	return !s.All && !s.ExcludeSuperusers && len(s.ExcludeRoles) == 0 && s.ExcludeUserID == ""
}

// Allows applies the scope to a single profile.
func (s ManageableScope) Allows(p UserProfile) bool {
	if s.All {
		return true
	}
	if s.Empty() {
		return false
	}
	if s.ExcludeSuperusers && p.IsSuperuser {
		return false
	}
	if s.ExcludeUserID != "" && p.UserID == s.ExcludeUserID {
		return false
	}
	for _, role := range s.ExcludeRoles {
		if p.Role == role {
			return false
		}
	}
	return true
}

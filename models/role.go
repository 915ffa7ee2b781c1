package models

// Role is a member's role inside one coaching
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
	RoleParent  Role = "PARENT"
)

// FeeAdminRoles may manage fee structures, refunds and payment settings
var FeeAdminRoles = []Role{RoleOwner, RoleAdmin}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// HasAnyRole decides whether a member holding role satisfies one of required.
// OWNER satisfies every requirement. An empty requirement admits any valid role.
func HasAnyRole(role Role, required ...Role) bool {
	if !role.Valid() {
		return false
	}
	if role == RoleOwner || len(required) == 0 {
		return true
	}
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}

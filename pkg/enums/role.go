package enums

import "fmt"

// Role identifies which account table an actor authenticates against.
type Role string

const (
	RolePharmacy   Role = "pharmacy"
	RoleWholesaler Role = "wholesaler"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

var validRoles = []Role{
	RolePharmacy,
	RoleWholesaler,
	RoleAdmin,
	RoleSuperAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role belongs to the admin account table.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

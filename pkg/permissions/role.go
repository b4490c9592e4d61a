package permissions

// Role is the coarse access tier of a membership within one organization.
// Custom role names resolve to themselves and behave like ordinary members.
type Role string

const (
	// RoleNone means the identity has no membership in the organization
	RoleNone Role = ""
	// RoleOwner has full access to the organization
	RoleOwner Role = "owner"
	// RoleAdmin has full access to the organization
	RoleAdmin Role = "admin"
	// RoleMember is an ordinary member gated by granted permissions
	RoleMember Role = "member"
)

// ParseRole converts a backend role string into a Role. An empty string or a
// null role on the wire becomes RoleNone.
func ParseRole(s string) Role {
	return Role(s)
}

// HasFullAccess reports whether the role bypasses permission checks entirely.
func (r Role) HasFullAccess() bool {
	return r == RoleAdmin || r == RoleOwner
}

// Member reports whether the role represents any membership at all.
func (r Role) Member() bool {
	return r != RoleNone
}

func (r Role) String() string {
	return string(r)
}

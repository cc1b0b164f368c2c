package identity

// Role is the closed set of caller roles. Every permission decision switches
// exhaustively over it; anything unrecognized from the profile store collapses
// to RoleCustomer.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

func ParseRole(raw string) Role {
	switch Role(raw) {
	case RoleStaff:
		return RoleStaff
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleCustomer
	}
}

// IsStaff reports whether the role carries staff-side privileges.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Caller is the resolved identity of a request. It is computed per request
// from the bearer credential and never cached across requests.
type Caller struct {
	ID   string
	Role Role
}

package types

import "errors"

// Role is the closed set of account roles. The application has exactly
// two: a team lead sees every task, a team member sees only their own.
type Role string

const (
	RoleLead   Role = "team-lead"
	RoleMember Role = "team-member"
)

// ErrInvalidRole is returned by ParseRole for anything outside the two
// known role literals.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole strictly maps a wire value to a Role. Used only at the
// single boundary where an untrusted role value may create an account.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleLead:
		return RoleLead, nil
	case RoleMember:
		return RoleMember, nil
	default:
		return "", ErrInvalidRole
	}
}

// NormalizeRole maps any value onto a valid Role, degrading unknown
// input to the non-privileged member role.
func NormalizeRole(value string) Role {
	if Role(value) == RoleLead {
		return RoleLead
	}
	return RoleMember
}

// IsLead reports whether the role carries lead privileges.
func (r Role) IsLead() bool {
	return r == RoleLead
}

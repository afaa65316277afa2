package shared

import "strings"

// Role is the account role reported by the WMS API.
type Role string

const (
	// RoleAdmin may manage products, stock and orders.
	RoleAdmin Role = "ADMIN"
	// RoleCustomer has no console privileges beyond signing in.
	RoleCustomer Role = "CUSTOMER"
)

// ParseRole normalises a role string, returning false for unknown roles.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleCustomer:
		return RoleCustomer, true
	}
	return "", false
}

// Identity is the authenticated principal held by a session.
type Identity struct {
	Username string
	Role     Role
	Token    string
}

// Complete reports whether every field required to act on behalf of the user is present.
func (i Identity) Complete() bool {
	return i.Token != "" && i.Username != "" && i.Role != ""
}

// IsAdmin reports whether the identity carries the ADMIN role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

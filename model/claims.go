package model

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the caller role carried in the access token.
type Role string

const (
	RoleClient     Role = "ROLE_CLIENT"
	RoleAgentAdmin Role = "ROLE_AGENT_ADMIN"
	RoleSuperAdmin Role = "ROLE_SUPER_ADMIN"
)

// IsPrivileged reports whether the role may act on any account. Unknown roles
// are treated like the client role.
func (r Role) IsPrivileged() bool {
	switch Role(strings.ToUpper(string(r))) {
	case RoleAgentAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// AppClaims identifies the caller. Email is the identity matched against an
// account owner's email.
type AppClaims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

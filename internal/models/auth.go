package models

import "github.com/golang-jwt/jwt/v5"

// UserRole scopes what a principal may do.
type UserRole string

const (
	// RoleSuperAdmin may act across tenants.
	RoleSuperAdmin UserRole = "SUPERADMIN"
	// RoleAdmin administers a single tenant.
	RoleAdmin UserRole = "ADMIN"
	// RoleFaculty is a read-mostly consumer of published timetables.
	RoleFaculty UserRole = "FACULTY"
)

// JWTClaims are the verified claims the middleware extracts from a bearer
// token. Token issuance belongs to the external auth system.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}

// CanAdminister reports whether the principal may mutate resources of the
// given tenant.
func (c *JWTClaims) CanAdminister(tenantID string) bool {
	if c == nil {
		return false
	}
	if c.Role == RoleSuperAdmin {
		return true
	}
	return c.Role == RoleAdmin && c.TenantID == tenantID
}

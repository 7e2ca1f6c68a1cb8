package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/opencampus/uniportal-api/internal/middleware"
	"github.com/opencampus/uniportal-api/internal/models"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// tenantFromContext resolves the tenant scope of the request. Superadmins
// may act on another tenant through the tenant_id query parameter.
func tenantFromContext(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleSuperAdmin {
		if override := c.Query("tenant_id"); override != "" {
			return override, nil
		}
	}
	if claims.TenantID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "token carries no tenant scope")
	}
	return claims.TenantID, nil
}

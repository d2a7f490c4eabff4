package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/internal/tenancy"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/response"
)

// Tenant binds the tenant id carried by the JWT claims to the request
// context. Everything downstream, repositories included, resolves its scope
// from that context; a request that reaches a scoped query without passing
// through here fails with TENANT_NOT_RESOLVED.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)
		if claims.TenantID == "" {
			response.Error(c, appErrors.ErrTenantNotResolved)
			c.Abort()
			return
		}

		ctx := tenancy.WithTenant(c.Request.Context(), claims.TenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

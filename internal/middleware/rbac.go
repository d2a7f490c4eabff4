package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/response"
)

// SelfAccess is the sentinel role granting a user access to routes whose
// :id path parameter equals their own user ID.
const SelfAccess = "SELF"

// RBAC allows the request through when the caller's role is in the allowed
// list, or when SelfAccess is listed and the :id parameter is the caller.
func RBAC(allowed ...string) gin.HandlerFunc {
	roles := make(map[models.UserRole]struct{}, len(allowed))
	allowSelf := false
	for _, a := range allowed {
		if a == SelfAccess {
			allowSelf = true
			continue
		}
		roles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		value, ok := c.Get(ContextUserKey)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := value.(*models.JWTClaims)

		if _, ok := roles[claims.Role]; ok {
			c.Next()
			return
		}
		if allowSelf && c.Param("id") != "" && c.Param("id") == claims.UserID {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles wraps RBAC for callers holding typed roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/internal/repository"
)

// Audit records an audit log entry after a successful mutating request.
func Audit(repo *repository.AuditRepository, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var userID, tenantID *string
		if claimsValue, ok := c.Get(ContextUserKey); ok {
			claims := claimsValue.(*models.JWTClaims)
			userID = &claims.UserID
			if claims.TenantID != "" {
				id := claims.TenantID
				tenantID = &id
			}
		}

		var resourceID *string
		if id := c.Param("id"); id != "" {
			resourceID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		_ = repo.Create(c.Request.Context(), &models.AuditLog{
			TenantID:   tenantID,
			UserID:     userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			Details:    details,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		})
	}
}

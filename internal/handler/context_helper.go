package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/middleware"
	"github.com/attendly/attendly-api/internal/models"
)

// claimsFromContext returns the authenticated caller's claims, or nil when
// the request never passed the JWT middleware.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

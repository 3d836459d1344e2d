package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/edubridge/edubridge-api/internal/access"
	"github.com/edubridge/edubridge-api/internal/models"
	"github.com/edubridge/edubridge-api/internal/service"
	appErrors "github.com/edubridge/edubridge-api/pkg/errors"
	"github.com/edubridge/edubridge-api/pkg/response"
)

// ResourceAccess gates a route on the access policy: the authenticated
// caller must be allowed to reach the resource identified by the :id path
// parameter.
func ResourceAccess(policy *access.Policy, resourceType models.ResourceType, metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		resourceID := c.Param("id")
		if resourceID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing resource id"))
			c.Abort()
			return
		}

		actor := access.Actor{ID: claims.UserID, Role: claims.Role}
		if err := policy.Authorize(c.Request.Context(), actor, resourceType, resourceID); err != nil {
			metrics.AccessDecision(string(resourceType), "denied")
			response.Error(c, err)
			c.Abort()
			return
		}

		metrics.AccessDecision(string(resourceType), "allowed")
		c.Next()
	}
}

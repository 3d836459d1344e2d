package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/edubridge/edubridge-api/internal/models"
)

func rbacRouter(claims *models.JWTClaims, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/things/:id", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}, RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRBAC(r *gin.Engine, path string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRBACAllowsListedRole(t *testing.T) {
	r := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, "ADMIN")
	assert.Equal(t, http.StatusOK, doRBAC(r, "/things/x"))
}

func TestRBACRejectsUnlistedRole(t *testing.T) {
	r := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "ADMIN", "TEACHER")
	assert.Equal(t, http.StatusForbidden, doRBAC(r, "/things/x"))
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	r := rbacRouter(nil, "ADMIN")
	assert.Equal(t, http.StatusUnauthorized, doRBAC(r, "/things/x"))
}

func TestRBACSelfMatchesOwnID(t *testing.T) {
	r := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "ADMIN", "SELF")
	assert.Equal(t, http.StatusOK, doRBAC(r, "/things/u1"))
	assert.Equal(t, http.StatusForbidden, doRBAC(r, "/things/u2"))
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wellnest/wellnest-api/internal/model"
)

// RequireRole lets the request through only for the given roles. Must run
// after AuthMiddleware.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := model.Role(c.GetString("role")).OrDefault()
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "This action requires the "+string(roles[0])+" role")
	}
}

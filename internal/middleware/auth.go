package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wellnest/wellnest-api/internal/model"
	"github.com/wellnest/wellnest-api/pkg/auth"
)

// RevocationChecker reports whether a token was revoked by logout
type RevocationChecker interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware validates JWT tokens and injects user claims into context
func AuthMiddleware(jwtManager *auth.JWTManager, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			abort(c, http.StatusUnauthorized, "Invalid authorization format. Use: Bearer <token>")
			return
		}
		tokenString := parts[1]

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		blacklisted, err := revoked.IsBlacklisted(c.Request.Context(), tokenString)
		if err != nil {
			// fail closed
			_ = c.Error(err)
			abort(c, http.StatusServiceUnavailable, "Auth server error")
			return
		}
		if blacklisted {
			abort(c, http.StatusUnauthorized, "Token has been revoked")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("name", claims.Name)
		c.Set("role", string(model.Role(claims.Role).OrDefault()))
		c.Set("token", tokenString)

		c.Next()
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, model.Envelope{Success: false, Message: message})
}

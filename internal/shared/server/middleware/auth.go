package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collateral-backend/internal/shared/auth"
	"collateral-backend/internal/shared/server/respond"
)

const (
	userIDKey = "userId"
	roleKey   = "role"

	RoleAdmin = "admin"
	RoleUser  = "user"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// Auth validates the bearer token and stores identity in context.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		SetIdentity(c, claims.Subject, claims.Role)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			respond.Error(c, http.StatusForbidden, "forbidden", "administrator role required", nil)
			return
		}
		c.Next()
	}
}

// SetIdentity stores the caller identity in context.
func SetIdentity(c *gin.Context, userID, role string) {
	if role == "" {
		role = RoleUser
	}
	c.Set(userIDKey, userID)
	c.Set(roleKey, role)
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// RoleFromContext fetches the role set by the auth middleware.
func RoleFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(roleKey)
}

// IsAdmin reports whether the caller has the admin role.
func IsAdmin(c *gin.Context) bool {
	return RoleFromContext(c) == RoleAdmin
}

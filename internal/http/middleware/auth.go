package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/surojitgharami/alumni-portal/internal/auth"
	"github.com/surojitgharami/alumni-portal/internal/modules/users"
)

const (
	CtxKeyUserID   = "user_id"
	CtxKeyUserRole = "user_role"
	CtxKeyUserName = "user_name"
)

// Auth parses an optional Bearer token and stashes the caller's identity on
// the context. It never rejects; RequireAuth/RequireAdmin do the gating.
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			if claims, err := auth.ParseAccess(jwtSecret, token); err == nil {
				c.Set(CtxKeyUserID, claims.Subject)
				c.Set(CtxKeyUserRole, claims.Role)
				c.Set(CtxKeyUserName, claims.Name)
			}
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user's id, or "" when anonymous.
func GetUserID(c *gin.Context) string {
	return c.GetString(CtxKeyUserID)
}

func GetUserRole(c *gin.Context) string {
	return c.GetString(CtxKeyUserRole)
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "authentication required",
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "authentication required",
				"request_id": GetRequestID(c),
			})
			return
		}
		if GetUserRole(c) != users.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "forbidden",
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}

package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyUserID is the gin context key for the verified actor ID.
	ContextKeyUserID = "authUserID"
)

// Middleware extracts and verifies the identity token from the request.
// Sets the user ID in context if valid; anonymous requests pass through.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			token = c.GetHeader("X-User-Token")
		}

		if token != "" {
			if id, err := Verify(token, secret); err == nil {
				c.Set(ContextKeyUserID, id.UserID)
			}
		}

		c.Next()
	}
}

// RequireUser rejects requests without a verified identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextKeyUserID) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Signed identity token required.",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin guards back-office routes with the admin secret.
func RequireAdmin(adminSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Admin-Secret")
		if adminSecret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(adminSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Admin secret required.",
			})
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"inkmirror-ai/internal/domain/services"
)

const UserIDKey = "user_id"

// DeviceAuth validates the signed device token and stashes the anonymous
// user id on the request context.
func DeviceAuth(identity services.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authorization required",
				"message": "Provide the device token in the Authorization header",
			})
			c.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid authorization header format",
				"message": "Use: Authorization: Bearer <device-token>",
			})
			c.Abort()
			return
		}

		claims, err := identity.Authenticate(c.Request.Context(), tokenParts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Token validation failed",
				"message": "Register the device again to get a new token",
			})
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// UserID reads the authenticated user id set by DeviceAuth.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/you/incidentsvc/domain"
)

// AdminSubjectKey is the gin context key holding the authenticated admin's subject
const AdminSubjectKey = "admin_subject"

// AdminJWT rejects requests that do not carry a bearer token with the admin claim
func AdminJWT(tokenSvc domain.AdminTokenService) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Check Bearer token format
		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") || tokenParts[1] == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := tokenSvc.ValidateAdminToken(strings.TrimSpace(tokenParts[1]))
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotAdmin):
				c.JSON(http.StatusForbidden, gin.H{"error": "Admin privileges required"})
			case errors.Is(err, domain.ErrTokenExpired):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrTokenMalformed):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			default:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token validation failed"})
			}
			c.Abort()
			return
		}

		c.Set(AdminSubjectKey, claims.Subject)
		c.Next()
	})
}

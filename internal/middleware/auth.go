package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"platepix/api/internal/config"
	"platepix/api/internal/security"
)

// ServiceAuth verifies the bearer token issued to calling backend services.
func ServiceAuth(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseServiceToken(tokenStr, cfg.Security.ServiceTokenSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		c.Set("service_claims", *claims)
		c.Next()
	}
}

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token against Casdoor and stores the
// authenticated user id in the request context.
func AuthMiddleware(client *casdoorsdk.Client, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing bearer token",
			})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := client.ParseJwtToken(token)
		if err != nil {
			logger.Warn("token validation failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		userID := claims.Id
		if userID == "" {
			userID = claims.Name
		}
		c.Set("user_id", userID)
		c.Set("user_name", claims.Name)
		c.Next()
	}
}

// DevAuthMiddleware trusts an X-Student-ID header. Only mounted when no
// Casdoor client id is configured, for local development.
func DevAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		studentID := c.GetHeader("X-Student-ID")
		if studentID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing X-Student-ID header",
			})
			return
		}
		c.Set("user_id", studentID)
		c.Next()
	}
}

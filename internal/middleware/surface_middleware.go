package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "focus/backend/internal/errors"
	"focus/backend/internal/surface"
)

const (
	SurfaceIDContextKey = "surfaceID"
	TaskIDContextKey    = "taskID"
)

// SurfaceToken admits requests carrying a valid surface token, either as a
// bearer header or, for EventSource clients that cannot set headers, as the
// token query parameter.
func SurfaceToken(issuer *surface.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeError(c, apperrors.Unauthorized("invalid authorization format"))
				return
			}
			token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}
		if token == "" {
			writeError(c, apperrors.Unauthorized("missing surface token"))
			return
		}

		claims, err := issuer.Parse(token)
		if err != nil {
			writeError(c, apperrors.Unauthorized("invalid surface token"))
			return
		}

		c.Set(SurfaceIDContextKey, claims.Subject)
		c.Set(TaskIDContextKey, claims.TaskID)
		c.Next()
	}
}

func SurfaceID(c *gin.Context) string {
	return c.GetString(SurfaceIDContextKey)
}

func SurfaceTaskID(c *gin.Context) string {
	return c.GetString(TaskIDContextKey)
}

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error": gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
			"details": apiErr.Details,
		},
	})
}

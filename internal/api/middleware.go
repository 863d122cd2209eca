package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/logging"
)

// Context keys set by AuthRequired.
const (
	ctxUserID = "userID"
	ctxRole   = "rol"
)

// Known roles, as injected by the upstream auth layer.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operador"
	RoleUser     = "usuario"
)

func RequestLoggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		logger.Infof("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
	}
}

// AuthRequired reads the identity headers injected by the auth layer.
// Token verification itself happens upstream; a request without identity
// is unauthenticated.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.Atoi(c.GetHeader("X-User-ID"))
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No autenticado"})
			return
		}
		role := c.GetHeader("X-User-Rol")
		if role == "" {
			role = RoleUser
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// RequireRole rejects authenticated requests whose role is not listed.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Permiso denegado"})
	}
}

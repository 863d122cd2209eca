package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/config"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/logging"
)

// NewRouter wires the alert REST endpoints and the real-time channel.
// wsHandle is the upgrade handler for /ws; pass nil to skip it (tests).
func NewRouter(h *Handler, wsHandle gin.HandlerFunc, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	base := r.Group(cfg.API.BasePath)
	{
		base.GET("/alertas/listar", h.ListAlerts)
		base.GET("/alertas/activas", h.ListActiveAlerts)
		base.GET("/alertas/:id", h.GetAlert)
		base.POST("/alertas/crear", AuthRequired(), h.CreateAlert)
		base.PUT("/alertas/:id/estado", AuthRequired(), RequireRole(RoleAdmin, RoleOperator), h.UpdateAlertStatus)
		base.DELETE("/alertas/:id", AuthRequired(), RequireRole(RoleAdmin), h.DeleteAlert)
		base.GET("/notificaciones/leidas", AuthRequired(), h.ListReadNotifications)
	}

	if wsHandle != nil {
		r.GET("/ws", wsHandle)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/db"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/logging"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/models"
)

// AlertStore is the persistence surface the handlers need. *db.DB
// satisfies it.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	GetAlertByID(ctx context.Context, id string) (models.Alert, error)
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	ListActiveAlerts(ctx context.Context) ([]models.Alert, error)
	UpdateAlertStatus(ctx context.Context, id, status string) error
	DeleteAlert(ctx context.Context, id string) error
}

// Broadcaster fans alert events out to connected sessions.
// *realtime.Dispatcher satisfies it.
type Broadcaster interface {
	BroadcastAlertCreated(alert models.Alert, excludeUserID int)
	BroadcastAlertDeleted(alertID, alertTitle string, excludeUserID int)
}

// Escalator forwards high-priority alerts to an out-of-band channel.
type Escalator interface {
	Escalate(ctx context.Context, alert models.Alert) error
}

// ReceiptStore reads back persisted read receipts. *db.DB satisfies it.
type ReceiptStore interface {
	ReadNotificationIDs(ctx context.Context, userID int) ([]string, error)
}

type Handler struct {
	store      AlertStore
	receipts   ReceiptStore
	dispatcher Broadcaster
	escalator  Escalator
	logger     *logging.Logger
}

func NewHandler(store AlertStore, receipts ReceiptStore, dispatcher Broadcaster, escalator Escalator, logger *logging.Logger) *Handler {
	return &Handler{store: store, receipts: receipts, dispatcher: dispatcher, escalator: escalator, logger: logger}
}

type createAlertRequest struct {
	Type        string   `json:"tipo"`
	Priority    string   `json:"prioridad"`
	Title       string   `json:"titulo" binding:"required"`
	Description string   `json:"descripcion"`
	Address     string   `json:"direccion"`
	Latitude    *float64 `json:"latitud" binding:"required"`
	Longitude   *float64 `json:"longitud" binding:"required"`
}

// CreateAlert persists a new alert and broadcasts it to every session
// except the creator's. The creator already has the result in this
// response, and broadcast failures are never surfaced here.
func (h *Handler) CreateAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for alert: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	userID := c.GetInt(ctxUserID)
	alert := models.Alert{
		Type:        req.Type,
		Priority:    req.Priority,
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Status:      models.StatusActive,
		CreatorID:   userID,
	}
	if alert.Priority == "" {
		alert.Priority = models.PriorityMedium
	}
	if err := alert.Validate(); err != nil {
		h.logger.Errorf("Invalid alert from user %d: %v", userID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.CreateAlert(c.Request.Context(), &alert); err != nil {
		h.logger.Errorf("Failed to create alert: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}

	h.dispatcher.BroadcastAlertCreated(alert, userID)

	if h.escalator != nil && alert.Priority == models.PriorityHigh {
		go func(a models.Alert) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.escalator.Escalate(ctx, a); err != nil {
				h.logger.Errorf("Escalation for alert %s failed: %v", a.ID, err)
			}
		}(alert)
	}

	h.logger.Infof("Created alert %s by user %d", alert.ID, userID)
	c.JSON(http.StatusCreated, alert)
}

// ListAlerts returns every alert regardless of status. Clients filter the
// active ones for their snapshot.
func (h *Handler) ListAlerts(c *gin.Context) {
	alerts, err := h.store.ListAlerts(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to list alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alertas": alerts})
}

// ListActiveAlerts returns only broadcast-visible alerts, the set the map
// renders on initial load.
func (h *Handler) ListActiveAlerts(c *gin.Context) {
	alerts, err := h.store.ListActiveAlerts(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to list active alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alertas": alerts})
}

// GetAlert returns one alert by id.
func (h *Handler) GetAlert(c *gin.Context) {
	id := c.Param("id")
	alert, err := h.store.GetAlertByID(c.Request.Context(), id)
	if errors.Is(err, db.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to get alert %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get alert"})
		return
	}
	c.JSON(http.StatusOK, alert)
}

type updateStatusRequest struct {
	Status string `json:"estado" binding:"required"`
}

// UpdateAlertStatus transitions an alert's lifecycle status. Transitions
// do not broadcast: clients converge on the next snapshot fetch.
func (h *Handler) UpdateAlertStatus(c *gin.Context) {
	id := c.Param("id")
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !models.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
		return
	}

	alert, err := h.store.GetAlertByID(c.Request.Context(), id)
	if errors.Is(err, db.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to get alert %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get alert"})
		return
	}

	if !models.ValidTransition(alert.Status, req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status transition"})
		return
	}

	if err := h.store.UpdateAlertStatus(c.Request.Context(), id, req.Status); err != nil {
		h.logger.Errorf("Failed to update alert %s status: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}

	h.logger.Infof("Alert %s transitioned %s -> %s", id, alert.Status, req.Status)
	c.JSON(http.StatusOK, gin.H{"id": id, "estado": req.Status})
}

// DeleteAlert hard-deletes an alert and broadcasts the deletion to every
// session except the deleter's.
func (h *Handler) DeleteAlert(c *gin.Context) {
	id := c.Param("id")
	userID := c.GetInt(ctxUserID)

	alert, err := h.store.GetAlertByID(c.Request.Context(), id)
	if errors.Is(err, db.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to get alert %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get alert"})
		return
	}

	if err := h.store.DeleteAlert(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		h.logger.Errorf("Failed to delete alert %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert"})
		return
	}

	h.dispatcher.BroadcastAlertDeleted(id, alert.Title, userID)

	h.logger.Infof("Deleted alert %s by user %d", id, userID)
	c.JSON(http.StatusOK, gin.H{"mensaje": "Alerta eliminada"})
}

// ListReadNotifications returns the ids the user already marked read, so a
// reconnecting client can rehydrate its read flags.
func (h *Handler) ListReadNotifications(c *gin.Context) {
	userID := c.GetInt(ctxUserID)
	ids, err := h.receipts.ReadNotificationIDs(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorf("Failed to list read notifications for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list read notifications"})
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"leidas": ids})
}

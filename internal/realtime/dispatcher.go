package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/logging"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/models"
)

// Dispatcher fans one event out to every registered session except the
// originator's. Emission is sequential from a single dispatch point, so
// two events for the same alert always reach a given session in emission
// order. Delivery is at-most-once: offline sessions catch up via snapshot
// reconciliation.
type Dispatcher struct {
	registry *Registry
	logger   *logging.Logger
	mu       sync.Mutex
}

func NewDispatcher(registry *Registry, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// BroadcastAlertCreated pushes a newAlert event to every session whose
// user is not excludeUserID. Pass 0 to exclude nobody.
func (d *Dispatcher) BroadcastAlertCreated(alert models.Alert, excludeUserID int) {
	lat, lng := alert.Latitude, alert.Longitude
	event := models.NewAlertEvent{
		Type:      models.MsgNewAlert,
		ID:        uuid.New().String(),
		Title:     "🚨 Nueva alerta de emergencia",
		Message:   alert.Title,
		Location:  alert.Address,
		Category:  alert.Type,
		Priority:  alert.Priority,
		AlertID:   alert.ID,
		Latitude:  &lat,
		Longitude: &lng,
		Timestamp: time.Now(),
	}
	d.emit(models.MsgNewAlert, event, excludeUserID)
}

// BroadcastAlertDeleted pushes an alertDeleted event for alertID to every
// session whose user is not excludeUserID.
func (d *Dispatcher) BroadcastAlertDeleted(alertID, alertTitle string, excludeUserID int) {
	event := models.AlertDeletedEvent{
		Type:      models.MsgAlertDeleted,
		ID:        uuid.New().String(),
		Title:     "Alerta eliminada",
		Message:   fmt.Sprintf("La alerta %q fue eliminada", alertTitle),
		AlertID:   alertID,
		Timestamp: time.Now(),
	}
	d.emit(models.MsgAlertDeleted, event, excludeUserID)
}

// BroadcastGeneric pushes a free-form notification to every session whose
// user is not excludeUserID.
func (d *Dispatcher) BroadcastGeneric(title, message string, excludeUserID int) {
	event := models.GenericEvent{
		Type:      models.MsgNotification,
		ID:        uuid.New().String(),
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
	d.emit(models.MsgNotification, event, excludeUserID)
}

// emit delivers one event to a snapshot of the current sessions. Write
// deadlines live in the connection itself. A send failure is logged,
// evicts the dead connection, and never aborts the remaining deliveries.
// The dispatch mutex keeps emission sequential.
func (d *Dispatcher) emit(msgType string, event interface{}, excludeUserID int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sessions := d.registry.SessionsExcept(excludeUserID)
	delivered := 0
	for _, s := range sessions {
		if err := s.Conn.WriteJSON(event); err != nil {
			d.logger.Errorf("Failed to send %s to user %d: %v", msgType, s.UserID, err)
			d.registry.Unregister(s.Conn)
			_ = s.Conn.Close()
			continue
		}
		delivered++
	}
	d.logger.Infof("Broadcast %s delivered to %d/%d sessions (excluded user %d)",
		msgType, delivered, len(sessions), excludeUserID)
}

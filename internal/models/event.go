package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire message types on the real-time channel.
const (
	MsgAuthenticate  = "authenticate"
	MsgAuthenticated = "authenticated"
	MsgMarkRead      = "markNotificationRead"
	MsgNewAlert      = "newAlert"
	MsgAlertDeleted  = "alertDeleted"
	MsgNotification  = "notification"
)

// Notification kinds. Kind is the authoritative discriminator for
// reconciliation; title text is never inspected.
const (
	KindAlertCreated = "alert-created"
	KindAlertDeleted = "alert-deleted"
	KindGeneric      = "generic"
)

// AuthRequest is the first frame a client must send after connecting.
type AuthRequest struct {
	Type   string `json:"type"`
	UserID int    `json:"userId"`
	Role   string `json:"rol"`
}

// AuthResponse acknowledges (or rejects) an AuthRequest.
type AuthResponse struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// MarkReadRequest is a best-effort read receipt from the client.
type MarkReadRequest struct {
	Type           string `json:"type"`
	NotificationID string `json:"notificationId"`
}

// Event is a validated server→client frame.
type Event interface {
	Kind() string
}

// NewAlertEvent announces a freshly created alert. Coordinates are
// pointers so a missing field is distinguishable from zero.
type NewAlertEvent struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Location  string    `json:"location"`
	Category  string    `json:"category"`
	Priority  string    `json:"prioridad"`
	AlertID   string    `json:"alertId"`
	Latitude  *float64  `json:"latitud"`
	Longitude *float64  `json:"longitud"`
	Timestamp time.Time `json:"timestamp"`
}

func (e NewAlertEvent) Kind() string { return KindAlertCreated }

func (e NewAlertEvent) validate() error {
	if e.AlertID == "" {
		return fmt.Errorf("newAlert event without alertId")
	}
	if e.Latitude == nil || e.Longitude == nil {
		return fmt.Errorf("newAlert %s missing coordinates", e.AlertID)
	}
	if !ValidCoordinates(*e.Latitude, *e.Longitude) {
		return fmt.Errorf("newAlert %s coordinates out of range: lat=%v lng=%v", e.AlertID, *e.Latitude, *e.Longitude)
	}
	return nil
}

// Alert rebuilds the map-visible alert carried by the event.
func (e NewAlertEvent) Alert() Alert {
	return Alert{
		ID:        e.AlertID,
		Type:      e.Category,
		Priority:  e.Priority,
		Title:     e.Title,
		Address:   e.Location,
		Latitude:  *e.Latitude,
		Longitude: *e.Longitude,
		Status:    StatusActive,
		CreatedAt: e.Timestamp,
	}
}

// AlertDeletedEvent announces that an alert was removed everywhere.
type AlertDeletedEvent struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	AlertID   string    `json:"alertId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e AlertDeletedEvent) Kind() string { return KindAlertDeleted }

func (e AlertDeletedEvent) validate() error {
	if e.AlertID == "" {
		return fmt.Errorf("alertDeleted event without alertId")
	}
	return nil
}

// GenericEvent carries a free-form notification with no alert reference.
type GenericEvent struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (e GenericEvent) Kind() string { return KindGeneric }

// ParseServerEvent decodes and validates one server→client frame into its
// tagged variant. Unknown types and payloads failing validation are
// rejected here so callers never act on a broken event.
func ParseServerEvent(data []byte) (Event, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("undecodable event: %w", err)
	}
	switch probe.Type {
	case MsgNewAlert:
		var e NewAlertEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("bad newAlert payload: %w", err)
		}
		if err := e.validate(); err != nil {
			return nil, err
		}
		return e, nil
	case MsgAlertDeleted:
		var e AlertDeletedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("bad alertDeleted payload: %w", err)
		}
		if err := e.validate(); err != nil {
			return nil, err
		}
		return e, nil
	case MsgNotification:
		var e GenericEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("bad notification payload: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", probe.Type)
	}
}

package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseServerEventNewAlert(t *testing.T) {
	data := []byte(`{
		"type": "newAlert",
		"id": "ev-1",
		"title": "🚨 Nueva alerta de emergencia",
		"message": "Incendio en depósito",
		"location": "Av. Belgrano 450",
		"category": "incendio",
		"prioridad": "alta",
		"alertId": "42",
		"latitud": -28.47,
		"longitud": -65.78,
		"timestamp": "2024-06-01T12:00:00Z"
	}`)

	event, err := ParseServerEvent(data)
	require.NoError(t, err)
	require.Equal(t, KindAlertCreated, event.Kind())

	e, ok := event.(NewAlertEvent)
	require.True(t, ok)
	require.Equal(t, "42", e.AlertID)
	require.Equal(t, -28.47, *e.Latitude)

	alert := e.Alert()
	require.Equal(t, "42", alert.ID)
	require.Equal(t, StatusActive, alert.Status)
	require.Equal(t, PriorityHigh, alert.Priority)
}

func TestParseServerEventRejectsMissingCoordinates(t *testing.T) {
	data := []byte(`{"type":"newAlert","id":"ev-1","alertId":"42","latitud":-28.47}`)
	_, err := ParseServerEvent(data)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing coordinates")
}

func TestParseServerEventRejectsOutOfRangeCoordinates(t *testing.T) {
	data := []byte(`{"type":"newAlert","id":"ev-1","alertId":"42","latitud":95,"longitud":-65.78}`)
	_, err := ParseServerEvent(data)
	require.Error(t, err)
}

func TestParseServerEventRejectsMissingAlertID(t *testing.T) {
	_, err := ParseServerEvent([]byte(`{"type":"newAlert","latitud":1,"longitud":2}`))
	require.Error(t, err)

	_, err = ParseServerEvent([]byte(`{"type":"alertDeleted","id":"ev-2"}`))
	require.Error(t, err)
}

func TestParseServerEventAlertDeleted(t *testing.T) {
	data := []byte(`{"type":"alertDeleted","id":"ev-2","title":"Alerta eliminada","alertId":"42"}`)
	event, err := ParseServerEvent(data)
	require.NoError(t, err)
	require.Equal(t, KindAlertDeleted, event.Kind())
	require.Equal(t, "42", event.(AlertDeletedEvent).AlertID)
}

func TestParseServerEventGeneric(t *testing.T) {
	data := []byte(`{"type":"notification","id":"ev-3","title":"Aviso","message":"Mantenimiento programado"}`)
	event, err := ParseServerEvent(data)
	require.NoError(t, err)
	require.Equal(t, KindGeneric, event.Kind())
}

func TestParseServerEventRejectsUnknownType(t *testing.T) {
	_, err := ParseServerEvent([]byte(`{"type":"ping"}`))
	require.Error(t, err)

	_, err = ParseServerEvent([]byte(`not json`))
	require.Error(t, err)
}

package client

import (
	"fmt"
	"sync"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/models"
)

// Marker is the map-visible representation of one active alert, keyed
// uniquely by alert id.
type Marker struct {
	AlertID   string
	Icon      string
	Popup     string
	Latitude  float64
	Longitude float64
	Temporary bool
}

// MarkerSet keeps exactly one marker per active alert id, tolerant of
// duplicate and out-of-order events.
type MarkerSet struct {
	mu      sync.Mutex
	markers map[string]Marker
}

func NewMarkerSet() *MarkerSet {
	return &MarkerSet{markers: make(map[string]Marker)}
}

func markerIcon(priority string) string {
	switch priority {
	case models.PriorityHigh:
		return "alerta-alta"
	case models.PriorityMedium:
		return "alerta-media"
	default:
		return "alerta-baja"
	}
}

func markerFor(a models.Alert) Marker {
	popup := a.Title
	if a.Description != "" {
		popup = fmt.Sprintf("%s\n%s", a.Title, a.Description)
	}
	if a.Address != "" {
		popup = fmt.Sprintf("%s\n%s", popup, a.Address)
	}
	return Marker{
		AlertID:   a.ID,
		Icon:      markerIcon(a.Priority),
		Popup:     popup,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
	}
}

// Upsert places the marker for an alert, replacing any existing marker for
// the same id. Calling it twice with identical data is a no-op beyond the
// replace.
func (m *MarkerSet) Upsert(a models.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Remove-then-add: never two live markers for one id
	delete(m.markers, a.ID)
	m.markers[a.ID] = markerFor(a)
}

// AddTemporary places an in-progress placement marker. Temporary markers
// are cleared on the next snapshot load.
func (m *MarkerSet) AddTemporary(id string, lat, lng float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.markers, id)
	m.markers[id] = Marker{AlertID: id, Latitude: lat, Longitude: lng, Temporary: true}
}

// Remove drops the marker if present. Deletion events may arrive for
// markers never materialized locally; that is not an error.
func (m *MarkerSet) Remove(alertID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.markers, alertID)
}

// LoadAll replaces marker state from a snapshot: temporary markers are
// cleared, confirmed markers absent from the snapshot are removed, and
// every snapshot alert gets a marker.
func (m *MarkerSet) LoadAll(alerts []models.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keep := make(map[string]bool, len(alerts))
	for _, a := range alerts {
		keep[a.ID] = true
	}
	for id, mk := range m.markers {
		if mk.Temporary || !keep[id] {
			delete(m.markers, id)
		}
	}
	for _, a := range alerts {
		delete(m.markers, a.ID)
		m.markers[a.ID] = markerFor(a)
	}
}

// Get returns the marker for an alert id.
func (m *MarkerSet) Get(alertID string) (Marker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markers[alertID]
	return mk, ok
}

// Count returns the number of live markers.
func (m *MarkerSet) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.markers)
}

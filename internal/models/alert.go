package models

import (
	"fmt"
	"sort"
	"time"
)

// Alert statuses. Only StatusActive alerts are broadcast-visible on the map.
const (
	StatusActive    = "activa"
	StatusInProcess = "en_proceso"
	StatusResolved  = "resuelta"
	StatusCancelled = "cancelada"
)

// Alert priorities, highest first in any listing.
const (
	PriorityHigh   = "alta"
	PriorityMedium = "media"
	PriorityLow    = "baja"
)

// Alert is a persisted emergency report with location, priority and
// lifecycle status.
type Alert struct {
	ID          string    `json:"id"`
	Type        string    `json:"tipo"`
	Priority    string    `json:"prioridad"`
	Title       string    `json:"titulo"`
	Description string    `json:"descripcion"`
	Address     string    `json:"direccion"`
	Latitude    float64   `json:"latitud"`
	Longitude   float64   `json:"longitud"`
	Status      string    `json:"estado"`
	CreatorID   int       `json:"creador_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidCoordinates reports whether lat/lng form a usable map position.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// ValidStatus reports whether s is a known alert status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusInProcess, StatusResolved, StatusCancelled:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known alert priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ValidTransition reports whether an alert may move from one status to
// another. Resolved and cancelled are terminal.
func ValidTransition(from, to string) bool {
	if !ValidStatus(from) || !ValidStatus(to) {
		return false
	}
	if from == StatusResolved || from == StatusCancelled {
		return false
	}
	return from != to
}

// Validate checks the fields required before an Alert can be persisted.
func (a Alert) Validate() error {
	if a.Title == "" {
		return fmt.Errorf("alert title is required")
	}
	if !ValidCoordinates(a.Latitude, a.Longitude) {
		return fmt.Errorf("coordinates out of range: lat=%v lng=%v", a.Latitude, a.Longitude)
	}
	if a.Priority != "" && !ValidPriority(a.Priority) {
		return fmt.Errorf("unknown priority %q", a.Priority)
	}
	if a.Status != "" && !ValidStatus(a.Status) {
		return fmt.Errorf("unknown status %q", a.Status)
	}
	return nil
}

// IsActive reports whether the alert should be visible on the map.
func (a Alert) IsActive() bool {
	return a.Status == StatusActive
}

func priorityRank(p string) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// SortByPriority orders alerts highest priority first, newest first within
// the same priority.
func SortByPriority(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := priorityRank(alerts[i].Priority), priorityRank(alerts[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
}

package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/models"
)

func alertFixture(id string) models.Alert {
	return models.Alert{
		ID:       id,
		Type:     "incendio",
		Priority: models.PriorityHigh,
		Title:    "Incendio en depósito",
		Address:  "Av. Belgrano 450",
		Latitude: -28.47, Longitude: -65.78,
		Status: models.StatusActive,
	}
}

func TestMarkerUpsertIdempotent(t *testing.T) {
	m := NewMarkerSet()
	a := alertFixture("42")

	m.Upsert(a)
	m.Upsert(a)

	require.Equal(t, 1, m.Count())
	mk, ok := m.Get("42")
	require.True(t, ok)
	require.Equal(t, "alerta-alta", mk.Icon)
	require.Equal(t, -28.47, mk.Latitude)
}

func TestMarkerUpsertReplacesInPlace(t *testing.T) {
	m := NewMarkerSet()
	a := alertFixture("42")
	m.Upsert(a)

	a.Priority = models.PriorityLow
	a.Latitude = -28.5
	m.Upsert(a)

	require.Equal(t, 1, m.Count())
	mk, _ := m.Get("42")
	require.Equal(t, "alerta-baja", mk.Icon)
	require.Equal(t, -28.5, mk.Latitude)
}

func TestMarkerRemoveUnknownIsNoop(t *testing.T) {
	m := NewMarkerSet()
	m.Upsert(alertFixture("42"))

	m.Remove("99")
	require.Equal(t, 1, m.Count())

	m.Remove("99")
	require.Equal(t, 1, m.Count())
}

func TestMarkerCreateThenDeleteNetsToAbsent(t *testing.T) {
	m := NewMarkerSet()
	m.Upsert(alertFixture("42"))
	m.Remove("42")

	_, ok := m.Get("42")
	require.False(t, ok)
	require.Equal(t, 0, m.Count())
}

func TestMarkerLoadAll(t *testing.T) {
	m := NewMarkerSet()
	m.Upsert(alertFixture("1"))
	m.Upsert(alertFixture("2"))
	m.AddTemporary("tmp-placement", -28.0, -65.0)

	// Snapshot keeps 1, drops 2, adds 3; temporaries always go
	m.LoadAll([]models.Alert{alertFixture("1"), alertFixture("3")})

	require.Equal(t, 2, m.Count())
	_, ok := m.Get("1")
	require.True(t, ok)
	_, ok = m.Get("2")
	require.False(t, ok)
	_, ok = m.Get("3")
	require.True(t, ok)
	_, ok = m.Get("tmp-placement")
	require.False(t, ok)
}

func TestMarkerLoadAllEmptySnapshot(t *testing.T) {
	m := NewMarkerSet()
	m.Upsert(alertFixture("1"))
	m.LoadAll(nil)
	require.Equal(t, 0, m.Count())
}

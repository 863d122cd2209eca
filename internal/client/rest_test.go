package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchActiveFiltersToActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/alertas/listar", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"alertas": [
			{"id": "1", "titulo": "Incendio", "estado": "activa", "latitud": -28.47, "longitud": -65.78},
			{"id": "2", "titulo": "Resuelta", "estado": "resuelta", "latitud": -28.47, "longitud": -65.78},
			{"id": "3", "titulo": "Corte", "estado": "activa", "latitud": -28.5, "longitud": -65.8}
		]}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "tok")
	defer c.http.CloseIdleConnections()

	alerts, err := c.FetchActive(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	require.Equal(t, "1", alerts[0].ID)
	require.Equal(t, "3", alerts[1].ID)
}

func TestFetchActiveNon2xxIsSoftFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "")
	defer c.http.CloseIdleConnections()

	_, err := c.FetchActive(context.Background())
	require.Error(t, err)
}

func TestFetchActiveBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "")
	defer c.http.CloseIdleConnections()

	_, err := c.FetchActive(context.Background())
	require.Error(t, err)
}

func TestFetchReadReceipts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/notificaciones/leidas", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"leidas": ["n-1", "n-2"]}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "tok")
	defer c.http.CloseIdleConnections()

	ids, err := c.FetchReadReceipts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"n-1", "n-2"}, ids)
}

func TestFetchReadReceiptsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "")
	defer c.http.CloseIdleConnections()

	_, err := c.FetchReadReceipts(context.Background())
	require.Error(t, err)
}

func TestFetchActiveConnectionRefused(t *testing.T) {
	c := NewRESTClient("http://127.0.0.1:1", "")
	_, err := c.FetchActive(context.Background())
	require.Error(t, err)
}

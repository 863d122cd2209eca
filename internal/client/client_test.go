package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/logging"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/models"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/realtime"
)

type receiptRecorder struct {
	ch chan string
}

func (r *receiptRecorder) MarkNotificationRead(_ context.Context, _ int, notificationID string) error {
	r.ch <- notificationID
	return nil
}

// testServer bundles a real WebSocket endpoint, its registry/dispatcher,
// and a snapshot REST endpoint whose payload tests can swap.
type testServer struct {
	srv        *httptest.Server
	registry   *realtime.Registry
	dispatcher *realtime.Dispatcher
	receipts   *receiptRecorder
	snapshot   func() []models.Alert
}

func newTestServer(t *testing.T, snapshot func() []models.Alert) *testServer {
	return newTestServerCap(t, 10, snapshot)
}

func newTestServerCap(t *testing.T, maxPerUser int, snapshot func() []models.Alert) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := realtime.NewRegistry(maxPerUser, logging.Discard())
	dispatcher := realtime.NewDispatcher(registry, logging.Discard())
	receipts := &receiptRecorder{ch: make(chan string, 8)}
	handler := realtime.NewWSHandler(registry, receipts, logging.Discard(), 2*time.Second, 2*time.Second)

	r := gin.New()
	r.GET("/ws", handler.Handle)
	r.GET("/alertas/listar", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"alertas": snapshot()})
	})
	r.GET("/notificaciones/leidas", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"leidas": []string{}})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, registry: registry, dispatcher: dispatcher, receipts: receipts, snapshot: snapshot}
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
}

func startClient(t *testing.T, ts *testServer, userID int) *Client {
	t.Helper()
	c := New(Options{
		ServerURL:  ts.wsURL(),
		APIBaseURL: ts.srv.URL,
		UserID:     userID,
		Role:       "usuario",
		Policy:     RetryPolicy{MaxAttempts: 3, Delay: 10 * time.Millisecond},
	}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("client did not shut down")
		}
		c.rest.http.CloseIdleConnections()
	})

	require.Eventually(t, func() bool {
		return c.Status() == StatusConnected && ts.registry.IsOnline(userID)
	}, 2*time.Second, 10*time.Millisecond)
	return c
}

func TestClientEndToEnd(t *testing.T) {
	snapshot := []models.Alert{alertFixture("7")}
	ts := newTestServer(t, func() []models.Alert { return snapshot })

	c := startClient(t, ts, 2)

	// Initial snapshot materializes markers
	require.Eventually(t, func() bool {
		_, ok := c.Markers().Get("7")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	// Broadcast create reaches the client and adds a marker
	ts.dispatcher.BroadcastAlertCreated(alertFixture("42"), 1)
	require.Eventually(t, func() bool {
		_, ok := c.Markers().Get("42")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	notifs := c.Reconciler().Notifications()
	require.Equal(t, models.KindAlertCreated, notifs[0].Kind)
	require.Equal(t, "42", notifs[0].AlertID)

	// Broadcast delete removes the marker and prepends a deletion
	// notification, keeping the created one as history
	ts.dispatcher.BroadcastAlertDeleted("42", "Incendio en depósito", 1)
	require.Eventually(t, func() bool {
		_, ok := c.Markers().Get("42")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	notifs = c.Reconciler().Notifications()
	require.Equal(t, models.KindAlertDeleted, notifs[0].Kind)
	require.Equal(t, models.KindAlertCreated, notifs[1].Kind)

	// A stale deletion for a still-active alert self-heals on the next
	// snapshot application
	ts.dispatcher.BroadcastAlertDeleted("7", "Incendio en depósito", 1)
	require.Eventually(t, func() bool {
		n := c.Reconciler().Notifications()
		return len(n) > 0 && n[0].AlertID == "7" && n[0].Kind == models.KindAlertDeleted
	}, 2*time.Second, 10*time.Millisecond)

	c.Reconciler().ApplySnapshot(snapshot)
	notifs = c.Reconciler().Notifications()
	require.Equal(t, models.KindAlertCreated, notifs[0].Kind)
	_, ok := c.Markers().Get("7")
	require.True(t, ok)

	// Read receipt round-trips to the server
	c.MarkRead(notifs[0].ID)
	select {
	case got := <-ts.receipts.ch:
		require.Equal(t, notifs[0].ID, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for read receipt")
	}
}

func TestClientDropsMalformedEvents(t *testing.T) {
	ts := newTestServer(t, func() []models.Alert { return nil })
	c := startClient(t, ts, 2)

	// Out-of-range coordinates: rejected at the boundary, no marker, no
	// notification
	ts.dispatcher.BroadcastAlertCreated(models.Alert{ID: "bad", Title: "x", Latitude: 200, Longitude: 0}, 1)
	ts.dispatcher.BroadcastGeneric("Aviso", "Mantenimiento", 1)

	require.Eventually(t, func() bool {
		return len(c.Reconciler().Notifications()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	notifs := c.Reconciler().Notifications()
	require.Equal(t, models.KindGeneric, notifs[0].Kind)
	require.Equal(t, 0, c.Markers().Count())
}

func TestClientRejectedRegistrationIsFailedConnect(t *testing.T) {
	ts := newTestServerCap(t, 1, func() []models.Alert { return nil })

	// Occupy the single connection slot for user 7
	occupied := startClient(t, ts, 7)
	require.Equal(t, StatusConnected, occupied.Status())

	// A second client for the same user is rejected at registration.
	// That must read as a failed connect: bounded retry, then a
	// persistent disconnected state, never a reconnect loop on a
	// connection that was never registered.
	c := New(Options{
		ServerURL:  ts.wsURL(),
		APIBaseURL: ts.srv.URL,
		UserID:     7,
		Role:       "usuario",
		Policy:     RetryPolicy{MaxAttempts: 2, Delay: 5 * time.Millisecond},
	}, logging.Discard())

	err := c.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "reconnect attempts exhausted")
	require.Contains(t, err.Error(), "authentication rejected")
	require.Equal(t, StatusDisconnected, c.Status())
	c.rest.http.CloseIdleConnections()
}

func TestClientReconnectExhaustion(t *testing.T) {
	c := New(Options{
		ServerURL:  "ws://127.0.0.1:1/ws",
		APIBaseURL: "http://127.0.0.1:1",
		UserID:     2,
		Policy:     RetryPolicy{MaxAttempts: 2, Delay: 5 * time.Millisecond},
	}, logging.Discard())

	err := c.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "reconnect attempts exhausted")
	require.Equal(t, StatusDisconnected, c.Status())
}

func TestClientRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(Options{
		ServerURL:  "ws://127.0.0.1:1/ws",
		APIBaseURL: "http://127.0.0.1:1",
		UserID:     2,
		Policy:     RetryPolicy{MaxAttempts: 100, Delay: time.Hour},
	}, logging.Discard())

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/logging"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/models"
)

// ReceiptStore persists best-effort notification read receipts.
type ReceiptStore interface {
	MarkNotificationRead(ctx context.Context, userID int, notificationID string) error
}

// wsConn serializes writes to one gorilla connection. The dispatcher and
// the session handler both write to it, and gorilla supports only one
// concurrent writer. Every write carries the configured deadline.
type wsConn struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
}

func newWSConn(conn *websocket.Conn, timeout time.Duration) *wsConn {
	return &wsConn{conn: conn, timeout: timeout}
}

func (w *wsConn) writeJSONLocked(v interface{}) error {
	_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	return w.conn.WriteJSON(v)
}

func (w *wsConn) WriteJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeJSONLocked(v)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// WSHandler upgrades HTTP requests to WebSocket sessions, runs the
// authenticate handshake, and services inbound frames until disconnect.
type WSHandler struct {
	registry     *Registry
	receipts     ReceiptStore
	logger       *logging.Logger
	upgrader     websocket.Upgrader
	authTimeout  time.Duration
	writeTimeout time.Duration
}

func NewWSHandler(registry *Registry, receipts ReceiptStore, logger *logging.Logger, authTimeout, writeTimeout time.Duration) *WSHandler {
	if authTimeout == 0 {
		authTimeout = 15 * time.Second
	}
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Second
	}
	return &WSHandler{
		registry: registry,
		receipts: receipts,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		authTimeout:  authTimeout,
		writeTimeout: writeTimeout,
	}
}

// Handle serves one WebSocket session. The first frame must be an
// authenticate message; the first server frame is the handshake result and
// reports success only after the session is registered, so a rejected
// registration never looks authenticated to the client.
func (h *WSHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	wc := newWSConn(conn, h.writeTimeout)

	req, ok := h.handshake(conn, wc)
	if !ok {
		return
	}

	// Register and ack under the write lock: no broadcast frame can slip
	// in ahead of the handshake result.
	wc.mu.Lock()
	if err := h.registry.Register(wc, req.UserID, req.Role); err != nil {
		h.logger.Warnf("Rejecting session for user %d: %v", req.UserID, err)
		_ = wc.writeJSONLocked(models.AuthResponse{Type: models.MsgAuthenticated, Success: false, Message: err.Error()})
		wc.mu.Unlock()
		return
	}
	ackErr := wc.writeJSONLocked(models.AuthResponse{Type: models.MsgAuthenticated, Success: true})
	wc.mu.Unlock()

	// Every exit path unregisters, normal close or not
	defer h.registry.Unregister(wc)

	if ackErr != nil {
		h.logger.Warnf("Handshake ack failed for user %d: %v", req.UserID, ackErr)
		return
	}

	h.readLoop(conn, req.UserID)
}

func (h *WSHandler) handshake(conn *websocket.Conn, wc *wsConn) (models.AuthRequest, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(h.authTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		h.logger.Warnf("Handshake read failed: %v", err)
		return models.AuthRequest{}, false
	}

	var req models.AuthRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Type != models.MsgAuthenticate || req.UserID <= 0 {
		h.logger.Warnf("Invalid authenticate frame: %s", data)
		_ = wc.WriteJSON(models.AuthResponse{Type: models.MsgAuthenticated, Success: false, Message: "invalid authenticate message"})
		return models.AuthRequest{}, false
	}

	_ = conn.SetReadDeadline(time.Time{})
	return req, true
}

func (h *WSHandler) readLoop(conn *websocket.Conn, userID int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warnf("Connection for user %d closed unexpectedly: %v", userID, err)
			}
			return
		}

		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			h.logger.Debugf("Undecodable frame from user %d: %v", userID, err)
			continue
		}

		switch probe.Type {
		case models.MsgMarkRead:
			var req models.MarkReadRequest
			if err := json.Unmarshal(data, &req); err != nil || req.NotificationID == "" {
				h.logger.Debugf("Invalid markNotificationRead from user %d", userID)
				continue
			}
			// Best-effort: a failed receipt is logged and forgotten
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := h.receipts.MarkNotificationRead(ctx, userID, req.NotificationID); err != nil {
				h.logger.Warnf("Failed to persist read receipt %s for user %d: %v", req.NotificationID, userID, err)
			}
			cancel()
		default:
			h.logger.Debugf("Ignoring frame type %q from user %d", probe.Type, userID)
		}
	}
}

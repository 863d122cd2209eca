package client

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/logging"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/models"
)

// Status is the connection state surfaced to the user.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnected    Status = "connected"
)

// Options configures a headless map client.
type Options struct {
	ServerURL  string // ws:// endpoint
	APIBaseURL string // http:// endpoint for snapshot fetches
	Token      string
	UserID     int
	Role       string
	Policy     RetryPolicy
}

// Client is the headless real-time map client: it holds the marker set and
// notification reconciler and runs a single event loop that serializes
// event ingestion, snapshot application, and outbound writes.
type Client struct {
	opts       Options
	markers    *MarkerSet
	reconciler *Reconciler
	rest       *RESTClient
	logger     *logging.Logger

	commands chan func()
	outbound chan interface{}
	status   atomic.Value
}

func New(opts Options, logger *logging.Logger) *Client {
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = DefaultRetryPolicy
	}
	c := &Client{
		opts:     opts,
		markers:  NewMarkerSet(),
		rest:     NewRESTClient(opts.APIBaseURL, opts.Token),
		logger:   logger,
		commands: make(chan func(), 16),
		outbound: make(chan interface{}, 64),
	}
	c.reconciler = NewReconciler(c.markers, c.rest, c, logger)
	c.status.Store(StatusDisconnected)
	return c
}

// Markers exposes the live marker set.
func (c *Client) Markers() *MarkerSet { return c.markers }

// Reconciler exposes the notification list and reconciliation surface.
func (c *Client) Reconciler() *Reconciler { return c.reconciler }

// Status reports the current connection state.
func (c *Client) Status() Status { return c.status.Load().(Status) }

// MarkRead flags a notification read and echoes the receipt.
func (c *Client) MarkRead(notificationID string) {
	c.reconciler.MarkRead(notificationID)
}

// ReportRead enqueues a read receipt for the event loop to send. Never
// blocks: a full queue drops the receipt, it is best-effort anyway.
func (c *Client) ReportRead(notificationID string) {
	select {
	case c.outbound <- models.MarkReadRequest{Type: models.MsgMarkRead, NotificationID: notificationID}:
	default:
		c.logger.Debugf("Outbound queue full, dropping read receipt %s", notificationID)
	}
}

// Run connects and services the real-time channel until ctx is cancelled
// or the bounded reconnect policy is exhausted. On every (re)connect the
// active snapshot is fetched and reconciled.
func (c *Client) Run(ctx context.Context) error {
	state := RetryState{}
	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			next, wait, ok := c.opts.Policy.Next(state)
			if !ok {
				c.status.Store(StatusDisconnected)
				c.logger.Errorf("Giving up after %d connection attempts: %v", c.opts.Policy.MaxAttempts, err)
				return fmt.Errorf("reconnect attempts exhausted: %w", err)
			}
			state = next
			c.logger.Warnf("Connect attempt %d/%d failed, retrying in %v: %v",
				state.Attempt, c.opts.Policy.MaxAttempts, wait, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		state = RetryState{}
		c.status.Store(StatusConnected)
		c.logger.Infof("Connected as user %d", c.opts.UserID)

		// Snapshot fetch runs off the loop; its result re-enters the loop
		// as a command so it never races event ingestion.
		go c.refreshSnapshot(ctx)

		err = c.eventLoop(ctx, conn)
		c.status.Store(StatusDisconnected)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warnf("Connection lost: %v", err)
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.opts.ServerURL, nil)
	if err != nil {
		return nil, err
	}

	auth := models.AuthRequest{Type: models.MsgAuthenticate, UserID: c.opts.UserID, Role: c.opts.Role}
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()
		return nil, fmt.Errorf("authenticate write failed: %w", err)
	}

	var resp models.AuthResponse
	if err := conn.ReadJSON(&resp); err != nil {
		conn.Close()
		return nil, fmt.Errorf("authenticate read failed: %w", err)
	}
	if resp.Type != models.MsgAuthenticated || !resp.Success {
		conn.Close()
		return nil, fmt.Errorf("authentication rejected: %s", resp.Message)
	}
	return conn, nil
}

// eventLoop is the single point of serialization: incoming frames, applied
// snapshots, and outbound writes all pass through here one at a time.
func (c *Client) eventLoop(ctx context.Context, conn *websocket.Conn) error {
	frames := make(chan []byte, 64)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				close(frames)
				return
			}
			frames <- data
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			// Drain frames so the reader goroutine can reach its error exit
			for {
				select {
				case <-frames:
				case <-readErr:
					return ctx.Err()
				}
			}
		case data, ok := <-frames:
			if !ok {
				return <-readErr
			}
			event, err := models.ParseServerEvent(data)
			if err != nil {
				// Malformed payloads are rejected silently, log only
				c.logger.Warnf("Dropping invalid event: %v", err)
				continue
			}
			c.reconciler.Ingest(event)
		case fn := <-c.commands:
			fn()
		case out := <-c.outbound:
			if err := conn.WriteJSON(out); err != nil {
				c.logger.Warnf("Outbound write failed: %v", err)
			}
		}
	}
}

func (c *Client) refreshSnapshot(ctx context.Context) {
	alerts, err := c.rest.FetchActive(ctx)
	if err != nil {
		// Soft failure: local state stays last-known-good until the next
		// reconnect or manual refresh
		c.logger.Warnf("Snapshot fetch failed: %v", err)
		return
	}

	// Read flags rehydrate from the server's receipt store; a failure
	// here only leaves notifications unread
	readIDs, err := c.rest.FetchReadReceipts(ctx)
	if err != nil {
		c.logger.Warnf("Read receipt fetch failed: %v", err)
		readIDs = nil
	}

	select {
	case c.commands <- func() {
		c.reconciler.ApplySnapshot(alerts)
		c.reconciler.ApplyReadReceipts(readIDs)
	}:
	case <-ctx.Done():
	}
}

package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/logging"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/models"
)

// Notification is one locally held entry in the client's list. Its ID is
// assigned locally and is not the alert id.
type Notification struct {
	ID         string
	Kind       string
	AlertID    string
	Title      string
	Message    string
	Read       bool
	ReceivedAt time.Time
}

// MarkerSink is where the reconciler pushes marker updates. *MarkerSet
// satisfies it.
type MarkerSink interface {
	Upsert(models.Alert)
	Remove(alertID string)
	LoadAll([]models.Alert)
}

// SnapshotFetcher returns the authoritative list of currently active
// alerts. *RESTClient satisfies it.
type SnapshotFetcher interface {
	FetchActive(ctx context.Context) ([]models.Alert, error)
}

// ReadReporter echoes a read receipt to the server, best-effort.
type ReadReporter interface {
	ReportRead(notificationID string)
}

// Reconciler maintains the client's most-recent-first notification list
// and self-corrects drift between locally cached "deleted" labels and the
// true server state.
type Reconciler struct {
	mu       sync.Mutex
	notifs   []Notification
	snapshot map[string]models.Alert
	markers  MarkerSink
	fetcher  SnapshotFetcher
	reporter ReadReporter
	logger   *logging.Logger
	seq      int64
}

func NewReconciler(markers MarkerSink, fetcher SnapshotFetcher, reporter ReadReporter, logger *logging.Logger) *Reconciler {
	return &Reconciler{
		markers:  markers,
		fetcher:  fetcher,
		reporter: reporter,
		logger:   logger,
	}
}

func (r *Reconciler) nextID() string {
	r.seq++
	return fmt.Sprintf("%d-%d", time.Now().UnixMilli(), r.seq)
}

// Ingest prepends a Notification built from a validated event and drives
// the marker set accordingly.
func (r *Reconciler) Ingest(event models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := Notification{
		ID:         r.nextID(),
		Kind:       event.Kind(),
		ReceivedAt: time.Now(),
	}

	switch e := event.(type) {
	case models.NewAlertEvent:
		n.AlertID = e.AlertID
		n.Title = e.Title
		n.Message = e.Message
		r.markers.Upsert(e.Alert())
	case models.AlertDeletedEvent:
		n.AlertID = e.AlertID
		n.Title = e.Title
		n.Message = e.Message
		// Remove is a no-op when this client never saw the marker; the
		// notification is still recorded so the deletion stays visible.
		r.markers.Remove(e.AlertID)
	case models.GenericEvent:
		n.Title = e.Title
		n.Message = e.Message
	default:
		r.logger.Warnf("Ignoring event of unknown kind %q", event.Kind())
		return
	}

	r.notifs = append([]Notification{n}, r.notifs...)
}

// LoadActiveSnapshot fetches the authoritative active-alert list and
// applies it. A fetch failure leaves local state as-is and is retryable.
func (r *Reconciler) LoadActiveSnapshot(ctx context.Context) error {
	alerts, err := r.fetcher.FetchActive(ctx)
	if err != nil {
		r.logger.Warnf("Snapshot fetch failed, keeping last-known-good state: %v", err)
		return fmt.Errorf("snapshot fetch failed: %w", err)
	}
	r.ApplySnapshot(alerts)
	return nil
}

// ApplySnapshot stores the comparison set, rebuilds markers from it, and
// reconciles the notification list against it.
func (r *Reconciler) ApplySnapshot(alerts []models.Alert) {
	r.mu.Lock()
	r.snapshot = make(map[string]models.Alert, len(alerts))
	for _, a := range alerts {
		r.snapshot[a.ID] = a
	}
	r.mu.Unlock()

	r.markers.LoadAll(alerts)
	r.Reconcile()
}

// Reconcile rewrites any notification labeled alert-deleted whose alert is
// in fact still active per the snapshot. Idempotent: a second call with
// the same snapshot changes nothing. Returns the number of corrections.
func (r *Reconciler) Reconcile() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	corrected := 0
	for i := range r.notifs {
		n := &r.notifs[i]
		if n.Kind != models.KindAlertDeleted || n.AlertID == "" {
			continue
		}
		alert, active := r.snapshot[n.AlertID]
		if !active {
			continue
		}
		n.Kind = models.KindAlertCreated
		n.Title = "🚨 Nueva alerta de emergencia"
		n.Message = alert.Title
		corrected++
	}
	if corrected > 0 {
		r.logger.Infof("Reconciled %d stale deletion notifications", corrected)
	}
	return corrected
}

// ApplyReadReceipts flags the listed notifications read. The ids come
// from the server's receipt store, so nothing is echoed back.
func (r *Reconciler) ApplyReadReceipts(ids []string) {
	if len(ids) == 0 {
		return
	}
	read := make(map[string]bool, len(ids))
	for _, id := range ids {
		read[id] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifs {
		if read[r.notifs[i].ID] {
			r.notifs[i].Read = true
		}
	}
}

// MarkRead flags a notification read locally and echoes the receipt to the
// server without waiting for acknowledgement.
func (r *Reconciler) MarkRead(notificationID string) {
	r.mu.Lock()
	found := false
	for i := range r.notifs {
		if r.notifs[i].ID == notificationID {
			r.notifs[i].Read = true
			found = true
			break
		}
	}
	r.mu.Unlock()

	if found && r.reporter != nil {
		r.reporter.ReportRead(notificationID)
	}
}

// MarkAllRead flags every notification read, echoing each receipt.
func (r *Reconciler) MarkAllRead() {
	r.mu.Lock()
	var ids []string
	for i := range r.notifs {
		if !r.notifs[i].Read {
			r.notifs[i].Read = true
			ids = append(ids, r.notifs[i].ID)
		}
	}
	r.mu.Unlock()

	if r.reporter != nil {
		for _, id := range ids {
			r.reporter.ReportRead(id)
		}
	}
}

// UnreadCount returns the number of unread notifications.
func (r *Reconciler) UnreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for i := range r.notifs {
		if !r.notifs[i].Read {
			count++
		}
	}
	return count
}

// Notifications returns a copy of the list, most recent first.
func (r *Reconciler) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.notifs))
	copy(out, r.notifs)
	return out
}

package realtime

import (
	"fmt"
	"sync"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/logging"
)

// Conn is the write surface the registry and dispatcher need from a live
// connection. *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Session binds one live connection to an authenticated user.
type Session struct {
	Conn   Conn
	UserID int
	Role   string
}

// Registry tracks which users currently hold live connections. All access
// goes through the mutex; iteration callers get a snapshot copy so an
// unregister during emission cannot invalidate the walk.
type Registry struct {
	mu         sync.Mutex
	sessions   map[Conn]*Session
	byUser     map[int]map[Conn]*Session
	byRole     map[string]map[Conn]*Session
	maxPerUser int
	logger     *logging.Logger
}

func NewRegistry(maxPerUser int, logger *logging.Logger) *Registry {
	if maxPerUser <= 0 {
		maxPerUser = 10
	}
	return &Registry{
		sessions:   make(map[Conn]*Session),
		byUser:     make(map[int]map[Conn]*Session),
		byRole:     make(map[string]map[Conn]*Session),
		maxPerUser: maxPerUser,
		logger:     logger,
	}
}

// Register binds a connection to a user and role. Registering the same
// connection twice rebinds it (last write wins).
func (r *Registry) Register(conn Conn, userID int, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.sessions[conn]; ok {
		r.dropLocked(conn, old)
	}

	if len(r.byUser[userID]) >= r.maxPerUser {
		return fmt.Errorf("max connections reached for user %d", userID)
	}

	s := &Session{Conn: conn, UserID: userID, Role: role}
	r.sessions[conn] = s
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[Conn]*Session)
	}
	r.byUser[userID][conn] = s
	if role != "" {
		if r.byRole[role] == nil {
			r.byRole[role] = make(map[Conn]*Session)
		}
		r.byRole[role][conn] = s
	}
	r.logger.Infof("Registered session for user %d (connections: %d)", userID, len(r.byUser[userID]))
	return nil
}

// Unregister removes every binding for the connection. Safe to call on
// every disconnect path, including connections never registered.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[conn]
	if !ok {
		return
	}
	r.dropLocked(conn, s)
	r.logger.Infof("Unregistered session for user %d (remaining: %d)", s.UserID, len(r.byUser[s.UserID]))
}

func (r *Registry) dropLocked(conn Conn, s *Session) {
	delete(r.sessions, conn)
	if conns := r.byUser[s.UserID]; conns != nil {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.byUser, s.UserID)
		}
	}
	if conns := r.byRole[s.Role]; conns != nil {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.byRole, s.Role)
		}
	}
}

// ResolveUser returns the user bound to a connection, if any.
func (r *Registry) ResolveUser(conn Conn) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[conn]; ok {
		return s.UserID, true
	}
	return 0, false
}

// IsOnline reports whether the user holds at least one live connection.
func (r *Registry) IsOnline(userID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser[userID]) > 0
}

// Sessions returns a snapshot of every registered session.
func (r *Registry) Sessions() []*Session {
	return r.SessionsExcept(0)
}

// SessionsExcept returns a snapshot of all sessions not belonging to
// excludeUserID. Exclusion is per-user: every session of that user is
// skipped.
func (r *Registry) SessionsExcept(excludeUserID int) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if excludeUserID != 0 && s.UserID == excludeUserID {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SessionsByRole returns a snapshot of every session registered under the
// given role.
func (r *Registry) SessionsByRole(role string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.byRole[role]))
	for _, s := range r.byRole[role] {
		out = append(out, s)
	}
	return out
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

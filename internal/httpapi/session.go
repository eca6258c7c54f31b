package httpapi

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"kmarket/internal/view"
)

var (
	errSessionNotFound = errors.New("view session not found")
	errTooManySessions = errors.New("too many view sessions")
)

// session is one remote viewer. mu serializes every access to ctrl, so all
// requests and the websocket for a view act as a single logical thread.
type session struct {
	id       string
	lastSeen atomic.Int64 // unix nanoseconds

	mu          sync.Mutex
	ctrl        *view.Controller
	dpr         float64
	dataVersion uint64
}

func (s *session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// sessionManager owns the set of live sessions and expires idle ones.
type sessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session
	max      int
	idle     time.Duration
}

func newSessionManager(maxSessions int, idle time.Duration) *sessionManager {
	return &sessionManager{
		sessions: make(map[string]*session),
		max:      maxSessions,
		idle:     idle,
	}
}

func (m *sessionManager) create(ctrl *view.Controller, dpr float64, dataVersion uint64, now time.Time) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.max > 0 && len(m.sessions) >= m.max {
		return nil, errTooManySessions
	}
	s := &session{
		id:          uuid.NewString(),
		ctrl:        ctrl,
		dpr:         dpr,
		dataVersion: dataVersion,
	}
	s.touch(now)
	m.sessions[s.id] = s
	return s, nil
}

// get returns the session and marks it as used.
func (m *sessionManager) get(id string, now time.Time) (*session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, errSessionNotFound
	}
	s.touch(now)
	return s, nil
}

func (m *sessionManager) remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// sweep drops sessions idle for longer than the idle timeout and returns
// their ids.
func (m *sessionManager) sweep(now time.Time) []string {
	if m.idle <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []string
	for id, s := range m.sessions {
		if s.idleSince(now) > m.idle {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	return expired
}

func (m *sessionManager) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// all returns a snapshot of the current sessions.
func (m *sessionManager) all() []*session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

package viewer

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// DefaultIdle is how long an untouched session lives.
const DefaultIdle = time.Hour

// Sessions tracks one Session per viewer, keyed by a ULID. Sessions idle
// longer than the configured duration are swept on access.
type Sessions struct {
	searcher Searcher
	idle     time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions creates an empty registry. idle <= 0 uses DefaultIdle.
func NewSessions(searcher Searcher, idle time.Duration, logger *zap.Logger) *Sessions {
	if idle <= 0 {
		idle = DefaultIdle
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{
		searcher: searcher,
		idle:     idle,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// New creates and registers a fresh session.
func (m *Sessions) New() *Session {
	id := newSessionID()
	s := NewSession(id, m.searcher, m.logger.With(zap.String("session", id)))
	s.touch(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	m.sessions[id] = s
	return s
}

// Get returns a live session and marks it as used.
func (m *Sessions) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	s.touch(m.now())
	return s, true
}

// GetOrCreate returns the session for id, or a new one when id is unknown
// or expired. created reports which.
func (m *Sessions) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}
	return m.New(), true
}

// Len returns the number of live sessions.
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close cancels every session's in-flight search and forgets them all.
func (m *Sessions) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
}

func (m *Sessions) sweepLocked() {
	cutoff := m.now().Add(-m.idle)
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			s.Close()
			delete(m.sessions, id)
			m.logger.Debug("session expired", zap.String("session", id))
		}
	}
}

func newSessionID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

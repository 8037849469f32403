package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/codel/vm"
)

// Session is one debug session held by the server.
type Session struct {
	ID       string
	Name     string
	Debug    *vm.DebugSession
	created  time.Time
	lastUsed time.Time
}

// SessionStore maps opaque session IDs to debug sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	nextID   atomic.Uint64
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Create registers d under a new ID.
func (s *SessionStore) Create(name string, d *vm.DebugSession) *Session {
	id := fmt.Sprintf("s-%d", s.nextID.Add(1))
	now := time.Now()
	session := &Session{
		ID:       id,
		Name:     name,
		Debug:    d,
		created:  now,
		lastUsed: now,
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	log.Infof("session %s created", id)
	return session
}

// Get retrieves a session by ID and marks it used.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if ok {
		session.lastUsed = time.Now()
	}
	return session, ok
}

// Destroy removes a session. It reports whether the session existed.
func (s *SessionStore) Destroy(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return false
	}
	session.Debug.Stop()
	delete(s.sessions, id)
	log.Infof("session %s destroyed", id)
	return true
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions that haven't been used within ttl.
func (s *SessionStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, session := range s.sessions {
		if session.lastUsed.Before(cutoff) {
			session.Debug.Pause()
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Infof("swept %d idle session(s)", removed)
	}
	return removed
}

// StartSweeper runs periodic TTL sweeps in the background.
// Returns a stop function.
func (s *SessionStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep(ttl)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

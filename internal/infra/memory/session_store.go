package memory

import (
	"sync"

	"oneshot-quiz/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(username string, create func() *app.Session) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[username]; ok {
		return session, true
	}
	session := create()
	s.sessions[username] = session
	return session, false
}

func (s *SessionStore) Get(username string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[username]
	return session, ok
}

// Remove drops the session of username only if it is still sessionID, so a
// late finalizer never evicts a newer session.
func (s *SessionStore) Remove(username, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[username]
	if !ok || session.ID() != sessionID {
		return
	}
	delete(s.sessions, username)
}

// Drain empties the store and returns what it held.
func (s *SessionStore) Drain() []*app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*app.Session, 0, len(s.sessions))
	for username, session := range s.sessions {
		out = append(out, session)
		delete(s.sessions, username)
	}
	return out
}

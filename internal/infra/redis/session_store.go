package redis

import (
	"context"
	"sync"
	"time"

	"oneshot-quiz/internal/app"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions own a live countdown goroutine, so they stay in a local map.
//   - Redis holds a liveness marker per user (session id) so other tooling
//     can see who is mid-quiz. It expires after the store ttl (redis.ttl) and
//     is deleted as soon as the session is removed.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
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
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(username), session.ID(), s.ttl).Err()
	return session, false
}

func (s *SessionStore) Get(username string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[username]
	return session, ok
}

func (s *SessionStore) Remove(username, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[username]
	if !ok || session.ID() != sessionID {
		return
	}
	delete(s.sessions, username)
	_ = s.client.Del(context.Background(), s.key(username)).Err()
}

func (s *SessionStore) Drain() []*app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*app.Session, 0, len(s.sessions))
	keys := make([]string, 0, len(s.sessions))
	for username, session := range s.sessions {
		out = append(out, session)
		keys = append(keys, s.key(username))
		delete(s.sessions, username)
	}
	if len(keys) > 0 {
		_ = s.client.Del(context.Background(), keys...).Err()
	}
	return out
}

func (s *SessionStore) key(username string) string {
	return "quiz:session:" + username
}

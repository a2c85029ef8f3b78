package memory

import (
	"context"
	"sync"
	"time"

	"oneshot-quiz/internal/domain"

	"github.com/oklog/ulid/v2"
)

// ResultStore keeps result handoffs in memory until taken or expired.
type ResultStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.Mutex
	results map[string]storedResult
}

type storedResult struct {
	result    domain.Result
	expiresAt time.Time
}

func NewResultStore(ttl time.Duration) *ResultStore {
	return NewResultStoreWithClock(ttl, time.Now)
}

// NewResultStoreWithClock is test-only for deterministic expiry.
func NewResultStoreWithClock(ttl time.Duration, clock func() time.Time) *ResultStore {
	return &ResultStore{
		ttl:     ttl,
		clock:   clock,
		results: make(map[string]storedResult),
	}
}

func (s *ResultStore) Put(_ context.Context, result domain.Result) (string, error) {
	token := ulid.Make().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[token] = storedResult{result: result, expiresAt: s.clock().Add(s.ttl)}
	return token, nil
}

// Take returns the result once; later calls report domain.ErrResultNotFound.
func (s *ResultStore) Take(_ context.Context, token string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.results[token]
	if !ok {
		return domain.Result{}, domain.ErrResultNotFound
	}
	delete(s.results, token)
	if !entry.expiresAt.After(s.clock()) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return entry.result, nil
}

// CleanupExpired drops handoffs nobody redeemed in time.
func (s *ResultStore) CleanupExpired() {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, entry := range s.results {
		if !entry.expiresAt.After(now) {
			delete(s.results, token)
		}
	}
}

// RunCleanup calls CleanupExpired every interval until ctx is done.
func (s *ResultStore) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupExpired()
		}
	}
}

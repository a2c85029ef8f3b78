package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"oneshot-quiz/internal/domain"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// ResultStore keeps result handoffs as JSON under quiz:result:{token} with a TTL.
// Take uses GETDEL so a token is redeemable once.
type ResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultStore(client *redis.Client, ttl time.Duration) *ResultStore {
	return &ResultStore{client: client, ttl: ttl}
}

func (s *ResultStore) Put(ctx context.Context, result domain.Result) (string, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	token := ulid.Make().String()
	if err := s.client.Set(ctx, s.key(token), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store result: %w", err)
	}
	return token, nil
}

func (s *ResultStore) Take(ctx context.Context, token string) (domain.Result, error) {
	raw, err := s.client.GetDel(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("take result: %w", err)
	}
	var result domain.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}

func (s *ResultStore) key(token string) string {
	return "quiz:result:" + token
}

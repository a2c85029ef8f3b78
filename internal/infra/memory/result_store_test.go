package memory

import (
	"context"
	"testing"
	"time"

	"oneshot-quiz/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestResultStoreTokensAreSingleUse(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore(time.Minute)

	token, err := store.Put(ctx, domain.Result{Username: "alice", Score: 3, TotalQuestions: 5, Available: true})
	require.NoError(t, err)

	got, err := store.Take(ctx, token)
	require.NoError(t, err)
	require.Equal(t, 3, got.Score)

	_, err = store.Take(ctx, token)
	require.ErrorIs(t, err, domain.ErrResultNotFound)
}

func TestResultStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	store := NewResultStoreWithClock(time.Minute, func() time.Time { return now })

	token, err := store.Put(ctx, domain.Result{Username: "alice", Available: true})
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	store.CleanupExpired()
	_, err = store.Take(ctx, token)
	require.ErrorIs(t, err, domain.ErrResultNotFound)
}

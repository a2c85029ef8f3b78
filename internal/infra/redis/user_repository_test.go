package redis

import (
	"context"
	"testing"

	"oneshot-quiz/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestUserRepositoryRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	repo := NewUserRepository(newClient(mr))

	require.NoError(t, repo.Create(ctx, domain.User{Username: "alice", Password: "pw"}))
	require.ErrorIs(t, repo.Create(ctx, domain.User{Username: "alice", Password: "other"}), domain.ErrUsernameTaken)

	user, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "pw", user.Password)
	require.False(t, user.HasCompletedQuiz)

	require.NoError(t, repo.MarkCompleted(ctx, "alice"))
	require.NoError(t, repo.MarkCompleted(ctx, "alice"))
	user, err = repo.Get(ctx, "alice")
	require.NoError(t, err)
	require.True(t, user.HasCompletedQuiz)
}

func TestUserRepositoryUnknownUser(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	repo := NewUserRepository(newClient(mr))

	_, err = repo.Get(ctx, "ghost")
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, repo.MarkCompleted(ctx, "ghost"))
	require.False(t, mr.Exists("quiz:user:ghost"))
}

package redis

import (
	"context"
	"fmt"

	"oneshot-quiz/internal/domain"

	"github.com/redis/go-redis/v9"
)

// UserRepository stores one hash per user:
//
//	HSET quiz:user:{username} password {password} completed {0|1}
//
// HSETNX on the password field guards username uniqueness.
type UserRepository struct {
	client *redis.Client
}

func NewUserRepository(client *redis.Client) *UserRepository {
	return &UserRepository{client: client}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	key := r.key(user.Username)
	created, err := r.client.HSetNX(ctx, key, "password", user.Password).Result()
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if !created {
		return domain.ErrUsernameTaken
	}
	if err := r.client.HSet(ctx, key, "completed", boolField(user.HasCompletedQuiz)).Err(); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, username string) (domain.User, error) {
	fields, err := r.client.HGetAll(ctx, r.key(username)).Result()
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	password, ok := fields["password"]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return domain.User{
		Username:         username,
		Password:         password,
		HasCompletedQuiz: fields["completed"] == "1",
	}, nil
}

// markCompletedScript only touches existing users so unknown names are not created.
var markCompletedScript = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], "password") == 1 then
	redis.call("HSET", KEYS[1], "completed", "1")
	return 1
end
return 0
`)

func (r *UserRepository) MarkCompleted(ctx context.Context, username string) error {
	if err := markCompletedScript.Run(ctx, r.client, []string{r.key(username)}).Err(); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (r *UserRepository) key(username string) string {
	return "quiz:user:" + username
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

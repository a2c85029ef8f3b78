package postgres

import (
	"context"
	"errors"
	"fmt"

	"oneshot-quiz/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// UserRepository keeps the user directory in the users table; the primary key
// on username enforces uniqueness.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO users (username, password, has_completed_quiz) VALUES ($1, $2, $3)
		 ON CONFLICT (username) DO NOTHING`,
		user.Username, user.Password, user.HasCompletedQuiz)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUsernameTaken
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, username string) (domain.User, error) {
	user := domain.User{Username: username}
	err := r.pool.QueryRow(ctx,
		`SELECT password, has_completed_quiz FROM users WHERE username=$1`, username).
		Scan(&user.Password, &user.HasCompletedQuiz)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) MarkCompleted(ctx context.Context, username string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET has_completed_quiz = TRUE, completed_at = COALESCE(completed_at, now())
		 WHERE username=$1`, username)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

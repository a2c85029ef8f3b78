package app

import (
	"context"
	"errors"
	"strings"

	"oneshot-quiz/internal/domain"
)

// UserRepository stores the user directory. Create must reject duplicate
// usernames with domain.ErrUsernameTaken; MarkCompleted must be idempotent.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	Get(ctx context.Context, username string) (domain.User, error)
	MarkCompleted(ctx context.Context, username string) error
}

// PasswordScheme turns passwords into stored form and checks them.
type PasswordScheme interface {
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}

// Directory holds the registration and login use cases.
type Directory struct {
	users  UserRepository
	scheme PasswordScheme
}

func NewDirectory(users UserRepository, scheme PasswordScheme) *Directory {
	return &Directory{users: users, scheme: scheme}
}

// Register adds a user who has not completed the quiz yet.
func (d *Directory) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.ErrInvalidInput
	}
	stored, err := d.scheme.Hash(password)
	if err != nil {
		return err
	}
	return d.users.Create(ctx, domain.User{
		Username:         username,
		Password:         stored,
		HasCompletedQuiz: false,
	})
}

// Login checks credentials and returns the stored user. Unknown users and
// wrong passwords look the same.
func (d *Directory) Login(ctx context.Context, username, password string) (domain.User, error) {
	user, err := d.users.Get(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if !d.scheme.Verify(user.Password, password) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Get returns the directory record of username.
func (d *Directory) Get(ctx context.Context, username string) (domain.User, error) {
	return d.users.Get(ctx, username)
}

// MarkCompleted sets the completion flag; repeating it is a no-op.
func (d *Directory) MarkCompleted(ctx context.Context, username string) error {
	return d.users.MarkCompleted(ctx, username)
}

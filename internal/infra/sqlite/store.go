package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"oneshot-quiz/internal/domain"
	"oneshot-quiz/internal/infra/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// UserRepository keeps the user directory in a SQLite file.
type UserRepository struct {
	db *sql.DB
}

// Open connects to dsn and applies pending migrations.
func Open(dsn string) (*UserRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	repo := &UserRepository{db: db}
	if err := repo.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrations: %w", err)
	}
	return repo, nil
}

func (r *UserRepository) Close() error { return r.db.Close() }

func (r *UserRepository) applyMigrations() error {
	driver, err := migratesqlite.WithInstance(r.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}
	instance, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return err
	}
	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password, has_completed_quiz) VALUES (?, ?, ?)
		 ON CONFLICT(username) DO NOTHING`,
		user.Username, user.Password, user.HasCompletedQuiz)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if n == 0 {
		return domain.ErrUsernameTaken
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, username string) (domain.User, error) {
	user := domain.User{Username: username}
	err := r.db.QueryRowContext(ctx,
		`SELECT password, has_completed_quiz FROM users WHERE username = ?`, username).
		Scan(&user.Password, &user.HasCompletedQuiz)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) MarkCompleted(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET has_completed_quiz = 1, completed_at = COALESCE(completed_at, CURRENT_TIMESTAMP)
		 WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"oneshot-quiz/internal/app"
	"oneshot-quiz/internal/auth"
	"oneshot-quiz/internal/config"
	"oneshot-quiz/internal/domain"
	"oneshot-quiz/internal/infra/memory"
	"oneshot-quiz/internal/infra/postgres"
	"oneshot-quiz/internal/infra/rabbit"
	redisstore "oneshot-quiz/internal/infra/redis"
	"oneshot-quiz/internal/infra/sqlite"
	"oneshot-quiz/internal/logging"
	transport "oneshot-quiz/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const (
	driverMemory   = "memory"
	driverRedis    = "redis"
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if *port != "" {
				cfg.Server.Port = *port
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	return logging.New(logging.Config{
		Service: "oneshot-quiz",
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
	})
}

func runServer(ctx context.Context, cfg config.Config) error {
	logger := newLogger(cfg)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close resource", "err", err)
			}
		}
	}()

	if cfg.Postgres.URL != "" {
		if err := migratePostgres(ctx, cfg.Postgres.URL); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, redisClient)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	bank, err := loadBank(cfg)
	if err != nil {
		return err
	}
	quizID := cfg.Quiz.ID
	if quizID == "" {
		quizID = bank.ID
	}
	bank.ID = quizID

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(map[string]domain.Quiz{quizID: bank})
	if pool != nil {
		pgLoader := postgres.NewQuizLoader(pool)
		if err := ensureSeeded(ctx, pgLoader, bank); err != nil {
			return err
		}
		loader = pgLoader
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	users, err := openUsers(cfg, redisClient, pool, &closers)
	if err != nil {
		return err
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	resultTTL := config.TTLDuration(cfg.Quiz.ResultTTL, 10*time.Minute)
	var results app.ResultStore
	if redisClient != nil {
		results = redisstore.NewResultStore(redisClient, resultTTL)
	} else {
		mem := memory.NewResultStore(resultTTL)
		go mem.RunCleanup(ctx, time.Minute)
		results = mem
	}

	var events app.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		exchange := cfg.RabbitMQ.Exchange
		if exchange == "" {
			exchange = "quiz.events"
		}
		publisher, err := rabbit.Dial(cfg.RabbitMQ.URL, exchange)
		if err != nil {
			return err
		}
		closers = append(closers, publisher)
		events = publisher
	}

	scheme, err := auth.SchemeByName(cfg.Auth.PasswordScheme)
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		return errors.New("auth secret not configured (auth.secret or QUIZ_AUTH_SECRET)")
	}
	authTTL := config.TTLDuration(cfg.Auth.TTL, 24*time.Hour)

	quizzes := app.NewQuizService(sessions, quizRepo, users, results, app.QuizOptions{
		QuizID:   quizID,
		Duration: config.TTLDuration(cfg.Quiz.Duration, app.DefaultDuration),
		Events:   events,
		Logger:   logger,
	})
	defer quizzes.Close()

	web, err := transport.NewServer(app.NewDirectory(users, scheme), quizzes, auth.NewTokens(cfg.Auth.Secret, authTTL), transport.Options{
		SecureCookie: cfg.Auth.SecureCookie,
		CookieTTL:    authTTL,
		AuthLimit:    transport.AuthLimit,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	finalPort := cfg.Server.Port
	if finalPort == "" {
		finalPort = "8080"
	}
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           web.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting quiz service", "addr", server.Addr, "store", cfg.Store.Driver, "quiz", quizID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openUsers picks the user directory backend named by store.driver.
func openUsers(cfg config.Config, client *redis.Client, pool *pgxpool.Pool, closers *[]io.Closer) (app.UserRepository, error) {
	switch cfg.Store.Driver {
	case "", driverMemory:
		return memory.NewUserRepository(), nil
	case driverRedis:
		if client == nil {
			return nil, errors.New("store.driver=redis needs redis.addr")
		}
		return redisstore.NewUserRepository(client), nil
	case driverPostgres:
		if pool == nil {
			return nil, errors.New("store.driver=postgres needs postgres.url")
		}
		return postgres.NewUserRepository(pool), nil
	case driverSQLite:
		repo, err := sqlite.Open(cfg.SQLite.DSN)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, repo)
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

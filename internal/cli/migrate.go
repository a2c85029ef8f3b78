package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"oneshot-quiz/internal/config"
	pgmigrations "oneshot-quiz/internal/infra/postgres/migrations"
	"oneshot-quiz/internal/infra/sqlite"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// NewMigrateCmd applies database migrations for the configured stores.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			newLogger(cfg)
			return runMigrations(cmd.Context(), cfg)
		},
	}
}

func runMigrations(ctx context.Context, cfg config.Config) error {
	ran := false
	if cfg.Postgres.URL != "" {
		if err := migratePostgres(ctx, cfg.Postgres.URL); err != nil {
			return err
		}
		ran = true
	}
	if cfg.Store.Driver == driverSQLite {
		// Open applies the embedded migrations.
		repo, err := sqlite.Open(cfg.SQLite.DSN)
		if err != nil {
			return err
		}
		if err := repo.Close(); err != nil {
			return err
		}
		slog.Info("sqlite migrations applied", "dsn", cfg.SQLite.DSN)
		ran = true
	}
	if !ran {
		return errors.New("no database configured: set postgres.url or store.driver=sqlite")
	}
	return nil
}

func migratePostgres(ctx context.Context, url string) error {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(url)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if group.IsZero() {
		slog.Info("postgres schema up to date")
		return nil
	}
	slog.Info("postgres migrations applied", "group", group.String())
	return nil
}

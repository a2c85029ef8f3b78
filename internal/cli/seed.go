package cli

import (
	"context"
	"errors"
	"log/slog"

	"oneshot-quiz/internal/config"
	"oneshot-quiz/internal/domain"
	"oneshot-quiz/internal/infra/postgres"
	"oneshot-quiz/internal/quizbank"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewSeedCmd stores a YAML question bank in Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a question bank into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			newLogger(cfg)
			if file != "" {
				cfg.Quiz.QuestionsFile = file
			}
			return runSeed(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML bank to load (defaults to quiz.questions_file or the bundled bank)")
	return cmd
}

func runSeed(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return errors.New("postgres url not configured")
	}
	if err := migratePostgres(ctx, cfg.Postgres.URL); err != nil {
		return err
	}
	quiz, err := loadBank(cfg)
	if err != nil {
		return err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.NewQuizLoader(pool).SaveQuiz(ctx, quiz); err != nil {
		return err
	}
	slog.Info("question bank seeded", "quiz", quiz.ID, "questions", len(quiz.Questions))
	return nil
}

// loadBank reads the configured bank file or falls back to the bundled one.
func loadBank(cfg config.Config) (domain.Quiz, error) {
	if cfg.Quiz.QuestionsFile != "" {
		return quizbank.Load(cfg.Quiz.QuestionsFile)
	}
	return quizbank.Default()
}

// ensureSeeded stores the bank when Postgres does not have it yet.
func ensureSeeded(ctx context.Context, loader *postgres.QuizLoader, quiz domain.Quiz) error {
	_, err := loader.LoadQuiz(ctx, quiz.ID)
	if !errors.Is(err, domain.ErrQuizNotFound) {
		return err
	}
	slog.Info("seeding question bank", "quiz", quiz.ID)
	return loader.SaveQuiz(ctx, quiz)
}

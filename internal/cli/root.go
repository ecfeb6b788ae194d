// Package cli implements quizctl, the operations CLI for QuizHub.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/database"
	"github.com/stemsi/quizhub-backend/internal/logger"
	"github.com/stemsi/quizhub-backend/internal/queue"
	"github.com/stemsi/quizhub-backend/internal/repository"
	"github.com/stemsi/quizhub-backend/internal/service"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "quizctl",
		Short:        "Operations tooling for the QuizHub backend",
		SilenceUsage: true,
	}

	cmd.AddCommand(newCreateAdminCmd())
	cmd.AddCommand(newImportQuizCmd())
	cmd.AddCommand(newSweepExpiredCmd())
	cmd.AddCommand(newSyncRanksCmd())
	cmd.AddCommand(newRemindDeadlinesCmd())
	cmd.AddCommand(newCleanupNotificationsCmd())
	return cmd
}

// app holds the connections and services one command invocation needs.
type app struct {
	cfg  *config.Config
	pool *pgxpool.Pool
	rdb  *redis.Client
	jobs queue.Queue

	users         *repository.UserRepository
	auth          *service.AuthService
	quizzes       *service.QuizService
	attempts      *service.AttemptService
	leaderboard   *service.LeaderboardService
	notifications *service.NotificationService
}

// connect wires the same stack cmd/server uses. Callers must Close.
func connect(ctx context.Context) (*app, error) {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	jobs, err := queue.Open(cfg, rdb, log)
	if err != nil {
		_ = rdb.Close()
		pool.Close()
		return nil, fmt.Errorf("open queue: %w", err)
	}

	users := repository.NewUserRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)
	assignments := repository.NewAssignmentRepository(pool)
	results := repository.NewResultRepository(pool)

	policy := service.NewAccessPolicy(quizRepo, assignments, time.Now)
	dispatcher := service.NewQueueDispatcher(jobs)
	leaderboard := service.NewLeaderboardService(results, quizRepo, policy, rdb, log)
	attempts := service.NewAttemptService(repository.NewAttemptRepository(pool), quizRepo, policy, dispatcher, log).
		WithLeaderboard(leaderboard)

	return &app{
		cfg:   cfg,
		pool:  pool,
		rdb:   rdb,
		jobs:  jobs,
		users: users,

		auth:          service.NewAuthService(cfg, users, log),
		quizzes:       service.NewQuizService(quizRepo, assignments, users, policy, dispatcher, log),
		attempts:      attempts,
		leaderboard:   leaderboard,
		notifications: service.NewNotificationService(repository.NewNotificationRepository(pool), users, rdb, log),
	}, nil
}

func (a *app) Close() {
	_ = a.jobs.Close()
	_ = a.rdb.Close()
	a.pool.Close()
}

// withApp adapts a command body that needs a connected app.
func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, args, a)
	}
}

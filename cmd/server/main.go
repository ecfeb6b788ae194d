package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/database"
	"github.com/stemsi/quizhub-backend/internal/handler"
	"github.com/stemsi/quizhub-backend/internal/logger"
	"github.com/stemsi/quizhub-backend/internal/middleware"
	"github.com/stemsi/quizhub-backend/internal/queue"
	"github.com/stemsi/quizhub-backend/internal/repository"
	"github.com/stemsi/quizhub-backend/internal/router"
	"github.com/stemsi/quizhub-backend/internal/service"
	"github.com/stemsi/quizhub-backend/internal/validator"
	"github.com/stemsi/quizhub-backend/internal/worker"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("queue_backend", cfg.QueueBackend).
		Msg("Starting QuizHub Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Open Job Queue ────────────────────────────────────────────────
	jobs, err := queue.Open(cfg, rdb, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open job queue")
	}
	defer jobs.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	policy := service.NewAccessPolicy(quizRepo, assignmentRepo, time.Now)
	dispatcher := service.NewQueueDispatcher(jobs)

	authService := service.NewAuthService(cfg, userRepo, log)
	quizService := service.NewQuizService(quizRepo, assignmentRepo, userRepo, policy, dispatcher, log)
	leaderboardService := service.NewLeaderboardService(resultRepo, quizRepo, policy, rdb, log)
	attemptService := service.NewAttemptService(attemptRepo, quizRepo, policy, dispatcher, log).
		WithLeaderboard(leaderboardService)
	resultService := service.NewResultService(resultRepo, quizRepo)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, rdb, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Quiz:         handler.NewQuizHandler(quizService),
		Attempt:      handler.NewAttemptHandler(attemptService),
		Result:       handler.NewResultHandler(resultService, leaderboardService),
		Notification: handler.NewNotificationHandler(notificationService),
		WS:           handler.NewWSHandler(rdb, notificationService, log, cfg.AllowedOrigins),
		Health: handler.NewHealthHandler(map[string]handler.Check{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}, log),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimitPerMinute, time.Minute)
	r := router.SetupRouter(authService, handlers, authLimiter, cfg, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Run Server and Background Workers ────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		worker.NewExpiryWorker(attemptService, cfg.ExpirySweepInterval, log).Start(gctx)
		return nil
	})
	g.Go(func() error {
		worker.NewRankWorker(leaderboardService, cfg.RankSyncInterval, log).Start(gctx)
		return nil
	})
	g.Go(func() error {
		worker.NewNotificationJanitor(notificationService, cfg.NotificationRetention, cfg.NotificationCleanupEvery, log).Start(gctx)
		return nil
	})
	g.Go(func() error {
		worker.NewDeadlineWorker(quizService, cfg.DeadlineReminderWindow, cfg.DeadlineReminderEvery, log).Start(gctx)
		return nil
	})
	g.Go(func() error {
		return worker.NewNotificationWorker(jobs, notificationService, log).Start(gctx)
	})
	g.Go(func() error {
		authLimiter.RunJanitor(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Exited with error")
	}
	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/handler"
	"github.com/stemsi/quizhub-backend/internal/middleware"
	"github.com/stemsi/quizhub-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Quiz         *handler.QuizHandler
	Attempt      *handler.AttemptHandler
	Result       *handler.ResultHandler
	Notification *handler.NotificationHandler
	WS           *handler.WSHandler
	Health       *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// authLimiter guards the unauthenticated credential endpoints.
func SetupRouter(
	tokens middleware.TokenValidator,
	handlers *Handlers,
	authLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log and every envelope carry it.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.AccessLog(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.Health.Health)
	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/register", authLimiter.Middleware(), handlers.Auth.Register)
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.POST("/refresh", authLimiter.Middleware(), handlers.Auth.Refresh)

		auth.POST("/logout", middleware.RequireAuth(tokens), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireAuth(tokens), handlers.Auth.Me)
	}

	// ─── 2. Authenticated API (any role) ───────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.NoStore(), middleware.RequireAuth(tokens))
	{
		api.GET("/quizzes", handlers.Quiz.ListQuizzes)
		api.GET("/quizzes/:quiz_id", handlers.Quiz.GetQuiz)
		api.GET("/quizzes/:quiz_id/leaderboard", handlers.Result.QuizLeaderboard)
		api.GET("/leaderboard", handlers.Result.GlobalLeaderboard)

		api.POST("/attempts", handlers.Attempt.StartAttempt)
		api.GET("/attempts", handlers.Attempt.ListMyAttempts)
		api.GET("/attempts/:attempt_id", handlers.Attempt.GetAttempt)
		api.POST("/attempts/:attempt_id/answers", handlers.Attempt.SubmitAnswer)
		api.POST("/attempts/:attempt_id/submit", handlers.Attempt.SubmitAttempt)

		api.GET("/results/me", handlers.Result.MyResults)
		api.GET("/results/attempts/:attempt_id", handlers.Result.ResultForAttempt)

		api.GET("/notifications", handlers.Notification.ListNotifications)
		api.GET("/notifications/unread-count", handlers.Notification.UnreadCount)
		api.POST("/notifications/read-all", handlers.Notification.MarkAllRead)
		api.PATCH("/notifications/:notification_id/read", handlers.Notification.MarkRead)
		api.DELETE("/notifications/:notification_id", handlers.Notification.DeleteNotification)
	}

	// ─── 3. WebSocket Group (token in query) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(tokens))
	{
		ws.GET("/notifications", handlers.WS.NotificationStream)
	}

	// ─── 4. Admin Group (JWT + role) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.NoStore(), middleware.RequireAuth(tokens), middleware.RequireAdmin())
	{
		adminAPI.POST("/quizzes", handlers.Quiz.CreateQuiz)
		adminAPI.PATCH("/quizzes/:quiz_id", handlers.Quiz.UpdateQuiz)
		adminAPI.PUT("/quizzes/:quiz_id/questions", handlers.Quiz.ReplaceQuestions)
		adminAPI.POST("/quizzes/:quiz_id/publish", handlers.Quiz.PublishQuiz)
		adminAPI.DELETE("/quizzes/:quiz_id", handlers.Quiz.DeleteQuiz)

		adminAPI.GET("/quizzes/:quiz_id/assignments", handlers.Quiz.ListAssignments)
		adminAPI.POST("/quizzes/:quiz_id/assignments", handlers.Quiz.AssignQuiz)
		adminAPI.DELETE("/quizzes/:quiz_id/assignments/:user_id", handlers.Quiz.RevokeAssignment)

		adminAPI.GET("/quizzes/:quiz_id/results", handlers.Result.QuizResults)
	}

	return router
}

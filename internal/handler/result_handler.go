package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/response"
)

// ResultReader is the read side of results.
type ResultReader interface {
	ListMine(ctx context.Context, userID uuid.UUID) ([]model.Result, error)
	ForAttempt(ctx context.Context, userID uuid.UUID, isAdmin bool, attemptID uuid.UUID) (*model.Result, error)
	ForQuiz(ctx context.Context, quizID uuid.UUID) ([]model.Result, error)
}

// LeaderboardReader serves ranked result lists.
type LeaderboardReader interface {
	ForQuiz(ctx context.Context, userID uuid.UUID, isAdmin bool, quizID uuid.UUID, limit int) ([]model.LeaderboardEntry, error)
	Global(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

// ResultHandler handles results and leaderboards.
type ResultHandler struct {
	results     ResultReader
	leaderboard LeaderboardReader
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(results ResultReader, leaderboard LeaderboardReader) *ResultHandler {
	return &ResultHandler{results: results, leaderboard: leaderboard}
}

// MyResults godoc
// GET /api/v1/results/me
func (h *ResultHandler) MyResults(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}

	results, err := h.results.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// ResultForAttempt godoc
// GET /api/v1/results/attempts/:attempt_id
// Visible to the attempt owner and to admins.
func (h *ResultHandler) ResultForAttempt(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	attemptID, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	result, err := h.results.ForAttempt(c.Request.Context(), claims.UserID, claims.IsAdmin(), attemptID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// QuizResults godoc
// GET /api/v1/admin/quizzes/:quiz_id/results
func (h *ResultHandler) QuizResults(c *gin.Context) {
	quizID, ok := paramUUID(c, "quiz_id")
	if !ok {
		return
	}

	results, err := h.results.ForQuiz(c.Request.Context(), quizID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// QuizLeaderboard godoc
// GET /api/v1/quizzes/:quiz_id/leaderboard?limit=10
func (h *ResultHandler) QuizLeaderboard(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	quizID, ok := paramUUID(c, "quiz_id")
	if !ok {
		return
	}

	entries, err := h.leaderboard.ForQuiz(c.Request.Context(), claims.UserID, claims.IsAdmin(), quizID, queryInt(c, "limit", 0))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"leaderboard": entries})
}

// GlobalLeaderboard godoc
// GET /api/v1/leaderboard?limit=10
func (h *ResultHandler) GlobalLeaderboard(c *gin.Context) {
	entries, err := h.leaderboard.Global(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"leaderboard": entries})
}

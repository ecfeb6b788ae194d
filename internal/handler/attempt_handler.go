package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/response"
	"github.com/stemsi/quizhub-backend/internal/validator"
)

// AttemptRunner is the attempt lifecycle surface used by AttemptHandler.
type AttemptRunner interface {
	Start(ctx context.Context, userID, quizID uuid.UUID) (*model.Attempt, error)
	SubmitAnswer(ctx context.Context, userID, attemptID uuid.UUID, req model.SubmitAnswerRequest) (*model.Answer, error)
	Submit(ctx context.Context, userID, attemptID uuid.UUID) (*model.Result, error)
	Get(ctx context.Context, userID, attemptID uuid.UUID) (*model.AttemptDetail, error)
	ListMine(ctx context.Context, userID uuid.UUID, quizID *uuid.UUID) ([]model.Attempt, error)
}

// AttemptHandler handles timed quiz attempts.
type AttemptHandler struct {
	attempts AttemptRunner
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts AttemptRunner) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

// StartAttempt godoc
// POST /api/v1/attempts
// Opens a timed attempt on a quiz the caller may access.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attempts.Start(c.Request.Context(), claims.UserID, req.QuizID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": attempt})
}

// ListMyAttempts godoc
// GET /api/v1/attempts?quiz_id=<uuid>
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}

	var quizID *uuid.UUID
	if raw := c.Query("quiz_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		quizID = &id
	}

	attempts, err := h.attempts.ListMine(c.Request.Context(), claims.UserID, quizID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// GetAttempt godoc
// GET /api/v1/attempts/:attempt_id
// Returns the attempt with remaining time, saved answers and questions.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	detail, err := h.attempts.Get(c.Request.Context(), claims.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": detail})
}

// SubmitAnswer godoc
// POST /api/v1/attempts/:attempt_id/answers
// Saves or overwrites the answer to one question.
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	answer, err := h.attempts.SubmitAnswer(c.Request.Context(), claims.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answer": answer})
}

// SubmitAttempt godoc
// POST /api/v1/attempts/:attempt_id/submit
// Finalizes the attempt and returns its result.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	result, err := h.attempts.Submit(c.Request.Context(), claims.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

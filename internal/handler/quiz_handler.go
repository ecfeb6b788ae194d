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

// QuizCatalog is the quiz and assignment surface used by QuizHandler.
type QuizCatalog interface {
	Create(ctx context.Context, createdBy uuid.UUID, req model.CreateQuizRequest) (*model.Quiz, error)
	GetForAdmin(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*model.QuizView, error)
	List(ctx context.Context, publishedOnly bool, page, perPage int) ([]model.Quiz, *response.Pagination, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.QuizView, *response.Pagination, error)
	Update(ctx context.Context, id uuid.UUID, req model.UpdateQuizRequest) (*model.Quiz, error)
	ReplaceQuestions(ctx context.Context, id uuid.UUID, req model.ReplaceQuestionsRequest) (*model.Quiz, error)
	Publish(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Assign(ctx context.Context, quizID, assignedBy uuid.UUID, req model.AssignQuizRequest) ([]model.Assignment, error)
	Revoke(ctx context.Context, quizID, userID uuid.UUID) error
	ListAssignments(ctx context.Context, quizID uuid.UUID) ([]model.AssignmentWithUser, error)
}

// QuizHandler handles quiz catalog endpoints for both roles.
type QuizHandler struct {
	quizzes QuizCatalog
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizzes QuizCatalog) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

// ListQuizzes godoc
// GET /api/v1/quizzes?page=1&per_page=10
// Admins see every quiz (optionally ?published_only=true); users see what they may take.
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 0)

	if claims.IsAdmin() {
		quizzes, p, err := h.quizzes.List(c.Request.Context(), queryBool(c, "published_only"), page, perPage)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.SuccessWithPagination(c, http.StatusOK, gin.H{"quizzes": quizzes}, p)
		return
	}

	quizzes, p, err := h.quizzes.ListForUser(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"quizzes": quizzes}, p)
}

// GetQuiz godoc
// GET /api/v1/quizzes/:quiz_id
// Admins get the answer key; users get the question list without it.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "quiz_id")
	if !ok {
		return
	}

	if claims.IsAdmin() {
		quiz, err := h.quizzes.GetForAdmin(c.Request.Context(), id)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
		return
	}

	view, err := h.quizzes.GetForUser(c.Request.Context(), claims.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": view})
}

// CreateQuiz godoc
// POST /api/v1/admin/quizzes
// Creates an unpublished quiz with its questions.
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}

	var req model.CreateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.quizzes.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"quiz": quiz})
}

// UpdateQuiz godoc
// PATCH /api/v1/admin/quizzes/:quiz_id
// Updates metadata of an unpublished quiz.
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	id, ok := paramUUID(c, "quiz_id")
	if !ok {
		return
	}

	var req model.UpdateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.quizzes.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/quizzes/:quiz_id/questions
// Swaps the whole question list of an unpublished quiz.
func (h *QuizHandler) ReplaceQuestions(c *gin.Context) {
	id, ok := paramUUID(c, "quiz_id")
	if !ok {
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.quizzes.ReplaceQuestions(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// PublishQuiz godoc
// POST /api/v1/admin/quizzes/:quiz_id/publish
func (h *QuizHandler) PublishQuiz(c *gin.Context) {
	id, ok := paramUUID(c, "quiz_id")
	if !ok {
		return
	}

	quiz, err := h.quizzes.Publish(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// DeleteQuiz godoc
// DELETE /api/v1/admin/quizzes/:quiz_id
// Removes the quiz together with its attempts, results and assignments.
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	id, ok := paramUUID(c, "quiz_id")
	if !ok {
		return
	}

	if err := h.quizzes.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// AssignQuiz godoc
// POST /api/v1/admin/quizzes/:quiz_id/assignments
func (h *QuizHandler) AssignQuiz(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	quizID, ok := paramUUID(c, "quiz_id")
	if !ok {
		return
	}

	var req model.AssignQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	assignments, err := h.quizzes.Assign(c.Request.Context(), quizID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"assignments": assignments})
}

// RevokeAssignment godoc
// DELETE /api/v1/admin/quizzes/:quiz_id/assignments/:user_id
func (h *QuizHandler) RevokeAssignment(c *gin.Context) {
	quizID, ok := paramUUID(c, "quiz_id")
	if !ok {
		return
	}
	userID, ok := paramUUID(c, "user_id")
	if !ok {
		return
	}

	if err := h.quizzes.Revoke(c.Request.Context(), quizID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ListAssignments godoc
// GET /api/v1/admin/quizzes/:quiz_id/assignments
func (h *QuizHandler) ListAssignments(c *gin.Context) {
	quizID, ok := paramUUID(c, "quiz_id")
	if !ok {
		return
	}

	assignments, err := h.quizzes.ListAssignments(c.Request.Context(), quizID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assignments": assignments})
}

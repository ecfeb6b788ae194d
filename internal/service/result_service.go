package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/apperror"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
)

// ResultService reads submitted results.
type ResultService struct {
	results ResultStore
	quizzes QuizStore
}

// NewResultService creates a new ResultService.
func NewResultService(results ResultStore, quizzes QuizStore) *ResultService {
	return &ResultService{results: results, quizzes: quizzes}
}

// ListMine returns the caller's results, newest first.
func (s *ResultService) ListMine(ctx context.Context, userID uuid.UUID) ([]model.Result, error) {
	list, err := s.results.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	if list == nil {
		list = []model.Result{}
	}
	return list, nil
}

// ForAttempt returns the result of an attempt to its owner or to an admin.
func (s *ResultService) ForAttempt(ctx context.Context, userID uuid.UUID, isAdmin bool, attemptID uuid.UUID) (*model.Result, error) {
	res, err := s.results.GetByAttempt(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	if !isAdmin && res.UserID != userID {
		return nil, apperror.ErrNotOwner
	}
	return res, nil
}

// ForQuiz returns every result of a quiz, best first.
func (s *ResultService) ForQuiz(ctx context.Context, quizID uuid.UUID) ([]model.Result, error) {
	if _, err := s.quizzes.GetByID(ctx, quizID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrQuizNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	list, err := s.results.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	if list == nil {
		list = []model.Result{}
	}
	return list, nil
}

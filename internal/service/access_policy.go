package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/apperror"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
)

// AssignmentReader is the slice of AssignmentStore the policy needs.
type AssignmentReader interface {
	Get(ctx context.Context, quizID, userID uuid.UUID) (*model.Assignment, error)
}

// AccessPolicy decides whether a user may take a quiz. It has no side effects.
type AccessPolicy struct {
	quizzes     QuizStore
	assignments AssignmentReader
	now         Clock
}

// NewAccessPolicy creates a new AccessPolicy.
func NewAccessPolicy(quizzes QuizStore, assignments AssignmentReader, now Clock) *AccessPolicy {
	if now == nil {
		now = time.Now
	}
	return &AccessPolicy{quizzes: quizzes, assignments: assignments, now: now}
}

// CanAccess reports whether userID may access quiz. Public quizzes are open to
// everyone; otherwise an active assignment whose due date has not passed is
// required.
func (p *AccessPolicy) CanAccess(ctx context.Context, userID uuid.UUID, quiz *model.Quiz) (bool, error) {
	if quiz.IsPublic {
		return true, nil
	}

	a, err := p.assignments.Get(ctx, quiz.ID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get assignment: %w", err)
	}
	return a.Grants(p.now()), nil
}

// CanAccessQuiz loads the quiz first, so a missing quiz surfaces as
// QUIZ_NOT_FOUND rather than as a denial.
func (p *AccessPolicy) CanAccessQuiz(ctx context.Context, userID, quizID uuid.UUID) (bool, error) {
	quiz, err := p.quizzes.GetByID(ctx, quizID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, apperror.ErrQuizNotFound
	}
	if err != nil {
		return false, fmt.Errorf("get quiz: %w", err)
	}
	return p.CanAccess(ctx, userID, quiz)
}

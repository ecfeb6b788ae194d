package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
)

// Storage contracts the services depend on. The repository package provides
// the Postgres implementations; tests use in-memory fakes.

// QuizStore persists quizzes and their questions.
type QuizStore interface {
	Create(ctx context.Context, q *model.Quiz) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	List(ctx context.Context, publishedOnly bool, limit, offset int) ([]model.Quiz, int, error)
	ListForUser(ctx context.Context, userID uuid.UUID, now time.Time, limit, offset int) ([]model.Quiz, int, error)
	Update(ctx context.Context, q *model.Quiz) error
	ReplaceQuestions(ctx context.Context, quizID uuid.UUID, questions []model.Question) error
	Publish(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AssignmentStore persists quiz assignments.
type AssignmentStore interface {
	UpsertMany(ctx context.Context, as []model.Assignment) error
	Get(ctx context.Context, quizID, userID uuid.UUID) (*model.Assignment, error)
	Revoke(ctx context.Context, quizID, userID uuid.UUID) error
	ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.AssignmentWithUser, error)
	ClaimDueSoon(ctx context.Context, now, until time.Time, limit int) ([]model.DueAssignment, error)
}

// AttemptStore persists attempts and answers.
type AttemptStore interface {
	CreateExclusive(ctx context.Context, a *model.Attempt, maxAttempts *int) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	ListByUser(ctx context.Context, userID uuid.UUID, quizID *uuid.UUID) ([]model.Attempt, error)
	UpsertAnswer(ctx context.Context, ans *model.Answer) error
	ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error)
	Finalize(ctx context.Context, attemptID uuid.UUID, grade repository.GradeFunc) (*model.Result, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// ResultStore reads results and maintains the cached rank column.
type ResultStore interface {
	GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Result, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Result, error)
	ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.Result, error)
	Leaderboard(ctx context.Context, quizID *uuid.UUID, limit int) ([]model.LeaderboardEntry, error)
	SyncRanks(ctx context.Context) (int64, error)
}

// UserStore persists users and refresh tokens.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	CreateRefreshToken(ctx context.Context, t *model.RefreshToken) error
	ConsumeRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*model.RefreshToken, error)
	RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) (int64, error)
}

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID, now time.Time) error
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Dispatcher hands notification jobs to the asynchronous sink.
type Dispatcher interface {
	Dispatch(ctx context.Context, job model.NotificationJob) error
}

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

var (
	_ QuizStore         = (*repository.QuizRepository)(nil)
	_ AssignmentStore   = (*repository.AssignmentRepository)(nil)
	_ AttemptStore      = (*repository.AttemptRepository)(nil)
	_ ResultStore       = (*repository.ResultRepository)(nil)
	_ UserStore         = (*repository.UserRepository)(nil)
	_ NotificationStore = (*repository.NotificationRepository)(nil)
)

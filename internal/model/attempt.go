package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states. Only in_progress and submitted are
// persisted; expired is derived for display.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
	AttemptStatusExpired    AttemptStatus = "expired"
)

// Attempt is one user's timed pass through a quiz.
type Attempt struct {
	ID               uuid.UUID     `json:"id"`
	QuizID           uuid.UUID     `json:"quiz_id"`
	UserID           uuid.UUID     `json:"user_id"`
	StartedAt        time.Time     `json:"started_at"`
	ExpiresAt        time.Time     `json:"expires_at"`
	SubmittedAt      *time.Time    `json:"submitted_at"`
	IsSubmitted      bool          `json:"is_submitted"`
	Status           AttemptStatus `json:"status"`
	TimeTakenSeconds *int          `json:"time_taken_seconds"`
}

// IsExpired reports whether an unsubmitted attempt has passed its deadline at now.
func (a *Attempt) IsExpired(now time.Time) bool {
	return !a.IsSubmitted && now.After(a.ExpiresAt)
}

// DisplayStatus reports expired for an in-progress attempt past its deadline.
func (a *Attempt) DisplayStatus(now time.Time) AttemptStatus {
	if a.Status == AttemptStatusInProgress && a.IsExpired(now) {
		return AttemptStatusExpired
	}
	return a.Status
}

// RemainingSeconds is zero once submitted or expired.
func (a *Attempt) RemainingSeconds(now time.Time) int {
	if a.IsSubmitted || !now.Before(a.ExpiresAt) {
		return 0
	}
	return int(a.ExpiresAt.Sub(now).Seconds())
}

// Answer is the latest selection for one question of an attempt. IsCorrect is
// only set when the attempt is scored.
type Answer struct {
	ID             uuid.UUID `json:"id"`
	AttemptID      uuid.UUID `json:"attempt_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedAnswer string    `json:"selected_answer"`
	IsCorrect      *bool     `json:"is_correct,omitempty"`
	AnsweredAt     time.Time `json:"answered_at"`
}

// AttemptDetail is the owner's view of an attempt in progress or finished.
type AttemptDetail struct {
	Attempt
	TimeRemainingSeconds int            `json:"time_remaining_seconds"`
	Answers              []Answer       `json:"answers"`
	Questions            []QuestionView `json:"questions,omitempty"`
}

// StartAttemptRequest is the payload for starting an attempt.
type StartAttemptRequest struct {
	QuizID uuid.UUID `json:"quiz_id" binding:"required"`
}

// SubmitAnswerRequest records one answer.
type SubmitAnswerRequest struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedAnswer string    `json:"selected_answer" binding:"required,max=1000"`
}

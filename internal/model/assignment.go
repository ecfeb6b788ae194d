package model

import (
	"time"

	"github.com/google/uuid"
)

// Assignment grants a user access to a non-public quiz. At most one row exists
// per (quiz, user); re-assigning updates it and re-activates it.
type Assignment struct {
	ID         uuid.UUID  `json:"id"`
	QuizID     uuid.UUID  `json:"quiz_id"`
	UserID     uuid.UUID  `json:"user_id"`
	AssignedBy uuid.UUID  `json:"assigned_by"`
	AssignedAt time.Time  `json:"assigned_at"`
	DueDate    *time.Time `json:"due_date"`
	IsActive   bool       `json:"is_active"`
}

// Grants reports whether the assignment currently opens the quiz at now.
func (a *Assignment) Grants(now time.Time) bool {
	if a == nil || !a.IsActive {
		return false
	}
	return a.DueDate == nil || !now.After(*a.DueDate)
}

// AssignmentWithUser is an assignment joined with the assignee's identity.
type AssignmentWithUser struct {
	Assignment
	Email    string `json:"email"`
	Username string `json:"username"`
}

// DueAssignment is an assignment claimed for a deadline reminder.
type DueAssignment struct {
	UserID    uuid.UUID
	QuizID    uuid.UUID
	QuizTitle string
	DueDate   time.Time
}

// AssignQuizRequest is the payload for assigning a quiz to one or more users.
// All assignments share the same due date.
type AssignQuizRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1,dive,required"`
	DueDate *time.Time  `json:"due_date"`
}

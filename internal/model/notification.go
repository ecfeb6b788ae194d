package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType enumerates notification kinds.
type NotificationType string

const (
	NotificationQuizPublished       NotificationType = "quiz_published"
	NotificationQuizAssigned        NotificationType = "quiz_assigned"
	NotificationResultAvailable     NotificationType = "result_available"
	NotificationDeadlineApproaching NotificationType = "quiz_deadline_approaching"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	QuizID    *uuid.UUID       `json:"quiz_id,omitempty"`
	AttemptID *uuid.UUID       `json:"attempt_id,omitempty"`
	ResultID  *uuid.UUID       `json:"result_id,omitempty"`
	IsRead    bool             `json:"is_read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationJob is the payload handed to the job queue. Score fields are set
// only for result_available.
type NotificationJob struct {
	Type       NotificationType `json:"type"`
	UserID     uuid.UUID        `json:"user_id"`
	QuizID     uuid.UUID        `json:"quiz_id"`
	QuizTitle  string           `json:"quiz_title,omitempty"`
	AttemptID  *uuid.UUID       `json:"attempt_id,omitempty"`
	ResultID   *uuid.UUID       `json:"result_id,omitempty"`
	Score      *int             `json:"score,omitempty"`
	Percentage *float64         `json:"percentage,omitempty"`
	Passed     *bool            `json:"passed,omitempty"`
	DueDate    *time.Time       `json:"due_date,omitempty"`
}

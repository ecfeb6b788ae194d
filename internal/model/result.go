package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is written once per attempt at submission. Rank is refreshed
// asynchronously and is not authoritative for live leaderboards.
type Result struct {
	ID          uuid.UUID `json:"id"`
	AttemptID   uuid.UUID `json:"attempt_id"`
	UserID      uuid.UUID `json:"user_id"`
	QuizID      uuid.UUID `json:"quiz_id"`
	Score       int       `json:"score"`
	TotalPoints int       `json:"total_points"`
	Percentage  float64   `json:"percentage"`
	Passed      bool      `json:"passed"`
	Rank        *int      `json:"rank"`
	CreatedAt   time.Time `json:"created_at"`
}

// ScoreSummary is the output of grading an attempt.
type ScoreSummary struct {
	Score       int     `json:"score"`
	TotalPoints int     `json:"total_points"`
	Percentage  float64 `json:"percentage"`
	Passed      bool    `json:"passed"`
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	QuizID      uuid.UUID `json:"quiz_id"`
	Score       int       `json:"score"`
	TotalPoints int       `json:"total_points"`
	Percentage  float64   `json:"percentage"`
	CreatedAt   time.Time `json:"created_at"`
}

// Finalization is everything written atomically when an attempt is submitted.
type Finalization struct {
	Result           Result
	Graded           []Answer
	SubmittedAt      time.Time
	TimeTakenSeconds int
}

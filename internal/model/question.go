package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates supported question formats.
type QuestionType string

const (
	QuestionTypeMCQ       QuestionType = "mcq"
	QuestionTypeTrueFalse QuestionType = "true_false"
)

// Question belongs to exactly one quiz. CorrectAnswer must equal one of Options.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	QuizID        uuid.UUID    `json:"quiz_id"`
	Text          string       `json:"question_text"`
	Type          QuestionType `json:"question_type"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correct_answer"`
	Points        int          `json:"points"`
	Order         int          `json:"order"`
	CreatedAt     time.Time    `json:"created_at"`
}

// QuestionView is a question without its correct answer.
type QuestionView struct {
	ID      uuid.UUID    `json:"id"`
	Text    string       `json:"question_text"`
	Type    QuestionType `json:"question_type"`
	Options []string     `json:"options"`
	Points  int          `json:"points"`
	Order   int          `json:"order"`
}

// View hides the answer key.
func (q Question) View() QuestionView {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	return QuestionView{
		ID:      q.ID,
		Text:    q.Text,
		Type:    q.Type,
		Options: opts,
		Points:  q.Points,
		Order:   q.Order,
	}
}

// CreateQuestionRequest is a single question inside a quiz payload.
// Membership of CorrectAnswer in Options is checked by the catalog service.
type CreateQuestionRequest struct {
	Text          string       `json:"question_text" binding:"required,min=5"`
	Type          QuestionType `json:"question_type" binding:"required,oneof=mcq true_false"`
	Options       []string     `json:"options" binding:"required,min=2,dive,required"`
	CorrectAnswer string       `json:"correct_answer" binding:"required"`
	Points        int          `json:"points" binding:"omitempty,min=1"`
	Order         int          `json:"order" binding:"min=0"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Quiz is a timed set of questions. Once IsPublished is true the quiz and its
// questions are immutable.
type Quiz struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	CreatedBy          uuid.UUID  `json:"created_by"`
	DurationMinutes    int        `json:"duration_minutes"`
	PassingScore       int        `json:"passing_score"`
	IsPublished        bool       `json:"is_published"`
	IsPublic           bool       `json:"is_public"`
	MaxAttempts        *int       `json:"max_attempts"`
	RandomizeQuestions bool       `json:"randomize_questions"`
	RandomizeOptions   bool       `json:"randomize_options"`
	QuestionCount      int        `json:"question_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Questions          []Question `json:"questions,omitempty"`
}

// TotalPoints sums the point value of every question.
func (q *Quiz) TotalPoints() int {
	total := 0
	for _, qq := range q.Questions {
		total += qq.Points
	}
	return total
}

// QuizView is the quiz as shown to a non-admin: no answer key.
type QuizView struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	DurationMinutes int            `json:"duration_minutes"`
	PassingScore    int            `json:"passing_score"`
	IsPublic        bool           `json:"is_public"`
	MaxAttempts     *int           `json:"max_attempts"`
	QuestionCount   int            `json:"question_count"`
	TotalPoints     int            `json:"total_points"`
	Questions       []QuestionView `json:"questions,omitempty"`
}

// ViewOf strips correct answers from q.
func ViewOf(q *Quiz) QuizView {
	v := QuizView{
		ID:              q.ID,
		Title:           q.Title,
		Description:     q.Description,
		DurationMinutes: q.DurationMinutes,
		PassingScore:    q.PassingScore,
		IsPublic:        q.IsPublic,
		MaxAttempts:     q.MaxAttempts,
		QuestionCount:   q.QuestionCount,
		TotalPoints:     q.TotalPoints(),
	}
	if len(q.Questions) > 0 {
		v.QuestionCount = len(q.Questions)
		v.Questions = make([]QuestionView, 0, len(q.Questions))
		for _, qq := range q.Questions {
			v.Questions = append(v.Questions, qq.View())
		}
	}
	return v
}

// CreateQuizRequest is the payload for creating a quiz together with its questions.
type CreateQuizRequest struct {
	Title              string                  `json:"title" binding:"required,min=3,max=255"`
	Description        string                  `json:"description" binding:"required,min=10"`
	DurationMinutes    int                     `json:"duration_minutes" binding:"required,min=1,max=300"`
	PassingScore       int                     `json:"passing_score" binding:"min=0,max=100"`
	IsPublic           bool                    `json:"is_public"`
	MaxAttempts        *int                    `json:"max_attempts" binding:"omitempty,min=1"`
	RandomizeQuestions bool                    `json:"randomize_questions"`
	RandomizeOptions   bool                    `json:"randomize_options"`
	Questions          []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// UpdateQuizRequest patches quiz metadata. Nil fields are left unchanged.
type UpdateQuizRequest struct {
	Title              *string `json:"title" binding:"omitempty,min=3,max=255"`
	Description        *string `json:"description" binding:"omitempty,min=10"`
	DurationMinutes    *int    `json:"duration_minutes" binding:"omitempty,min=1,max=300"`
	PassingScore       *int    `json:"passing_score" binding:"omitempty,min=0,max=100"`
	IsPublic           *bool   `json:"is_public"`
	MaxAttempts        *int    `json:"max_attempts" binding:"omitempty,min=1"`
	RandomizeQuestions *bool   `json:"randomize_questions"`
	RandomizeOptions   *bool   `json:"randomize_options"`
}

// ReplaceQuestionsRequest swaps the full question list of an unpublished quiz.
type ReplaceQuestionsRequest struct {
	Questions []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

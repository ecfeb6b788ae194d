package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stemsi/quizhub-backend/internal/model"
)

// AnswerMatches compares a selection with the answer key ignoring case and
// surrounding whitespace. True/false questions use the same rule.
func AnswerMatches(selected, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(selected), strings.TrimSpace(correct))
}

// Percentage returns score/total*100 rounded to two decimals, or 0 when total is 0.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(score)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	f, _ := pct.Float64()
	return f
}

// Score grades answers against the quiz's questions. total_points covers every
// question, answered or not; answers whose question is gone are skipped and
// left ungraded. The returned slice is a graded copy of answers.
func Score(questions []model.Question, answers []model.Answer, passingScore int) (model.ScoreSummary, []model.Answer) {
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	total := 0
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
		total += questions[i].Points
	}

	graded := make([]model.Answer, 0, len(answers))
	score := 0
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		correct := AnswerMatches(a.SelectedAnswer, q.CorrectAnswer)
		if correct {
			score += q.Points
		}
		a.IsCorrect = &correct
		graded = append(graded, a)
	}

	pct := Percentage(score, total)
	return model.ScoreSummary{
		Score:       score,
		TotalPoints: total,
		Percentage:  pct,
		Passed:      pct >= float64(passingScore),
	}, graded
}

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin/binding"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/validator"
	"gopkg.in/yaml.v3"
)

// quizFile is the on-disk import format.
type quizFile struct {
	Title              string         `yaml:"title"`
	Description        string         `yaml:"description"`
	DurationMinutes    int            `yaml:"duration_minutes"`
	PassingScore       int            `yaml:"passing_score"`
	IsPublic           bool           `yaml:"is_public"`
	MaxAttempts        *int           `yaml:"max_attempts"`
	RandomizeQuestions bool           `yaml:"randomize_questions"`
	RandomizeOptions   bool           `yaml:"randomize_options"`
	Questions          []questionFile `yaml:"questions"`
}

type questionFile struct {
	Text    string   `yaml:"text"`
	Type    string   `yaml:"type"`
	Options []string `yaml:"options"`
	Answer  string   `yaml:"answer"`
	Points  int      `yaml:"points"`
}

// ParseQuizFile decodes a YAML quiz and applies the same binding rules as the
// HTTP create endpoint. Unknown keys are rejected.
func ParseQuizFile(r io.Reader) (model.CreateQuizRequest, error) {
	var f quizFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return model.CreateQuizRequest{}, errors.New("empty quiz file")
		}
		return model.CreateQuizRequest{}, fmt.Errorf("decode yaml: %w", err)
	}

	req := model.CreateQuizRequest{
		Title:              f.Title,
		Description:        f.Description,
		DurationMinutes:    f.DurationMinutes,
		PassingScore:       f.PassingScore,
		IsPublic:           f.IsPublic,
		MaxAttempts:        f.MaxAttempts,
		RandomizeQuestions: f.RandomizeQuestions,
		RandomizeOptions:   f.RandomizeOptions,
		Questions:          make([]model.CreateQuestionRequest, 0, len(f.Questions)),
	}
	for i, q := range f.Questions {
		typ := model.QuestionType(q.Type)
		if typ == "" {
			typ = model.QuestionTypeMCQ
		}
		req.Questions = append(req.Questions, model.CreateQuestionRequest{
			Text:          q.Text,
			Type:          typ,
			Options:       q.Options,
			CorrectAnswer: q.Answer,
			Points:        q.Points,
			Order:         i + 1,
		})
	}

	validator.Setup()
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return model.CreateQuizRequest{}, fmt.Errorf("invalid quiz: %v", validator.TranslateErrors(err))
	}
	return req, nil
}

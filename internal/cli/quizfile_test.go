package cli

import (
	"strings"
	"testing"

	"github.com/stemsi/quizhub-backend/internal/model"
)

const sampleQuiz = `
title: Go fundamentals
description: Ten minutes on slices, maps and goroutines.
duration_minutes: 10
passing_score: 60
is_public: true
max_attempts: 2
randomize_options: true
questions:
  - text: What does len(nil) return for a nil slice?
    options: ["0", "panic", "nil"]
    answer: "0"
    points: 2
  - text: Maps are safe for concurrent writes.
    type: true_false
    options: ["true", "false"]
    answer: "false"
`

func TestParseQuizFile(t *testing.T) {
	req, err := ParseQuizFile(strings.NewReader(sampleQuiz))
	if err != nil {
		t.Fatalf("ParseQuizFile: %v", err)
	}
	if req.Title != "Go fundamentals" || req.DurationMinutes != 10 || req.PassingScore != 60 {
		t.Fatalf("header = %+v", req)
	}
	if req.MaxAttempts == nil || *req.MaxAttempts != 2 || !req.RandomizeOptions {
		t.Fatalf("flags = %+v", req)
	}
	if len(req.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(req.Questions))
	}
	if q := req.Questions[0]; q.Type != model.QuestionTypeMCQ || q.CorrectAnswer != "0" || q.Points != 2 || q.Order != 1 {
		t.Fatalf("first question = %+v", q)
	}
	if q := req.Questions[1]; q.Type != model.QuestionTypeTrueFalse || q.Order != 2 {
		t.Fatalf("second question = %+v", q)
	}
}

func TestParseQuizFileRejects(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"unknown key":   "title: Go fundamentals\ncolor: blue\n",
		"no questions":  "title: Go fundamentals\ndescription: Ten minutes on Go.\nduration_minutes: 10\n",
		"long duration": strings.Replace(sampleQuiz, "duration_minutes: 10", "duration_minutes: 301", 1),
		"bad type":      strings.Replace(sampleQuiz, "type: true_false", "type: essay", 1),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseQuizFile(strings.NewReader(body)); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestReadPasswordFromPipe(t *testing.T) {
	var out strings.Builder
	pw, err := readPassword(strings.NewReader("Secret123\n"), &out)
	if err != nil {
		t.Fatal(err)
	}
	if pw != "Secret123" {
		t.Fatalf("password = %q", pw)
	}
	if !strings.Contains(out.String(), "Password") {
		t.Fatalf("prompt missing: %q", out.String())
	}
}

package service

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/model"
)

// attemptRand is seeded from the attempt ID so every read of the same attempt
// sees the same order.
func attemptRand(attemptID uuid.UUID, salt uint64) *rand.Rand {
	hi := binary.BigEndian.Uint64(attemptID[:8])
	lo := binary.BigEndian.Uint64(attemptID[8:])
	return rand.New(rand.NewPCG(hi^salt, lo))
}

// orderedQuestions returns the answer-free questions for an attempt, shuffled
// when the quiz asks for it.
func orderedQuestions(attemptID uuid.UUID, quiz *model.Quiz) []model.QuestionView {
	views := make([]model.QuestionView, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		views = append(views, q.View())
	}

	if quiz.RandomizeQuestions {
		rng := attemptRand(attemptID, 0)
		rng.Shuffle(len(views), func(i, j int) { views[i], views[j] = views[j], views[i] })
	}
	if quiz.RandomizeOptions {
		for i := range views {
			opts := views[i].Options
			rng := attemptRand(attemptID, binary.BigEndian.Uint64(views[i].ID[:8]))
			rng.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
		}
	}
	return views
}

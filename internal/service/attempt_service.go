package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/apperror"
	"github.com/stemsi/quizhub-backend/internal/metrics"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
)

const (
	sweepBatchSize  = 500
	dispatchTimeout = 3 * time.Second
)

// LeaderboardInvalidator drops cached rankings after a new result lands.
type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context, quizID uuid.UUID)
}

// AttemptService runs the attempt lifecycle: start, answer, submit and the
// expiry sweep. A result is produced at most once per attempt; the storage
// layer's row lock decides which caller wins.
type AttemptService struct {
	attempts    AttemptStore
	quizzes     QuizStore
	policy      *AccessPolicy
	dispatcher  Dispatcher
	leaderboard LeaderboardInvalidator
	now         Clock
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	quizzes QuizStore,
	policy *AccessPolicy,
	dispatcher Dispatcher,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:   attempts,
		quizzes:    quizzes,
		policy:     policy,
		dispatcher: dispatcher,
		now:        time.Now,
		log:        log.With().Str("component", "attempt_service").Logger(),
	}
}

// WithClock overrides the time source.
func (s *AttemptService) WithClock(now Clock) *AttemptService {
	s.now = now
	return s
}

// WithLeaderboard registers a cache to invalidate after each submission.
func (s *AttemptService) WithLeaderboard(inv LeaderboardInvalidator) *AttemptService {
	s.leaderboard = inv
	return s
}

// Start opens a new attempt. Checks run in order: quiz exists, quiz is
// published, access is granted, no attempt in progress, attempt limit.
func (s *AttemptService) Start(ctx context.Context, userID, quizID uuid.UUID) (*model.Attempt, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	if !quiz.IsPublished {
		return nil, apperror.ErrQuizNotPublished
	}

	ok, err := s.policy.CanAccess(ctx, userID, quiz)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrQuizAccessDenied
	}

	now := s.now().UTC()
	a := &model.Attempt{
		QuizID:    quiz.ID,
		UserID:    userID,
		StartedAt: now,
		ExpiresAt: now.Add(time.Duration(quiz.DurationMinutes) * time.Minute),
	}

	switch err := s.attempts.CreateExclusive(ctx, a, quiz.MaxAttempts); {
	case errors.Is(err, repository.ErrActiveAttemptExists):
		return nil, apperror.ErrActiveAttemptExists
	case errors.Is(err, repository.ErrAttemptLimitReached):
		return nil, apperror.ErrMaxAttemptsReached
	case err != nil:
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	metrics.AttemptsStarted.Inc()
	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Str("quiz_id", quiz.ID.String()).
		Str("user_id", userID.String()).
		Time("expires_at", a.ExpiresAt).
		Msg("Attempt started")

	return a, nil
}

// SubmitAnswer records or overwrites the answer to one question. An answer
// arriving after the deadline is dropped, the attempt is finalized with what
// was saved before, and QUIZ_EXPIRED is returned.
func (s *AttemptService) SubmitAnswer(ctx context.Context, userID, attemptID uuid.UUID, req model.SubmitAnswerRequest) (*model.Answer, error) {
	a, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if a.IsSubmitted {
		return nil, apperror.ErrAlreadySubmitted
	}

	now := s.now().UTC()
	if a.IsExpired(now) {
		return nil, s.expireLate(ctx, a)
	}

	quiz, err := s.quizzes.GetByID(ctx, a.QuizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	if !hasQuestion(quiz, req.QuestionID) {
		return nil, apperror.ErrQuestionNotInQuiz.WithFields(map[string]string{"question_id": req.QuestionID.String()})
	}

	ans := &model.Answer{
		AttemptID:      a.ID,
		QuestionID:     req.QuestionID,
		SelectedAnswer: req.SelectedAnswer,
		AnsweredAt:     now,
	}
	switch err := s.attempts.UpsertAnswer(ctx, ans); {
	case errors.Is(err, repository.ErrAlreadySubmitted):
		return nil, apperror.ErrAlreadySubmitted
	case errors.Is(err, repository.ErrAttemptExpired):
		return nil, s.expireLate(ctx, a)
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperror.ErrAttemptNotFound
	case err != nil:
		return nil, fmt.Errorf("save answer: %w", err)
	}
	return ans, nil
}

// expireLate finalizes an attempt touched after its deadline and returns the
// error to hand back to the caller.
func (s *AttemptService) expireLate(ctx context.Context, a *model.Attempt) error {
	_, err := s.finalize(ctx, a, metrics.TriggerLateAnswer)
	if err != nil && !errors.Is(err, apperror.ErrAlreadySubmitted) {
		return fmt.Errorf("finalize expired attempt: %w", err)
	}
	return apperror.ErrQuizExpired
}

// Submit finalizes the caller's attempt and returns its result.
func (s *AttemptService) Submit(ctx context.Context, userID, attemptID uuid.UUID) (*model.Result, error) {
	a, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if a.IsSubmitted {
		return nil, apperror.ErrAlreadySubmitted
	}
	return s.finalize(ctx, a, metrics.TriggerUser)
}

// SweepExpired finalizes in-progress attempts past their deadline. Attempts
// submitted concurrently by their owner are skipped.
func (s *AttemptService) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.attempts.ListExpired(ctx, s.now().UTC(), sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired attempts: %w", err)
	}

	finalized := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		a, err := s.attempts.GetByID(ctx, id)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				s.log.Error().Err(err).Str("attempt_id", id.String()).Msg("Load expired attempt failed")
			}
			continue
		}

		_, err = s.finalize(ctx, a, metrics.TriggerSweep)
		switch {
		case errors.Is(err, apperror.ErrAlreadySubmitted):
			continue
		case err != nil:
			s.log.Error().Err(err).Str("attempt_id", id.String()).Msg("Finalize expired attempt failed")
			continue
		}
		finalized++
	}

	if finalized > 0 {
		s.log.Info().Int("finalized", finalized).Int("candidates", len(ids)).Msg("Expiry sweep finished")
	}
	return finalized, nil
}

// finalize grades and submits the attempt in one transaction, then hands off
// the result notification. The hand-off never affects the committed result.
func (s *AttemptService) finalize(ctx context.Context, a *model.Attempt, trigger string) (*model.Result, error) {
	quiz, err := s.quizzes.GetByID(ctx, a.QuizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	res, err := s.attempts.Finalize(ctx, a.ID, func(locked *model.Attempt, answers []model.Answer) (*model.Finalization, error) {
		now := s.now().UTC()
		summary, graded := Score(quiz.Questions, answers, quiz.PassingScore)

		taken := int(now.Sub(locked.StartedAt).Seconds())
		if taken < 0 {
			taken = 0
		}
		return &model.Finalization{
			Result: model.Result{
				Score:       summary.Score,
				TotalPoints: summary.TotalPoints,
				Percentage:  summary.Percentage,
				Passed:      summary.Passed,
			},
			Graded:           graded,
			SubmittedAt:      now,
			TimeTakenSeconds: taken,
		}, nil
	})
	switch {
	case errors.Is(err, repository.ErrAlreadySubmitted):
		return nil, apperror.ErrAlreadySubmitted
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperror.ErrAttemptNotFound
	case err != nil:
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}

	metrics.AttemptsSubmitted.WithLabelValues(trigger).Inc()
	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Str("trigger", trigger).
		Int("score", res.Score).
		Int("total_points", res.TotalPoints).
		Float64("percentage", res.Percentage).
		Bool("passed", res.Passed).
		Msg("Attempt submitted")

	if s.leaderboard != nil {
		s.leaderboard.Invalidate(ctx, quiz.ID)
	}
	s.notifyResult(ctx, quiz, a, res)
	return res, nil
}

func (s *AttemptService) notifyResult(ctx context.Context, quiz *model.Quiz, a *model.Attempt, res *model.Result) {
	score, pct, passed := res.Score, res.Percentage, res.Passed
	attemptID, resultID := a.ID, res.ID
	dispatchQuietly(ctx, s.dispatcher, s.log, model.NotificationJob{
		Type:       model.NotificationResultAvailable,
		UserID:     a.UserID,
		QuizID:     quiz.ID,
		QuizTitle:  quiz.Title,
		AttemptID:  &attemptID,
		ResultID:   &resultID,
		Score:      &score,
		Percentage: &pct,
		Passed:     &passed,
	})
}

// Get returns the caller's attempt with answers and questions, ordered for
// this attempt. Status reads expired once the deadline has passed.
func (s *AttemptService) Get(ctx context.Context, userID, attemptID uuid.UUID) (*model.AttemptDetail, error) {
	a, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}

	answers, err := s.attempts.ListAnswers(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	quiz, err := s.quizzes.GetByID(ctx, a.QuizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	now := s.now().UTC()
	detail := &model.AttemptDetail{
		Attempt:              *a,
		TimeRemainingSeconds: a.RemainingSeconds(now),
		Answers:              answers,
		Questions:            orderedQuestions(a.ID, quiz),
	}
	detail.Status = a.DisplayStatus(now)
	if detail.Answers == nil {
		detail.Answers = []model.Answer{}
	}
	return detail, nil
}

// ListMine returns the caller's attempts, optionally for a single quiz.
func (s *AttemptService) ListMine(ctx context.Context, userID uuid.UUID, quizID *uuid.UUID) ([]model.Attempt, error) {
	list, err := s.attempts.ListByUser(ctx, userID, quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	now := s.now().UTC()
	for i := range list {
		list[i].Status = list[i].DisplayStatus(now)
	}
	return list, nil
}

func (s *AttemptService) loadOwned(ctx context.Context, userID, attemptID uuid.UUID) (*model.Attempt, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a.UserID != userID {
		return nil, apperror.ErrNotOwner
	}
	return a, nil
}

func hasQuestion(quiz *model.Quiz, questionID uuid.UUID) bool {
	for _, q := range quiz.Questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}

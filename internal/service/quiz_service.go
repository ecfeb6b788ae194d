package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/apperror"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
	"github.com/stemsi/quizhub-backend/internal/response"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
	reminderBatch  = 500
)

// UserReader looks up accounts by ID.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// QuizService owns quiz definitions, publication and assignments. Quizzes and
// their questions are only mutable while unpublished.
type QuizService struct {
	quizzes     QuizStore
	assignments AssignmentStore
	users       UserReader
	policy      *AccessPolicy
	dispatcher  Dispatcher
	now         Clock
	log         zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(
	quizzes QuizStore,
	assignments AssignmentStore,
	users UserReader,
	policy *AccessPolicy,
	dispatcher Dispatcher,
	log zerolog.Logger,
) *QuizService {
	return &QuizService{
		quizzes:     quizzes,
		assignments: assignments,
		users:       users,
		policy:      policy,
		dispatcher:  dispatcher,
		now:         time.Now,
		log:         log.With().Str("component", "quiz_service").Logger(),
	}
}

// Create validates and stores a quiz with its questions.
func (s *QuizService) Create(ctx context.Context, createdBy uuid.UUID, req model.CreateQuizRequest) (*model.Quiz, error) {
	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		Title:              strings.TrimSpace(req.Title),
		Description:        strings.TrimSpace(req.Description),
		CreatedBy:          createdBy,
		DurationMinutes:    req.DurationMinutes,
		PassingScore:       req.PassingScore,
		IsPublic:           req.IsPublic,
		MaxAttempts:        req.MaxAttempts,
		RandomizeQuestions: req.RandomizeQuestions,
		RandomizeOptions:   req.RandomizeOptions,
		Questions:          questions,
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	quiz.QuestionCount = len(quiz.Questions)

	s.log.Info().
		Str("quiz_id", quiz.ID.String()).
		Str("created_by", createdBy.String()).
		Int("questions", len(questions)).
		Msg("Quiz created")
	return quiz, nil
}

// buildQuestions checks each question and converts it to the model. The
// correct answer must be one of the options; points default to 1.
func buildQuestions(reqs []model.CreateQuestionRequest) ([]model.Question, error) {
	if len(reqs) == 0 {
		return nil, apperror.Validation("questions", "at least one question is required")
	}

	out := make([]model.Question, 0, len(reqs))
	for i, r := range reqs {
		field := fmt.Sprintf("questions[%d]", i)

		if len(r.Options) < 2 {
			return nil, apperror.Validation(field+".options", "at least two options are required")
		}
		opts := make([]string, len(r.Options))
		found := false
		for j, o := range r.Options {
			opts[j] = strings.TrimSpace(o)
			if opts[j] == "" {
				return nil, apperror.Validation(fmt.Sprintf("%s.options[%d]", field, j), "option must not be empty")
			}
			if opts[j] == strings.TrimSpace(r.CorrectAnswer) {
				found = true
			}
		}
		if !found {
			return nil, apperror.Validation(field+".correct_answer", "must be one of the options")
		}

		points := r.Points
		if points == 0 {
			points = 1
		}
		if points < 0 {
			return nil, apperror.Validation(field+".points", "must be greater than zero")
		}

		order := r.Order
		if order == 0 {
			order = i + 1
		}

		out = append(out, model.Question{
			Text:          strings.TrimSpace(r.Text),
			Type:          r.Type,
			Options:       opts,
			CorrectAnswer: strings.TrimSpace(r.CorrectAnswer),
			Points:        points,
			Order:         order,
		})
	}
	return out, nil
}

// GetForAdmin returns the full quiz including the answer key.
func (s *QuizService) GetForAdmin(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	return s.load(ctx, id)
}

// GetForUser returns a published quiz the user may access, without answers.
// Drafts read as not found.
func (s *QuizService) GetForUser(ctx context.Context, userID, id uuid.UUID) (*model.QuizView, error) {
	quiz, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !quiz.IsPublished {
		return nil, apperror.ErrQuizNotFound
	}

	ok, err := s.policy.CanAccess(ctx, userID, quiz)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrQuizAccessDenied
	}

	view := model.ViewOf(quiz)
	return &view, nil
}

// List returns a page of quizzes for admins.
func (s *QuizService) List(ctx context.Context, publishedOnly bool, page, perPage int) ([]model.Quiz, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)
	quizzes, total, err := s.quizzes.List(ctx, publishedOnly, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list quizzes: %w", err)
	}
	if quizzes == nil {
		quizzes = []model.Quiz{}
	}
	return quizzes, response.NewPagination(page, perPage, total), nil
}

// ListForUser returns the published quizzes a user can currently take.
func (s *QuizService) ListForUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.QuizView, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)
	quizzes, total, err := s.quizzes.ListForUser(ctx, userID, s.now().UTC(), perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list quizzes: %w", err)
	}

	views := make([]model.QuizView, 0, len(quizzes))
	for i := range quizzes {
		views = append(views, model.ViewOf(&quizzes[i]))
	}
	return views, response.NewPagination(page, perPage, total), nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// Update patches quiz metadata while the quiz is unpublished.
func (s *QuizService) Update(ctx context.Context, id uuid.UUID, req model.UpdateQuizRequest) (*model.Quiz, error) {
	quiz, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz.IsPublished {
		return nil, apperror.ErrQuizPublished
	}

	if req.Title != nil {
		quiz.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		quiz.Description = strings.TrimSpace(*req.Description)
	}
	if req.DurationMinutes != nil {
		quiz.DurationMinutes = *req.DurationMinutes
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.IsPublic != nil {
		quiz.IsPublic = *req.IsPublic
	}
	if req.MaxAttempts != nil {
		quiz.MaxAttempts = req.MaxAttempts
	}
	if req.RandomizeQuestions != nil {
		quiz.RandomizeQuestions = *req.RandomizeQuestions
	}
	if req.RandomizeOptions != nil {
		quiz.RandomizeOptions = *req.RandomizeOptions
	}

	switch err := s.quizzes.Update(ctx, quiz); {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperror.ErrQuizNotFound
	case errors.Is(err, repository.ErrQuizPublished):
		return nil, apperror.ErrQuizPublished
	case err != nil:
		return nil, fmt.Errorf("update quiz: %w", err)
	}
	return quiz, nil
}

// ReplaceQuestions swaps the full question list of an unpublished quiz.
func (s *QuizService) ReplaceQuestions(ctx context.Context, id uuid.UUID, req model.ReplaceQuestionsRequest) (*model.Quiz, error) {
	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	switch err := s.quizzes.ReplaceQuestions(ctx, id, questions); {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperror.ErrQuizNotFound
	case errors.Is(err, repository.ErrQuizPublished):
		return nil, apperror.ErrQuizPublished
	case err != nil:
		return nil, fmt.Errorf("replace questions: %w", err)
	}
	return s.load(ctx, id)
}

// Publish makes the quiz visible and immutable, then notifies every active
// assignee.
func (s *QuizService) Publish(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	quiz, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz.IsPublished {
		return nil, apperror.ErrAlreadyPublish
	}
	if len(quiz.Questions) == 0 {
		return nil, apperror.ErrNoQuestions
	}

	changed, err := s.quizzes.Publish(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("publish quiz: %w", err)
	}
	if !changed {
		return nil, apperror.ErrAlreadyPublish
	}
	quiz.IsPublished = true

	assignees, err := s.assignments.ListByQuiz(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("quiz_id", id.String()).Msg("List assignees for publish notice failed")
	}
	now := s.now()
	for _, a := range assignees {
		if !a.Grants(now) {
			continue
		}
		dispatchQuietly(ctx, s.dispatcher, s.log, model.NotificationJob{
			Type:      model.NotificationQuizPublished,
			UserID:    a.UserID,
			QuizID:    quiz.ID,
			QuizTitle: quiz.Title,
			DueDate:   a.DueDate,
		})
	}

	s.log.Info().Str("quiz_id", id.String()).Msg("Quiz published")
	return quiz, nil
}

// Delete removes a quiz with its questions, assignments, attempts, answers and
// results.
func (s *QuizService) Delete(ctx context.Context, id uuid.UUID) error {
	switch err := s.quizzes.Delete(ctx, id); {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.ErrQuizNotFound
	case err != nil:
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.log.Info().Str("quiz_id", id.String()).Msg("Quiz deleted")
	return nil
}

// Assign grants users access to a quiz until the due date, re-activating
// earlier assignments. Every user is checked before anything is written, so
// one unknown ID rejects the whole request.
func (s *QuizService) Assign(ctx context.Context, quizID, assignedBy uuid.UUID, req model.AssignQuizRequest) ([]model.Assignment, error) {
	quiz, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(req.UserIDs))
	assignments := make([]model.Assignment, 0, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		if _, err := s.users.GetByID(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperror.ErrUserNotFound.WithFields(map[string]string{"user_ids": userID.String()})
			}
			return nil, fmt.Errorf("get user: %w", err)
		}
		assignments = append(assignments, model.Assignment{
			QuizID:     quizID,
			UserID:     userID,
			AssignedBy: assignedBy,
			DueDate:    req.DueDate,
		})
	}

	if err := s.assignments.UpsertMany(ctx, assignments); err != nil {
		return nil, fmt.Errorf("assign quiz: %w", err)
	}

	for _, a := range assignments {
		dispatchQuietly(ctx, s.dispatcher, s.log, model.NotificationJob{
			Type:      model.NotificationQuizAssigned,
			UserID:    a.UserID,
			QuizID:    quiz.ID,
			QuizTitle: quiz.Title,
			DueDate:   req.DueDate,
		})
	}
	s.log.Info().Str("quiz_id", quizID.String()).Int("users", len(assignments)).Msg("Quiz assigned")
	return assignments, nil
}

// RemindDueSoon sends a deadline notice for every active assignment falling
// due within window that has not been reminded yet and whose user has no
// result. It returns the number of notices handed off.
func (s *QuizService) RemindDueSoon(ctx context.Context, window time.Duration) (int, error) {
	now := s.now().UTC()
	due, err := s.assignments.ClaimDueSoon(ctx, now, now.Add(window), reminderBatch)
	if err != nil {
		return 0, fmt.Errorf("claim due assignments: %w", err)
	}

	for _, d := range due {
		dispatchQuietly(ctx, s.dispatcher, s.log, model.NotificationJob{
			Type:      model.NotificationDeadlineApproaching,
			UserID:    d.UserID,
			QuizID:    d.QuizID,
			QuizTitle: d.QuizTitle,
			DueDate:   &d.DueDate,
		})
	}
	if len(due) > 0 {
		s.log.Info().Int("reminded", len(due)).Msg("Deadline reminders sent")
	}
	return len(due), nil
}

// Revoke deactivates an assignment.
func (s *QuizService) Revoke(ctx context.Context, quizID, userID uuid.UUID) error {
	switch err := s.assignments.Revoke(ctx, quizID, userID); {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.ErrAssignmentNotFound
	case err != nil:
		return fmt.Errorf("revoke assignment: %w", err)
	}
	return nil
}

// ListAssignments returns every assignment of a quiz with assignee details.
func (s *QuizService) ListAssignments(ctx context.Context, quizID uuid.UUID) ([]model.AssignmentWithUser, error) {
	if _, err := s.load(ctx, quizID); err != nil {
		return nil, err
	}
	list, err := s.assignments.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	if list == nil {
		list = []model.AssignmentWithUser{}
	}
	return list, nil
}

func (s *QuizService) load(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	quiz, err := s.quizzes.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return quiz, nil
}

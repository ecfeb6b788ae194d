package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/apperror"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
)

// NotificationService stores in-app notifications, pushes them to live
// subscribers and serves the inbox.
type NotificationService struct {
	store NotificationStore
	users UserReader
	rdb   *redis.Client
	now   Clock
	log   zerolog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(store NotificationStore, users UserReader, rdb *redis.Client, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		store: store,
		users: users,
		rdb:   rdb,
		now:   time.Now,
		log:   log.With().Str("component", "notification_service").Logger(),
	}
}

// Render builds the title and message of a notification job.
func Render(job model.NotificationJob) (title, message string) {
	switch job.Type {
	case model.NotificationQuizPublished:
		return "New quiz available", fmt.Sprintf("The quiz %q is now available.", job.QuizTitle)
	case model.NotificationQuizAssigned:
		msg := fmt.Sprintf("You have been assigned the quiz %q.", job.QuizTitle)
		if job.DueDate != nil {
			msg += fmt.Sprintf(" Due %s.", job.DueDate.UTC().Format("2006-01-02 15:04 MST"))
		}
		return "Quiz assigned", msg
	case model.NotificationDeadlineApproaching:
		msg := fmt.Sprintf("The deadline for %q is approaching.", job.QuizTitle)
		if job.DueDate != nil {
			msg = fmt.Sprintf("The deadline for %q is %s.", job.QuizTitle, job.DueDate.UTC().Format("2006-01-02 15:04 MST"))
		}
		return "Deadline approaching", msg
	case model.NotificationResultAvailable:
		if job.Score == nil || job.Percentage == nil || job.Passed == nil {
			return "Result available", fmt.Sprintf("Your result for %q is ready.", job.QuizTitle)
		}
		verdict := "did not pass"
		if *job.Passed {
			verdict = "passed"
		}
		return "Result available", fmt.Sprintf("You scored %d (%.2f%%) on %q and %s.", *job.Score, *job.Percentage, job.QuizTitle, verdict)
	default:
		return "Notification", job.QuizTitle
	}
}

// Deliver persists the notification for job, publishes it to the user's live
// channel and hands the email off. Only the insert can fail the delivery.
func (s *NotificationService) Deliver(ctx context.Context, job model.NotificationJob) (*model.Notification, error) {
	title, message := Render(job)
	n := &model.Notification{
		UserID:    job.UserID,
		Type:      job.Type,
		Title:     title,
		Message:   message,
		AttemptID: job.AttemptID,
		ResultID:  job.ResultID,
	}
	if job.QuizID != uuid.Nil {
		quizID := job.QuizID
		n.QuizID = &quizID
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	s.publish(ctx, n)
	s.handOffEmail(ctx, n)
	return n, nil
}

func (s *NotificationService) publish(ctx context.Context, n *model.Notification) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return
	}
	channel := config.CacheKey.UserNotificationChannel(n.UserID.String())
	if err := s.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("Live push failed")
	}
}

// handOffEmail records the outbound email. Delivery is done by an external
// mailer reading the structured log stream.
func (s *NotificationService) handOffEmail(ctx context.Context, n *model.Notification) {
	if s.users == nil {
		return
	}
	u, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", n.UserID.String()).Msg("Email recipient lookup failed")
		return
	}
	s.log.Info().
		Str("to", u.Email).
		Str("subject", n.Title).
		Str("type", string(n.Type)).
		Str("notification_id", n.ID.String()).
		Msg("Email queued")
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]model.Notification, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > maxPerPage {
		limit = maxPerPage
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.store.ListByUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if list == nil {
		list = []model.Notification{}
	}
	return list, nil
}

// UnreadCount counts the user's unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkRead marks one notification read. Other users' notifications read as
// not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.MarkRead(ctx, id, userID, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.ErrNotificationNotFound
	}
	return err
}

// MarkAllRead marks every unread notification of the user read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.MarkAllRead(ctx, userID, s.now().UTC())
}

// Delete removes one of the user's notifications.
func (s *NotificationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.Delete(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.ErrNotificationNotFound
	}
	return err
}

// Cleanup purges notifications older than retention.
func (s *NotificationService) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.store.DeleteOlderThan(ctx, s.now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	if n > 0 {
		s.log.Info().Int64("deleted", n).Dur("retention", retention).Msg("Old notifications purged")
	}
	return n, nil
}

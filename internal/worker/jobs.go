package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ExpirySweeper finalizes attempts past their deadline.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// RankSyncer refreshes persisted result ranks.
type RankSyncer interface {
	SyncRanks(ctx context.Context) (int64, error)
}

// DeadlineReminder notifies assignees whose due date is near.
type DeadlineReminder interface {
	RemindDueSoon(ctx context.Context, window time.Duration) (int, error)
}

// NotificationCleaner purges old notifications.
type NotificationCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// NewExpiryWorker runs the expiry sweep every interval. The sweep is
// idempotent, so several replicas may run it at once.
func NewExpiryWorker(s ExpirySweeper, every time.Duration, log zerolog.Logger) *Periodic {
	return NewPeriodic("expiry_worker", every, func(ctx context.Context) error {
		_, err := s.SweepExpired(ctx)
		return err
	}, log)
}

// NewRankWorker recomputes leaderboard ranks every interval.
func NewRankWorker(s RankSyncer, every time.Duration, log zerolog.Logger) *Periodic {
	l := log.With().Str("component", "rank_worker").Logger()
	return NewPeriodic("rank_worker", every, func(ctx context.Context) error {
		n, err := s.SyncRanks(ctx)
		if err == nil && n > 0 {
			l.Info().Int64("updated", n).Msg("Ranks synced")
		}
		return err
	}, log)
}

// NewNotificationJanitor deletes notifications older than retention every interval.
func NewNotificationJanitor(c NotificationCleaner, retention, every time.Duration, log zerolog.Logger) *Periodic {
	return NewPeriodic("notification_janitor", every, func(ctx context.Context) error {
		_, err := c.Cleanup(ctx, retention)
		return err
	}, log)
}

// NewDeadlineWorker sends deadline-approaching notices for assignments due
// within window, checking every interval.
func NewDeadlineWorker(r DeadlineReminder, window, every time.Duration, log zerolog.Logger) *Periodic {
	return NewPeriodic("deadline_worker", every, func(ctx context.Context) error {
		_, err := r.RemindDueSoon(ctx, window)
		return err
	}, log)
}

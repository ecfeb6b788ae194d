package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/metrics"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/queue"
)

// NotificationJobType is the queue job type for notification jobs.
const NotificationJobType = "notification"

// QueueDispatcher turns notification jobs into queue jobs.
type QueueDispatcher struct {
	q queue.Enqueuer
}

// NewQueueDispatcher creates a new QueueDispatcher.
func NewQueueDispatcher(q queue.Enqueuer) *QueueDispatcher {
	return &QueueDispatcher{q: q}
}

// Dispatch enqueues job. A failure is counted before it is returned.
func (d *QueueDispatcher) Dispatch(ctx context.Context, job model.NotificationJob) error {
	j, err := queue.NewJob(NotificationJobType, job)
	if err == nil {
		_, err = d.q.Enqueue(ctx, j)
	}
	if err != nil {
		metrics.EnqueueFailures.WithLabelValues(string(job.Type)).Inc()
		return fmt.Errorf("enqueue %s: %w", job.Type, err)
	}
	return nil
}

// dispatchQuietly hands job to d without letting a failure reach the caller.
// The job outlives the request context but not by more than dispatchTimeout.
func dispatchQuietly(ctx context.Context, d Dispatcher, log zerolog.Logger, job model.NotificationJob) {
	if d == nil {
		return
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()
	if err := d.Dispatch(dctx, job); err != nil {
		log.Warn().Err(err).
			Str("type", string(job.Type)).
			Str("user_id", job.UserID.String()).
			Msg("Notification not enqueued")
	}
}

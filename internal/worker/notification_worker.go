package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/queue"
	"github.com/stemsi/quizhub-backend/internal/service"
)

// NotificationDeliverer turns a job into a stored, pushed notification.
type NotificationDeliverer interface {
	Deliver(ctx context.Context, job model.NotificationJob) (*model.Notification, error)
}

// NotificationWorker consumes notification jobs from the queue. The queue
// retries a failed job up to DefaultMaxRetries times, then dead-letters it.
type NotificationWorker struct {
	consumer queue.Consumer
	svc      NotificationDeliverer
	log      zerolog.Logger
}

// NewNotificationWorker creates a new NotificationWorker.
func NewNotificationWorker(consumer queue.Consumer, svc NotificationDeliverer, log zerolog.Logger) *NotificationWorker {
	return &NotificationWorker{
		consumer: consumer,
		svc:      svc,
		log:      log.With().Str("component", "notification_worker").Logger(),
	}
}

// Start consumes until ctx is cancelled or the queue closes.
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("NotificationWorker started")
	err := w.consumer.Consume(ctx, w.Handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume notifications: %w", err)
	}
	w.log.Info().Msg("NotificationWorker stopped")
	return nil
}

// Handle processes a single queue job.
func (w *NotificationWorker) Handle(ctx context.Context, job *queue.Job) error {
	if job.Type != service.NotificationJobType {
		return fmt.Errorf("unexpected job type %q", job.Type)
	}

	var nj model.NotificationJob
	if err := job.Decode(&nj); err != nil {
		return fmt.Errorf("decode job %s: %w", job.ID, err)
	}

	n, err := w.svc.Deliver(ctx, nj)
	if err != nil {
		return err
	}
	w.log.Debug().
		Str("job_id", job.ID).
		Str("notification_id", n.ID.String()).
		Str("type", string(n.Type)).
		Msg("Notification delivered")
	return nil
}

// Package queue is the durable, at-least-once job hand-off used for
// notification side effects. Producers only need Enqueuer; workers consume
// through Consumer.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRetries is how many times a failing job is retried before it is
// moved to the dead-letter queue. A job is delivered at most
// DefaultMaxRetries+1 times.
const DefaultMaxRetries = 3

// HandlerTimeout bounds one handler run. Handlers do not inherit the
// consumer's cancellation, so a shutdown lets the in-flight job finish.
const HandlerTimeout = 30 * time.Second

// ErrClosed is returned by Consume when the underlying transport goes away.
var ErrClosed = errors.New("queue closed")

// Job is one unit of work.
type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Attempts   int             `json:"attempts"`
}

// NewJob marshals payload into a job with a fresh ID.
func NewJob(jobType string, payload any) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", jobType, err)
	}
	return &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload into v.
func (j *Job) Decode(v any) error {
	return json.Unmarshal(j.Payload, v)
}

// runHandler calls h detached from ctx's cancellation.
func runHandler(ctx context.Context, h Handler, job *Job) error {
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), HandlerTimeout)
	defer cancel()
	return h(hctx, job)
}

// nextTarget bumps the attempt count of a failed job and reports whether it
// goes back to the work queue or to the dead-letter queue.
func nextTarget(job *Job, maxRetries int, name, deadName string) (target, outcome string) {
	job.Attempts++
	if job.Attempts > maxRetries {
		return deadName, "dead"
	}
	return name, "retry"
}

// Enqueuer hands a job to the queue and returns its ID.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *Job) (string, error)
}

// Handler processes one job. A non-nil error schedules a retry.
type Handler func(ctx context.Context, job *Job) error

// Consumer delivers jobs to a handler until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, h Handler) error
}

// Queue is a backend that can both produce and consume.
type Queue interface {
	Enqueuer
	Consumer
	Close() error
}

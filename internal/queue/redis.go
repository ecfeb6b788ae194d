package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/metrics"
)

const (
	redisPollTimeout = 1 * time.Second
	defaultConsumer  = "default"
)

// RedisQueue is a list-backed queue. RPUSH enqueues; BLMOVE hands each job to
// a per-consumer processing list, where it stays until the handler finishes.
// A consumer that restarts moves its leftover processing entries back onto
// the work list, so a crash mid-handler redelivers instead of losing the job.
// Jobs that keep failing are pushed onto a dead-letter list.
type RedisQueue struct {
	rdb        *redis.Client
	name       string
	deadName   string
	processing string
	maxRetries int
	log        zerolog.Logger
}

// NewRedisQueue creates a RedisQueue over the given list names.
func NewRedisQueue(rdb *redis.Client, name, deadName string, log zerolog.Logger) *RedisQueue {
	return &RedisQueue{
		rdb:        rdb,
		name:       name,
		deadName:   deadName,
		processing: processingKey(name, defaultConsumer),
		maxRetries: DefaultMaxRetries,
		log:        log.With().Str("component", "redis_queue").Str("queue", name).Logger(),
	}
}

// WithConsumer names this consumer's processing list. The ID must be stable
// across restarts of the same process slot (a hostname, a pod name) and
// unique among concurrently running consumers.
func (q *RedisQueue) WithConsumer(id string) *RedisQueue {
	if id == "" {
		id = defaultConsumer
	}
	q.processing = processingKey(q.name, id)
	return q
}

func processingKey(name, consumer string) string {
	return fmt.Sprintf("%s:processing:%s", name, consumer)
}

// Enqueue appends the job to the list.
func (q *RedisQueue) Enqueue(ctx context.Context, job *Job) (string, error) {
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.name, raw).Err(); err != nil {
		return "", fmt.Errorf("rpush %s: %w", q.name, err)
	}
	return job.ID, nil
}

// Consume moves jobs into the processing list and runs them until ctx is
// cancelled.
func (q *RedisQueue) Consume(ctx context.Context, h Handler) error {
	if err := q.recover(ctx); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		raw, err := q.rdb.BLMove(ctx, q.name, q.processing, "LEFT", "RIGHT", redisPollTimeout).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			if errors.Is(err, redis.ErrClosed) {
				return ErrClosed
			}
			q.log.Error().Err(err).Msg("BLMove error")
			time.Sleep(redisPollTimeout)
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			q.log.Error().Err(err).Msg("Invalid job payload, moving to dead-letter list")
			q.settle(raw, q.deadName, raw)
			continue
		}

		q.handle(ctx, raw, &job, h)
	}
}

// recover returns jobs left in the processing list by a previous run.
func (q *RedisQueue) recover(ctx context.Context) error {
	moved := 0
	for {
		err := q.rdb.LMove(ctx, q.processing, q.name, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return fmt.Errorf("recover %s: %w", q.processing, err)
		}
		moved++
	}
	if moved > 0 {
		q.log.Warn().Int("jobs", moved).Msg("Requeued jobs left in flight by a previous run")
	}
	return nil
}

func (q *RedisQueue) handle(ctx context.Context, raw string, job *Job, h Handler) {
	err := runHandler(ctx, h, job)
	if err == nil {
		metrics.JobsProcessed.WithLabelValues(job.Type, "ok").Inc()
		q.settle(raw, "", "")
		return
	}

	target, outcome := nextTarget(job, q.maxRetries, q.name, q.deadName)
	metrics.JobsProcessed.WithLabelValues(job.Type, outcome).Inc()

	q.log.Warn().Err(err).
		Str("job_id", job.ID).
		Str("type", job.Type).
		Int("attempts", job.Attempts).
		Str("outcome", outcome).
		Msg("Job failed")

	next, mErr := json.Marshal(job)
	if mErr != nil {
		// Leave it in the processing list; the next start redelivers it.
		q.log.Error().Err(mErr).Str("job_id", job.ID).Msg("Re-marshal failed, job kept in flight")
		return
	}
	q.settle(raw, target, string(next))
}

// settle removes raw from the processing list and, when target is set, pushes
// next onto it in the same transaction. It uses a background context so a
// shutdown does not strand the job halfway.
func (q *RedisQueue) settle(raw, target, next string) {
	_, err := q.rdb.TxPipelined(context.Background(), func(p redis.Pipeliner) error {
		if target != "" {
			p.RPush(context.Background(), target, next)
		}
		p.LRem(context.Background(), q.processing, 1, raw)
		return nil
	})
	if err != nil {
		q.log.Error().Err(err).Str("target", target).Msg("Settle failed, job kept in flight")
	}
}

// Close is a no-op; the Redis client is owned by the caller.
func (q *RedisQueue) Close() error { return nil }

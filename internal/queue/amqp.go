package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/metrics"
)

const amqpPublishTimeout = 5 * time.Second

// AMQPQueue publishes persistent messages to a durable RabbitMQ queue and
// consumes them with manual acknowledgements.
type AMQPQueue struct {
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	mu         sync.Mutex // amqp091 channels are not safe for concurrent publishing
	name       string
	deadName   string
	maxRetries int
	log        zerolog.Logger
}

// NewAMQPQueue dials RabbitMQ and declares the work and dead-letter queues.
func NewAMQPQueue(uri, name, deadName string, log zerolog.Logger) (*AMQPQueue, error) {
	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	for _, q := range []string{name, deadName} {
		if _, err := ch.QueueDeclare(
			q,     // name
			true,  // durable
			false, // auto-deleted
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	if err := ch.Qos(16, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	log.Info().Str("queue", name).Msg("RabbitMQ connected")

	return &AMQPQueue{
		conn:       conn,
		channel:    ch,
		name:       name,
		deadName:   deadName,
		maxRetries: DefaultMaxRetries,
		log:        log.With().Str("component", "amqp_queue").Str("queue", name).Logger(),
	}, nil
}

func (q *AMQPQueue) publish(ctx context.Context, queueName string, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, amqpPublishTimeout)
	defer cancel()

	q.mu.Lock()
	defer q.mu.Unlock()
	return q.channel.PublishWithContext(
		pubCtx,
		"",        // default exchange routes by queue name
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    job.ID,
			Type:         job.Type,
			Timestamp:    job.EnqueuedAt,
			Body:         body,
		},
	)
}

// Enqueue publishes the job.
func (q *AMQPQueue) Enqueue(ctx context.Context, job *Job) (string, error) {
	if err := q.publish(ctx, q.name, job); err != nil {
		return "", fmt.Errorf("publish %s: %w", q.name, err)
	}
	return job.ID, nil
}

// Consume delivers messages to h until ctx is cancelled. Failed jobs are
// republished with an incremented attempt count, then dead-lettered.
func (q *AMQPQueue) Consume(ctx context.Context, h Handler) error {
	deliveries, err := q.channel.Consume(
		q.name, // queue
		"",     // consumer tag
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrClosed
			}
			q.handle(ctx, d, h)
		}
	}
}

func (q *AMQPQueue) handle(ctx context.Context, d amqp091.Delivery, h Handler) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		q.log.Error().Err(err).Msg("Invalid job payload, rejecting")
		_ = d.Nack(false, false)
		return
	}

	err := runHandler(ctx, h, &job)
	if err == nil {
		metrics.JobsProcessed.WithLabelValues(job.Type, "ok").Inc()
		_ = d.Ack(false)
		return
	}
	q.log.Warn().Err(err).Str("job_id", job.ID).Int("attempts", job.Attempts+1).Msg("Job failed")

	target, outcome := nextTarget(&job, q.maxRetries, q.name, q.deadName)
	metrics.JobsProcessed.WithLabelValues(job.Type, outcome).Inc()

	if err := q.publish(context.Background(), target, &job); err != nil {
		q.log.Error().Err(err).Str("job_id", job.ID).Msg("Requeue failed, returning message to broker")
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// Close closes the channel and connection.
func (q *AMQPQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

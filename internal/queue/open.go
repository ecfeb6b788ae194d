package queue

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/config"
)

// Open builds the notification queue selected by cfg.QueueBackend.
func Open(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) (Queue, error) {
	name, dead := config.WorkerKey.NotificationQueue, config.WorkerKey.NotificationDeadQueue

	switch cfg.QueueBackend {
	case config.QueueBackendRedis:
		return NewRedisQueue(rdb, name, dead, log).WithConsumer(cfg.QueueConsumerID), nil
	case config.QueueBackendAMQP:
		if cfg.AMQPURL == "" {
			return nil, fmt.Errorf("QUEUE_BACKEND=amqp requires AMQP_URL")
		}
		return NewAMQPQueue(cfg.AMQPURL, name, dead, log)
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}
}

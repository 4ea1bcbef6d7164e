package queue

import (
	"context"
	"time"

	"school-results-db/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const pollTimeout = 5 * time.Second

type Consumer struct {
	client    listClient
	queue     string
	dlqSuffix string
	log       zerolog.Logger
}

type MessageHandler func(ctx context.Context, data []byte) error

func NewConsumer(redisClient *RedisClient, queueName, dlqSuffix string) *Consumer {
	return &Consumer{
		client:    redisClient.Client(),
		queue:     queueName,
		dlqSuffix: dlqSuffix,
		log:       logger.Component("queue"),
	}
}

// Consume blocks until ctx is done. Messages the handler rejects are moved
// to the dead letter queue.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := c.client.BRPop(ctx, pollTimeout, c.queue).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				c.log.Error().Err(err).Str("queue", c.queue).Msg("Failed to consume message")
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		message := result[1]
		if err := handler(ctx, []byte(message)); err != nil {
			c.log.Error().Err(err).Str("queue", c.queue).Msg("Failed to process message")
			dlqName := c.queue + c.dlqSuffix
			if dlqErr := c.client.LPush(ctx, dlqName, message).Err(); dlqErr != nil {
				c.log.Error().Err(dlqErr).Str("dlq", dlqName).Msg("Failed to move message to DLQ")
			}
		}
	}
}

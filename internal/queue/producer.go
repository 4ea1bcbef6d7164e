package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"school-results-db/internal/model"
)

type Producer struct {
	client listClient
	queue  string
}

func NewProducer(redisClient *RedisClient, queueName string) *Producer {
	return &Producer{client: redisClient.Client(), queue: queueName}
}

func (p *Producer) EnqueueCleanupJob(ctx context.Context, job model.CleanupJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if err := p.client.LPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue cleanup job: %w", err)
	}
	return nil
}

func DecodeCleanupJob(data []byte) (model.CleanupJob, error) {
	var job model.CleanupJob
	if err := json.Unmarshal(data, &job); err != nil {
		return job, fmt.Errorf("failed to unmarshal cleanup job: %w", err)
	}
	if job.StorageKey == "" {
		return job, fmt.Errorf("cleanup job has no storage key")
	}
	return job, nil
}

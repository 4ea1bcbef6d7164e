package worker

import (
	"context"
	"time"

	"school-results-db/internal/logger"
	"school-results-db/internal/metrics"
	"school-results-db/internal/model"
	"school-results-db/internal/queue"
	"school-results-db/pkg/errors"

	"github.com/rs/zerolog"
)

const (
	maxCleanupAttempts = 3
	retryBackoff       = 500 * time.Millisecond
)

// ObjectRemover is the part of storage the cleanup worker needs.
type ObjectRemover interface {
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type MessageSource interface {
	Consume(ctx context.Context, handler queue.MessageHandler) error
}

// CleanupWorker deletes archived spreadsheets whose upload no longer exists.
type CleanupWorker struct {
	storage    ObjectRemover
	source     MessageSource
	workerPool *WorkerPool
	metrics    *metrics.Metrics
	backoff    time.Duration
	log        zerolog.Logger
}

func NewCleanupWorker(storage ObjectRemover, source MessageSource, workers int, m *metrics.Metrics) *CleanupWorker {
	return &CleanupWorker{
		storage:    storage,
		source:     source,
		workerPool: NewWorkerPool(workers),
		metrics:    m,
		backoff:    retryBackoff,
		log:        logger.Component("cleanup_worker"),
	}
}

func (w *CleanupWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting cleanup worker")

	w.workerPool.Start(ctx)

	return w.source.Consume(ctx, w.handleMessage)
}

func (w *CleanupWorker) Stop() {
	w.log.Info().Msg("Stopping cleanup worker")
	w.workerPool.Stop()
}

func (w *CleanupWorker) handleMessage(ctx context.Context, data []byte) error {
	job, err := queue.DecodeCleanupJob(data)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to decode cleanup job")
		return err
	}

	w.log.Debug().Str("key", job.StorageKey).Str("reason", job.Reason).Msg("Cleanup job received")

	return w.workerPool.Submit(ctx, func(ctx context.Context) error {
		return w.processJob(ctx, job)
	})
}

func (w *CleanupWorker) processJob(ctx context.Context, job model.CleanupJob) error {
	log := w.log.With().Str("key", job.StorageKey).Int64("upload_id", job.UploadID).Logger()

	var err error
	for attempt := 1; attempt <= maxCleanupAttempts; attempt++ {
		var outcome string
		outcome, err = w.removeObject(ctx, job.StorageKey)
		if err == nil {
			w.metrics.ObserveCleanup(outcome)
			log.Info().Str("outcome", outcome).Str("reason", job.Reason).Msg("Archived file cleaned up")
			return nil
		}

		var retryable errors.RetryableError
		if !errors.As(err, &retryable) || attempt == maxCleanupAttempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Cleanup failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}

	w.metrics.ObserveCleanup(metrics.OutcomeFailed)
	log.Error().Err(err).Msg("Failed to clean up archived file")
	return err
}

func (w *CleanupWorker) removeObject(ctx context.Context, key string) (string, error) {
	exists, err := w.storage.Exists(ctx, key)
	if err != nil {
		return "", errors.NewRetryableError(err, "failed to stat archived file")
	}
	if !exists {
		return metrics.OutcomeMissing, nil
	}

	if err := w.storage.Delete(ctx, key); err != nil {
		return "", errors.NewRetryableError(err, "failed to delete archived file")
	}
	return metrics.OutcomeSuccess, nil
}

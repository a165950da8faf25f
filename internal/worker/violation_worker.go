package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/session-engine/internal/cache"
	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/SAP-F-2025/session-engine/internal/repositories"
	"github.com/SAP-F-2025/session-engine/internal/services"
	"github.com/redis/go-redis/v9"
)

const (
	batchSize    = 50
	batchTimeout = 2 * time.Second
	pollTimeout  = 1 * time.Second // BLPop requires at least 1s
)

// ViolationWorker drains spooled violation batches from redis into postgres,
// buffering so a burst of escalations becomes one insert.
type ViolationWorker struct {
	repo   repositories.Repository
	rdb    *redis.Client
	logger *slog.Logger
}

func NewViolationWorker(repo repositories.Repository, rdb *redis.Client, logger *slog.Logger) *ViolationWorker {
	return &ViolationWorker{
		repo:   repo,
		rdb:    rdb,
		logger: logger.With("component", "violation_worker"),
	}
}

func (w *ViolationWorker) Start(ctx context.Context) {
	w.logger.Info("violation worker started")

	buffer := make([]*models.ViolationRecord, 0, batchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= batchSize || time.Since(lastFlush) >= batchTimeout {
				w.flush(ctx, buffer)
				buffer = buffer[:0]
				lastFlush = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, pollTimeout, cache.ViolationQueueKey).Result()
		if err != nil {
			if err == redis.Nil {
				continue // queue empty, loop back to check the flush timer
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.logger.Error("redis connection error, backing off", "error", err)
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var batch services.ViolationBatch
		if err := json.Unmarshal([]byte(result[1]), &batch); err != nil {
			// Malformed JSON can never succeed on retry. Log and discard.
			w.logger.Error("discarding malformed violation batch",
				"data", result[1],
				"error", err)
			continue
		}
		records, err := batch.Records()
		if err != nil {
			w.logger.Error("discarding unconvertible violation batch", "error", err)
			continue
		}
		buffer = append(buffer, records...)
	}
}

// flush attempts the batch insert and requeues the records on failure so a
// postgres outage delays delivery instead of losing it.
func (w *ViolationWorker) flush(ctx context.Context, batch []*models.ViolationRecord) {
	if err := w.repo.Violation().CreateBatch(ctx, batch); err != nil {
		w.logger.Warn("batch insert failed, requeueing",
			"count", len(batch),
			"error", err)
		w.requeue(ctx, batch)
		return
	}
	w.logger.Info("violation batch persisted", "count", len(batch))
}

func (w *ViolationWorker) requeue(ctx context.Context, records []*models.ViolationRecord) {
	pipe := w.rdb.Pipeline()
	for _, record := range records {
		var log models.ViolationLog
		if err := json.Unmarshal(record.Data, &log); err != nil {
			w.logger.Error("dropping unreadable violation record", "error", err)
			continue
		}
		batch := services.ViolationBatch{
			SubmissionID: record.SubmissionID,
			Logs:         []models.ViolationLog{log},
		}
		data, _ := json.Marshal(&batch)
		pipe.RPush(ctx, cache.ViolationQueueKey, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.logger.Error("failed to requeue violation records, data lost",
			"count", len(records),
			"error", err)
		return
	}
	w.logger.Info("violation records requeued", "count", len(records))
	// Back off so a hard-down database is not hammered.
	time.Sleep(2 * time.Second)
}

func (w *ViolationWorker) shutdown(buffer []*models.ViolationRecord) {
	w.logger.Info("violation worker stopping, flushing buffer", "count", len(buffer))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flush(shutdownCtx, buffer)
	}
}

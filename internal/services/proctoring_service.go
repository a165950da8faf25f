package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/session-engine/internal/cache"
	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/SAP-F-2025/session-engine/internal/repositories"
	"github.com/redis/go-redis/v9"
)

// ViolationBatch is one flushed batch of violation logs, spooled to redis so
// the engine's network cycle is never blocked on postgres.
type ViolationBatch struct {
	SubmissionID uint                  `json:"submission_id"`
	Logs         []models.ViolationLog `json:"logs"`
}

// Records converts the batch to its persisted form.
func (b *ViolationBatch) Records() ([]*models.ViolationRecord, error) {
	records := make([]*models.ViolationRecord, 0, len(b.Logs))
	for _, log := range b.Logs {
		data, err := json.Marshal(log)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal violation log: %w", err)
		}
		records = append(records, &models.ViolationRecord{
			SubmissionID: b.SubmissionID,
			Event:        log.Event,
			Data:         data,
			RecordedAt:   log.Timestamp,
		})
	}
	return records, nil
}

// ProctoringService spools escalated violation batches and serves the
// persisted history back to reviewers.
type ProctoringService interface {
	SpoolViolations(ctx context.Context, submissionID uint, logs []models.ViolationLog) error
	GetViolations(ctx context.Context, submissionID uint, requesterID string) ([]*models.ViolationRecord, error)
}

type proctoringService struct {
	redis  *redis.Client
	repo   repositories.Repository
	logger *slog.Logger
}

func NewProctoringService(redisClient *redis.Client, repo repositories.Repository, logger *slog.Logger) ProctoringService {
	return &proctoringService{
		redis:  redisClient,
		repo:   repo,
		logger: logger,
	}
}

func (s *proctoringService) SpoolViolations(ctx context.Context, submissionID uint, logs []models.ViolationLog) error {
	if len(logs) == 0 {
		return nil
	}
	batch := ViolationBatch{SubmissionID: submissionID, Logs: logs}
	data, err := json.Marshal(&batch)
	if err != nil {
		return fmt.Errorf("failed to marshal violation batch: %w", err)
	}
	if err := s.redis.RPush(ctx, cache.ViolationQueueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to spool violation batch: %w", err)
	}
	s.logger.Info("violation batch spooled",
		"submission_id", submissionID,
		"count", len(logs))
	return nil
}

func (s *proctoringService) GetViolations(ctx context.Context, submissionID uint, requesterID string) ([]*models.ViolationRecord, error) {
	submission, err := s.repo.Submission().GetByID(ctx, submissionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if submission.StudentID != requesterID {
		return nil, NewPermissionError(requesterID, submissionID, "submission", "read_violations",
			"violation history is restricted to the submission owner")
	}

	records, err := s.repo.Violation().GetBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get violations: %w", err)
	}
	return records, nil
}

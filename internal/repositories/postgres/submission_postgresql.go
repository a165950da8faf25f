package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/SAP-F-2025/session-engine/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{db: db}
}

func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	var submission models.Submission
	if err := s.db.WithContext(ctx).Preload("Answers").First(&submission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrRecordNotFound
		}
		return nil, err
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) GetInProgress(ctx context.Context, challengeID uint, studentID string) (*models.Submission, error) {
	var submission models.Submission
	err := s.db.WithContext(ctx).
		Where("challenge_id = ? AND student_id = ? AND status = ?",
			challengeID, studentID, models.SessionInProgress).
		Order("created_at DESC").
		First(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrRecordNotFound
		}
		return nil, err
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) List(ctx context.Context, challengeID uint, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	var submissions []*models.Submission
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Submission{}).Where("challenge_id = ?", challengeID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}

// Save upserts the submission and replaces its answers inside a transaction.
// A zero submissionID creates the record: the backend-side counterpart of
// "creation is a side effect of the first successful save".
func (s *SubmissionPostgreSQL) Save(ctx context.Context, submissionID, challengeID uint, studentID string, payload *models.SavePayload) (*models.Submission, error) {
	var saved *models.Submission

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var submission models.Submission
		if submissionID != 0 {
			if err := tx.First(&submission, submissionID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return repositories.ErrRecordNotFound
				}
				return err
			}
			if submission.Status != models.SessionInProgress {
				return fmt.Errorf("submission %d is no longer in progress", submissionID)
			}
		} else {
			submission = models.Submission{
				ChallengeID: challengeID,
				StudentID:   studentID,
				Status:      models.SessionInProgress,
			}
			if err := tx.Create(&submission).Error; err != nil {
				return err
			}
		}

		for _, qa := range payload.QuestionAnswers {
			content, err := json.Marshal(qa.Content)
			if err != nil {
				return fmt.Errorf("failed to marshal answer content: %w", err)
			}
			answer := models.SubmissionAnswer{
				SubmissionID: submission.ID,
				QuestionID:   qa.QuestionID,
				Content:      datatypes.JSON(content),
			}
			err = tx.Where("submission_id = ? AND question_id = ?", submission.ID, qa.QuestionID).
				Assign(map[string]interface{}{"content": answer.Content, "updated_at": time.Now()}).
				FirstOrCreate(&answer).Error
			if err != nil {
				return err
			}
		}

		if !payload.SaveAsDraft {
			now := time.Now()
			submission.Status = models.SessionSubmitted
			submission.SubmittedAt = &now
			if err := tx.Save(&submission).Error; err != nil {
				return err
			}
		}

		saved = &submission
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// MarkStarted records the start time once; the unique index on
// (challenge_id, student_id) makes later calls no-ops.
func (s *SubmissionPostgreSQL) MarkStarted(ctx context.Context, challengeID uint, studentID string, at time.Time) error {
	start := models.ChallengeStart{
		ChallengeID: challengeID,
		StudentID:   studentID,
		StartedAt:   at,
	}
	return s.db.WithContext(ctx).
		Where("challenge_id = ? AND student_id = ?", challengeID, studentID).
		FirstOrCreate(&start).Error
}

func (s *SubmissionPostgreSQL) Timing(ctx context.Context, challengeID uint, studentID string) (*models.SessionTiming, error) {
	var challenge models.Challenge
	if err := s.db.WithContext(ctx).First(&challenge, challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrRecordNotFound
		}
		return nil, err
	}

	timing := &models.SessionTiming{DurationSeconds: challenge.DurationSeconds}

	var start models.ChallengeStart
	err := s.db.WithContext(ctx).
		Where("challenge_id = ? AND student_id = ?", challengeID, studentID).
		First(&start).Error
	if err == nil {
		timing.StartedAt = &start.StartedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return timing, nil
}

// Snapshot builds the restoration view consumed by the engine.
func (s *SubmissionPostgreSQL) Snapshot(ctx context.Context, submissionID uint) (*models.SubmissionSnapshot, error) {
	submission, err := s.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	results := make([]models.QuestionResult, 0, len(submission.Answers))
	for _, answer := range submission.Answers {
		var content models.AnswerContent
		if err := json.Unmarshal(answer.Content, &content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answer content: %w", err)
		}
		results = append(results, models.QuestionResult{
			QuestionID:       answer.QuestionID,
			SubmittedContent: content,
		})
	}

	id := submission.ID
	challengeID := submission.ChallengeID
	return &models.SubmissionSnapshot{
		SectionDetails: []models.SectionDetail{{QuestionResults: results}},
		SubmissionID:   &id,
		ChallengeID:    &challengeID,
	}, nil
}

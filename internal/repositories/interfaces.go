package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/session-engine/internal/models"
)

var ErrRecordNotFound = errors.New("record not found")

// IsNotFoundError reports whether an error represents a missing record.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// ===== FILTERS =====

type SubmissionFilters struct {
	Status    *models.SessionStatus `json:"status"`
	StudentID *string               `json:"student_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====

type ChallengeRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Challenge, error)
}

type QuestionRepository interface {
	GetByChallenge(ctx context.Context, challengeID uint) ([]models.Question, error)
}

type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Submission, error)
	GetInProgress(ctx context.Context, challengeID uint, studentID string) (*models.Submission, error)
	List(ctx context.Context, challengeID uint, filters SubmissionFilters) ([]*models.Submission, int64, error)

	// Save upserts the submission and replaces its answers with the payload
	// contents in one transaction, creating the submission when id is zero.
	Save(ctx context.Context, submissionID, challengeID uint, studentID string, payload *models.SavePayload) (*models.Submission, error)

	// MarkStarted records the session start time exactly once; later calls
	// leave the stored value untouched.
	MarkStarted(ctx context.Context, challengeID uint, studentID string, at time.Time) error

	// Timing returns the assessment duration and any recorded start.
	Timing(ctx context.Context, challengeID uint, studentID string) (*models.SessionTiming, error)

	// Snapshot builds the restoration view of a submission's saved answers.
	Snapshot(ctx context.Context, submissionID uint) (*models.SubmissionSnapshot, error)
}

type ViolationRepository interface {
	CreateBatch(ctx context.Context, records []*models.ViolationRecord) error
	GetBySubmission(ctx context.Context, submissionID uint) ([]*models.ViolationRecord, error)
}

// Repository aggregates the store interfaces the way services consume them.
type Repository interface {
	Challenge() ChallengeRepository
	Question() QuestionRepository
	Submission() SubmissionRepository
	Violation() ViolationRepository
}

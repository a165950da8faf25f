package postgres

import (
	"context"

	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/SAP-F-2025/session-engine/internal/repositories"
	"gorm.io/gorm"
)

type ViolationPostgreSQL struct {
	db *gorm.DB
}

func NewViolationPostgreSQL(db *gorm.DB) repositories.ViolationRepository {
	return &ViolationPostgreSQL{db: db}
}

func (v *ViolationPostgreSQL) CreateBatch(ctx context.Context, records []*models.ViolationRecord) error {
	if len(records) == 0 {
		return nil
	}
	return v.db.WithContext(ctx).Create(records).Error
}

func (v *ViolationPostgreSQL) GetBySubmission(ctx context.Context, submissionID uint) ([]*models.ViolationRecord, error) {
	var records []*models.ViolationRecord
	err := v.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("recorded_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ===== AGGREGATE =====

type repository struct {
	challenge  repositories.ChallengeRepository
	question   repositories.QuestionRepository
	submission repositories.SubmissionRepository
	violation  repositories.ViolationRepository
}

// NewRepository wires the postgres implementations behind the aggregate
// Repository interface.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		challenge:  NewChallengePostgreSQL(db),
		question:   NewQuestionPostgreSQL(db),
		submission: NewSubmissionPostgreSQL(db),
		violation:  NewViolationPostgreSQL(db),
	}
}

func (r *repository) Challenge() repositories.ChallengeRepository   { return r.challenge }
func (r *repository) Question() repositories.QuestionRepository     { return r.question }
func (r *repository) Submission() repositories.SubmissionRepository { return r.submission }
func (r *repository) Violation() repositories.ViolationRepository   { return r.violation }

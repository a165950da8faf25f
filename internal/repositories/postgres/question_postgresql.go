package postgres

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/SAP-F-2025/session-engine/internal/repositories"
	"gorm.io/gorm"
)

type ChallengePostgreSQL struct {
	db *gorm.DB
}

func NewChallengePostgreSQL(db *gorm.DB) repositories.ChallengeRepository {
	return &ChallengePostgreSQL{db: db}
}

func (c *ChallengePostgreSQL) GetByID(ctx context.Context, id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := c.db.WithContext(ctx).First(&challenge, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrRecordNotFound
		}
		return nil, err
	}
	return &challenge, nil
}

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) GetByChallenge(ctx context.Context, challengeID uint) ([]models.Question, error) {
	var questions []models.Question
	err := q.db.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("order_number ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

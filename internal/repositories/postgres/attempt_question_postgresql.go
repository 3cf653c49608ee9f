package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/realprep/exam-service/internal/models"
	"github.com/realprep/exam-service/internal/repositories"
	"gorm.io/gorm"
)

type AttemptQuestionPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptQuestionPostgreSQL(db *gorm.DB) repositories.AttemptQuestionRepository {
	return &AttemptQuestionPostgreSQL{db: db}
}

func (r *AttemptQuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.AttemptQuestion) error {
	if len(questions) == 0 {
		return nil
	}

	db := r.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(questions, 100).Error; err != nil {
		return fmt.Errorf("failed to create attempt questions: %w", err)
	}
	return nil
}

func (r *AttemptQuestionPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AttemptQuestion, error) {
	db := r.getDB(tx)
	var questions []*models.AttemptQuestion
	if err := db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("position ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempt questions: %w", err)
	}
	return questions, nil
}

func (r *AttemptQuestionPostgreSQL) GetByAttemptPosition(ctx context.Context, tx *gorm.DB, attemptID uint, position int) (*models.AttemptQuestion, error) {
	db := r.getDB(tx)
	var question models.AttemptQuestion
	if err := db.WithContext(ctx).
		Where("attempt_id = ? AND position = ?", attemptID, position).
		First(&question).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt %d position %d: %w", attemptID, position, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get attempt question: %w", err)
	}
	return &question, nil
}

func (r *AttemptQuestionPostgreSQL) ContainsQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (bool, error) {
	db := r.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.AttemptQuestion{}).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check attempt question membership: %w", err)
	}
	return count > 0, nil
}

func (r *AttemptQuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/realprep/exam-service/internal/models"
	"github.com/realprep/exam-service/internal/repositories"
	"gorm.io/gorm"
)

type ImportJobPostgreSQL struct {
	db *gorm.DB
}

func NewImportJobPostgreSQL(db *gorm.DB) repositories.ImportJobRepository {
	return &ImportJobPostgreSQL{db: db}
}

func (r *ImportJobPostgreSQL) Create(ctx context.Context, tx *gorm.DB, job *models.ImportJob) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}
	return nil
}

func (r *ImportJobPostgreSQL) Update(ctx context.Context, tx *gorm.DB, job *models.ImportJob) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("failed to update import job: %w", err)
	}
	return nil
}

func (r *ImportJobPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.ImportJob, error) {
	db := r.getDB(tx)
	var job models.ImportJob
	if err := db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("import job %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}
	return &job, nil
}

func (r *ImportJobPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

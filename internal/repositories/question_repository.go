package repositories

import (
	"context"

	"github.com/realprep/exam-service/internal/models"
	"gorm.io/gorm"
)

// QuestionRepository covers CRUD plus the read-only question-bank surface the
// attempt assembler draws from: stratum population counts and uniform random
// ID samples. All methods accept an optional tx; nil means the repository's
// own connection.
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByIDWithChoices(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByIDsWithChoices(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error)
	List(ctx context.Context, tx *gorm.DB, filters QuestionFilters) ([]*models.Question, int64, error)

	// Bank surface for attempt assembly
	CountByTopic(ctx context.Context, tx *gorm.DB, filters BankFilters) ([]TopicCount, error)
	CountByTopicSubtopic(ctx context.Context, tx *gorm.DB, filters BankFilters) ([]StratumCount, error)

	// SampleIDsForBucket draws up to limit distinct question IDs uniformly at
	// random from one exact (topic, subtopic) bucket; a nil subtopic matches
	// only questions without one.
	SampleIDsForBucket(ctx context.Context, tx *gorm.DB, filters BankFilters, topic string, subtopic *string, limit int) ([]uint, error)

	// SampleIDsExcluding draws up to limit distinct IDs from the whole
	// filtered bank, skipping the exclusion set.
	SampleIDsExcluding(ctx context.Context, tx *gorm.DB, filters BankFilters, exclude []uint, limit int) ([]uint, error)

	// Metadata for denormalization and scoring
	GetMetaByIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]QuestionMeta, error)
	CorrectLabelsByIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]string, error)

	ListTopics(ctx context.Context, tx *gorm.DB, filters BankFilters) ([]string, error)
}

// ImportJobRepository tracks spreadsheet import runs.
type ImportJobRepository interface {
	Create(ctx context.Context, tx *gorm.DB, job *models.ImportJob) error
	Update(ctx context.Context, tx *gorm.DB, job *models.ImportJob) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.ImportJob, error)
}

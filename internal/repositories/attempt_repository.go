package repositories

import (
	"context"
	"time"

	"github.com/realprep/exam-service/internal/models"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error)

	// GetByIDForUpdate reads the attempt under a row lock held until the
	// surrounding transaction ends. Writers that must not interleave with
	// a submit (and the submit itself) read through this, so answer
	// recording and score freezing serialize on the attempt row.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error)

	ListByUser(ctx context.Context, tx *gorm.DB, userID uint, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)

	// MarkSubmitted freezes submitted_at/score_percent/passed in a single
	// guarded update. It reports false when the attempt was already
	// submitted (compare-and-set on submitted_at IS NULL), so a racing
	// second submit can never overwrite the frozen score.
	MarkSubmitted(ctx context.Context, tx *gorm.DB, attemptID uint, submittedAt time.Time, scorePercent int, passed bool) (bool, error)
}

type AttemptQuestionRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.AttemptQuestion) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AttemptQuestion, error)
	GetByAttemptPosition(ctx context.Context, tx *gorm.DB, attemptID uint, position int) (*models.AttemptQuestion, error)
	ContainsQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (bool, error)
}

type AnswerRepository interface {
	// Upsert inserts or overwrites the single answer row for one
	// (attempt, question) pair.
	Upsert(ctx context.Context, tx *gorm.DB, answer *models.ExamAnswer) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.ExamAnswer, error)
	GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.ExamAnswer, error)
}

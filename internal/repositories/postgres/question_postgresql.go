package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/realprep/exam-service/internal/cache"
	"github.com/realprep/exam-service/internal/models"
	"github.com/realprep/exam-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db        *gorm.DB
	helpers   *SharedHelpers
	bankCache *cache.Cache
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:        db,
		helpers:   NewSharedHelpers(db),
		bankCache: cache.New(redisClient, "bank"),
	}
}

// ===== BASIC CRUD OPERATIONS =====

func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	q.bankCache.InvalidatePattern(ctx, "*")
	return nil
}

func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	db := q.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(questions, 100).Error; err != nil {
		return fmt.Errorf("failed to create questions batch: %w", err)
	}

	q.bankCache.InvalidatePattern(ctx, "*")
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("question %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) GetByIDWithChoices(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).
		Preload("Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("label ASC")
		}).
		First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("question %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get question with choices: %w", err)
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) GetByIDsWithChoices(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return []*models.Question{}, nil
	}

	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Preload("Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("label ASC")
		}).
		Where("id IN ?", ids).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions by IDs: %w", err)
	}

	return questions, nil
}

func (q *QuestionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	db := q.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Question{})
	query = q.helpers.ApplyBankFilters(query, filters.BankFilters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	query = q.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var questions []*models.Question
	if err := query.Preload("Choices").Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	return questions, total, nil
}

// ===== BANK SURFACE =====

// CountByTopic returns per-topic population counts for the filtered bank.
// Questions without a topic are excluded; they never participate in
// stratified allocation.
func (q *QuestionPostgreSQL) CountByTopic(ctx context.Context, tx *gorm.DB, filters repositories.BankFilters) ([]repositories.TopicCount, error) {
	// Counts inside a transaction must see the transaction's view, so only
	// the non-tx path consults the cache.
	if tx != nil {
		return q.countByTopic(ctx, tx, filters)
	}

	var counts []repositories.TopicCount
	key := cache.BankKey("topics", filters.ExamName, filters.Topics)
	err := q.bankCache.GetOrCompute(ctx, key, &counts, cache.BankCountTTL, func() (interface{}, error) {
		return q.countByTopic(ctx, q.db, filters)
	})
	return counts, err
}

func (q *QuestionPostgreSQL) countByTopic(ctx context.Context, db *gorm.DB, filters repositories.BankFilters) ([]repositories.TopicCount, error) {
	query := db.WithContext(ctx).
		Model(&models.Question{}).
		Select("topic, COUNT(*) as count").
		Where("topic IS NOT NULL")
	query = q.helpers.ApplyBankFilters(query, filters)

	var counts []repositories.TopicCount
	if err := query.Group("topic").Order("count DESC, topic ASC").Find(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count questions by topic: %w", err)
	}
	return counts, nil
}

// CountByTopicSubtopic returns per-(topic, subtopic) bucket populations.
// NULL subtopics form their own bucket within each topic.
func (q *QuestionPostgreSQL) CountByTopicSubtopic(ctx context.Context, tx *gorm.DB, filters repositories.BankFilters) ([]repositories.StratumCount, error) {
	db := q.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.Question{}).
		Select("topic, subtopic, COUNT(*) as count").
		Where("topic IS NOT NULL")
	query = q.helpers.ApplyBankFilters(query, filters)

	var rows []struct {
		Topic    string
		Subtopic sql.NullString
		Count    int
	}
	if err := query.Group("topic, subtopic").Order("count DESC, topic ASC, subtopic ASC NULLS FIRST").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count questions by topic and subtopic: %w", err)
	}

	counts := make([]repositories.StratumCount, len(rows))
	for i, row := range rows {
		counts[i] = repositories.StratumCount{Topic: row.Topic, Subtopic: row.Subtopic, Count: row.Count}
	}
	return counts, nil
}

func (q *QuestionPostgreSQL) SampleIDsForBucket(ctx context.Context, tx *gorm.DB, filters repositories.BankFilters, topic string, subtopic *string, limit int) ([]uint, error) {
	if limit <= 0 {
		return []uint{}, nil
	}

	db := q.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("topic = ?", topic)
	if subtopic != nil {
		query = query.Where("subtopic = ?", *subtopic)
	} else {
		query = query.Where("subtopic IS NULL")
	}
	if filters.ExamName != nil {
		query = query.Where("exam_name = ?", *filters.ExamName)
	}

	var ids []uint
	if err := query.Order("RANDOM()").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to sample questions for bucket: %w", err)
	}
	return ids, nil
}

func (q *QuestionPostgreSQL) SampleIDsExcluding(ctx context.Context, tx *gorm.DB, filters repositories.BankFilters, exclude []uint, limit int) ([]uint, error) {
	if limit <= 0 {
		return []uint{}, nil
	}

	db := q.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Question{})
	query = q.helpers.ApplyBankFilters(query, filters)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}

	var ids []uint
	if err := query.Order("RANDOM()").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to sample filler questions: %w", err)
	}
	return ids, nil
}

// ===== METADATA =====

func (q *QuestionPostgreSQL) GetMetaByIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]repositories.QuestionMeta, error) {
	meta := make(map[uint]repositories.QuestionMeta, len(ids))
	if len(ids) == 0 {
		return meta, nil
	}

	db := q.getDB(tx)
	var rows []struct {
		ID       uint
		Topic    *string
		Subtopic *string
	}
	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Select("id, topic, subtopic").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get question metadata: %w", err)
	}

	for _, row := range rows {
		meta[row.ID] = repositories.QuestionMeta{Topic: row.Topic, Subtopic: row.Subtopic}
	}
	return meta, nil
}

func (q *QuestionPostgreSQL) CorrectLabelsByIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]string, error) {
	labels := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return labels, nil
	}

	db := q.getDB(tx)
	var rows []struct {
		QuestionID uint
		Label      string
	}
	if err := db.WithContext(ctx).
		Model(&models.Choice{}).
		Select("question_id, label").
		Where("question_id IN ? AND is_correct = ?", ids, true).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get correct labels: %w", err)
	}

	for _, row := range rows {
		labels[row.QuestionID] = row.Label
	}
	return labels, nil
}

func (q *QuestionPostgreSQL) ListTopics(ctx context.Context, tx *gorm.DB, filters repositories.BankFilters) ([]string, error) {
	db := q.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("topic IS NOT NULL").
		Distinct("topic").
		Order("topic ASC")
	if filters.ExamName != nil {
		query = query.Where("exam_name = ?", *filters.ExamName)
	}

	var topics []string
	if err := query.Pluck("topic", &topics).Error; err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return topics, nil
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

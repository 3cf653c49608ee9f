package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/realprep/exam-service/internal/models"
	"github.com/realprep/exam-service/internal/repositories"
	"gorm.io/gorm"
)

// fakeRepository is an in-memory Repository for service tests. It mirrors the
// ordering guarantees of the SQL implementation (count-descending stratum
// counts, position-ordered attempt questions) but draws samples in ID order
// instead of randomly, so assembly outcomes are fully deterministic.
type fakeRepository struct {
	mu sync.Mutex

	questions     map[uint]*models.Question
	questionIDs   []uint
	nextQuestion  uint
	attempts      map[uint]*models.ExamAttempt
	nextAttempt   uint
	attemptQs     []*models.AttemptQuestion
	answers       []*models.ExamAnswer
	nextAnswer    uint
	users         map[uint]*models.User
	usersByEmail  map[string]*models.User
	nextUser      uint
	importJobs    map[string]*models.ImportJob

	// beforeAttemptLock, when set, runs once before the next locked
	// attempt read returns. It stands in for a competing transaction
	// that commits while this one waits on the attempt row lock.
	beforeAttemptLock func()
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		questions:    make(map[uint]*models.Question),
		attempts:     make(map[uint]*models.ExamAttempt),
		users:        make(map[uint]*models.User),
		usersByEmail: make(map[string]*models.User),
		importJobs:   make(map[string]*models.ImportJob),
	}
}

// addQuestion seeds one question with four choices, the given label correct.
func (f *fakeRepository) addQuestion(topic, subtopic, correctLabel string) *models.Question {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextQuestion++
	q := &models.Question{
		ID:   f.nextQuestion,
		Text: fmt.Sprintf("Question %d", f.nextQuestion),
	}
	if topic != "" {
		t := topic
		q.Topic = &t
	}
	if subtopic != "" {
		s := subtopic
		q.Subtopic = &s
	}
	for _, label := range models.ChoiceLabels {
		q.Choices = append(q.Choices, models.Choice{
			QuestionID: q.ID,
			Label:      label,
			Text:       "Choice " + label,
			IsCorrect:  label == correctLabel,
		})
	}

	f.questions[q.ID] = q
	f.questionIDs = append(f.questionIDs, q.ID)
	return q
}

func (f *fakeRepository) Question() repositories.QuestionRepository               { return &fakeQuestions{f} }
func (f *fakeRepository) Attempt() repositories.AttemptRepository                 { return &fakeAttempts{f} }
func (f *fakeRepository) AttemptQuestion() repositories.AttemptQuestionRepository { return &fakeAttemptQs{f} }
func (f *fakeRepository) Answer() repositories.AnswerRepository                   { return &fakeAnswers{f} }
func (f *fakeRepository) User() repositories.UserRepository                       { return &fakeUsers{f} }
func (f *fakeRepository) ImportJob() repositories.ImportJobRepository             { return &fakeImportJobs{f} }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}

func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// ===== QUESTIONS =====

type fakeQuestions struct{ f *fakeRepository }

func (r *fakeQuestions) matches(q *models.Question, filters repositories.BankFilters) bool {
	if filters.ExamName != nil {
		if q.ExamName == nil || *q.ExamName != *filters.ExamName {
			return false
		}
	}
	if len(filters.Topics) > 0 {
		if q.Topic == nil {
			return false
		}
		found := false
		for _, t := range filters.Topics {
			if t == *q.Topic {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *fakeQuestions) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.nextQuestion++
	question.ID = r.f.nextQuestion
	for i := range question.Choices {
		question.Choices[i].QuestionID = question.ID
	}
	r.f.questions[question.ID] = question
	r.f.questionIDs = append(r.f.questionIDs, question.ID)
	return nil
}

func (r *fakeQuestions) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	for _, q := range questions {
		if err := r.Create(ctx, tx, q); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeQuestions) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	return r.GetByIDWithChoices(ctx, tx, id)
}

func (r *fakeQuestions) GetByIDWithChoices(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	q, ok := r.f.questions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return q, nil
}

func (r *fakeQuestions) GetByIDsWithChoices(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Question
	for _, id := range ids {
		if q, ok := r.f.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *fakeQuestions) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Question
	for _, id := range r.f.questionIDs {
		q := r.f.questions[id]
		if r.matches(q, filters.BankFilters) {
			out = append(out, q)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeQuestions) CountByTopic(ctx context.Context, tx *gorm.DB, filters repositories.BankFilters) ([]repositories.TopicCount, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	byTopic := make(map[string]int)
	for _, id := range r.f.questionIDs {
		q := r.f.questions[id]
		if !r.matches(q, filters) {
			continue
		}
		topic := ""
		if q.Topic != nil {
			topic = *q.Topic
		}
		byTopic[topic]++
	}

	out := make([]repositories.TopicCount, 0, len(byTopic))
	for topic, count := range byTopic {
		out = append(out, repositories.TopicCount{Topic: topic, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Topic < out[j].Topic
	})
	return out, nil
}

func (r *fakeQuestions) CountByTopicSubtopic(ctx context.Context, tx *gorm.DB, filters repositories.BankFilters) ([]repositories.StratumCount, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	type key struct {
		topic    string
		subtopic string
		hasSub   bool
	}
	byStratum := make(map[key]int)
	for _, id := range r.f.questionIDs {
		q := r.f.questions[id]
		if !r.matches(q, filters) {
			continue
		}
		k := key{}
		if q.Topic != nil {
			k.topic = *q.Topic
		}
		if q.Subtopic != nil {
			k.subtopic = *q.Subtopic
			k.hasSub = true
		}
		byStratum[k]++
	}

	out := make([]repositories.StratumCount, 0, len(byStratum))
	for k, count := range byStratum {
		out = append(out, repositories.StratumCount{
			Topic:    k.topic,
			Subtopic: sql.NullString{String: k.subtopic, Valid: k.hasSub},
			Count:    count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Topic != out[j].Topic {
			return out[i].Topic < out[j].Topic
		}
		if out[i].Subtopic.Valid != out[j].Subtopic.Valid {
			return !out[i].Subtopic.Valid
		}
		return out[i].Subtopic.String < out[j].Subtopic.String
	})
	return out, nil
}

func (r *fakeQuestions) SampleIDsForBucket(ctx context.Context, tx *gorm.DB, filters repositories.BankFilters, topic string, subtopic *string, limit int) ([]uint, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var out []uint
	for _, id := range r.f.questionIDs {
		if len(out) >= limit {
			break
		}
		q := r.f.questions[id]
		if !r.matches(q, filters) {
			continue
		}
		qTopic := ""
		if q.Topic != nil {
			qTopic = *q.Topic
		}
		if qTopic != topic {
			continue
		}
		if (subtopic == nil) != (q.Subtopic == nil) {
			continue
		}
		if subtopic != nil && *subtopic != *q.Subtopic {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (r *fakeQuestions) SampleIDsExcluding(ctx context.Context, tx *gorm.DB, filters repositories.BankFilters, exclude []uint, limit int) ([]uint, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	excluded := make(map[uint]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var out []uint
	for _, id := range r.f.questionIDs {
		if len(out) >= limit {
			break
		}
		if excluded[id] {
			continue
		}
		if r.matches(r.f.questions[id], filters) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *fakeQuestions) GetMetaByIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]repositories.QuestionMeta, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	out := make(map[uint]repositories.QuestionMeta, len(ids))
	for _, id := range ids {
		if q, ok := r.f.questions[id]; ok {
			out[id] = repositories.QuestionMeta{Topic: q.Topic, Subtopic: q.Subtopic}
		}
	}
	return out, nil
}

func (r *fakeQuestions) CorrectLabelsByIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]string, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	out := make(map[uint]string, len(ids))
	for _, id := range ids {
		if q, ok := r.f.questions[id]; ok {
			if label := q.CorrectLabel(); label != "" {
				out[id] = label
			}
		}
	}
	return out, nil
}

func (r *fakeQuestions) ListTopics(ctx context.Context, tx *gorm.DB, filters repositories.BankFilters) ([]string, error) {
	counts, err := r.CountByTopic(ctx, tx, filters)
	if err != nil {
		return nil, err
	}
	topics := make([]string, 0, len(counts))
	for _, c := range counts {
		if c.Topic != "" {
			topics = append(topics, c.Topic)
		}
	}
	sort.Strings(topics)
	return topics, nil
}

// ===== ATTEMPTS =====

type fakeAttempts struct{ f *fakeRepository }

func (r *fakeAttempts) Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.nextAttempt++
	attempt.ID = r.f.nextAttempt
	r.f.attempts[attempt.ID] = attempt
	return nil
}

func (r *fakeAttempts) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	attempt, ok := r.f.attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (r *fakeAttempts) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error) {
	if r.f.beforeAttemptLock != nil {
		hook := r.f.beforeAttemptLock
		r.f.beforeAttemptLock = nil
		hook()
	}
	return r.GetByID(ctx, tx, id)
}

func (r *fakeAttempts) ListByUser(ctx context.Context, tx *gorm.DB, userID uint, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.ExamAttempt
	for _, a := range r.f.attempts {
		if a.UserID != userID {
			continue
		}
		if filters.Mode != nil && a.Mode != *filters.Mode {
			continue
		}
		if filters.Submitted != nil && a.IsSubmitted() != *filters.Submitted {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, int64(len(out)), nil
}

func (r *fakeAttempts) MarkSubmitted(ctx context.Context, tx *gorm.DB, attemptID uint, submittedAt time.Time, scorePercent int, passed bool) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	attempt, ok := r.f.attempts[attemptID]
	if !ok || attempt.SubmittedAt != nil {
		return false, nil
	}
	attempt.SubmittedAt = &submittedAt
	attempt.ScorePercent = &scorePercent
	attempt.Passed = &passed
	return true, nil
}

// ===== ATTEMPT QUESTIONS =====

type fakeAttemptQs struct{ f *fakeRepository }

func (r *fakeAttemptQs) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.AttemptQuestion) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.attemptQs = append(r.f.attemptQs, questions...)
	return nil
}

func (r *fakeAttemptQs) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AttemptQuestion, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.AttemptQuestion
	for _, aq := range r.f.attemptQs {
		if aq.AttemptID == attemptID {
			out = append(out, aq)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeAttemptQs) GetByAttemptPosition(ctx context.Context, tx *gorm.DB, attemptID uint, position int) (*models.AttemptQuestion, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, aq := range r.f.attemptQs {
		if aq.AttemptID == attemptID && aq.Position == position {
			return aq, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeAttemptQs) ContainsQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, aq := range r.f.attemptQs {
		if aq.AttemptID == attemptID && aq.QuestionID == questionID {
			return true, nil
		}
	}
	return false, nil
}

// ===== ANSWERS =====

type fakeAnswers struct{ f *fakeRepository }

func (r *fakeAnswers) Upsert(ctx context.Context, tx *gorm.DB, answer *models.ExamAnswer) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, existing := range r.f.answers {
		if existing.AttemptID == answer.AttemptID && existing.QuestionID == answer.QuestionID {
			existing.SelectedLabel = answer.SelectedLabel
			existing.AnsweredAt = answer.AnsweredAt
			return nil
		}
	}
	r.f.nextAnswer++
	answer.ID = r.f.nextAnswer
	r.f.answers = append(r.f.answers, answer)
	return nil
}

func (r *fakeAnswers) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.ExamAnswer, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.ExamAnswer
	for _, a := range r.f.answers {
		if a.AttemptID == attemptID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAnswers) GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.ExamAnswer, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, a := range r.f.answers {
		if a.AttemptID == attemptID && a.QuestionID == questionID {
			return a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// ===== USERS =====

type fakeUsers struct{ f *fakeRepository }

func (r *fakeUsers) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.nextUser++
	user.ID = r.f.nextUser
	r.f.users[user.ID] = user
	r.f.usersByEmail[user.Email] = user
	return nil
}

func (r *fakeUsers) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	user, ok := r.f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return user, nil
}

func (r *fakeUsers) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	user, ok := r.f.usersByEmail[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return user, nil
}

// ===== IMPORT JOBS =====

type fakeImportJobs struct{ f *fakeRepository }

func (r *fakeImportJobs) Create(ctx context.Context, tx *gorm.DB, job *models.ImportJob) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.importJobs[job.ID] = job
	return nil
}

func (r *fakeImportJobs) Update(ctx context.Context, tx *gorm.DB, job *models.ImportJob) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.importJobs[job.ID] = job
	return nil
}

func (r *fakeImportJobs) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.ImportJob, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	job, ok := r.f.importJobs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return job, nil
}

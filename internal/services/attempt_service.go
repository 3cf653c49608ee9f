package services

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/realprep/exam-service/internal/events"
	"github.com/realprep/exam-service/internal/models"
	"github.com/realprep/exam-service/internal/repositories"
	"github.com/realprep/exam-service/internal/validator"
)

// attemptService owns attempt assembly and the attempt lifecycle.
//
// The random source is injected so tests can seed it; it is guarded by a
// mutex because *rand.Rand is not safe for concurrent use. The clock is
// injected for the same reason, expiry tests need a controllable now.
type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher

	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
}

func NewAttemptService(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	publisher events.EventPublisher,
	rng *rand.Rand,
) AttemptService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: v,
		publisher: publisher,
		rng:       rng,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ===== START / ASSEMBLY =====

func (s *attemptService) Start(ctx context.Context, userID uint, req StartAttemptRequest) (*AttemptResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	mode, ok := models.ParseAttemptMode(req.Mode)
	if !ok {
		return nil, ErrInvalidAttemptMode
	}

	questionCount := req.QuestionCount
	if questionCount == 0 {
		questionCount = models.DefaultQuestionCount
	}
	if questionCount < 1 || questionCount > models.MaxQuestionCount {
		return nil, ErrInvalidQuestionCount
	}

	// Timed attempts always carry a limit; practice attempts never do,
	// whatever the caller sent.
	timeLimit := req.TimeLimitSeconds
	if mode == models.ModeTimed && timeLimit == nil {
		def := models.DefaultTimedSeconds
		timeLimit = &def
	}
	if mode == models.ModePractice {
		timeLimit = nil
	}

	filters := repositories.BankFilters{
		ExamName: req.ExamName,
		Topics:   cleanTopics(req.Topics),
	}

	var attempt *models.ExamAttempt
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		ids, err := s.assembleQuestionIDs(ctx, txRepo, filters, questionCount)
		if err != nil {
			return err
		}

		attempt = &models.ExamAttempt{
			UserID:           userID,
			Mode:             mode,
			ExamName:         req.ExamName,
			QuestionCount:    questionCount,
			TimeLimitSeconds: timeLimit,
			StartedAt:        s.now(),
		}
		if err := txRepo.Attempt().Create(ctx, nil, attempt); err != nil {
			return err
		}

		return s.lockQuestions(ctx, txRepo, attempt.ID, ids)
	})
	if err != nil {
		s.logger.Error("Failed to start attempt",
			"user_id", userID,
			"mode", mode,
			"question_count", questionCount,
			"error", err)
		return nil, err
	}

	s.logger.Info("Attempt started",
		"attempt_id", attempt.ID,
		"user_id", userID,
		"mode", mode,
		"question_count", questionCount)

	s.publish(ctx, events.NewAttemptStartedEvent(
		attempt.ID, userID, string(mode), attempt.ExamName,
		questionCount, timeLimit, attempt.StartedAt))

	return attemptToResponse(attempt), nil
}

// assembleQuestionIDs produces exactly count distinct question IDs, balanced
// across (topic, subtopic) strata in proportion to bank population.
func (s *attemptService) assembleQuestionIDs(ctx context.Context, repo repositories.Repository, filters repositories.BankFilters, count int) ([]uint, error) {
	topicCounts, err := repo.Question().CountByTopic(ctx, nil, filters)
	if err != nil {
		return nil, err
	}
	if len(topicCounts) == 0 {
		return nil, ErrEmptyQuestionBank
	}

	topicQuotas := AllocateTopicQuotas(topicCounts, count)

	stratumCounts, err := repo.Question().CountByTopicSubtopic(ctx, nil, filters)
	if err != nil {
		return nil, err
	}
	bucketQuotas := AllocateBucketQuotas(stratumCounts, topicQuotas)

	var picked []uint
	for _, bucket := range bucketQuotas {
		ids, err := repo.Question().SampleIDsForBucket(ctx, nil, filters, bucket.Topic, bucket.Subtopic, bucket.Quota)
		if err != nil {
			return nil, err
		}
		picked = append(picked, ids...)
	}

	picked = dedupeStable(picked)

	if len(picked) < count {
		filler, err := repo.Question().SampleIDsExcluding(ctx, nil, filters, picked, count-len(picked))
		if err != nil {
			return nil, err
		}
		picked = append(picked, filler...)
	}

	if len(picked) > count {
		s.shuffle(picked)
		picked = picked[:count]
	}

	if len(picked) != count {
		return nil, NewAssemblyError(count, len(picked))
	}

	return picked, nil
}

// lockQuestions persists the attempt's question set in a fresh shuffled
// order with contiguous 1-based positions. The shuffle here is independent
// of the bucket draws, so serving order carries no trace of stratum
// boundaries.
func (s *attemptService) lockQuestions(ctx context.Context, repo repositories.Repository, attemptID uint, ids []uint) error {
	meta, err := repo.Question().GetMetaByIDs(ctx, nil, ids)
	if err != nil {
		return err
	}

	s.shuffle(ids)

	rows := make([]*models.AttemptQuestion, len(ids))
	for i, qid := range ids {
		m := meta[qid]
		rows[i] = &models.AttemptQuestion{
			AttemptID:  attemptID,
			QuestionID: qid,
			Position:   i + 1,
			Topic:      m.Topic,
			Subtopic:   m.Subtopic,
		}
	}

	return repo.AttemptQuestion().CreateBatch(ctx, nil, rows)
}

// ===== LIFECYCLE =====

func (s *attemptService) Get(ctx context.Context, userID, attemptID uint) (*AttemptResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	return attemptToResponse(attempt), nil
}

func (s *attemptService) GetQuestion(ctx context.Context, userID, attemptID uint, position int) (*AttemptQuestionResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotExpired(attempt); err != nil {
		return nil, err
	}

	aq, err := s.repo.AttemptQuestion().GetByAttemptPosition(ctx, nil, attemptID, position)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPositionNotInAttempt
		}
		return nil, err
	}

	question, err := s.repo.Question().GetByIDWithChoices(ctx, nil, aq.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	var selected *string
	answer, err := s.repo.Answer().GetByAttemptAndQuestion(ctx, nil, attemptID, aq.QuestionID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, err
	}
	if answer != nil {
		selected = answer.SelectedLabel
	}

	// Practice mode shows explanations immediately; timed mode only after
	// submission.
	var explanation *string
	if attempt.Mode == models.ModePractice || attempt.IsSubmitted() {
		explanation = question.Explanation
	}

	return &AttemptQuestionResponse{
		AttemptID:     attemptID,
		Position:      position,
		QuestionID:    question.ID,
		Text:          question.Text,
		Topic:         aq.Topic,
		Subtopic:      aq.Subtopic,
		Choices:       choicesToResponse(question.Choices),
		Explanation:   explanation,
		SelectedLabel: selected,
	}, nil
}

func (s *attemptService) RecordAnswer(ctx context.Context, userID, attemptID uint, req RecordAnswerRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if !models.IsValidChoiceLabel(req.SelectedLabel) {
		return ErrInvalidChoiceLabel
	}

	// The locked read holds the attempt row for the whole transaction, so
	// a concurrent submit either commits first (and this read sees the
	// frozen attempt) or waits until the answer lands and gets scored.
	return s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		attempt, err := txRepo.Attempt().GetByIDForUpdate(ctx, nil, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return err
		}
		if attempt.UserID != userID {
			return NewPermissionError(userID, attemptID, "attempt", "access", "attempt belongs to another user")
		}
		if err := s.ensureActive(attempt); err != nil {
			return err
		}
		if err := s.ensureNotExpired(attempt); err != nil {
			return err
		}

		belongs, err := txRepo.AttemptQuestion().ContainsQuestion(ctx, nil, attemptID, req.QuestionID)
		if err != nil {
			return err
		}
		if !belongs {
			return ErrQuestionNotInAttempt
		}

		now := s.now()
		label := req.SelectedLabel
		return txRepo.Answer().Upsert(ctx, nil, &models.ExamAnswer{
			AttemptID:     attemptID,
			QuestionID:    req.QuestionID,
			SelectedLabel: &label,
			AnsweredAt:    &now,
		})
	})
}

func (s *attemptService) Submit(ctx context.Context, userID, attemptID uint) (*SubmitResponse, error) {
	var (
		resp *SubmitResponse
		mode models.AttemptMode
	)
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		// Locking the attempt row before scoring keeps late answer writes
		// out: they block on the same row until the score is frozen.
		attempt, err := txRepo.Attempt().GetByIDForUpdate(ctx, nil, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return err
		}
		if attempt.UserID != userID {
			return NewPermissionError(userID, attemptID, "attempt", "access", "attempt belongs to another user")
		}
		if err := s.ensureActive(attempt); err != nil {
			return err
		}
		mode = attempt.Mode

		score, err := s.scoreAttempt(ctx, txRepo, attemptID)
		if err != nil {
			return err
		}

		submittedAt := s.now()
		updated, err := txRepo.Attempt().MarkSubmitted(ctx, nil, attemptID, submittedAt, score.ScorePercent, score.Passed)
		if err != nil {
			return err
		}
		// The guarded update lost the race against another submit; the
		// first one's frozen score stands.
		if !updated {
			return ErrAttemptAlreadySubmitted
		}

		resp = &SubmitResponse{
			AttemptID:        attemptID,
			ScorePercent:     score.ScorePercent,
			Passed:           score.Passed,
			TotalQuestions:   score.Total,
			Correct:          score.Correct,
			BreakdownByTopic: score.Breakdown,
			SubmittedAt:      submittedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Attempt submitted",
		"attempt_id", attemptID,
		"user_id", userID,
		"score_percent", resp.ScorePercent,
		"passed", resp.Passed)

	s.publish(ctx, events.NewAttemptSubmittedEvent(
		attemptID, userID, string(mode),
		resp.ScorePercent, resp.Passed, resp.SubmittedAt))

	return resp, nil
}

// GetResult recomputes totals and the per-topic breakdown for response
// symmetry with Submit, but the headline numbers come from the frozen
// attempt row, never from the recomputation.
func (s *attemptService) GetResult(ctx context.Context, userID, attemptID uint) (*SubmitResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.IsSubmitted() {
		return nil, ErrAttemptNotSubmitted
	}

	score, err := s.scoreAttempt(ctx, s.repo, attemptID)
	if err != nil {
		return nil, err
	}

	resp := &SubmitResponse{
		AttemptID:        attemptID,
		TotalQuestions:   score.Total,
		Correct:          score.Correct,
		BreakdownByTopic: score.Breakdown,
		SubmittedAt:      *attempt.SubmittedAt,
	}
	if attempt.ScorePercent != nil {
		resp.ScorePercent = *attempt.ScorePercent
	}
	if attempt.Passed != nil {
		resp.Passed = *attempt.Passed
	}
	return resp, nil
}

func (s *attemptService) Review(ctx context.Context, userID, attemptID uint) ([]ReviewItemResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}

	// Practice mode can review anytime; timed mode only after submission.
	if attempt.Mode == models.ModeTimed && !attempt.IsSubmitted() {
		return nil, ErrReviewNotAvailable
	}

	aqs, err := s.repo.AttemptQuestion().GetByAttempt(ctx, nil, attemptID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(aqs))
	for i, aq := range aqs {
		ids[i] = aq.QuestionID
	}

	questions, err := s.repo.Question().GetByIDsWithChoices(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	questionByID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		questionByID[q.ID] = q
	}

	correctByID, err := s.repo.Question().CorrectLabelsByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}

	answers, err := s.repo.Answer().GetByAttempt(ctx, nil, attemptID)
	if err != nil {
		return nil, err
	}
	selectedByID := make(map[uint]*string, len(answers))
	for _, a := range answers {
		selectedByID[a.QuestionID] = a.SelectedLabel
	}

	items := make([]ReviewItemResponse, 0, len(aqs))
	for _, aq := range aqs {
		q, ok := questionByID[aq.QuestionID]
		if !ok {
			// A locked question with no bank row left behind it.
			s.logger.Warn("Locked question missing from bank",
				"attempt_id", attemptID,
				"question_id", aq.QuestionID,
				"position", aq.Position)
			continue
		}

		var correct *string
		if label, ok := correctByID[q.ID]; ok {
			correct = &label
		}

		items = append(items, ReviewItemResponse{
			Position:      aq.Position,
			QuestionID:    q.ID,
			Text:          q.Text,
			Topic:         aq.Topic,
			Subtopic:      aq.Subtopic,
			Choices:       choicesToResponse(q.Choices),
			SelectedLabel: selectedByID[q.ID],
			CorrectLabel:  correct,
			Explanation:   q.Explanation,
		})
	}

	return items, nil
}

func (s *attemptService) ListByUser(ctx context.Context, userID uint, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	attempts, total, err := s.repo.Attempt().ListByUser(ctx, nil, userID, filters)
	if err != nil {
		return nil, err
	}

	out := make([]AttemptResponse, len(attempts))
	for i, a := range attempts {
		out[i] = *attemptToResponse(a)
	}
	return &AttemptListResponse{Attempts: out, Total: total}, nil
}

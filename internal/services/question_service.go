package services

import (
	"context"
	"log/slog"

	"github.com/realprep/exam-service/internal/models"
	"github.com/realprep/exam-service/internal/repositories"
	"github.com/realprep/exam-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		logger:    logger,
		validator: v,
	}
}

func (s *questionService) Create(ctx context.Context, req CreateQuestionRequest) (*QuestionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// The bank contract: exactly one correct choice per question.
	correct := 0
	for _, c := range req.Choices {
		if c.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return nil, NewValidationError("choices", "exactly one choice must be correct", correct)
	}

	question := &models.Question{
		Text:        req.Text,
		Explanation: req.Explanation,
		Topic:       req.Topic,
		Subtopic:    req.Subtopic,
		ExamName:    req.ExamName,
	}
	for _, c := range req.Choices {
		question.Choices = append(question.Choices, models.Choice{
			Label:     c.Label,
			Text:      c.Text,
			IsCorrect: c.IsCorrect,
		})
	}

	if err := s.repo.Question().Create(ctx, nil, question); err != nil {
		s.logger.Error("Failed to create question", "error", err)
		return nil, err
	}

	s.logger.Info("Question created", "question_id", question.ID, "topic", question.Topic)
	return questionToResponse(question), nil
}

func (s *questionService) GetByID(ctx context.Context, id uint) (*QuestionResponse, error) {
	question, err := s.repo.Question().GetByIDWithChoices(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return questionToResponse(question), nil
}

func (s *questionService) List(ctx context.Context, filters repositories.QuestionFilters) (*QuestionListResponse, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 50
	}

	questions, total, err := s.repo.Question().List(ctx, nil, filters)
	if err != nil {
		return nil, err
	}

	out := make([]QuestionResponse, len(questions))
	for i, q := range questions {
		out[i] = *questionToResponse(q)
	}
	return &QuestionListResponse{Questions: out, Total: total}, nil
}

func (s *questionService) ListTopics(ctx context.Context, examName *string) ([]string, error) {
	return s.repo.Question().ListTopics(ctx, nil, repositories.BankFilters{ExamName: examName})
}

func questionToResponse(q *models.Question) *QuestionResponse {
	return &QuestionResponse{
		ID:          q.ID,
		Text:        q.Text,
		Explanation: q.Explanation,
		Topic:       q.Topic,
		Subtopic:    q.Subtopic,
		ExamName:    q.ExamName,
		Choices:     choicesToResponse(q.Choices),
	}
}

package services

import (
	"context"
	"io"
	"time"

	"github.com/realprep/exam-service/internal/models"
	"github.com/realprep/exam-service/internal/repositories"
)

// ===== ATTEMPT DTOS =====

type StartAttemptRequest struct {
	Mode     string  `json:"mode" validate:"required,attempt_mode"`
	ExamName *string `json:"exam_name,omitempty" validate:"omitempty,max=120"`

	// Topics optionally restricts assembly to an allowlist of topics.
	Topics []string `json:"topics,omitempty" validate:"omitempty,dive,min=1,max=150"`

	// Zero means the default count.
	QuestionCount    int  `json:"question_count" validate:"omitempty,min=1,max=300"`
	TimeLimitSeconds *int `json:"time_limit_seconds,omitempty" validate:"omitempty,min=60"`
}

type AttemptResponse struct {
	AttemptID        uint       `json:"attempt_id"`
	Mode             string     `json:"mode"`
	ExamName         *string    `json:"exam_name"`
	QuestionCount    int        `json:"question_count"`
	TimeLimitSeconds *int       `json:"time_limit_seconds"`
	StartedAt        time.Time  `json:"started_at"`
	IsSubmitted      bool       `json:"is_submitted"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	ScorePercent     *int       `json:"score_percent,omitempty"`
	Passed           *bool      `json:"passed,omitempty"`
}

type ChoiceResponse struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type AttemptQuestionResponse struct {
	AttemptID  uint             `json:"attempt_id"`
	Position   int              `json:"position"`
	QuestionID uint             `json:"question_id"`
	Text       string           `json:"text"`
	Topic      *string          `json:"topic"`
	Subtopic   *string          `json:"subtopic"`
	Choices    []ChoiceResponse `json:"choices"`

	// Explanation is withheld on timed attempts until submission.
	Explanation   *string `json:"explanation,omitempty"`
	SelectedLabel *string `json:"selected_label,omitempty"`
}

type RecordAnswerRequest struct {
	QuestionID    uint   `json:"question_id" validate:"required"`
	SelectedLabel string `json:"selected_label" validate:"required,choice_label"`
}

type SubmitResponse struct {
	AttemptID        uint                      `json:"attempt_id"`
	ScorePercent     int                       `json:"score_percent"`
	Passed           bool                      `json:"passed"`
	TotalQuestions   int                       `json:"total_questions"`
	Correct          int                       `json:"correct"`
	BreakdownByTopic map[string]TopicBreakdown `json:"breakdown_by_topic"`
	SubmittedAt      time.Time                 `json:"submitted_at"`
}

type ReviewItemResponse struct {
	Position      int              `json:"position"`
	QuestionID    uint             `json:"question_id"`
	Text          string           `json:"text"`
	Topic         *string          `json:"topic"`
	Subtopic      *string          `json:"subtopic"`
	Choices       []ChoiceResponse `json:"choices"`
	SelectedLabel *string          `json:"selected_label"`
	CorrectLabel  *string          `json:"correct_label"`
	Explanation   *string          `json:"explanation"`
}

type AttemptListResponse struct {
	Attempts []AttemptResponse `json:"attempts"`
	Total    int64             `json:"total"`
}

// ===== QUESTION DTOS =====

type CreateChoiceRequest struct {
	Label     string `json:"label" validate:"required,choice_label"`
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type CreateQuestionRequest struct {
	Text        string                `json:"text" validate:"required"`
	Explanation *string               `json:"explanation,omitempty"`
	Topic       *string               `json:"topic,omitempty" validate:"omitempty,max=150"`
	Subtopic    *string               `json:"subtopic,omitempty" validate:"omitempty,max=200"`
	ExamName    *string               `json:"exam_name,omitempty" validate:"omitempty,max=120"`
	Choices     []CreateChoiceRequest `json:"choices" validate:"required,min=2,max=4,dive"`
}

type QuestionResponse struct {
	ID          uint             `json:"id"`
	Text        string           `json:"text"`
	Explanation *string          `json:"explanation"`
	Topic       *string          `json:"topic"`
	Subtopic    *string          `json:"subtopic"`
	ExamName    *string          `json:"exam_name"`
	Choices     []ChoiceResponse `json:"choices"`
}

type QuestionListResponse struct {
	Questions []QuestionResponse `json:"questions"`
	Total     int64              `json:"total"`
}

// ===== AUTH DTOS =====

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token  string `json:"token"`
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

// ===== IMPORT DTOS =====

type ImportResultResponse struct {
	JobID        string                  `json:"job_id"`
	Status       models.ImportJobStatus  `json:"status"`
	TotalRows    int                     `json:"total_rows"`
	SuccessCount int                     `json:"success_count"`
	ErrorCount   int                     `json:"error_count"`
	Errors       []models.ImportRowError `json:"errors,omitempty"`
}

// ===== SERVICE INTERFACES =====

type AttemptService interface {
	Start(ctx context.Context, userID uint, req StartAttemptRequest) (*AttemptResponse, error)
	Get(ctx context.Context, userID, attemptID uint) (*AttemptResponse, error)
	GetQuestion(ctx context.Context, userID, attemptID uint, position int) (*AttemptQuestionResponse, error)
	RecordAnswer(ctx context.Context, userID, attemptID uint, req RecordAnswerRequest) error
	Submit(ctx context.Context, userID, attemptID uint) (*SubmitResponse, error)
	GetResult(ctx context.Context, userID, attemptID uint) (*SubmitResponse, error)
	Review(ctx context.Context, userID, attemptID uint) ([]ReviewItemResponse, error)
	ListByUser(ctx context.Context, userID uint, filters repositories.AttemptFilters) (*AttemptListResponse, error)
}

type QuestionService interface {
	Create(ctx context.Context, req CreateQuestionRequest) (*QuestionResponse, error)
	GetByID(ctx context.Context, id uint) (*QuestionResponse, error)
	List(ctx context.Context, filters repositories.QuestionFilters) (*QuestionListResponse, error)
	ListTopics(ctx context.Context, examName *string) ([]string, error)
}

type AuthService interface {
	Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)

	// ValidateToken returns the authenticated user's ID for a bearer token.
	ValidateToken(token string) (uint, error)
}

type ImportService interface {
	ImportQuestions(ctx context.Context, filename string, file io.Reader) (*ImportResultResponse, error)
	GetJob(ctx context.Context, jobID string) (*ImportResultResponse, error)
}

package models

import (
	"time"
)

type AttemptMode string

const (
	ModePractice AttemptMode = "practice"
	ModeTimed    AttemptMode = "timed"
)

// ParseAttemptMode converts a raw string into a closed AttemptMode value.
// Anything other than the two known modes is rejected at the boundary so the
// rest of the code never sees a free-form mode string.
func ParseAttemptMode(s string) (AttemptMode, bool) {
	switch AttemptMode(s) {
	case ModePractice, ModeTimed:
		return AttemptMode(s), true
	default:
		return "", false
	}
}

func (m AttemptMode) Valid() bool {
	return m == ModePractice || m == ModeTimed
}

const (
	DefaultQuestionCount = 150
	MaxQuestionCount     = 300

	// DefaultTimedSeconds applies to timed attempts started without an
	// explicit limit.
	DefaultTimedSeconds = 150 * 60

	PassingPercent = 70
)

type ExamAttempt struct {
	ID     uint        `json:"id" gorm:"primaryKey"`
	UserID uint        `json:"user_id" gorm:"not null;index"`
	Mode   AttemptMode `json:"mode" gorm:"not null;size:20"`

	ExamName      *string `json:"exam_name" gorm:"size:120"`
	QuestionCount int     `json:"question_count" gorm:"not null;default:150"`

	// Timed mode uses this; practice is always NULL.
	TimeLimitSeconds *int `json:"time_limit_seconds"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	SubmittedAt *time.Time `json:"submitted_at"`

	// Frozen at submit time, never recomputed afterwards.
	ScorePercent *int  `json:"score_percent"`
	Passed       *bool `json:"passed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []AttemptQuestion `json:"questions,omitempty" gorm:"foreignKey:AttemptID"`
	Answers   []ExamAnswer      `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
	User      User              `json:"-" gorm:"foreignKey:UserID"`
}

func (a *ExamAttempt) IsSubmitted() bool {
	return a.SubmittedAt != nil
}

// AttemptQuestion locks the randomized, balanced question set at attempt
// start. Positions are 1-based and contiguous within one attempt.
type AttemptQuestion struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;index;uniqueIndex:uq_attempt_position;uniqueIndex:uq_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:uq_attempt_question"`

	Position int `json:"position" gorm:"not null;uniqueIndex:uq_attempt_position"`

	// Denormalized at lock time for fast score breakdown.
	Topic    *string `json:"topic" gorm:"size:150"`
	Subtopic *string `json:"subtopic" gorm:"size:200"`

	Attempt  ExamAttempt `json:"-" gorm:"foreignKey:AttemptID"`
	Question Question    `json:"-" gorm:"foreignKey:QuestionID"`
}

type ExamAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;index;uniqueIndex:uq_answer_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:uq_answer_attempt_question"`

	SelectedLabel *string    `json:"selected_label" gorm:"size:5"`
	AnsweredAt    *time.Time `json:"answered_at"`

	Attempt  ExamAttempt `json:"-" gorm:"foreignKey:AttemptID"`
	Question Question    `json:"-" gorm:"foreignKey:QuestionID"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

func (AttemptQuestion) TableName() string {
	return "exam_attempt_questions"
}

func (ExamAnswer) TableName() string {
	return "exam_answers"
}

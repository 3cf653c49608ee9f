package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of lifecycle events
type EventType string

const (
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventImportCompleted  EventType = "import.completed"
)

// LifecycleEvent is the base event structure for all published events
type LifecycleEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Data      interface{} `json:"data"`
}

// Event payloads

type AttemptStartedEvent struct {
	AttemptID        uint      `json:"attempt_id"`
	UserID           uint      `json:"user_id"`
	Mode             string    `json:"mode"`
	ExamName         *string   `json:"exam_name,omitempty"`
	QuestionCount    int       `json:"question_count"`
	TimeLimitSeconds *int      `json:"time_limit_seconds,omitempty"`
	StartedAt        time.Time `json:"started_at"`
}

type AttemptSubmittedEvent struct {
	AttemptID    uint      `json:"attempt_id"`
	UserID       uint      `json:"user_id"`
	Mode         string    `json:"mode"`
	ScorePercent int       `json:"score_percent"`
	Passed       bool      `json:"passed"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type ImportCompletedEvent struct {
	JobID        string `json:"job_id"`
	Filename     string `json:"filename"`
	TotalRows    int    `json:"total_rows"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
}

// Event factory functions

func NewAttemptStartedEvent(attemptID, userID uint, mode string, examName *string, questionCount int, timeLimitSeconds *int, startedAt time.Time) *LifecycleEvent {
	return &LifecycleEvent{
		ID:        uuid.NewString(),
		Type:      EventAttemptStarted,
		Timestamp: time.Now().UTC(),
		Source:    "exam-service",
		Version:   "1.0",
		Data: AttemptStartedEvent{
			AttemptID:        attemptID,
			UserID:           userID,
			Mode:             mode,
			ExamName:         examName,
			QuestionCount:    questionCount,
			TimeLimitSeconds: timeLimitSeconds,
			StartedAt:        startedAt,
		},
	}
}

func NewAttemptSubmittedEvent(attemptID, userID uint, mode string, scorePercent int, passed bool, submittedAt time.Time) *LifecycleEvent {
	return &LifecycleEvent{
		ID:        uuid.NewString(),
		Type:      EventAttemptSubmitted,
		Timestamp: time.Now().UTC(),
		Source:    "exam-service",
		Version:   "1.0",
		Data: AttemptSubmittedEvent{
			AttemptID:    attemptID,
			UserID:       userID,
			Mode:         mode,
			ScorePercent: scorePercent,
			Passed:       passed,
			SubmittedAt:  submittedAt,
		},
	}
}

func NewImportCompletedEvent(jobID, filename string, totalRows, successCount, errorCount int) *LifecycleEvent {
	return &LifecycleEvent{
		ID:        uuid.NewString(),
		Type:      EventImportCompleted,
		Timestamp: time.Now().UTC(),
		Source:    "exam-service",
		Version:   "1.0",
		Data: ImportCompletedEvent{
			JobID:        jobID,
			Filename:     filename,
			TotalRows:    totalRows,
			SuccessCount: successCount,
			ErrorCount:   errorCount,
		},
	}
}

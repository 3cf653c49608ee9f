package models

import (
	"time"
)

// ChoiceLabels is the fixed answer alphabet. Every choice label and every
// submitted answer must be one of these.
var ChoiceLabels = []string{"A", "B", "C", "D"}

func IsValidChoiceLabel(label string) bool {
	for _, l := range ChoiceLabels {
		if l == label {
			return true
		}
	}
	return false
}

type Question struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Text string `json:"text" gorm:"type:text;not null" validate:"required"`

	Explanation *string `json:"explanation" gorm:"type:text"`

	// Categorization; subtopic is only meaningful together with a topic.
	Topic    *string `json:"topic" gorm:"size:150;index"`
	Subtopic *string `json:"subtopic" gorm:"size:200"`
	ExamName *string `json:"exam_name" gorm:"size:120;index"`

	// Ordinal within the source exam paper, when known.
	QuestionNumber *int `json:"question_number"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Choices []Choice `json:"choices" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

type Choice struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Label      string `json:"label" gorm:"not null;size:5" validate:"required"`
	Text       string `json:"text" gorm:"type:text;not null" validate:"required"`
	IsCorrect  bool   `json:"is_correct" gorm:"not null;default:false"`

	Question Question `json:"-" gorm:"foreignKey:QuestionID"`
}

// CorrectLabel returns the label of the single correct choice, or "" when the
// question has none loaded.
func (q *Question) CorrectLabel() string {
	for _, c := range q.Choices {
		if c.IsCorrect {
			return c.Label
		}
	}
	return ""
}

func (Question) TableName() string {
	return "questions"
}

func (Choice) TableName() string {
	return "choices"
}

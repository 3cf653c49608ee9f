package repositories

import (
	"database/sql"

	"github.com/realprep/exam-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

// BankFilters restricts bank-wide queries (counts, samples, topic listings).
// Topics, when set, is an allowlist already cleaned by the caller
// (trimmed, deduplicated, order preserved).
type BankFilters struct {
	ExamName *string  `json:"exam_name"`
	Topics   []string `json:"topics"`
}

type QuestionFilters struct {
	BankFilters
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	SortBy    string `json:"sort_by"`    // "created_at", "id"
	SortOrder string `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Mode      *models.AttemptMode `json:"mode"`
	Submitted *bool               `json:"submitted"`
	Limit     int                 `json:"limit"`
	Offset    int                 `json:"offset"`
}

// ===== BANK COUNT STRUCTS =====

// TopicCount is one topic stratum's population under the active filters.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// StratumCount is one (topic, subtopic) bucket's population. Subtopic is
// nullable: questions without a subtopic form their own bucket per topic.
type StratumCount struct {
	Topic    string         `json:"topic"`
	Subtopic sql.NullString `json:"subtopic"`
	Count    int            `json:"count"`
}

// QuestionMeta carries the denormalized categorization captured on each
// locked attempt question.
type QuestionMeta struct {
	Topic    *string `json:"topic"`
	Subtopic *string `json:"subtopic"`
}

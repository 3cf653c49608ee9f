package models

import (
	"time"

	"gorm.io/datatypes"
)

type ImportJobStatus string

const (
	ImportPending    ImportJobStatus = "pending"
	ImportProcessing ImportJobStatus = "processing"
	ImportCompleted  ImportJobStatus = "completed"
	ImportFailed     ImportJobStatus = "failed"
)

// ImportJob records one spreadsheet import run of the question bank.
type ImportJob struct {
	ID     string          `json:"id" gorm:"primaryKey;size:36"`
	Status ImportJobStatus `json:"status" gorm:"not null;default:pending;index"`

	Filename     string `json:"filename" gorm:"size:255"`
	TotalRows    int    `json:"total_rows"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`

	// Row-level validation errors as JSONB: []ImportRowError
	Errors datatypes.JSON `json:"errors" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ImportRowError is one rejected spreadsheet row.
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (ImportJob) TableName() string {
	return "import_jobs"
}

package postgres

import (
	"fmt"

	"github.com/realprep/exam-service/internal/repositories"
	"gorm.io/gorm"
)

// SharedHelpers holds query-building helpers common to the postgres
// repositories.
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyPaginationAndSort applies sorting and pagination with an allowlist of
// sortable columns so user input can never reach the ORDER BY clause raw.
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	allowedSortColumns := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"id":         true,
	}

	column := "created_at"
	if sortBy != "" && allowedSortColumns[sortBy] {
		column = sortBy
	}

	direction := "DESC"
	if sortOrder == "asc" || sortOrder == "ASC" {
		direction = "ASC"
	}

	query = query.Order(fmt.Sprintf("%s %s", column, direction))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

// ApplyBankFilters narrows a questions query to the requested exam and topic
// allowlist. An empty allowlist means the whole bank.
func (h *SharedHelpers) ApplyBankFilters(query *gorm.DB, filters repositories.BankFilters) *gorm.DB {
	if filters.ExamName != nil {
		query = query.Where("exam_name = ?", *filters.ExamName)
	}
	if len(filters.Topics) > 0 {
		query = query.Where("topic IN ?", filters.Topics)
	}
	return query
}

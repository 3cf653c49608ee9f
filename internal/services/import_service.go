package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/realprep/exam-service/internal/events"
	"github.com/realprep/exam-service/internal/models"
	"github.com/realprep/exam-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

// importColumns are the required spreadsheet columns, matched
// case-insensitively against the header row.
var importColumns = []string{
	"exam_name", "question_number", "topic", "subtopic",
	"question_text", "a", "b", "c", "d", "correct_label", "explanation",
}

type importService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	publisher events.EventPublisher
}

func NewImportService(repo repositories.Repository, logger *slog.Logger, publisher events.EventPublisher) ImportService {
	return &importService{
		repo:      repo,
		logger:    logger,
		publisher: publisher,
	}
}

func (s *importService) ImportQuestions(ctx context.Context, filename string, file io.Reader) (*ImportResultResponse, error) {
	s.logger.Info("Starting question import", "filename", filename)

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSVRows(file)
	case ".xlsx":
		rows, err = readExcelRows(file)
	default:
		return nil, ErrUnsupportedFileType
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, NewValidationError("file", "file must have a header row and at least one data row", len(rows))
	}

	headerMap, err := buildHeaderMap(rows[0])
	if err != nil {
		return nil, err
	}

	job := &models.ImportJob{
		ID:       uuid.NewString(),
		Status:   models.ImportProcessing,
		Filename: filepath.Base(filename),
	}
	if err := s.repo.ImportJob().Create(ctx, nil, job); err != nil {
		return nil, err
	}

	var questions []*models.Question
	var rowErrors []models.ImportRowError

	for i, row := range rows[1:] {
		rowNum := i + 2
		question, rowErr := parseImportRow(row, headerMap, rowNum)
		if rowErr != nil {
			rowErrors = append(rowErrors, *rowErr)
			continue
		}
		if question != nil {
			questions = append(questions, question)
		}
	}

	job.TotalRows = len(rows) - 1
	job.SuccessCount = len(questions)
	job.ErrorCount = len(rowErrors)

	// All-or-nothing per file: a storage failure marks the job failed
	// instead of half-importing the bank.
	if len(questions) > 0 {
		if err := s.repo.Question().CreateBatch(ctx, nil, questions); err != nil {
			job.Status = models.ImportFailed
			job.SuccessCount = 0
			s.finishJob(ctx, job, rowErrors)
			return nil, err
		}
	}

	job.Status = models.ImportCompleted
	s.finishJob(ctx, job, rowErrors)

	s.logger.Info("Question import finished",
		"job_id", job.ID,
		"total_rows", job.TotalRows,
		"success_count", job.SuccessCount,
		"error_count", job.ErrorCount)

	if s.publisher != nil {
		event := events.NewImportCompletedEvent(job.ID, job.Filename, job.TotalRows, job.SuccessCount, job.ErrorCount)
		if err := s.publisher.PublishEvent(ctx, event); err != nil {
			s.logger.Error("Failed to publish import event", "job_id", job.ID, "error", err)
		}
	}

	return jobToResponse(job, rowErrors), nil
}

func (s *importService) GetJob(ctx context.Context, jobID string) (*ImportResultResponse, error) {
	job, err := s.repo.ImportJob().GetByID(ctx, nil, jobID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrImportJobNotFound
		}
		return nil, err
	}

	var rowErrors []models.ImportRowError
	if len(job.Errors) > 0 {
		if err := json.Unmarshal(job.Errors, &rowErrors); err != nil {
			s.logger.Error("Failed to decode import job errors", "job_id", job.ID, "error", err)
		}
	}

	return jobToResponse(job, rowErrors), nil
}

func (s *importService) finishJob(ctx context.Context, job *models.ImportJob, rowErrors []models.ImportRowError) {
	if len(rowErrors) > 0 {
		if encoded, err := json.Marshal(rowErrors); err == nil {
			job.Errors = encoded
		}
	}
	if err := s.repo.ImportJob().Update(ctx, nil, job); err != nil {
		s.logger.Error("Failed to update import job", "job_id", job.ID, "error", err)
	}
}

// ===== PARSING =====

func readCSVRows(file io.Reader) ([][]string, error) {
	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

func readExcelRows(file io.Reader) ([][]string, error) {
	workbook, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("file", "workbook has no sheets", nil)
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	return rows, nil
}

func buildHeaderMap(header []string) (map[string]int, error) {
	headerMap := make(map[string]int, len(header))
	for i, h := range header {
		headerMap[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var missing []string
	for _, col := range importColumns {
		if _, ok := headerMap[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, NewValidationError("headers", fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")), missing)
	}

	return headerMap, nil
}

func parseImportRow(row []string, headerMap map[string]int, rowNum int) (*models.Question, *models.ImportRowError) {
	cell := func(name string) string {
		idx := headerMap[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	text := cell("question_text")
	if text == "" {
		// Blank question rows are skipped silently, matching spreadsheet
		// padding rows.
		return nil, nil
	}

	correct := strings.ToUpper(cell("correct_label"))
	if !models.IsValidChoiceLabel(correct) {
		return nil, &models.ImportRowError{
			Row:     rowNum,
			Column:  "correct_label",
			Message: fmt.Sprintf("correct_label must be one of %s", strings.Join(models.ChoiceLabels, ", ")),
		}
	}

	question := &models.Question{
		Text:        text,
		Explanation: optional(cell("explanation")),
		Topic:       optional(cell("topic")),
		Subtopic:    optional(cell("subtopic")),
		ExamName:    optional(cell("exam_name")),
	}

	if numStr := cell("question_number"); numStr != "" {
		if num, err := strconv.Atoi(numStr); err == nil && num > 0 {
			question.QuestionNumber = &num
		}
	}

	for _, label := range models.ChoiceLabels {
		choiceText := cell(strings.ToLower(label))
		if choiceText == "" {
			return nil, &models.ImportRowError{
				Row:     rowNum,
				Column:  label,
				Message: fmt.Sprintf("missing choice %s", label),
			}
		}
		question.Choices = append(question.Choices, models.Choice{
			Label:     label,
			Text:      choiceText,
			IsCorrect: label == correct,
		})
	}

	return question, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func jobToResponse(job *models.ImportJob, rowErrors []models.ImportRowError) *ImportResultResponse {
	return &ImportResultResponse{
		JobID:        job.ID,
		Status:       job.Status,
		TotalRows:    job.TotalRows,
		SuccessCount: job.SuccessCount,
		ErrorCount:   job.ErrorCount,
		Errors:       rowErrors,
	}
}

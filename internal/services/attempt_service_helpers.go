package services

import (
	"context"
	"sort"
	"strings"

	"github.com/realprep/exam-service/internal/events"
	"github.com/realprep/exam-service/internal/models"
	"github.com/realprep/exam-service/internal/repositories"
)

// getOwnedAttempt loads the attempt and enforces ownership. A missing
// attempt reports not-found before any ownership information leaks.
func (s *attemptService) getOwnedAttempt(ctx context.Context, userID, attemptID uint) (*models.ExamAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}

	if attempt.UserID != userID {
		return nil, NewPermissionError(userID, attemptID, "attempt", "access", "attempt belongs to another user")
	}

	return attempt, nil
}

func (s *attemptService) ensureActive(attempt *models.ExamAttempt) error {
	if attempt.IsSubmitted() {
		return ErrAttemptAlreadySubmitted
	}
	return nil
}

// ensureNotExpired applies the timed-mode soft lock: once the limit is
// exceeded, reads and answers are refused, but the attempt stays active
// until an explicit submit freezes it.
func (s *attemptService) ensureNotExpired(attempt *models.ExamAttempt) error {
	if attempt.Mode != models.ModeTimed {
		return nil
	}
	if attempt.IsSubmitted() {
		return nil
	}
	if attempt.TimeLimitSeconds == nil {
		return nil
	}

	elapsed := s.now().Sub(attempt.StartedAt.UTC()).Seconds()
	if elapsed > float64(*attempt.TimeLimitSeconds) {
		return ErrAttemptExpired
	}
	return nil
}

// scoreAttempt loads the locked set, correct labels, and current answers,
// then grades them.
func (s *attemptService) scoreAttempt(ctx context.Context, repo repositories.Repository, attemptID uint) (*ScoreResult, error) {
	aqs, err := repo.AttemptQuestion().GetByAttempt(ctx, nil, attemptID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(aqs))
	topicByID := make(map[uint]*string, len(aqs))
	for i, aq := range aqs {
		ids[i] = aq.QuestionID
		topicByID[aq.QuestionID] = aq.Topic
	}

	correctByID, err := repo.Question().CorrectLabelsByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}

	answers, err := repo.Answer().GetByAttempt(ctx, nil, attemptID)
	if err != nil {
		return nil, err
	}
	selectedByID := make(map[uint]string, len(answers))
	for _, a := range answers {
		if a.SelectedLabel != nil {
			selectedByID[a.QuestionID] = *a.SelectedLabel
		}
	}

	return ComputeScore(ids, topicByID, correctByID, selectedByID)
}

func (s *attemptService) shuffle(ids []uint) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}

func (s *attemptService) publish(ctx context.Context, event *events.LifecycleEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}

// cleanTopics trims, drops empties, and deduplicates while preserving the
// caller's order.
func cleanTopics(topics []string) []string {
	if len(topics) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(topics))
	var out []string
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func dedupeStable(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func attemptToResponse(a *models.ExamAttempt) *AttemptResponse {
	return &AttemptResponse{
		AttemptID:        a.ID,
		Mode:             string(a.Mode),
		ExamName:         a.ExamName,
		QuestionCount:    a.QuestionCount,
		TimeLimitSeconds: a.TimeLimitSeconds,
		StartedAt:        a.StartedAt,
		IsSubmitted:      a.IsSubmitted(),
		SubmittedAt:      a.SubmittedAt,
		ScorePercent:     a.ScorePercent,
		Passed:           a.Passed,
	}
}

// choicesToResponse keeps choices in label order so clients always see
// A, B, C, D.
func choicesToResponse(choices []models.Choice) []ChoiceResponse {
	sorted := make([]models.Choice, len(choices))
	copy(sorted, choices)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Label < sorted[j].Label
	})

	out := make([]ChoiceResponse, len(sorted))
	for i, c := range sorted {
		out[i] = ChoiceResponse{Label: c.Label, Text: c.Text}
	}
	return out
}

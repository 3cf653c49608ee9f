package services

import (
	"math"

	"github.com/realprep/exam-service/internal/models"
)

// UnknownTopic groups questions whose denormalized topic is missing in the
// score breakdown.
const UnknownTopic = "Unknown"

// TopicBreakdown holds per-topic correct/total counts.
type TopicBreakdown struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// ScoreResult is the outcome of grading one attempt's locked question set.
type ScoreResult struct {
	Total        int                       `json:"total"`
	Correct      int                       `json:"correct"`
	ScorePercent int                       `json:"score_percent"`
	Passed       bool                      `json:"passed"`
	Breakdown    map[string]TopicBreakdown `json:"breakdown"`
}

// ComputeScore grades the locked question set. A question is correct only
// when a selection exists and equals the correct label exactly; an unanswered
// question never matches. The percent is rounded half up and compared
// against the fixed passing threshold.
func ComputeScore(
	questionIDs []uint,
	topicByQuestion map[uint]*string,
	correctByQuestion map[uint]string,
	selectedByQuestion map[uint]string,
) (*ScoreResult, error) {
	total := len(questionIDs)
	if total == 0 {
		return nil, ErrAttemptHasNoQuestions
	}

	correct := 0
	breakdown := make(map[string]TopicBreakdown)

	for _, qid := range questionIDs {
		topic := UnknownTopic
		if t := topicByQuestion[qid]; t != nil {
			topic = *t
		}

		entry := breakdown[topic]
		entry.Total++

		selected, answered := selectedByQuestion[qid]
		if answered && selected == correctByQuestion[qid] {
			correct++
			entry.Correct++
		}

		breakdown[topic] = entry
	}

	percent := int(math.Round(100 * float64(correct) / float64(total)))

	return &ScoreResult{
		Total:        total,
		Correct:      correct,
		ScorePercent: percent,
		Passed:       percent >= models.PassingPercent,
		Breakdown:    breakdown,
	}, nil
}

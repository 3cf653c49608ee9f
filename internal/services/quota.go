package services

import (
	"math"
	"sort"

	"github.com/realprep/exam-service/internal/repositories"
)

// TopicQuota is one topic's target draw count.
type TopicQuota struct {
	Topic string
	Quota int
}

// BucketQuota is one (topic, subtopic) bucket's target draw count. A nil
// Subtopic is the topic's own "no subtopic" bucket.
type BucketQuota struct {
	Topic    string
	Subtopic *string
	Quota    int
}

// allocateProportional computes integer quotas for populations that sum to
// exactly total. Each entry gets max(1, round(total * pop/sum)); the rounding
// drift is then repaired by cycling entries in descending population order,
// incrementing while short and decrementing (never below 1) while long.
// Population ties keep their input order, so identical inputs always produce
// identical quotas.
//
// When total is smaller than the number of entries the floor-to-1 rule wins
// and the result over-allocates; the assembler trims the surplus after the
// draws, so no error is reported here.
func allocateProportional(populations []int, total int) []int {
	n := len(populations)
	if n == 0 {
		return nil
	}

	totalPop := 0
	for _, p := range populations {
		totalPop += p
	}

	quotas := make([]int, n)
	for i, p := range populations {
		q := int(math.Round(float64(total) * float64(p) / float64(totalPop)))
		if q < 1 {
			q = 1
		}
		quotas[i] = q
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return populations[order[a]] > populations[order[b]]
	})

	diff := total
	for _, q := range quotas {
		diff -= q
	}

	for i := 0; diff != 0; i++ {
		idx := order[i%n]
		if diff > 0 {
			quotas[idx]++
			diff--
		} else {
			if quotas[idx] > 1 {
				quotas[idx]--
				diff++
			}
			// An all-ones vector with diff < 0 cannot shrink further;
			// stop rather than spin.
			if diff < 0 && i >= n && allOnes(quotas) {
				break
			}
		}
	}

	return quotas
}

func allOnes(quotas []int) bool {
	for _, q := range quotas {
		if q != 1 {
			return false
		}
	}
	return true
}

// AllocateTopicQuotas splits total across topics proportionally to their
// population counts. The input order is preserved in the output.
func AllocateTopicQuotas(counts []repositories.TopicCount, total int) []TopicQuota {
	if len(counts) == 0 {
		return nil
	}

	populations := make([]int, len(counts))
	for i, c := range counts {
		populations[i] = c.Count
	}

	quotas := allocateProportional(populations, total)

	result := make([]TopicQuota, len(counts))
	for i, c := range counts {
		result[i] = TopicQuota{Topic: c.Topic, Quota: quotas[i]}
	}
	return result
}

// AllocateBucketQuotas splits each topic's quota across that topic's
// (topic, subtopic) buckets, independently per topic, with the same
// proportional rule. Buckets whose topic received no quota are skipped.
func AllocateBucketQuotas(counts []repositories.StratumCount, topicQuotas []TopicQuota) []BucketQuota {
	byTopic := make(map[string][]repositories.StratumCount)
	for _, c := range counts {
		byTopic[c.Topic] = append(byTopic[c.Topic], c)
	}

	var result []BucketQuota
	for _, tq := range topicQuotas {
		buckets := byTopic[tq.Topic]
		if len(buckets) == 0 {
			continue
		}

		populations := make([]int, len(buckets))
		for i, b := range buckets {
			populations[i] = b.Count
		}

		quotas := allocateProportional(populations, tq.Quota)

		for i, b := range buckets {
			var subtopic *string
			if b.Subtopic.Valid {
				s := b.Subtopic.String
				subtopic = &s
			}
			result = append(result, BucketQuota{
				Topic:    tq.Topic,
				Subtopic: subtopic,
				Quota:    quotas[i],
			})
		}
	}

	return result
}

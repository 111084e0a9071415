// Package eval provides the document-length-bias diagnostic and the
// slope-selection driver used to tune pivoted normalization against an
// external classifier.
package eval

import (
	"fmt"
	"sort"

	apperrors "github.com/lexstat/pivotnorm/pkg/errors"
)

// Direction selects which end of the score ordering counts as "top".
type Direction int

const (
	// Ascending takes the k lowest-scored documents.
	Ascending Direction = iota
	// Descending takes the k highest-scored documents.
	Descending
)

// BiasReport compares the mean length of the top-k ranked documents against
// the mean length of the whole corpus. A gap between the two is evidence of
// document-length bias; interpreting it is the caller's job.
type BiasReport struct {
	TopKMeanLength   float64 `json:"top_k_mean_length"`
	CorpusMeanLength float64 `json:"corpus_mean_length"`
}

// EvaluateBias pairs each score with the length at the same index, orders
// the pairs by score (ties broken by original index, so the result is
// deterministic), and reports the mean length of the k documents at the
// chosen extreme alongside the corpus mean length.
//
// Returns ErrInvalidArgument when the slices differ in length or k is
// outside (0, len(scores)].
func EvaluateBias(scores, lengths []float64, k int, dir Direction) (BiasReport, error) {
	if len(scores) != len(lengths) {
		return BiasReport{}, fmt.Errorf("%w: %d scores vs %d lengths",
			apperrors.ErrInvalidArgument, len(scores), len(lengths))
	}
	if k <= 0 || k > len(scores) {
		return BiasReport{}, fmt.Errorf("%w: k=%d out of range (0, %d]",
			apperrors.ErrInvalidArgument, k, len(scores))
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		i, j := order[a], order[b]
		if scores[i] != scores[j] {
			if dir == Descending {
				return scores[i] > scores[j]
			}
			return scores[i] < scores[j]
		}
		return i < j
	})

	var topSum float64
	for _, idx := range order[:k] {
		topSum += lengths[idx]
	}
	var totalSum float64
	for _, length := range lengths {
		totalSum += length
	}

	return BiasReport{
		TopKMeanLength:   topSum / float64(k),
		CorpusMeanLength: totalSum / float64(len(lengths)),
	}, nil
}

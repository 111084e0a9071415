package normd

import (
	"fmt"
	"math"

	apperrors "github.com/lexstat/pivotnorm/pkg/errors"
)

// CentroidClassifier is the stand-in eval.Classifier wired in when no
// external model is plugged into the sweep surface. It averages the feature
// rows per class and scores by distance to the nearest centroid. It exists
// so the slope sweep has something to rank against out of the box; real
// deployments inject their own classifier.
type CentroidClassifier struct {
	centroids map[int][]float64
}

func NewCentroidClassifier() *CentroidClassifier {
	return &CentroidClassifier{}
}

func (c *CentroidClassifier) Fit(features [][]float64, labels []int) error {
	if len(features) == 0 || len(features) != len(labels) {
		return fmt.Errorf("%w: %d feature rows vs %d labels",
			apperrors.ErrInvalidArgument, len(features), len(labels))
	}
	width := len(features[0])
	sums := make(map[int][]float64)
	counts := make(map[int]int)
	for i, row := range features {
		label := labels[i]
		if sums[label] == nil {
			sums[label] = make([]float64, width)
		}
		for j, v := range row {
			sums[label][j] += v
		}
		counts[label]++
	}
	c.centroids = make(map[int][]float64, len(sums))
	for label, sum := range sums {
		centroid := make([]float64, width)
		for j, v := range sum {
			centroid[j] = v / float64(counts[label])
		}
		c.centroids[label] = centroid
	}
	return nil
}

func (c *CentroidClassifier) Predict(features [][]float64) ([]int, error) {
	if c.centroids == nil {
		return nil, fmt.Errorf("%w: classifier not fitted", apperrors.ErrNotFitted)
	}
	predictions := make([]int, len(features))
	for i, row := range features {
		bestLabel := 0
		bestDist := math.Inf(1)
		for label, centroid := range c.centroids {
			d := squaredDistance(row, centroid)
			if d < bestDist || (d == bestDist && label < bestLabel) {
				bestDist = d
				bestLabel = label
			}
		}
		predictions[i] = bestLabel
	}
	return predictions, nil
}

func (c *CentroidClassifier) Score(features [][]float64, labels []int) (float64, error) {
	if len(features) != len(labels) {
		return 0, fmt.Errorf("%w: %d feature rows vs %d labels",
			apperrors.ErrInvalidArgument, len(features), len(labels))
	}
	predictions, err := c.Predict(features)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i, p := range predictions {
		if p == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(labels)), nil
}

// DecisionFunction returns, per row, the margin between the distance to the
// class-0 centroid and the nearest other centroid. Positive means closer to
// a non-zero class.
func (c *CentroidClassifier) DecisionFunction(features [][]float64) ([]float64, error) {
	if c.centroids == nil {
		return nil, fmt.Errorf("%w: classifier not fitted", apperrors.ErrNotFitted)
	}
	scores := make([]float64, len(features))
	for i, row := range features {
		zero, hasZero := c.centroids[0]
		var zeroDist float64
		if hasZero {
			zeroDist = squaredDistance(row, zero)
		}
		otherDist := math.Inf(1)
		for label, centroid := range c.centroids {
			if label == 0 {
				continue
			}
			if d := squaredDistance(row, centroid); d < otherDist {
				otherDist = d
			}
		}
		if !hasZero || math.IsInf(otherDist, 1) {
			scores[i] = 0
			continue
		}
		scores[i] = zeroDist - otherDist
	}
	return scores, nil
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

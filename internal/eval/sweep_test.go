package eval

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/lexstat/pivotnorm/internal/weighting"
	apperrors "github.com/lexstat/pivotnorm/pkg/errors"
)

// magnitudeClassifier scores by the mean Euclidean norm of the test rows.
// With every training document shorter than the pivot, a higher slope
// shrinks the divisor and raises row norms, so accuracy grows with slope.
type magnitudeClassifier struct {
	fitted atomic.Bool
}

func (c *magnitudeClassifier) Fit(features [][]float64, labels []int) error {
	c.fitted.Store(true)
	return nil
}

func (c *magnitudeClassifier) Score(features [][]float64, labels []int) (float64, error) {
	if !c.fitted.Load() {
		return 0, errors.New("score before fit")
	}
	var total float64
	for _, row := range features {
		var sum float64
		for _, v := range row {
			sum += v * v
		}
		total += sum
	}
	return total / float64(len(features)), nil
}

func (c *magnitudeClassifier) DecisionFunction(features [][]float64) ([]float64, error) {
	return make([]float64, len(features)), nil
}

// constantClassifier reports the same accuracy for every slope.
type constantClassifier struct{}

func (constantClassifier) Fit(features [][]float64, labels []int) error { return nil }
func (constantClassifier) Score(features [][]float64, labels []int) (float64, error) {
	return 0.5, nil
}
func (constantClassifier) DecisionFunction(features [][]float64) ([]float64, error) {
	return make([]float64, len(features)), nil
}

func sweepSplit() Split {
	return Split{
		Train: []weighting.CountVector{
			{0: 1, 1: 1},
			{0: 1, 2: 1},
			{1: 1, 2: 1},
			{0: 1, 3: 1},
		},
		TrainLabels: []int{0, 0, 1, 1},
		Test: []weighting.CountVector{
			{0: 1, 1: 1},
			{1: 1, 2: 1},
		},
		TestLabels: []int{0, 1},
		VocabSize:  4,
	}
}

func TestSweepPicksHighestAccuracy(t *testing.T) {
	sweeper := NewSweeper(
		func() Classifier { return &magnitudeClassifier{} },
		weighting.FixedPivot(100),
		4,
	)
	slopes := []float64{0.0, 0.25, 0.5, 0.75, 1.0}
	report, err := sweeper.Run(context.Background(), sweepSplit(), slopes)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Best.Slope != 1.0 {
		t.Fatalf("best slope = %v, want 1.0", report.Best.Slope)
	}
	if len(report.Results) != len(slopes) {
		t.Fatalf("results = %d, want %d", len(report.Results), len(slopes))
	}
	for i := 1; i < len(report.Results); i++ {
		if report.Results[i].Slope <= report.Results[i-1].Slope {
			t.Fatal("results must be sorted by slope")
		}
		if report.Results[i].Accuracy <= report.Results[i-1].Accuracy {
			t.Fatalf("accuracy must grow with slope under this classifier: %+v", report.Results)
		}
	}
}

func TestSweepTieBreaksToLowestSlope(t *testing.T) {
	sweeper := NewSweeper(
		func() Classifier { return constantClassifier{} },
		weighting.AutoPivot(),
		3,
	)
	report, err := sweeper.Run(context.Background(), sweepSplit(), []float64{0.8, 0.2, 0.5})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Best.Slope != 0.2 {
		t.Fatalf("tied best slope = %v, want 0.2", report.Best.Slope)
	}
	if report.Best.Accuracy != 0.5 {
		t.Fatalf("tied best accuracy = %v, want 0.5", report.Best.Accuracy)
	}
}

func TestSweepValidation(t *testing.T) {
	sweeper := NewSweeper(func() Classifier { return constantClassifier{} }, weighting.AutoPivot(), 1)

	if _, err := sweeper.Run(context.Background(), sweepSplit(), nil); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("no slopes error = %v, want ErrInvalidArgument", err)
	}

	split := sweepSplit()
	split.TrainLabels = split.TrainLabels[:1]
	if _, err := sweeper.Run(context.Background(), split, []float64{0.5}); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("label mismatch error = %v, want ErrInvalidArgument", err)
	}
}

func TestSweepEmptyTrainCorpus(t *testing.T) {
	sweeper := NewSweeper(func() Classifier { return constantClassifier{} }, weighting.AutoPivot(), 1)
	split := Split{Test: []weighting.CountVector{{0: 1}}, TestLabels: []int{0}}
	if _, err := sweeper.Run(context.Background(), split, []float64{0.5}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("empty train corpus error = %v, want ErrInvalidInput", err)
	}
}

func TestVocabWidthFallback(t *testing.T) {
	split := sweepSplit()
	split.VocabSize = 0
	if got := vocabWidth(split); got != 4 {
		t.Fatalf("vocabWidth = %d, want 4", got)
	}
}

package eval

import (
	"errors"
	"math"
	"testing"

	apperrors "github.com/lexstat/pivotnorm/pkg/errors"
)

func approx(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %v, want %v (tol %v)", what, got, want, tol)
	}
}

func TestEvaluateBiasWorkedExample(t *testing.T) {
	scores := []float64{0.1, 0.9, 0.5, -0.2}
	lengths := []float64{100, 50, 75, 200}

	report, err := EvaluateBias(scores, lengths, 2, Ascending)
	if err != nil {
		t.Fatalf("EvaluateBias: %v", err)
	}
	// Ascending order: -0.2 (len 200), 0.1 (len 100), 0.5, 0.9.
	approx(t, report.TopKMeanLength, 150, 1e-12, "top-k mean length")
	approx(t, report.CorpusMeanLength, 106.25, 1e-12, "corpus mean length")
}

func TestEvaluateBiasDescending(t *testing.T) {
	scores := []float64{0.1, 0.9, 0.5, -0.2}
	lengths := []float64{100, 50, 75, 200}

	report, err := EvaluateBias(scores, lengths, 2, Descending)
	if err != nil {
		t.Fatalf("EvaluateBias: %v", err)
	}
	// Descending order: 0.9 (len 50), 0.5 (len 75), ...
	approx(t, report.TopKMeanLength, 62.5, 1e-12, "top-k mean length")
	approx(t, report.CorpusMeanLength, 106.25, 1e-12, "corpus mean length")
}

func TestEvaluateBiasTieBreakByIndex(t *testing.T) {
	// Equal scores: the earlier document wins the top-k slot.
	scores := []float64{0.5, 0.5, 0.5}
	lengths := []float64{10, 20, 30}

	report, err := EvaluateBias(scores, lengths, 1, Ascending)
	if err != nil {
		t.Fatalf("EvaluateBias: %v", err)
	}
	approx(t, report.TopKMeanLength, 10, 1e-12, "tie-break mean")

	report, err = EvaluateBias(scores, lengths, 2, Descending)
	if err != nil {
		t.Fatalf("EvaluateBias descending: %v", err)
	}
	approx(t, report.TopKMeanLength, 15, 1e-12, "descending tie-break mean")
}

func TestEvaluateBiasPreconditions(t *testing.T) {
	scores := []float64{1, 2, 3}
	lengths := []float64{1, 2}
	if _, err := EvaluateBias(scores, lengths, 1, Ascending); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("length mismatch error = %v, want ErrInvalidArgument", err)
	}

	lengths = []float64{1, 2, 3}
	for _, k := range []int{0, -1, 4} {
		if _, err := EvaluateBias(scores, lengths, k, Ascending); !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Fatalf("k=%d error = %v, want ErrInvalidArgument", k, err)
		}
	}
}

func TestEvaluateBiasKEqualsAll(t *testing.T) {
	scores := []float64{3, 1, 2}
	lengths := []float64{30, 10, 20}
	report, err := EvaluateBias(scores, lengths, 3, Ascending)
	if err != nil {
		t.Fatalf("EvaluateBias: %v", err)
	}
	approx(t, report.TopKMeanLength, 20, 1e-12, "k=n top mean")
	approx(t, report.CorpusMeanLength, 20, 1e-12, "corpus mean")
}

package weighting

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

func TestFitEmptyCorpus(t *testing.T) {
	_, err := Fit(nil)
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("Fit(nil) error = %v, want ErrInvalidInput", err)
	}
	_, err = Fit([]CountVector{})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("Fit(empty) error = %v, want ErrInvalidInput", err)
	}
}

func TestFitIDFWeights(t *testing.T) {
	// Term 7 appears in 2 of 4 documents: idf = ln(4/2) = ln 2.
	corpus := []CountVector{
		{7: 1, 1: 2},
		{7: 3},
		{2: 1},
		{1: 1, 2: 5},
	}
	model, err := Fit(corpus)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	approx(t, model.IDF(7), math.Log(2), 1e-12, "idf[7]")
	approx(t, model.IDF(1), math.Log(2), 1e-12, "idf[1]")
	approx(t, model.IDF(2), math.Log(2), 1e-12, "idf[2]")
	if got := model.IDF(99); got != 0 {
		t.Fatalf("idf of unseen term = %v, want 0", got)
	}
	if model.VocabSize() != 3 {
		t.Fatalf("VocabSize = %d, want 3", model.VocabSize())
	}
	if model.NumDocs() != 4 {
		t.Fatalf("NumDocs = %d, want 4", model.NumDocs())
	}
}

func TestFitAvgDocLength(t *testing.T) {
	corpus := []CountVector{
		{0: 2, 1: 1}, // length 3
		{0: 1, 2: 3}, // length 4
		{1: 1, 2: 1}, // length 2
	}
	model, err := Fit(corpus)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	approx(t, model.AvgDocLength(), 3.0, 1e-12, "avg doc length")
}

func TestFitDeterministic(t *testing.T) {
	corpus := []CountVector{
		{0: 2, 1: 1},
		{0: 1, 2: 3},
		{1: 1, 2: 1},
	}
	a, err := Fit(corpus)
	if err != nil {
		t.Fatalf("first Fit: %v", err)
	}
	b, err := Fit(corpus)
	if err != nil {
		t.Fatalf("second Fit: %v", err)
	}
	if a.AvgDocLength() != b.AvgDocLength() {
		t.Fatalf("avg doc length differs: %v vs %v", a.AvgDocLength(), b.AvgDocLength())
	}
	if a.VocabSize() != b.VocabSize() {
		t.Fatalf("vocab size differs: %d vs %d", a.VocabSize(), b.VocabSize())
	}
	for termID := 0; termID < 3; termID++ {
		if a.IDF(termID) != b.IDF(termID) {
			t.Fatalf("idf[%d] differs: %v vs %v", termID, a.IDF(termID), b.IDF(termID))
		}
	}
}

func TestFitTermInAllDocs(t *testing.T) {
	// A term in every document has idf ln(1) = 0 and contributes nothing.
	corpus := []CountVector{
		{0: 1, 1: 1},
		{0: 2},
		{0: 5, 2: 1},
	}
	model, err := Fit(corpus)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if got := model.IDF(0); got != 0 {
		t.Fatalf("idf of ubiquitous term = %v, want 0", got)
	}
}

package weighting

import (
	"math"
	"testing"
)

func fitSmallCorpus(t *testing.T) *Model {
	t.Helper()
	model, err := Fit([]CountVector{
		{0: 2, 1: 1},
		{0: 1, 2: 3},
		{1: 1, 2: 1},
	})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return model
}

func TestNormalizeSlopeOneIsCosine(t *testing.T) {
	model := fitSmallCorpus(t)
	doc := CountVector{0: 2, 1: 1}

	// At slope 1 the divisor is the document's own norm, for any pivot.
	for _, pivot := range []float64{0.5, 3.0, 1000} {
		out := Normalize(doc, model, pivot, 1.0)
		approx(t, out.Norm(), 1.0, 1e-12, "norm at slope 1")
		approx(t, out[0], 0.8944, 1e-4, "weight[0]")
		approx(t, out[1], 0.4472, 1e-4, "weight[1]")
		if _, ok := out[2]; ok {
			t.Fatalf("term 2 absent from document must not appear in output")
		}
	}
}

func TestNormalizeSlopeZeroDividesByPivot(t *testing.T) {
	model := fitSmallCorpus(t)
	doc := CountVector{0: 2, 1: 1}

	out := Normalize(doc, model, 3.0, 0.0)
	idf := math.Log(1.5)
	approx(t, out[0], 2*idf/3.0, 1e-12, "weight[0]")
	approx(t, out[1], idf/3.0, 1e-12, "weight[1]")
	approx(t, out[0], 0.2703, 1e-4, "weight[0] literal")
	approx(t, out[1], 0.1352, 1e-4, "weight[1] literal")
}

func TestNormalizeWorkedExample(t *testing.T) {
	model := fitSmallCorpus(t)

	// All three terms appear in 2 of 3 documents.
	idf := math.Log(1.5)
	approx(t, idf, 0.4055, 1e-4, "idf")
	for termID := 0; termID < 3; termID++ {
		approx(t, model.IDF(termID), idf, 1e-12, "fitted idf")
	}

	raw := WeightVector{0: 2 * idf, 1: idf}
	approx(t, raw.Norm(), 0.9069, 1e-4, "old norm")
}

func TestNormalizeZeroTermDocument(t *testing.T) {
	model := fitSmallCorpus(t)

	cases := map[string]CountVector{
		"empty":         {},
		"nil":           nil,
		"unknown terms": {99: 4, 100: 1},
	}
	for name, doc := range cases {
		for _, slope := range []float64{0, 0.5, 1} {
			out := Normalize(doc, model, 3.0, slope)
			if len(out) != 0 {
				t.Fatalf("%s at slope %v: got %v, want empty vector", name, slope, out)
			}
		}
	}
}

func TestNormalizeDropsUnknownTerms(t *testing.T) {
	model := fitSmallCorpus(t)
	doc := CountVector{0: 2, 1: 1, 42: 7}

	out := Normalize(doc, model, 3.0, 1.0)
	if _, ok := out[42]; ok {
		t.Fatalf("unseen term must be dropped, got weight %v", out[42])
	}
	// Output matches the same document without the unknown term.
	want := Normalize(CountVector{0: 2, 1: 1}, model, 3.0, 1.0)
	for termID, w := range want {
		approx(t, out[termID], w, 1e-12, "weight after dropping unknown term")
	}
}

func TestPivotedNormAffineInOldNorm(t *testing.T) {
	// For fixed pivot and slope in (0,1], the divisor is a strictly
	// increasing affine function of the document's own norm. Relative to
	// cosine normalization (where every document lands on norm 1), a
	// document shorter than the pivot ends up below 1 and a longer one
	// above 1: the short-document advantage is tilted away.
	model := fitSmallCorpus(t)
	pivot := model.AvgDocLength()

	// short has a raw norm well below the pivot, long well above it.
	short := CountVector{0: 1}
	long := CountVector{0: 40}
	for _, slope := range []float64{0.25, 0.5, 0.75} {
		shortOut := Normalize(short, model, pivot, slope)
		longOut := Normalize(long, model, pivot, slope)
		if shortOut.Norm() >= 1 {
			t.Fatalf("slope %v: short doc norm %v, want < 1", slope, shortOut.Norm())
		}
		if longOut.Norm() <= 1 {
			t.Fatalf("slope %v: long doc norm %v, want > 1", slope, longOut.Norm())
		}
	}

	// Affine check: divisor(old) = (1-s)*p + s*old exactly.
	idf := math.Log(1.5)
	for _, slope := range []float64{0.25, 0.5, 1.0} {
		for _, count := range []int64{1, 5, 40} {
			oldNorm := float64(count) * idf
			out := Normalize(CountVector{0: count}, model, pivot, slope)
			wantDivisor := (1-slope)*pivot + slope*oldNorm
			approx(t, out[0], oldNorm/wantDivisor, 1e-12, "affine divisor")
		}
	}
}

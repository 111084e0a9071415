// Package weighting implements pivoted document-length normalization for
// TF-IDF vectors: corpus-level IDF statistics fitted once on a training
// corpus, and a per-document normalizer whose divisor interpolates between
// the document's own cosine norm (slope 1) and a fixed pivot (slope 0).
package weighting

import "math"

// CountVector is one document as a sparse term-id -> count mapping. Absent
// term-ids have count zero. Counts are positive.
type CountVector map[int]int64

// WeightVector is a sparse term-id -> real weight mapping.
type WeightVector map[int]float64

// Length returns the document length: the total number of term occurrences.
func (v CountVector) Length() float64 {
	var total int64
	for _, count := range v {
		total += count
	}
	return float64(total)
}

// Norm returns the Euclidean norm of the weight vector.
func (v WeightVector) Norm() float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Dense materializes the sparse vector as a fixed-width row of the given
// vocabulary size, for classifiers that expect a dense feature matrix.
// Term-ids outside [0, vocabSize) are dropped.
func (v WeightVector) Dense(vocabSize int) []float64 {
	row := make([]float64, vocabSize)
	for termID, w := range v {
		if termID >= 0 && termID < vocabSize {
			row[termID] = w
		}
	}
	return row
}

// Clone returns an independent copy of the vector.
func (v WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(v))
	for termID, w := range v {
		out[termID] = w
	}
	return out
}

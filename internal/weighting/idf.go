package weighting

import (
	"fmt"
	"math"

	apperrors "github.com/lexstat/pivotnorm/pkg/errors"
)

// Model holds the corpus statistics captured by Fit: the per-term IDF table,
// the average document length, and bookkeeping counts. A Model is immutable
// once built; transforms read it but never write to it.
type Model struct {
	idf          map[int]float64
	avgDocLength float64
	vocabSize    int
	numDocs      int
}

// Fit scans the training corpus once and builds the IDF statistics.
//
// For each term, df is the number of documents containing it at least once
// and the IDF weight is the natural logarithm log(N/df). The average
// document length is the mean total term count per document. Returns
// ErrInvalidInput for an empty corpus.
func Fit(corpus []CountVector) (*Model, error) {
	if len(corpus) == 0 {
		return nil, fmt.Errorf("%w: training corpus is empty", apperrors.ErrInvalidInput)
	}

	df := make(map[int]int)
	var totalLength float64
	for _, doc := range corpus {
		for termID, count := range doc {
			if count > 0 {
				df[termID]++
			}
		}
		totalLength += doc.Length()
	}

	n := float64(len(corpus))
	idf := make(map[int]float64, len(df))
	for termID, docFreq := range df {
		idf[termID] = math.Log(n / float64(docFreq))
	}

	return &Model{
		idf:          idf,
		avgDocLength: totalLength / n,
		vocabSize:    len(df),
		numDocs:      len(corpus),
	}, nil
}

// IDF returns the fitted weight for a term. Terms unseen at fit time have
// weight zero.
func (m *Model) IDF(termID int) float64 {
	return m.idf[termID]
}

// AvgDocLength returns the mean training-document length in term
// occurrences.
func (m *Model) AvgDocLength() float64 {
	return m.avgDocLength
}

// VocabSize returns the number of distinct terms seen at fit time.
func (m *Model) VocabSize() int {
	return m.vocabSize
}

// NumDocs returns the training corpus size.
func (m *Model) NumDocs() int {
	return m.numDocs
}

package weighting

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Transformer couples a fitted Model with normalization parameters. It is
// immutable after NewTransformer: Transform never re-estimates IDF or the
// average length from the corpus being transformed.
type Transformer struct {
	model   *Model
	pivot   float64
	slope   float64
	workers int
}

// NewTransformer fits the IDF statistics on the training corpus and resolves
// the parameters against them. Fitting is deterministic; the same corpus and
// params always produce the same transformer.
func NewTransformer(corpus []CountVector, params Params) (*Transformer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	model, err := Fit(corpus)
	if err != nil {
		return nil, fmt.Errorf("fitting idf statistics: %w", err)
	}
	return &Transformer{
		model:   model,
		pivot:   params.Pivot.Resolve(model.AvgDocLength()),
		slope:   params.Slope,
		workers: runtime.GOMAXPROCS(0),
	}, nil
}

// WithWorkers sets the parallelism used by TransformCorpus. Values below 1
// fall back to serial transformation.
func (t *Transformer) WithWorkers(n int) *Transformer {
	clone := *t
	clone.workers = n
	return &clone
}

// Model returns the fitted statistics.
func (t *Transformer) Model() *Model {
	return t.model
}

// Pivot returns the resolved pivot value.
func (t *Transformer) Pivot() float64 {
	return t.pivot
}

// Slope returns the configured slope.
func (t *Transformer) Slope() float64 {
	return t.slope
}

// Transform normalizes a single document using the statistics captured at
// fit time.
func (t *Transformer) Transform(doc CountVector) WeightVector {
	return Normalize(doc, t.model, t.pivot, t.slope)
}

// TransformCorpus normalizes every document in the corpus. Documents are
// independent, so the work is fanned out across workers; output order
// matches input order and is identical to transforming serially.
func (t *Transformer) TransformCorpus(ctx context.Context, corpus []CountVector) ([]WeightVector, error) {
	out := make([]WeightVector, len(corpus))
	if t.workers <= 1 || len(corpus) < 2 {
		for i, doc := range corpus {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = t.Transform(doc)
		}
		return out, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i, doc := range corpus {
		i, doc := i, doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = t.Transform(doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DenseMatrix materializes normalized vectors as a dense feature matrix of
// the given width, one row per document.
func DenseMatrix(vectors []WeightVector, vocabSize int) [][]float64 {
	matrix := make([][]float64, len(vectors))
	for i, v := range vectors {
		matrix[i] = v.Dense(vocabSize)
	}
	return matrix
}

package eval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexstat/pivotnorm/internal/weighting"
	apperrors "github.com/lexstat/pivotnorm/pkg/errors"
)

// Classifier is the downstream model consumed by the sweep. The core never
// implements one; callers plug in whatever they train.
type Classifier interface {
	Fit(features [][]float64, labels []int) error
	Score(features [][]float64, labels []int) (float64, error)
	DecisionFunction(features [][]float64) ([]float64, error)
}

// ClassifierFactory builds a fresh classifier for one sweep candidate, so
// concurrent candidates never share trainable state.
type ClassifierFactory func() Classifier

// Split is a labelled train/test corpus pair in a shared vocabulary space.
type Split struct {
	Train       []weighting.CountVector
	TrainLabels []int
	Test        []weighting.CountVector
	TestLabels  []int
	VocabSize   int
}

// SlopeResult is the outcome of one sweep candidate.
type SlopeResult struct {
	Slope    float64 `json:"slope"`
	Accuracy float64 `json:"accuracy"`
}

// SweepReport holds the per-slope accuracies (sorted by slope) and the best
// candidate.
type SweepReport struct {
	Results []SlopeResult `json:"results"`
	Best    SlopeResult   `json:"best"`
	Elapsed string        `json:"elapsed"`
}

// Sweeper runs the slope-selection search: for each candidate slope it fits
// a transformer on the training corpus, transforms train and test, trains
// the supplied classifier, and records test accuracy. Candidates run
// concurrently up to MaxConcurrent.
type Sweeper struct {
	factory       ClassifierFactory
	pivot         weighting.PivotSetting
	maxConcurrent int
	logger        *slog.Logger
}

// NewSweeper creates a Sweeper. maxConcurrent values below 1 default to 1.
func NewSweeper(factory ClassifierFactory, pivot weighting.PivotSetting, maxConcurrent int) *Sweeper {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Sweeper{
		factory:       factory,
		pivot:         pivot,
		maxConcurrent: maxConcurrent,
		logger:        slog.Default().With("component", "slope-sweeper"),
	}
}

// Run evaluates every candidate slope and reports the one with maximum
// accuracy. Exact accuracy ties resolve to the lowest slope, which keeps the
// reduction deterministic under concurrent evaluation.
func (s *Sweeper) Run(ctx context.Context, split Split, slopes []float64) (*SweepReport, error) {
	if len(slopes) == 0 {
		return nil, fmt.Errorf("%w: no candidate slopes", apperrors.ErrInvalidArgument)
	}
	if len(split.Train) != len(split.TrainLabels) {
		return nil, fmt.Errorf("%w: %d train documents vs %d labels",
			apperrors.ErrInvalidArgument, len(split.Train), len(split.TrainLabels))
	}
	if len(split.Test) != len(split.TestLabels) {
		return nil, fmt.Errorf("%w: %d test documents vs %d labels",
			apperrors.ErrInvalidArgument, len(split.Test), len(split.TestLabels))
	}

	start := time.Now()
	results := make([]SlopeResult, len(slopes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, slope := range slopes {
		i, slope := i, slope
		g.Go(func() error {
			accuracy, err := s.evaluate(ctx, split, slope)
			if err != nil {
				return fmt.Errorf("slope %g: %w", slope, err)
			}
			results[i] = SlopeResult{Slope: slope, Accuracy: accuracy}
			s.logger.Debug("slope evaluated", "slope", slope, "accuracy", accuracy)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Slope < results[j].Slope
	})
	best := results[0]
	for _, r := range results[1:] {
		if r.Accuracy > best.Accuracy {
			best = r
		}
	}

	report := &SweepReport{
		Results: results,
		Best:    best,
		Elapsed: time.Since(start).String(),
	}
	s.logger.Info("sweep complete",
		"candidates", len(slopes),
		"best_slope", best.Slope,
		"best_accuracy", best.Accuracy,
		"elapsed", report.Elapsed,
	)
	return report, nil
}

// vocabWidth infers the dense-matrix width when the caller did not supply
// one: the highest term-id seen in either corpus, plus one.
func vocabWidth(split Split) int {
	maxID := -1
	for _, corpus := range [][]weighting.CountVector{split.Train, split.Test} {
		for _, doc := range corpus {
			for termID := range doc {
				if termID > maxID {
					maxID = termID
				}
			}
		}
	}
	return maxID + 1
}

func (s *Sweeper) evaluate(ctx context.Context, split Split, slope float64) (float64, error) {
	params := weighting.Params{Pivot: s.pivot, Slope: slope}
	transformer, err := weighting.NewTransformer(split.Train, params)
	if err != nil {
		return 0, err
	}

	trainVectors, err := transformer.TransformCorpus(ctx, split.Train)
	if err != nil {
		return 0, err
	}
	testVectors, err := transformer.TransformCorpus(ctx, split.Test)
	if err != nil {
		return 0, err
	}

	vocabSize := split.VocabSize
	if vocabSize == 0 {
		vocabSize = vocabWidth(split)
	}
	clf := s.factory()
	if err := clf.Fit(weighting.DenseMatrix(trainVectors, vocabSize), split.TrainLabels); err != nil {
		return 0, fmt.Errorf("fitting classifier: %w", err)
	}
	accuracy, err := clf.Score(weighting.DenseMatrix(testVectors, vocabSize), split.TestLabels)
	if err != nil {
		return 0, fmt.Errorf("scoring classifier: %w", err)
	}
	return accuracy, nil
}

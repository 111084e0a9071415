// Package normd holds the weighting service state: the currently fitted
// transformer, the optional transform cache and sweep-run store, and the
// operations the HTTP and stream surfaces expose.
package normd

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lexstat/pivotnorm/internal/eval"
	"github.com/lexstat/pivotnorm/internal/normd/cache"
	"github.com/lexstat/pivotnorm/internal/normd/store"
	"github.com/lexstat/pivotnorm/internal/weighting"
	apperrors "github.com/lexstat/pivotnorm/pkg/errors"
	"github.com/lexstat/pivotnorm/pkg/metrics"
)

// ModelSummary describes the fitted statistics returned to API callers.
// Callers only ever see derived values, never the IDF table itself.
type ModelSummary struct {
	NumDocs      int     `json:"num_docs"`
	VocabSize    int     `json:"vocab_size"`
	AvgDocLength float64 `json:"avg_doc_length"`
	Pivot        float64 `json:"pivot"`
	Slope        float64 `json:"slope"`
	Digest       string  `json:"digest"`
}

// Service owns the fitted transformer. Fit replaces it atomically; Transform
// uses whatever was captured at the last fit and never re-estimates.
type Service struct {
	mu          sync.RWMutex
	transformer *weighting.Transformer
	digest      string

	cache   *cache.TransformCache
	store   *store.RunStore
	sweeper *eval.Sweeper
	metrics *metrics.Metrics
	workers int
	logger  *slog.Logger
}

// New creates a Service. cache, runStore, and sweeper may be nil; the
// corresponding surfaces degrade gracefully.
func New(c *cache.TransformCache, runStore *store.RunStore, sweeper *eval.Sweeper, m *metrics.Metrics, workers int) *Service {
	return &Service{
		cache:   c,
		store:   runStore,
		sweeper: sweeper,
		metrics: m,
		workers: workers,
		logger:  slog.Default().With("component", "normd-service"),
	}
}

// Fit builds a new transformer from the training corpus and parameters and
// installs it as the current model.
func (s *Service) Fit(ctx context.Context, corpus []weighting.CountVector, params weighting.Params) (ModelSummary, error) {
	start := time.Now()
	transformer, err := weighting.NewTransformer(corpus, params)
	if err != nil {
		return ModelSummary{}, err
	}
	transformer = transformer.WithWorkers(s.workers)
	digest := corpusDigest(corpus, params)

	s.mu.Lock()
	s.transformer = transformer
	s.digest = digest
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.FitDuration.Observe(time.Since(start).Seconds())
		s.metrics.FitCorpusSize.Observe(float64(len(corpus)))
	}
	summary := summarize(transformer, digest)
	s.logger.Info("model fitted",
		"num_docs", summary.NumDocs,
		"vocab_size", summary.VocabSize,
		"avg_doc_length", summary.AvgDocLength,
		"pivot", summary.Pivot,
		"slope", summary.Slope,
	)
	return summary, nil
}

// Current returns the fitted transformer, or an error when Fit has not run.
func (s *Service) Current() (*weighting.Transformer, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.transformer == nil {
		return nil, "", fmt.Errorf("%w: call fit before transform", apperrors.ErrNotFitted)
	}
	return s.transformer, s.digest, nil
}

// Model returns the current model summary.
func (s *Service) Model() (ModelSummary, error) {
	transformer, digest, err := s.Current()
	if err != nil {
		return ModelSummary{}, err
	}
	return summarize(transformer, digest), nil
}

// Transform normalizes the given documents with the fitted statistics,
// consulting the transform cache when one is configured.
func (s *Service) Transform(ctx context.Context, docs []weighting.CountVector) ([]weighting.WeightVector, error) {
	transformer, digest, err := s.Current()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	compute := func() ([]weighting.WeightVector, error) {
		return transformer.TransformCorpus(ctx, docs)
	}

	var vectors []weighting.WeightVector
	if s.cache != nil {
		vectors, err = s.cache.GetOrCompute(ctx, cache.Key(digest, docs), compute)
	} else {
		vectors, err = compute()
	}
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TransformDuration.WithLabelValues("api").Observe(time.Since(start).Seconds())
		s.metrics.DocsNormalizedTotal.Add(float64(len(vectors)))
		for _, v := range vectors {
			if len(v) == 0 {
				s.metrics.ZeroVectorDocsTotal.Inc()
			}
		}
	}
	return vectors, nil
}

// Bias runs the length-bias diagnostic.
func (s *Service) Bias(scores, lengths []float64, k int, dir eval.Direction) (eval.BiasReport, error) {
	return eval.EvaluateBias(scores, lengths, k, dir)
}

// Sweep runs the slope-selection driver and records the outcome in the run
// store when one is configured.
func (s *Service) Sweep(ctx context.Context, split eval.Split, slopes []float64) (*eval.SweepReport, error) {
	if s.sweeper == nil {
		return nil, fmt.Errorf("%w: sweep is not configured", apperrors.ErrConfiguration)
	}
	report, err := s.sweeper.Run(ctx, split, slopes)
	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.SweepRunsTotal.WithLabelValues(outcome).Inc()
		s.metrics.SweepCandidates.Observe(float64(len(slopes)))
	}
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		if storeErr := s.store.Record(ctx, store.Run{
			BestSlope:    report.Best.Slope,
			BestAccuracy: report.Best.Accuracy,
			Candidates:   len(slopes),
			TrainDocs:    len(split.Train),
			TestDocs:     len(split.Test),
		}); storeErr != nil {
			s.logger.Error("failed to record sweep run", "error", storeErr)
		}
	}
	return report, nil
}

func summarize(t *weighting.Transformer, digest string) ModelSummary {
	return ModelSummary{
		NumDocs:      t.Model().NumDocs(),
		VocabSize:    t.Model().VocabSize(),
		AvgDocLength: t.Model().AvgDocLength(),
		Pivot:        t.Pivot(),
		Slope:        t.Slope(),
		Digest:       digest,
	}
}

// corpusDigest fingerprints the training corpus and parameters so cached
// transform results are invalidated when either changes.
func corpusDigest(corpus []weighting.CountVector, params weighting.Params) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	enc.Encode(params)
	for _, doc := range corpus {
		enc.Encode(doc)
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
